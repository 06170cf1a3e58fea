package sandbox

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/bankctl-dev/bankctl/internal/auth"
)

const (
	bearerPrefix = "Bearer "
	sessionKey   = "session"
	userKey      = "user"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenRevoked      = errors.New("token revoked")
	ErrUserNotFound      = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData, user *User) {
	c.Set(sessionKey, sessionData)
	c.Set(userKey, user)
}

// GetSessionData returns the session attached by JWTAuthMiddleware
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

// currentUser returns the account loaded by JWTAuthMiddleware
func currentUser(c *gin.Context) *User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*User); ok {
			return user
		}
	}
	return nil
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// JWTAuthMiddleware validates the bearer token, rejects revoked tokens and
// loads the account it belongs to
func JWTAuthMiddleware(db *gorm.DB, signer *auth.Signer, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			var message string
			switch err {
			case ErrMissingAuthHeader:
				message = "Missing authorization header"
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			respondWithError(c, log, http.StatusUnauthorized, err, message)
			return
		}

		claims, err := signer.ValidateToken(token)
		if err != nil {
			respondWithError(c, log, http.StatusUnauthorized, ErrInvalidToken, "Invalid or expired token")
			return
		}

		var revoked int64
		if err := db.Model(&RevokedToken{}).Where("id = ?", claims.ID).Count(&revoked).Error; err != nil {
			respondWithError(c, log, http.StatusInternalServerError, err, "Internal server error")
			return
		}
		if revoked > 0 {
			respondWithError(c, log, http.StatusUnauthorized, ErrTokenRevoked, "Token has been revoked")
			return
		}

		var user User
		if err := FindByID(db, claims.UserID, &user); err != nil || !user.IsActive {
			respondWithError(c, log, http.StatusUnauthorized, ErrUserNotFound, "User not found or inactive")
			return
		}

		sessionData := auth.NewSessionData(claims)
		sessionData.IsAdmin = user.IsAdmin
		setSession(c, sessionData, &user)

		c.Next()
	}
}

// AdminOnlyMiddleware ensures the authenticated user is an admin
func AdminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondWithError(c, log, http.StatusUnauthorized, errors.New("no session"), "Unauthorized")
			return
		}

		if !sessionData.IsAdmin {
			respondWithError(c, log, http.StatusForbidden, errors.New("not admin"), "Admin access required")
			return
		}

		c.Next()
	}
}
