package sandbox

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bankctl-dev/bankctl/internal/auth"
	"github.com/bankctl-dev/bankctl/internal/models"
)

// resetTokenTTL bounds the validity of a password reset token
const resetTokenTTL = 30 * time.Minute

// LoginRequest represents a login request. Username may also be an email.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TwoFactorLoginRequest completes a login pending a second factor
type TwoFactorLoginRequest struct {
	UserID models.UserRef `json:"user_id"`
	Code   string         `json:"code" binding:"required"`
}

// RegisterRequest creates an account
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32,alphanumdash"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"max=100"`
}

// PasswordResetRequest asks for a reset token
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirm sets a new password with a reset token
type PasswordResetConfirm struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePasswordRequest changes the password of the caller
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	var user User
	err := s.db.Where("username = ? OR email = ?", req.Username, strings.ToLower(req.Username)).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.internalError(c, err, "Failed to look up user")
			return
		}
		errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.recordLogin(c, user.ID, "failed")
		errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !user.IsActive {
		s.recordLogin(c, user.ID, "blocked")
		errorJSON(c, http.StatusForbidden, "Account is disabled")
		return
	}

	if user.TwoFactorEnabled {
		c.JSON(http.StatusOK, models.LoginResponse{
			Requires2FA: true,
			Message:     "2FA code required",
			UserID:      models.UserRef{Value: user.ID},
		})
		return
	}

	s.issueLogin(c, &user)
}

func (s *Server) login2FA(c *gin.Context) {
	var req TwoFactorLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.UserID.IsZero() {
		errorJSON(c, http.StatusBadRequest, "user_id is required")
		return
	}

	var user User
	if err := FindByID(s.db, req.UserID.String(), &user); err != nil {
		errorJSON(c, http.StatusUnauthorized, "Invalid 2FA code")
		return
	}

	if !user.TwoFactorEnabled || !auth.ValidateTOTP(req.Code, user.TwoFactorSecret) {
		s.recordLogin(c, user.ID, "failed")
		errorJSON(c, http.StatusUnauthorized, "Invalid 2FA code")
		return
	}

	if !user.IsActive {
		s.recordLogin(c, user.ID, "blocked")
		errorJSON(c, http.StatusForbidden, "Account is disabled")
		return
	}

	s.issueLogin(c, &user)
}

// issueLogin signs a token for user and records the successful login
func (s *Server) issueLogin(c *gin.Context, user *User) {
	token, _, err := s.signer.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		s.internalError(c, err, "Failed to generate token")
		return
	}

	s.recordLogin(c, user.ID, "success")

	c.JSON(http.StatusOK, models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

func (s *Server) recordLogin(c *gin.Context, userID, status string) {
	attempt := LoginAttempt{
		UserID:    userID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Status:    status,
		Location:  "Sandbox",
	}
	if err := s.db.Create(&attempt).Error; err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to record login attempt")
	}
}

func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	email := strings.ToLower(req.Email)

	var existing int64
	if err := s.db.Model(&User{}).Where("username = ? OR email = ?", req.Username, email).Count(&existing).Error; err != nil {
		s.internalError(c, err, "Failed to check existing users")
		return
	}
	if existing > 0 {
		errorJSON(c, http.StatusConflict, "Username or email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	user := User{
		Username:     req.Username,
		Email:        email,
		Name:         req.Name,
		PasswordHash: hash,
		IsActive:     true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&Wallet{UserID: user.ID, Currency: "USD"}).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to create user")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	c.JSON(http.StatusCreated, user.toModel())
}

func (s *Server) requestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if !bindJSON(c, &req) {
		return
	}

	var user User
	if err := s.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err == nil {
		reset := ResetToken{UserID: user.ID, ExpiresAt: time.Now().Add(resetTokenTTL)}
		if err := s.db.Create(&reset).Error; err != nil {
			s.internalError(c, err, "Failed to create reset token")
			return
		}
		// The sandbox has no mail delivery; the token goes to the log
		s.logger.Warn().Str("user_id", user.ID).Str("reset_token", reset.ID).Msg("Password reset token issued")
	}

	c.JSON(http.StatusOK, models.Message{Message: "If email exists, reset link will be sent"})
}

func (s *Server) confirmPasswordReset(c *gin.Context) {
	var req PasswordResetConfirm
	if !bindJSON(c, &req) {
		return
	}

	var reset ResetToken
	if err := FindByID(s.db, req.Token, &reset); err != nil || reset.Used || time.Now().After(reset.ExpiresAt) {
		errorJSON(c, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&User{}).Where("id = ?", reset.UserID).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return tx.Model(&reset).Update("used", true).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to reset password")
		return
	}

	c.JSON(http.StatusOK, models.Message{Message: "Password has been reset"})
}

func (s *Server) getCurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c).toModel())
}

// refreshToken issues a new token and revokes the one presented
func (s *Server) refreshToken(c *gin.Context) {
	session, _ := GetSessionData(c)
	user := currentUser(c)

	token, _, err := s.signer.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		s.internalError(c, err, "Failed to generate token")
		return
	}

	if err := s.revoke(session); err != nil {
		s.internalError(c, err, "Failed to revoke previous token")
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Message:     "Token refreshed",
	})
}

func (s *Server) logout(c *gin.Context) {
	session, _ := GetSessionData(c)
	if err := s.revoke(session); err != nil {
		s.internalError(c, err, "Failed to revoke token")
		return
	}

	c.JSON(http.StatusOK, models.Message{Message: "Successfully logged out"})
}

func (s *Server) revoke(session *auth.SessionData) error {
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&RevokedToken{
		BaseModel: BaseModel{ID: session.TokenID},
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	}).Error
}

func (s *Server) changePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	user := currentUser(c)
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		errorJSON(c, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.db.Model(user).Update("password_hash", hash).Error; err != nil {
		s.internalError(c, err, "Failed to update password")
		return
	}

	c.JSON(http.StatusOK, models.Message{Message: "Password changed successfully"})
}
