package sandbox

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bankctl-dev/bankctl/internal/auth"
	"github.com/bankctl-dev/bankctl/internal/models"
)

const recentLoginLimit = 10

// CodeRequest carries a one-time code
type CodeRequest struct {
	Code string `json:"code" binding:"required,numeric,len=6"`
}

// twoFactorStatus reports the 2FA state. While 2FA is off, a secret is
// provisioned on first request and returned for enrolment.
func (s *Server) twoFactorStatus(c *gin.Context) {
	user := currentUser(c)

	if user.TwoFactorEnabled {
		c.JSON(http.StatusOK, models.TwoFactorStatus{TwoFactorEnabled: true})
		return
	}

	if user.TwoFactorSecret == "" {
		key, err := auth.GenerateTOTPKey(user.Username)
		if err != nil {
			s.internalError(c, err, "Failed to generate 2FA secret")
			return
		}

		user.TwoFactorSecret = key.Secret()
		user.TwoFactorURL = key.URL()
		err = s.db.Model(user).Updates(map[string]interface{}{
			"two_factor_secret": user.TwoFactorSecret,
			"two_factor_url":    user.TwoFactorURL,
		}).Error
		if err != nil {
			s.internalError(c, err, "Failed to store 2FA secret")
			return
		}
	}

	c.JSON(http.StatusOK, models.TwoFactorStatus{
		TwoFactorEnabled: false,
		Secret:           user.TwoFactorSecret,
		QRCodeURL:        user.TwoFactorURL,
		Message:          "Add the secret to your authenticator app, then enable 2FA with a code",
	})
}

func (s *Server) enableTwoFactor(c *gin.Context) {
	var req CodeRequest
	if !bindJSON(c, &req) {
		return
	}

	user := currentUser(c)
	if user.TwoFactorEnabled {
		errorJSON(c, http.StatusBadRequest, "2FA is already enabled")
		return
	}
	if user.TwoFactorSecret == "" {
		errorJSON(c, http.StatusBadRequest, "Request 2FA status first to generate a secret")
		return
	}
	if !auth.ValidateTOTP(req.Code, user.TwoFactorSecret) {
		errorJSON(c, http.StatusBadRequest, "Invalid 2FA code")
		return
	}

	if err := s.db.Model(user).Update("two_factor_enabled", true).Error; err != nil {
		s.internalError(c, err, "Failed to enable 2FA")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("2FA enabled")
	c.JSON(http.StatusOK, models.TwoFactorStatus{
		TwoFactorEnabled: true,
		Message:          "2FA enabled successfully",
	})
}

func (s *Server) disableTwoFactor(c *gin.Context) {
	var req CodeRequest
	if !bindJSON(c, &req) {
		return
	}

	user := currentUser(c)
	if !user.TwoFactorEnabled {
		errorJSON(c, http.StatusBadRequest, "2FA is not enabled")
		return
	}
	if !auth.ValidateTOTP(req.Code, user.TwoFactorSecret) {
		errorJSON(c, http.StatusBadRequest, "Invalid 2FA code")
		return
	}

	err := s.db.Model(user).Updates(map[string]interface{}{
		"two_factor_enabled": false,
		"two_factor_secret":  "",
		"two_factor_url":     "",
	}).Error
	if err != nil {
		s.internalError(c, err, "Failed to disable 2FA")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("2FA disabled")
	c.JSON(http.StatusOK, models.TwoFactorStatus{
		TwoFactorEnabled: false,
		Message:          "2FA disabled successfully",
	})
}

func (s *Server) verifyTwoFactor(c *gin.Context) {
	var req CodeRequest
	if !bindJSON(c, &req) {
		return
	}

	user := currentUser(c)
	if !auth.ValidateTOTP(req.Code, user.TwoFactorSecret) {
		errorJSON(c, http.StatusBadRequest, "Invalid 2FA code")
		return
	}

	c.JSON(http.StatusOK, models.TwoFactorStatus{
		TwoFactorEnabled: user.TwoFactorEnabled,
		Message:          "2FA code is valid",
	})
}

// Login history is returned as a plain array, newest first
func (s *Server) listLoginHistory(c *gin.Context) {
	s.respondLoginHistory(c, limitParam(c, defaultListLimit))
}

func (s *Server) recentLoginHistory(c *gin.Context) {
	s.respondLoginHistory(c, limitParam(c, recentLoginLimit))
}

func (s *Server) respondLoginHistory(c *gin.Context, limit int) {
	var attempts []LoginAttempt
	err := s.db.Where("user_id = ?", currentUser(c).ID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		s.internalError(c, err, "Failed to list login history")
		return
	}

	out := make([]models.LoginHistory, 0, len(attempts))
	for i := range attempts {
		out = append(out, attempts[i].toModel())
	}
	c.JSON(http.StatusOK, out)
}
