package services

import (
	"context"
	"net/http"

	"github.com/bankctl-dev/bankctl/internal/cli/client"
	"github.com/bankctl-dev/bankctl/internal/models"
)

// Auth wraps the /auth endpoints. Operations tied to a particular session
// token take it explicitly so a freshly issued token is used even before it
// becomes visible to the TokenSource.
type Auth struct {
	base
}

// NewAuth creates the auth facade
func NewAuth(c *client.Client, token TokenSource) *Auth {
	return &Auth{newBase(c, token)}
}

// Login submits username and password
func (a *Auth) Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := a.do(ctx, http.MethodPost, "/auth/login", nil, creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login2FA submits the one-time code for a pending second-factor login
func (a *Auth) Login2FA(ctx context.Context, userID models.UserRef, code string) (*models.LoginResponse, error) {
	body := struct {
		UserID models.UserRef `json:"user_id"`
		Code   string         `json:"code"`
	}{UserID: userID, Code: code}

	var resp models.LoginResponse
	if err := a.do(ctx, http.MethodPost, "/auth/login/2fa", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a new account
func (a *Auth) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	var user models.User
	if err := a.do(ctx, http.MethodPost, "/auth/register", nil, reg, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout tells the API to end the session identified by token
func (a *Auth) Logout(ctx context.Context, token string) (*models.Message, error) {
	var msg models.Message
	if err := a.doWithToken(ctx, token, http.MethodPost, "/auth/logout", nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CurrentUser fetches the profile owning token
func (a *Auth) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := a.doWithToken(ctx, token, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Refresh exchanges token for a new one
func (a *Auth) Refresh(ctx context.Context, token string) (*models.TokenResponse, error) {
	var resp models.TokenResponse
	if err := a.doWithToken(ctx, token, http.MethodPost, "/auth/refresh", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestPasswordReset asks the API to mail a reset link
func (a *Auth) RequestPasswordReset(ctx context.Context, email string) (*models.Message, error) {
	body := map[string]string{"email": email}

	var msg models.Message
	if err := a.do(ctx, http.MethodPost, "/auth/password-reset", nil, body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ResetPassword completes a reset with the mailed token
func (a *Auth) ResetPassword(ctx context.Context, resetToken, newPassword string) (*models.Message, error) {
	body := map[string]string{
		"token":        resetToken,
		"new_password": newPassword,
	}

	var msg models.Message
	if err := a.do(ctx, http.MethodPost, "/auth/password-reset/confirm", nil, body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
