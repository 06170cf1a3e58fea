package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bankctl-dev/bankctl/internal/models"
)

// Users wraps profile and user management endpoints
type Users struct {
	base
}

// PasswordChange is the body of POST /auth/change-password
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Me returns the caller's profile
func (u *Users) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := u.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe edits the caller's profile
func (u *Users) UpdateMe(ctx context.Context, user models.UserUpdate) (*models.User, error) {
	var updated models.User
	if err := u.do(ctx, http.MethodPut, "/users/me", nil, user, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Get returns a user by ID. Members may only read themselves.
func (u *Users) Get(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := u.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Update edits a user by ID. Only admins may change the account flags.
func (u *Users) Update(ctx context.Context, userID string, user models.UserUpdate) (*models.User, error) {
	var updated models.User
	if err := u.do(ctx, http.MethodPut, "/users/"+url.PathEscape(userID), nil, user, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a user by ID (admin only)
func (u *Users) Delete(ctx context.Context, userID string) error {
	return u.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID), nil, nil, nil)
}

// List returns all users (admin only)
func (u *Users) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := u.do(ctx, http.MethodGet, "/users/", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ChangePassword updates the caller's password
func (u *Users) ChangePassword(ctx context.Context, change PasswordChange) (*models.Message, error) {
	var msg models.Message
	if err := u.do(ctx, http.MethodPost, "/auth/change-password", nil, change, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Search finds users matching query
func (u *Users) Search(ctx context.Context, query string) ([]models.User, error) {
	var users []models.User
	if err := u.do(ctx, http.MethodGet, "/users/search", url.Values{"q": {query}}, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}
