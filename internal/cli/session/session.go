// Package session holds the client-side authentication state: the access
// token, the profile of the user it belongs to, and the transitions between
// logged out, pending second factor and logged in.
//
// Token and user change together under one lock, and the persisted token is
// written under the same lock, so no reader ever sees a user without a token.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/bankctl-dev/bankctl/internal/cli/auth"
	"github.com/bankctl-dev/bankctl/internal/models"
)

// ErrNoAccessToken is returned when a login succeeds without issuing a token
var ErrNoAccessToken = errors.New("login response did not include an access token")

// Authenticator is the subset of the auth facade the session drives
type Authenticator interface {
	Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error)
	Login2FA(ctx context.Context, userID models.UserRef, code string) (*models.LoginResponse, error)
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	Logout(ctx context.Context, token string) (*models.Message, error)
	CurrentUser(ctx context.Context, token string) (*models.User, error)
	Refresh(ctx context.Context, token string) (*models.TokenResponse, error)
	RequestPasswordReset(ctx context.Context, email string) (*models.Message, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) (*models.Message, error)
}

// PendingTwoFactor is the state between an accepted password and the
// one-time code. It is never persisted.
type PendingTwoFactor struct {
	UserID  models.UserRef
	Message string
}

// LoginResult is the outcome of Login or Login2FA. Exactly one of Pending
// and User is set.
type LoginResult struct {
	Pending  *PendingTwoFactor
	User     *models.User
	Response *models.LoginResponse
}

// Snapshot is a consistent copy of the session at one instant
type Snapshot struct {
	Token   string
	User    *models.User
	Loading bool
}

// IsAuthenticated reports whether a token is held
func (s Snapshot) IsAuthenticated() bool { return s.Token != "" }

// IsUserLoaded reports whether the profile has been fetched
func (s Snapshot) IsUserLoaded() bool { return s.User != nil }

// IsAdmin reports whether the loaded profile carries the admin flag
func (s Snapshot) IsAdmin() bool { return s.User != nil && s.User.IsAdmin }

// Store is the session of one API. Create it with New and call Init once.
type Store struct {
	mu    sync.RWMutex
	token string
	user  *models.User

	inflight atomic.Int32

	auth   Authenticator
	tokens auth.TokenStore
	logger zerolog.Logger
}

// New creates an empty session persisted in tokens
func New(authenticator Authenticator, tokens auth.TokenStore, logger zerolog.Logger) *Store {
	return &Store{
		auth:   authenticator,
		tokens: tokens,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

func (s *Store) begin() func() {
	s.inflight.Add(1)
	return func() { s.inflight.Add(-1) }
}

// Token returns the current access token, or "" when logged out. It is the
// TokenSource handed to the service facades.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the loaded profile, or nil
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

// Snapshot returns token, user and loading flag read together
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Token:   s.token,
		User:    copyUser(s.user),
		Loading: s.Loading(),
	}
}

// IsAuthenticated reports whether a token is held
func (s *Store) IsAuthenticated() bool { return s.Snapshot().IsAuthenticated() }

// IsUserLoaded reports whether the profile has been fetched
func (s *Store) IsUserLoaded() bool { return s.Snapshot().IsUserLoaded() }

// IsAdmin reports whether the loaded profile is an admin
func (s *Store) IsAdmin() bool { return s.Snapshot().IsAdmin() }

// Loading reports whether any session call is in flight
func (s *Store) Loading() bool {
	return s.inflight.Load() > 0
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Init restores the persisted token and loads its profile. A token the API
// rejects is discarded locally without a logout call.
func (s *Store) Init(ctx context.Context) error {
	done := s.begin()
	defer done()

	s.mu.Lock()
	s.user = nil
	token, err := s.tokens.Load()
	if err != nil && !errors.Is(err, auth.ErrNotAuthenticated) {
		s.mu.Unlock()
		return fmt.Errorf("failed to load stored token: %w", err)
	}
	s.token = token
	s.mu.Unlock()

	if token == "" {
		return nil
	}

	user, err := s.auth.CurrentUser(ctx, token)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Stored token rejected, clearing session")
		s.clearIf(token)
		return nil
	}

	s.installUser(token, user)
	return nil
}

// Login submits credentials. When the API asks for a second factor the
// result carries Pending and no token is stored.
func (s *Store) Login(ctx context.Context, creds models.Credentials) (*LoginResult, error) {
	done := s.begin()
	defer done()

	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()

	resp, err := s.auth.Login(ctx, creds)
	if err != nil {
		return nil, err
	}

	if resp.Requires2FA {
		return &LoginResult{
			Pending: &PendingTwoFactor{
				UserID:  resp.UserID,
				Message: resp.Message,
			},
			Response: resp,
		}, nil
	}

	return s.establish(ctx, resp)
}

// Login2FA completes a pending login with the one-time code
func (s *Store) Login2FA(ctx context.Context, userID models.UserRef, code string) (*LoginResult, error) {
	done := s.begin()
	defer done()

	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()

	resp, err := s.auth.Login2FA(ctx, userID, code)
	if err != nil {
		return nil, err
	}

	return s.establish(ctx, resp)
}

// establish stores the issued token and makes sure the profile is loaded.
// The follow-up profile fetch is given the new token directly.
func (s *Store) establish(ctx context.Context, resp *models.LoginResponse) (*LoginResult, error) {
	token := resp.AccessToken
	if token == "" {
		return nil, ErrNoAccessToken
	}

	if err := s.setToken(token, resp.User); err != nil {
		return nil, err
	}

	user := copyUser(resp.User)
	if user == nil {
		fetched, err := s.auth.CurrentUser(ctx, token)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Profile fetch after login failed")
			s.logoutIf(ctx, token)
			return nil, err
		}
		s.installUser(token, fetched)
		user = copyUser(fetched)
	}

	return &LoginResult{User: user, Response: resp}, nil
}

// CurrentUser fetches and stores the profile of the held token. It returns
// (nil, nil) when logged out. A failed fetch logs the session out.
func (s *Store) CurrentUser(ctx context.Context) (*models.User, error) {
	token := s.Token()
	if token == "" {
		return nil, nil
	}

	done := s.begin()
	defer done()

	user, err := s.auth.CurrentUser(ctx, token)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Get current user failed")
		s.logoutIf(ctx, token)
		return nil, err
	}

	s.installUser(token, user)
	return copyUser(user), nil
}

// RefreshToken exchanges the held token for a new one. Any failure logs the
// session out and reports false; no error escapes. A refresh abandoned
// because ctx ended is not a failure: the session is kept as it was.
func (s *Store) RefreshToken(ctx context.Context) bool {
	token := s.Token()
	if token == "" {
		return false
	}

	done := s.begin()
	defer done()

	resp, err := s.auth.Refresh(ctx, token)
	if err != nil && ctx.Err() != nil {
		s.logger.Debug().Err(err).Msg("Token refresh abandoned")
		return false
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Token refresh failed")
		s.logoutIf(ctx, token)
		return false
	}

	if resp.AccessToken == "" {
		// Acknowledged without rotation; the current token stays valid
		s.logger.Debug().Msg("Token refresh acknowledged without a new token")
		return s.Token() == token
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != token {
		// Logged out or replaced while the refresh was in flight
		return false
	}

	s.token = resp.AccessToken
	if err := s.tokens.Save(resp.AccessToken); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist refreshed token")
	}
	return true
}

// Logout notifies the API on a best-effort basis, then clears token, user
// and persisted storage whatever the outcome of the notification.
func (s *Store) Logout(ctx context.Context) {
	done := s.begin()
	defer done()

	token := s.Token()
	if token != "" {
		s.notifyLogout(ctx, token)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// logoutIf logs out only if token is still the held token. A failure seen
// for a token that has since been replaced must not end the newer session.
func (s *Store) logoutIf(ctx context.Context, token string) {
	if s.Token() != token {
		return
	}
	s.notifyLogout(ctx, token)
	s.clearIf(token)
}

func (s *Store) notifyLogout(ctx context.Context, token string) {
	if _, err := s.auth.Logout(ctx, token); err != nil {
		s.logger.Warn().Err(err).Msg("Logout error")
	}
}

// Register creates an account. The session is not changed.
func (s *Store) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	done := s.begin()
	defer done()
	return s.auth.Register(ctx, reg)
}

// RequestPasswordReset asks for a reset link. The session is not changed.
func (s *Store) RequestPasswordReset(ctx context.Context, email string) (*models.Message, error) {
	done := s.begin()
	defer done()
	return s.auth.RequestPasswordReset(ctx, email)
}

// ResetPassword completes a reset. The session is not changed.
func (s *Store) ResetPassword(ctx context.Context, resetToken, newPassword string) (*models.Message, error) {
	done := s.begin()
	defer done()
	return s.auth.ResetPassword(ctx, resetToken, newPassword)
}

// setToken installs a newly issued token and persists it. On a storage
// failure the session is left logged out.
func (s *Store) setToken(token string, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tokens.Save(token); err != nil {
		s.clearLocked()
		return fmt.Errorf("failed to save authentication token: %w", err)
	}

	s.token = token
	s.user = copyUser(user)
	return nil
}

// installUser stores user only if token is still the held token
func (s *Store) installUser(token string, user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != token {
		s.logger.Debug().Msg("Dropping profile fetched for a replaced token")
		return
	}
	s.user = copyUser(user)
}

func (s *Store) clearIf(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != token {
		return
	}
	s.clearLocked()
}

// clearLocked drops token and user together and removes the persisted
// token. Caller holds s.mu.
func (s *Store) clearLocked() {
	s.token = ""
	s.user = nil
	if err := s.tokens.Delete(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to remove stored token")
	}
}
