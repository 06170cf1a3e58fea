package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankctl-dev/bankctl/internal/cli/auth"
	"github.com/bankctl-dev/bankctl/internal/cli/client"
	"github.com/bankctl-dev/bankctl/internal/cli/services"
	"github.com/bankctl-dev/bankctl/internal/models"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// memoryTokenStore is a simple in-memory token store for testing
type memoryTokenStore struct {
	mu      sync.Mutex
	token   string
	stored  bool
	loadErr error
	saveErr error
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{}
}

func (m *memoryTokenStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token, m.stored = token, true
	return nil
}

func (m *memoryTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return "", m.loadErr
	}
	if !m.stored {
		return "", auth.ErrNotAuthenticated
	}
	return m.token, nil
}

func (m *memoryTokenStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.stored = "", false
	return nil
}

func (m *memoryTokenStore) get() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.stored
}

// fakeAuth scripts the auth facade. Unset hooks fail the test when called.
type fakeAuth struct {
	t *testing.T

	mu          sync.Mutex
	meTokens    []string
	logoutCalls []string

	login    func(models.Credentials) (*models.LoginResponse, error)
	login2FA func(models.UserRef, string) (*models.LoginResponse, error)
	me       func(token string) (*models.User, error)
	refresh  func(token string) (*models.TokenResponse, error)
	logout   func(token string) error
}

var errUnauthorized = &client.StatusError{Method: "GET", Path: "/auth/me", StatusCode: 401, Message: "Unauthorized"}

func (f *fakeAuth) Login(_ context.Context, creds models.Credentials) (*models.LoginResponse, error) {
	require.NotNil(f.t, f.login, "unexpected Login call")
	return f.login(creds)
}

func (f *fakeAuth) Login2FA(_ context.Context, userID models.UserRef, code string) (*models.LoginResponse, error) {
	require.NotNil(f.t, f.login2FA, "unexpected Login2FA call")
	return f.login2FA(userID, code)
}

func (f *fakeAuth) Register(_ context.Context, reg models.Registration) (*models.User, error) {
	return &models.User{Username: reg.Username, Email: reg.Email}, nil
}

func (f *fakeAuth) Logout(_ context.Context, token string) (*models.Message, error) {
	f.mu.Lock()
	f.logoutCalls = append(f.logoutCalls, token)
	f.mu.Unlock()
	if f.logout != nil {
		if err := f.logout(token); err != nil {
			return nil, err
		}
	}
	return &models.Message{Message: "Successfully logged out"}, nil
}

func (f *fakeAuth) CurrentUser(_ context.Context, token string) (*models.User, error) {
	f.mu.Lock()
	f.meTokens = append(f.meTokens, token)
	f.mu.Unlock()
	require.NotNil(f.t, f.me, "unexpected CurrentUser call")
	return f.me(token)
}

func (f *fakeAuth) Refresh(_ context.Context, token string) (*models.TokenResponse, error) {
	require.NotNil(f.t, f.refresh, "unexpected Refresh call")
	return f.refresh(token)
}

func (f *fakeAuth) RequestPasswordReset(_ context.Context, email string) (*models.Message, error) {
	return &models.Message{Message: "If email exists, reset link will be sent"}, nil
}

func (f *fakeAuth) ResetPassword(_ context.Context, resetToken, newPassword string) (*models.Message, error) {
	return &models.Message{Message: "Password updated"}, nil
}

func (f *fakeAuth) calls() (me []string, logout []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.meTokens...), append([]string(nil), f.logoutCalls...)
}

func newTestStore(t *testing.T, fa *fakeAuth) (*Store, *memoryTokenStore) {
	t.Helper()
	fa.t = t
	tokens := newMemoryTokenStore()
	return New(fa, tokens, zerolog.Nop()), tokens
}

func assertLoggedOut(t *testing.T, s *Store, tokens *memoryTokenStore) {
	t.Helper()
	snap := s.Snapshot()
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)
	_, stored := tokens.get()
	assert.False(t, stored, "token must be removed from storage")
}

func alice() *models.User {
	return &models.User{ID: "u-alice", Username: "alice", Email: "alice@example.com"}
}

func TestLogin_EmbeddedUser(t *testing.T) {
	fa := &fakeAuth{
		login: func(c models.Credentials) (*models.LoginResponse, error) {
			assert.Equal(t, "alice", c.Username)
			return &models.LoginResponse{AccessToken: "tok-1", TokenType: "bearer", User: alice()}, nil
		},
	}
	s, tokens := newTestStore(t, fa)

	result, err := s.Login(context.Background(), models.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	require.Nil(t, result.Pending)
	assert.Equal(t, "alice", result.User.Username)

	assert.True(t, s.IsAuthenticated())
	assert.True(t, s.IsUserLoaded())
	assert.False(t, s.IsAdmin())
	stored, _ := tokens.get()
	assert.Equal(t, "tok-1", stored)

	me, _ := fa.calls()
	assert.Empty(t, me, "no profile fetch when the login response embeds the user")
}

func TestLogin_FollowUpFetchUsesNewToken(t *testing.T) {
	fa := &fakeAuth{
		login: func(models.Credentials) (*models.LoginResponse, error) {
			return &models.LoginResponse{AccessToken: "fresh", TokenType: "bearer"}, nil
		},
		me: func(token string) (*models.User, error) {
			if token != "fresh" {
				return nil, errUnauthorized
			}
			return &models.User{ID: "u-root", Username: "admin", IsAdmin: true}, nil
		},
	}
	s, _ := newTestStore(t, fa)

	result, err := s.Login(context.Background(), models.Credentials{Username: "admin", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "admin", result.User.Username)

	me, _ := fa.calls()
	assert.Equal(t, []string{"fresh"}, me)
	assert.True(t, s.IsUserLoaded())
	assert.True(t, s.IsAdmin())
}

func TestLogin_FollowUpFetchFailureTearsDown(t *testing.T) {
	fa := &fakeAuth{
		login: func(models.Credentials) (*models.LoginResponse, error) {
			return &models.LoginResponse{AccessToken: "fresh"}, nil
		},
		me: func(string) (*models.User, error) { return nil, errUnauthorized },
	}
	s, tokens := newTestStore(t, fa)

	_, err := s.Login(context.Background(), models.Credentials{Username: "alice", Password: "pw"})
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))
	assertLoggedOut(t, s, tokens)
}

func TestLogin_TwoFactorRequiredSetsNoToken(t *testing.T) {
	fa := &fakeAuth{
		login: func(models.Credentials) (*models.LoginResponse, error) {
			return &models.LoginResponse{
				Requires2FA: true,
				Message:     "2FA code required",
				UserID:      models.UserRef{Value: "u-bob"},
			}, nil
		},
		login2FA: func(id models.UserRef, code string) (*models.LoginResponse, error) {
			assert.Equal(t, "u-bob", id.String())
			if code != "123456" {
				return nil, &client.StatusError{StatusCode: 401, Message: "Invalid 2FA code"}
			}
			return &models.LoginResponse{AccessToken: "tok-bob", User: &models.User{ID: "u-bob", Username: "bob"}}, nil
		},
	}
	s, tokens := newTestStore(t, fa)
	ctx := context.Background()

	result, err := s.Login(ctx, models.Credentials{Username: "bob", Password: "pw"})
	require.NoError(t, err)
	require.NotNil(t, result.Pending)
	assert.Equal(t, "2FA code required", result.Pending.Message)
	assertLoggedOut(t, s, tokens)

	_, err = s.Login2FA(ctx, result.Pending.UserID, "000000")
	require.Error(t, err)
	assertLoggedOut(t, s, tokens)

	result, err = s.Login2FA(ctx, result.Pending.UserID, "123456")
	require.NoError(t, err)
	assert.Equal(t, "bob", result.User.Username)
	assert.Equal(t, "tok-bob", s.Token())
	stored, _ := tokens.get()
	assert.Equal(t, "tok-bob", stored)
}

func TestLogin_ClearsPreviousUser(t *testing.T) {
	release := make(chan struct{})
	fa := &fakeAuth{
		login: func(models.Credentials) (*models.LoginResponse, error) {
			<-release
			return nil, &client.StatusError{StatusCode: 401, Message: "Incorrect username or password"}
		},
	}
	s, tokens := newTestStore(t, fa)
	require.NoError(t, tokens.Save("old"))
	fa.me = func(string) (*models.User, error) { return alice(), nil }
	require.NoError(t, s.Init(context.Background()))
	require.True(t, s.IsUserLoaded())

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), models.Credentials{Username: "x", Password: "y"})
		errCh <- err
	}()

	require.Eventually(t, func() bool { return !s.IsUserLoaded() }, timeout, tick)
	assert.True(t, s.Loading())
	close(release)
	require.Error(t, <-errCh)
	assert.False(t, s.Loading())
}

func TestLogin_MissingTokenIsAnError(t *testing.T) {
	fa := &fakeAuth{
		login: func(models.Credentials) (*models.LoginResponse, error) {
			return &models.LoginResponse{TokenType: "bearer"}, nil
		},
	}
	s, tokens := newTestStore(t, fa)

	_, err := s.Login(context.Background(), models.Credentials{Username: "alice", Password: "pw"})
	assert.ErrorIs(t, err, ErrNoAccessToken)
	assertLoggedOut(t, s, tokens)
}

func TestLogin_StorageFailureLeavesLoggedOut(t *testing.T) {
	fa := &fakeAuth{
		login: func(models.Credentials) (*models.LoginResponse, error) {
			return &models.LoginResponse{AccessToken: "tok", User: alice()}, nil
		},
	}
	s, tokens := newTestStore(t, fa)
	tokens.saveErr = errors.New("keychain locked")

	_, err := s.Login(context.Background(), models.Credentials{Username: "alice", Password: "pw"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save authentication token")
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())
}

func TestCurrentUser_NoTokenIsNoop(t *testing.T) {
	s, _ := newTestStore(t, &fakeAuth{})

	user, err := s.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCurrentUser_FailureForcesLogout(t *testing.T) {
	fa := &fakeAuth{
		login: func(models.Credentials) (*models.LoginResponse, error) {
			return &models.LoginResponse{AccessToken: "tok", User: alice()}, nil
		},
		me:     func(string) (*models.User, error) { return nil, errUnauthorized },
		logout: func(string) error { return errors.New("connection refused") },
	}
	s, tokens := newTestStore(t, fa)
	ctx := context.Background()

	_, err := s.Login(ctx, models.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	user, err := s.CurrentUser(ctx)
	assert.Nil(t, user)
	require.ErrorIs(t, err, error(errUnauthorized))
	assertLoggedOut(t, s, tokens)

	_, logouts := fa.calls()
	assert.Equal(t, []string{"tok"}, logouts)
}

func TestRefreshToken(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		s, _ := newTestStore(t, &fakeAuth{})
		assert.False(t, s.RefreshToken(context.Background()))
	})

	t.Run("rotates and persists", func(t *testing.T) {
		fa := &fakeAuth{
			me: func(string) (*models.User, error) { return alice(), nil },
			refresh: func(token string) (*models.TokenResponse, error) {
				assert.Equal(t, "old", token)
				return &models.TokenResponse{AccessToken: "new"}, nil
			},
		}
		s, tokens := newTestStore(t, fa)
		require.NoError(t, tokens.Save("old"))
		require.NoError(t, s.Init(context.Background()))

		assert.True(t, s.RefreshToken(context.Background()))
		assert.Equal(t, "new", s.Token())
		assert.True(t, s.IsUserLoaded())
		stored, _ := tokens.get()
		assert.Equal(t, "new", stored)
	})

	t.Run("acknowledged without rotation", func(t *testing.T) {
		fa := &fakeAuth{
			me: func(string) (*models.User, error) { return alice(), nil },
			refresh: func(string) (*models.TokenResponse, error) {
				return &models.TokenResponse{Message: "Token refreshed"}, nil
			},
		}
		s, tokens := newTestStore(t, fa)
		require.NoError(t, tokens.Save("old"))
		require.NoError(t, s.Init(context.Background()))

		assert.True(t, s.RefreshToken(context.Background()))
		assert.Equal(t, "old", s.Token())
	})

	t.Run("failure logs out without raising", func(t *testing.T) {
		fa := &fakeAuth{
			me: func(string) (*models.User, error) { return alice(), nil },
			refresh: func(string) (*models.TokenResponse, error) {
				return nil, &client.StatusError{StatusCode: 401, Message: "token expired"}
			},
		}
		s, tokens := newTestStore(t, fa)
		require.NoError(t, tokens.Save("old"))
		require.NoError(t, s.Init(context.Background()))

		assert.False(t, s.RefreshToken(context.Background()))
		assertLoggedOut(t, s, tokens)
	})
}

func TestLogout_ClearsEvenWhenNotificationFails(t *testing.T) {
	fa := &fakeAuth{
		me:     func(string) (*models.User, error) { return alice(), nil },
		logout: func(string) error { return errors.New("network unreachable") },
	}
	s, tokens := newTestStore(t, fa)
	require.NoError(t, tokens.Save("tok"))
	require.NoError(t, s.Init(context.Background()))
	require.True(t, s.IsAuthenticated())

	s.Logout(context.Background())
	assertLoggedOut(t, s, tokens)

	_, logouts := fa.calls()
	assert.Equal(t, []string{"tok"}, logouts)
}

func TestLogout_WithoutTokenSkipsNotification(t *testing.T) {
	fa := &fakeAuth{}
	s, tokens := newTestStore(t, fa)

	s.Logout(context.Background())
	assertLoggedOut(t, s, tokens)

	_, logouts := fa.calls()
	assert.Empty(t, logouts)
}

func TestInit(t *testing.T) {
	t.Run("nothing stored", func(t *testing.T) {
		s, _ := newTestStore(t, &fakeAuth{})
		require.NoError(t, s.Init(context.Background()))
		assert.False(t, s.IsAuthenticated())
	})

	t.Run("valid stored token", func(t *testing.T) {
		fa := &fakeAuth{me: func(string) (*models.User, error) { return alice(), nil }}
		s, tokens := newTestStore(t, fa)
		require.NoError(t, tokens.Save("tok"))

		require.NoError(t, s.Init(context.Background()))
		assert.Equal(t, "tok", s.Token())
		assert.Equal(t, "alice", s.User().Username)
	})

	t.Run("rejected token cleared without logout call", func(t *testing.T) {
		fa := &fakeAuth{me: func(string) (*models.User, error) { return nil, errUnauthorized }}
		s, tokens := newTestStore(t, fa)
		require.NoError(t, tokens.Save("expired"))

		require.NoError(t, s.Init(context.Background()))
		assertLoggedOut(t, s, tokens)

		_, logouts := fa.calls()
		assert.Empty(t, logouts)
	})

	t.Run("storage failure", func(t *testing.T) {
		s, tokens := newTestStore(t, &fakeAuth{})
		tokens.loadErr = errors.New("keychain locked")

		err := s.Init(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "keychain locked")
	})
}

func TestPassThroughCallsLeaveSessionAlone(t *testing.T) {
	s, tokens := newTestStore(t, &fakeAuth{})
	ctx := context.Background()

	user, err := s.Register(ctx, models.Registration{Username: "carol", Email: "carol@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)

	_, err = s.RequestPasswordReset(ctx, "carol@example.com")
	require.NoError(t, err)

	_, err = s.ResetPassword(ctx, "reset", "new")
	require.NoError(t, err)

	assertLoggedOut(t, s, tokens)
}

func TestStaleProfileIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fa := &fakeAuth{
		me: func(string) (*models.User, error) {
			close(started)
			<-release
			return alice(), nil
		},
	}
	s, tokens := newTestStore(t, fa)
	require.NoError(t, tokens.Save("tok"))

	done := make(chan error, 1)
	go func() { done <- s.Init(context.Background()) }()

	<-started
	s.Logout(context.Background())
	close(release)
	require.NoError(t, <-done)

	assertLoggedOut(t, s, tokens)
}

func TestConcurrentTransitionsKeepInvariant(t *testing.T) {
	var counter int
	var counterMu sync.Mutex
	nextToken := func() string {
		counterMu.Lock()
		defer counterMu.Unlock()
		counter++
		return fmt.Sprintf("tok-%d", counter)
	}

	fa := &fakeAuth{
		login: func(models.Credentials) (*models.LoginResponse, error) {
			return &models.LoginResponse{AccessToken: nextToken()}, nil
		},
		me: func(token string) (*models.User, error) {
			if rand.Intn(4) == 0 {
				return nil, errUnauthorized
			}
			return alice(), nil
		},
		refresh: func(string) (*models.TokenResponse, error) {
			if rand.Intn(3) == 0 {
				return nil, errUnauthorized
			}
			return &models.TokenResponse{AccessToken: nextToken()}, nil
		},
	}
	s, _ := newTestStore(t, fa)
	ctx := context.Background()

	stop := make(chan struct{})
	violations := make(chan Snapshot, 1)
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := s.Snapshot()
			if snap.Token == "" && snap.User != nil {
				select {
				case violations <- snap:
				default:
				}
			}
		}
	}()

	var writers sync.WaitGroup
	for i := 0; i < 8; i++ {
		writers.Add(1)
		go func(seed int) {
			defer writers.Done()
			for j := 0; j < 50; j++ {
				switch (seed + j) % 4 {
				case 0:
					s.Login(ctx, models.Credentials{Username: "alice", Password: "pw"})
				case 1:
					s.CurrentUser(ctx)
				case 2:
					s.RefreshToken(ctx)
				case 3:
					s.Logout(ctx)
				}
			}
		}(i)
	}
	writers.Wait()
	close(stop)
	readers.Wait()

	select {
	case snap := <-violations:
		t.Fatalf("observed user without token: %+v", snap)
	default:
	}
	assert.False(t, s.Loading())
}

// newHTTPStore wires a session to a real auth facade over handler
func newHTTPStore(t *testing.T, handler http.Handler) (*Store, *memoryTokenStore) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	tokens := newMemoryTokenStore()
	return New(services.NewAuth(client.New(ts.URL), nil), tokens, zerolog.Nop()), tokens
}

func TestLogin_NumericIDs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok-7","token_type":"bearer"}`))
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-7", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":7,"username":"root","email":"root@example.com","is_admin":true,` +
			`"created_at":"2024-05-01T09:30:00.123456","updated_at":null}`))
	})
	s, tokens := newHTTPStore(t, mux)

	result, err := s.Login(context.Background(), models.Credentials{Username: "root", Password: "pw"})
	require.NoError(t, err)
	require.NotNil(t, result.User)
	assert.Equal(t, "7", result.User.ID.String())
	assert.Equal(t, time.Date(2024, 5, 1, 9, 30, 0, 123456000, time.UTC), result.User.CreatedAt.Time)

	snap := s.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.True(t, snap.IsAdmin())
	stored, _ := tokens.get()
	assert.Equal(t, "tok-7", stored)
}

func TestRefreshToken_CancelledMidFlightKeepsSession(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u-alice","username":"alice"}`))
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(timeout):
		}
		w.Write([]byte(`{"access_token":"late"}`))
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		t.Error("a cancelled refresh must not log out")
	})
	s, tokens := newHTTPStore(t, mux)
	defer close(release)

	require.NoError(t, tokens.Save("old"))
	require.NoError(t, s.Init(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.False(t, s.RefreshToken(ctx))

	snap := s.Snapshot()
	assert.Equal(t, "old", snap.Token)
	assert.True(t, snap.IsUserLoaded())
	stored, ok := tokens.get()
	assert.True(t, ok)
	assert.Equal(t, "old", stored)
}
