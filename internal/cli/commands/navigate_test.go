package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankctl-dev/bankctl/internal/cli/auth"
	"github.com/bankctl-dev/bankctl/internal/cli/router"
	appconfig "github.com/bankctl-dev/bankctl/internal/config"
)

// memToken holds one API's token in memory
type memToken struct{ token string }

func (m *memToken) Save(token string) error { m.token = token; return nil }

func (m *memToken) Load() (string, error) {
	if m.token == "" {
		return "", auth.ErrNotAuthenticated
	}
	return m.token, nil
}

func (m *memToken) Delete() error { m.token = ""; return nil }

// newNavRuntime serves /auth/me with the given body and status
func newNavRuntime(t *testing.T, status int, body string, token string) (*Runtime, *int32) {
	t.Helper()

	var meCalls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/me" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&meCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)

	stored := &memToken{token: token}
	opts := &Options{
		Env: &appconfig.Config{API: appconfig.APIConfig{Timeout: 5 * time.Second}},
		Tokens: func(apiURL string) auth.TokenStore {
			assert.Equal(t, ts.URL, apiURL)
			return stored
		},
		Logger: zerolog.Nop(),
	}
	rt := NewRuntime(opts, "test", ts.URL)
	require.NoError(t, rt.Session.Init(context.Background()))
	return rt, &meCalls
}

func TestNavigate(t *testing.T) {
	ctx := context.Background()
	landing := router.MustResolve(router.PathLanding)
	alice := `{"id":"1","username":"alice","is_admin":false}`

	t.Run("logged out user is sent to login", func(t *testing.T) {
		rt, _ := newNavRuntime(t, http.StatusOK, alice, "")

		_, err := rt.Navigate(ctx, router.MustResolve("/wallet"), landing)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

		var redirect *RedirectError
		require.ErrorAs(t, err, &redirect)
		assert.Equal(t, router.PathLogin, redirect.Redirect)
	})

	t.Run("public screen is allowed without a session", func(t *testing.T) {
		rt, _ := newNavRuntime(t, http.StatusOK, alice, "")

		route, err := rt.Navigate(ctx, router.MustResolve("/blog"), landing)
		require.NoError(t, err)
		assert.Equal(t, "/blog", route.Path)
	})

	t.Run("auth page with a session names the user", func(t *testing.T) {
		rt, _ := newNavRuntime(t, http.StatusOK, alice, "tok")

		_, err := rt.Navigate(ctx, router.MustResolve(router.PathLogin), landing)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already logged in as alice")
	})

	t.Run("landing follows the dashboard redirect", func(t *testing.T) {
		rt, _ := newNavRuntime(t, http.StatusOK, alice, "tok")

		route, err := rt.Navigate(ctx, landing, landing)
		require.NoError(t, err)
		assert.Equal(t, router.PathDashboard, route.Path)
	})

	t.Run("admin screen is refused for a regular user", func(t *testing.T) {
		rt, _ := newNavRuntime(t, http.StatusOK, alice, "tok")

		_, err := rt.Navigate(ctx, router.MustResolve("/admin"), landing)
		assert.ErrorIs(t, err, ErrAdminRequired)
	})

	t.Run("admin screen is allowed for an admin", func(t *testing.T) {
		rt, _ := newNavRuntime(t, http.StatusOK, `{"id":"9","username":"root","is_admin":true}`, "tok")

		route, err := rt.Navigate(ctx, router.MustResolve("/admin"), landing)
		require.NoError(t, err)
		assert.Equal(t, "/admin", route.Path)
	})

	t.Run("rejected stored token ends the session during init", func(t *testing.T) {
		rt, calls := newNavRuntime(t, http.StatusUnauthorized, `{"error":"Invalid or expired token"}`, "stale")
		assert.Equal(t, int32(1), atomic.LoadInt32(calls))
		assert.False(t, rt.Session.IsAuthenticated())

		_, err := rt.Navigate(ctx, router.MustResolve("/wallet"), landing)
		assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
		assert.Equal(t, int32(1), atomic.LoadInt32(calls), "no further profile fetch without a token")
	})
}

func TestBindRoute(t *testing.T) {
	cmd := BindRoute(newTestCommand(), "/wallet")
	path, ok := RouteOf(cmd)
	assert.True(t, ok)
	assert.Equal(t, "/wallet", path)
	assert.True(t, usesSession(cmd))

	plain := newTestCommand()
	assert.False(t, usesSession(plain))
	assert.True(t, usesSession(NeedsSession(plain)))

	assert.Panics(t, func() { BindRoute(newTestCommand(), "/nowhere") })
}

func newTestCommand() *cobra.Command {
	return &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
}
