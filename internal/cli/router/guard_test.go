package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/bankctl-dev/bankctl/internal/cli/auth"
	"github.com/bankctl-dev/bankctl/internal/cli/client"
	"github.com/bankctl-dev/bankctl/internal/cli/services"
	"github.com/bankctl-dev/bankctl/internal/cli/session"
	"github.com/bankctl-dev/bankctl/internal/models"
)

// fakeSession serves a fixed snapshot and counts profile fetches
type fakeSession struct {
	snap    session.Snapshot
	user    *models.User
	err     error
	fetches int
}

func (f *fakeSession) Snapshot() session.Snapshot { return f.snap }

func (f *fakeSession) CurrentUser(ctx context.Context) (*models.User, error) {
	f.fetches++
	if f.err != nil {
		f.snap = session.Snapshot{}
		return nil, f.err
	}
	f.snap.User = f.user
	return f.user, nil
}

func TestResolve(t *testing.T) {
	r, err := Resolve("/admin")
	require.NoError(t, err)
	assert.True(t, r.Meta.RequiresAuth)
	assert.True(t, r.Meta.RequiresAdmin)

	r, err = Resolve("/wallet/")
	require.NoError(t, err)
	assert.Equal(t, "Wallet", r.Name)

	r, err = Resolve("/")
	require.NoError(t, err)
	assert.Equal(t, "Landing", r.Name)

	_, err = Resolve("/nowhere")
	assert.ErrorIs(t, err, ErrUnknownRoute)

	assert.Panics(t, func() { MustResolve("/nowhere") })
}

func TestRoutes_AuthPagesNeverRequireAuth(t *testing.T) {
	for _, r := range Routes {
		if r.Meta.IsAuthPage {
			assert.False(t, r.Meta.RequiresAuth, r.Path)
		}
		if r.Meta.RequiresAdmin {
			assert.True(t, r.Meta.RequiresAuth, r.Path)
		}
	}
}

func TestGuard_Before(t *testing.T) {
	alice := &models.User{ID: "1", Username: "alice"}
	root := &models.User{ID: "2", Username: "admin", IsAdmin: true}
	errRejected := &client.StatusError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized"}

	tests := []struct {
		name        string
		snap        session.Snapshot
		fetchUser   *models.User
		fetchErr    error
		to, from    string
		want        Decision
		wantFetches int
	}{
		{
			name: "logged out to protected page",
			to:   "/wallet", from: "/",
			want: Decision{Redirect: PathLogin},
		},
		{
			name: "logged out to public page",
			to:   "/blog", from: "/",
			want: Decision{Allow: true},
		},
		{
			name: "logged out to landing",
			to:   "/", from: "/blog",
			want: Decision{Allow: true},
		},
		{
			name: "logged out to login",
			to:   PathLogin, from: "/",
			want: Decision{Allow: true},
		},
		{
			name: "logged in to auth page",
			snap: session.Snapshot{Token: "tok", User: alice},
			to:   "/auth/register", from: "/wallet",
			want: Decision{Redirect: PathDashboard},
		},
		{
			name: "logged in to landing",
			snap: session.Snapshot{Token: "tok", User: alice},
			to:   "/", from: "/wallet",
			want: Decision{Redirect: PathDashboard},
		},
		{
			name: "loaded user to protected page",
			snap: session.Snapshot{Token: "tok", User: alice},
			to:   "/transactions", from: PathDashboard,
			want: Decision{Allow: true},
		},
		{
			name:      "unloaded user fetched once",
			snap:      session.Snapshot{Token: "tok"},
			fetchUser: alice,
			to:        "/support", from: "/",
			want:        Decision{Allow: true},
			wantFetches: 1,
		},
		{
			name:     "fetch failure sends to login",
			snap:     session.Snapshot{Token: "expired"},
			fetchErr: errRejected,
			to:       "/wallet", from: "/",
			want:        Decision{Redirect: PathLogin},
			wantFetches: 1,
		},
		{
			name: "just logged in to dashboard trusts token",
			snap: session.Snapshot{Token: "tok"},
			to:   PathDashboard, from: PathLogin,
			want: Decision{Allow: true},
		},
		{
			name: "2fa page to dashboard trusts token",
			snap: session.Snapshot{Token: "tok"},
			to:   PathDashboard, from: PathTwoFactor,
			want: Decision{Allow: true},
		},
		{
			name:      "login page to other protected page still fetches",
			snap:      session.Snapshot{Token: "tok"},
			fetchUser: alice,
			to:        "/wallet", from: PathLogin,
			want:        Decision{Allow: true},
			wantFetches: 1,
		},
		{
			name: "non admin to admin",
			snap: session.Snapshot{Token: "tok", User: alice},
			to:   "/admin", from: PathDashboard,
			want: Decision{Redirect: PathDashboard},
		},
		{
			name:      "admin fetched then allowed",
			snap:      session.Snapshot{Token: "tok"},
			fetchUser: root,
			to:        "/admin", from: PathDashboard,
			want:        Decision{Allow: true},
			wantFetches: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeSession{snap: tt.snap, user: tt.fetchUser, err: tt.fetchErr}
			g := NewGuard(fs, zerolog.Nop())

			got := g.Before(context.Background(), MustResolve(tt.to), MustResolve(tt.from))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFetches, fs.fetches)
		})
	}
}

func TestGuard_RedirectTargetsAreReachable(t *testing.T) {
	// A redirect never leads to a page that would redirect again for the
	// same session state.
	states := []session.Snapshot{
		{},
		{Token: "tok", User: &models.User{Username: "alice"}},
		{Token: "tok", User: &models.User{Username: "admin", IsAdmin: true}},
	}
	for _, snap := range states {
		for _, to := range Routes {
			g := NewGuard(&fakeSession{snap: snap, user: snap.User}, zerolog.Nop())
			d := g.Before(context.Background(), to, MustResolve("/"))
			if d.Allow {
				continue
			}
			next := g.Before(context.Background(), MustResolve(d.Redirect), to)
			assert.True(t, next.Allow, "redirect from %s to %s bounced", to.Path, d.Redirect)
		}
	}
}

// The optimistic post-login branch admits the dashboard even when the API
// would reject the token; the first authenticated call then logs out.
func TestGuard_TrustBoundaryAfterLogin(t *testing.T) {
	keyring.MockInit()

	var meCalls, logoutCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"revoked","token_type":"bearer","user":{"id":"1","username":"alice"}}`))
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		meCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Token has been revoked"}`))
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		logoutCalls.Add(1)
		w.Write([]byte(`{"message":"Successfully logged out"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := client.New(server.URL + "/api")
	tokens := auth.NewKeyring(server.URL)
	store := session.New(services.NewAuth(c, nil), tokens, zerolog.Nop())
	ctx := context.Background()

	_, err := store.Login(ctx, models.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	g := NewGuard(store, zerolog.Nop())
	d := g.Before(ctx, MustResolve(PathDashboard), MustResolve(PathLogin))
	assert.True(t, d.Allow)
	assert.Zero(t, meCalls.Load())

	// First real request on the dashboard surfaces the rejection
	_, err = store.CurrentUser(ctx)
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, int32(1), logoutCalls.Load())

	_, err = tokens.Load()
	assert.True(t, errors.Is(err, auth.ErrNotAuthenticated))

	d = g.Before(ctx, MustResolve("/wallet"), MustResolve(PathDashboard))
	assert.Equal(t, Decision{Redirect: PathLogin}, d)
}
