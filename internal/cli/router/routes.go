// Package router holds the screen table of the client and the navigation
// guard that decides whether a screen may be entered.
package router

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRoute is returned by Resolve for paths not in the route table
var ErrUnknownRoute = errors.New("unknown route")

// Meta carries the access flags of a route
type Meta struct {
	RequiresAuth  bool
	RequiresAdmin bool
	IsAuthPage    bool
}

// Route is one navigable screen
type Route struct {
	Path string
	Name string
	Meta Meta
}

// Well-known paths the guard redirects to
const (
	PathLanding   = "/"
	PathLogin     = "/auth/login"
	PathTwoFactor = "/auth/login/2fa"
	PathDashboard = "/dashboard"
)

var (
	authOnly  = Meta{RequiresAuth: true}
	adminOnly = Meta{RequiresAuth: true, RequiresAdmin: true}
	authPage  = Meta{IsAuthPage: true}
)

// Routes is the route table
var Routes = []Route{
	{Path: PathLanding, Name: "Landing"},

	{Path: PathLogin, Name: "Login", Meta: authPage},
	{Path: PathTwoFactor, Name: "TwoFactor", Meta: authPage},
	{Path: "/auth/register", Name: "Register", Meta: authPage},
	{Path: "/auth/password-reset", Name: "PasswordReset", Meta: authPage},

	{Path: PathDashboard, Name: "Dashboard", Meta: authOnly},
	{Path: "/wallet", Name: "Wallet", Meta: authOnly},
	{Path: "/transactions", Name: "Transactions", Meta: authOnly},
	{Path: "/transfer", Name: "Transfer", Meta: authOnly},
	{Path: "/profile", Name: "Profile", Meta: authOnly},
	{Path: "/support", Name: "Support", Meta: authOnly},
	{Path: "/login-history", Name: "LoginHistory", Meta: authOnly},
	{Path: "/security", Name: "Security", Meta: authOnly},

	{Path: "/admin", Name: "Admin", Meta: adminOnly},

	{Path: "/blog", Name: "Blog"},
	{Path: "/help", Name: "Help"},
	{Path: "/legal", Name: "Legal"},
}

// Resolve looks up the route for path. A trailing slash is ignored.
func Resolve(path string) (Route, error) {
	if path != PathLanding {
		path = strings.TrimRight(path, "/")
	}
	for _, r := range Routes {
		if r.Path == path {
			return r, nil
		}
	}
	return Route{}, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
}

// MustResolve is Resolve for paths known at compile time
func MustResolve(path string) Route {
	r, err := Resolve(path)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Route) isPostLogin() bool {
	return r.Path == PathLogin || r.Path == PathTwoFactor
}
