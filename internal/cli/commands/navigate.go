package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/bankctl-dev/bankctl/internal/cli/auth"
	"github.com/bankctl-dev/bankctl/internal/cli/router"
)

// ErrAdminRequired is returned when a non-admin opens an admin screen
var ErrAdminRequired = errors.New("admin access required")

// RedirectError reports a navigation the guard turned away
type RedirectError struct {
	From, To, Redirect string
	Err                error
}

func (e *RedirectError) Error() string {
	return e.Err.Error()
}

func (e *RedirectError) Unwrap() error {
	return e.Err
}

// Navigate asks the guard whether `to` may be entered. A redirect from the
// landing screen to the dashboard is followed once; every other redirect
// becomes an error telling the user what to do instead.
func (rt *Runtime) Navigate(ctx context.Context, to, from router.Route) (router.Route, error) {
	d := rt.Guard.Before(ctx, to, from)
	if d.Allow {
		return to, nil
	}

	rt.Logger.Debug().Str("to", to.Path).Str("redirect", d.Redirect).Msg("Navigation redirected")

	redirectErr := &RedirectError{From: from.Path, To: to.Path, Redirect: d.Redirect}

	switch {
	case d.Redirect == router.PathLogin:
		redirectErr.Err = auth.ErrNotAuthenticated
	case d.Redirect == router.PathDashboard && to.Meta.IsAuthPage:
		redirectErr.Err = fmt.Errorf("already logged in as %s. Run 'bankctl logout' first", rt.whoami())
	case d.Redirect == router.PathDashboard && to.Meta.RequiresAdmin:
		redirectErr.Err = ErrAdminRequired
	case d.Redirect == router.PathDashboard && to.Path == router.PathLanding:
		target := router.MustResolve(router.PathDashboard)
		if next := rt.Guard.Before(ctx, target, to); next.Allow {
			return target, nil
		}
		redirectErr.Err = auth.ErrNotAuthenticated
	default:
		redirectErr.Err = fmt.Errorf("cannot open %s, redirected to %s", to.Path, d.Redirect)
	}

	return router.Route{}, redirectErr
}

func (rt *Runtime) whoami() string {
	if user := rt.Session.User(); user != nil {
		return user.Username
	}
	return "the current user"
}
