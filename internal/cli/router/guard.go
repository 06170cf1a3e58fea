package router

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bankctl-dev/bankctl/internal/cli/session"
	"github.com/bankctl-dev/bankctl/internal/models"
)

// Session is what the guard reads and drives
type Session interface {
	Snapshot() session.Snapshot
	CurrentUser(ctx context.Context) (*models.User, error)
}

// Decision is the outcome of a navigation check. When Allow is false,
// Redirect names the path to go to instead.
type Decision struct {
	Allow    bool
	Redirect string
}

func allow() Decision { return Decision{Allow: true} }

func redirect(path string) Decision { return Decision{Redirect: path} }

// Guard decides whether a navigation may proceed
type Guard struct {
	session Session
	logger  zerolog.Logger
}

// NewGuard creates a guard over s
func NewGuard(s Session, logger zerolog.Logger) *Guard {
	return &Guard{
		session: s,
		logger:  logger.With().Str("component", "router").Logger(),
	}
}

// Before runs ahead of every navigation from `from` to `to`. It performs at
// most one profile fetch and never more than one redirect.
func (g *Guard) Before(ctx context.Context, to, from Route) Decision {
	snap := g.session.Snapshot()

	if snap.IsAuthenticated() && to.Meta.IsAuthPage {
		return redirect(PathDashboard)
	}

	if to.Meta.RequiresAuth {
		if !snap.IsAuthenticated() {
			return redirect(PathLogin)
		}

		// Right after login the token is trusted without a round trip;
		// the first API call on the dashboard verifies it.
		if from.isPostLogin() && to.Path == PathDashboard {
			return allow()
		}

		user := snap.User
		if user == nil {
			fetched, err := g.session.CurrentUser(ctx)
			if err != nil || fetched == nil {
				g.logger.Debug().Err(err).Str("to", to.Path).Msg("Profile fetch failed during navigation")
				return redirect(PathLogin)
			}
			user = fetched
		}

		if to.Meta.RequiresAdmin && !user.IsAdmin {
			return redirect(PathDashboard)
		}
		return allow()
	}

	if to.Path == PathLanding && snap.IsAuthenticated() {
		return redirect(PathDashboard)
	}

	return allow()
}
