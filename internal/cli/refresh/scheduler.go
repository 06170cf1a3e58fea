// Package refresh keeps a session alive by refreshing its token on a cron
// schedule.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSchedule refreshes well inside the API's token lifetime
const DefaultSchedule = "@every 10m"

// ErrSessionEnded is returned by Run when a refresh failed and the session
// was logged out
var ErrSessionEnded = errors.New("token refresh failed, session ended")

// Refresher is implemented by the session store
type Refresher interface {
	RefreshToken(ctx context.Context) bool
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a five-field cron expression or a descriptor such as
// "@every 10m" or "@hourly"
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// Stats summarises a keepalive run
type Stats struct {
	Refreshes   int
	LastRefresh time.Time
}

// Scheduler calls RefreshToken each time the schedule fires
type Scheduler struct {
	refresher Refresher
	schedule  cron.Schedule
	logger    zerolog.Logger

	// OnRefresh is called after every successful refresh
	OnRefresh func(at time.Time)

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New creates a scheduler
func New(r Refresher, schedule cron.Schedule, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		refresher: r,
		schedule:  schedule,
		logger:    logger.With().Str("component", "keepalive").Logger(),
		now:       time.Now,
		after:     time.After,
	}
}

// NextRun returns when the schedule fires next after from
func (s *Scheduler) NextRun(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// Run blocks until ctx is cancelled (nil error) or a refresh fails
// (ErrSessionEnded). Refreshes never overlap, and one that has started runs
// to completion even if ctx ends meanwhile.
func (s *Scheduler) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	for {
		now := s.now()
		next := s.schedule.Next(now)
		if next.IsZero() {
			return stats, fmt.Errorf("refresh schedule never fires")
		}

		s.logger.Debug().Time("next_refresh_at", next).Msg("Waiting for next refresh")

		select {
		case <-ctx.Done():
			return stats, nil
		case <-s.after(next.Sub(now)):
		}

		if !s.refresher.RefreshToken(context.WithoutCancel(ctx)) {
			s.logger.Warn().Int("refreshes", stats.Refreshes).Msg("Token refresh failed, stopping keepalive")
			return stats, ErrSessionEnded
		}

		stats.Refreshes++
		stats.LastRefresh = s.now()
		s.logger.Info().Int("refreshes", stats.Refreshes).Msg("Token refreshed")

		if s.OnRefresh != nil {
			s.OnRefresh(stats.LastRefresh)
		}
	}
}
