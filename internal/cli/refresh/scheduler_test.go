package refresh

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRefresher struct {
	results []bool
	calls   atomic.Int32
	onCall  func(ctx context.Context, n int)
}

func (r *scriptedRefresher) RefreshToken(ctx context.Context) bool {
	n := int(r.calls.Add(1))
	if r.onCall != nil {
		r.onCall(ctx, n)
	}
	if n > len(r.results) {
		return true
	}
	return r.results[n-1]
}

// instant fires immediately so tests do not wait on wall-clock schedules
func instant(s *Scheduler) {
	s.after = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
}

func mustSchedule(t *testing.T, expr string) *Scheduler {
	t.Helper()
	schedule, err := ParseSchedule(expr)
	require.NoError(t, err)
	return New(nil, schedule, zerolog.Nop())
}

func TestParseSchedule(t *testing.T) {
	from := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	s := mustSchedule(t, DefaultSchedule)
	assert.Equal(t, from.Add(10*time.Minute), s.NextRun(from))

	s = mustSchedule(t, "*/15 * * * *")
	assert.Equal(t, from.Add(15*time.Minute), s.NextRun(from))

	_, err := ParseSchedule("every ten minutes")
	assert.Error(t, err)
}

func TestRun_StopsAfterFailedRefresh(t *testing.T) {
	r := &scriptedRefresher{results: []bool{true, true, false}}
	s := mustSchedule(t, DefaultSchedule)
	s.refresher = r
	instant(s)

	var seen []time.Time
	s.OnRefresh = func(at time.Time) { seen = append(seen, at) }

	stats, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionEnded)
	assert.Equal(t, 2, stats.Refreshes)
	assert.Len(t, seen, 2)
	assert.Equal(t, int32(3), r.calls.Load())
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &scriptedRefresher{onCall: func(_ context.Context, n int) {
		if n == 4 {
			cancel()
		}
	}}
	s := mustSchedule(t, DefaultSchedule)
	s.refresher = r

	fired := make(chan time.Time)
	close(fired)
	s.after = func(time.Duration) <-chan time.Time {
		if ctx.Err() != nil {
			return make(chan time.Time)
		}
		return fired
	}

	stats, err := s.Run(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Refreshes, 3)
	assert.LessOrEqual(t, stats.Refreshes, 4)
}

func TestRun_CancelledBeforeFirstFire(t *testing.T) {
	r := &scriptedRefresher{}
	s := mustSchedule(t, "@hourly")
	s.refresher = r

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Refreshes)
	assert.Zero(t, r.calls.Load())
}

func TestRun_WaitsForSchedule(t *testing.T) {
	r := &scriptedRefresher{results: []bool{false}}
	s := mustSchedule(t, "@every 30s")
	s.refresher = r

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	var waited time.Duration
	s.after = func(d time.Duration) <-chan time.Time {
		waited = d
		ch := make(chan time.Time, 1)
		ch <- base.Add(d)
		return ch
	}

	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrSessionEnded)
	assert.Equal(t, 30*time.Second, waited)
}

func TestRun_CancelDuringRefreshLetsItFinish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cancelledInside bool
	r := &scriptedRefresher{onCall: func(refreshCtx context.Context, n int) {
		cancel()
		cancelledInside = refreshCtx.Err() != nil
	}}
	s := mustSchedule(t, DefaultSchedule)
	s.refresher = r
	s.after = func(time.Duration) <-chan time.Time {
		if ctx.Err() != nil {
			return make(chan time.Time)
		}
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	var refreshed int
	s.OnRefresh = func(time.Time) { refreshed++ }

	stats, err := s.Run(ctx)
	require.NoError(t, err)
	assert.False(t, cancelledInside, "an in-flight refresh must not see the cancellation")
	assert.Equal(t, 1, stats.Refreshes)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, int32(1), r.calls.Load())
}
