package rollup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/revlens-lab/revlens/internal/core/period"
	"github.com/revlens-lab/revlens/internal/core/report"
	"github.com/revlens-lab/revlens/internal/core/storage"
)

// flakyUpstream fails the first failures calls to OrdersInRange, then delegates.
type flakyUpstream struct {
	*fakeUpstream
	failures int
	calls    int
}

func (f *flakyUpstream) OrdersInRange(ctx context.Context, window period.Range) ([]report.Order, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, storage.Unavailable("orders in range", errors.New("connection reset"))
	}
	return f.fakeUpstream.OrdersInRange(ctx, window)
}

func TestScheduler_RetriesUpstreamUnavailable(t *testing.T) {
	upstream := &flakyUpstream{fakeUpstream: marchUpstream(), failures: 2}
	store := newMemStore()
	engine := NewEngine(upstream, store)

	s := NewScheduler(engine, SchedulerParameter{
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	})

	p, err := period.Parse("2024-03")
	require.NoError(t, err)

	require.NoError(t, s.refreshWithRetry(context.Background(), p))
	require.Equal(t, 3, upstream.calls)

	_, ok := store.status["2024-03"]
	require.True(t, ok)
}

func TestScheduler_GivesUpAfterMaxRetries(t *testing.T) {
	upstream := &flakyUpstream{fakeUpstream: marchUpstream(), failures: 10}
	engine := NewEngine(upstream, newMemStore())

	s := NewScheduler(engine, SchedulerParameter{
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})

	p, err := period.Parse("2024-03")
	require.NoError(t, err)

	err = s.refreshWithRetry(context.Background(), p)
	require.ErrorIs(t, err, storage.ErrUpstreamUnavailable)
	require.Equal(t, 3, upstream.calls) // initial attempt + 2 retries
}

func TestScheduler_RefreshIfStaleSkipsFreshPeriods(t *testing.T) {
	upstream := &flakyUpstream{fakeUpstream: marchUpstream()}
	store := newMemStore()
	engine := NewEngine(upstream, store)
	engine.nowFn = func() time.Time { return time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC) }

	s := NewScheduler(engine, SchedulerParameter{RetryBackoff: time.Millisecond})

	p, err := period.Parse("2024-03")
	require.NoError(t, err)

	require.NoError(t, s.refreshIfStale(context.Background(), p))
	require.Equal(t, 1, upstream.calls)

	// Period is fresh now: no second upstream scan.
	require.NoError(t, s.refreshIfStale(context.Background(), p))
	require.Equal(t, 1, upstream.calls)
}

func TestScheduler_BackfillCoversDaysAndMonths(t *testing.T) {
	upstream := marchUpstream()
	store := newMemStore()
	engine := NewEngine(upstream, store)
	now := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	engine.nowFn = func() time.Time { return now }

	s := NewScheduler(engine, SchedulerParameter{
		BackfillDays: 3,
		RetryBackoff: time.Millisecond,
	})
	s.nowFn = engine.nowFn

	require.NoError(t, s.backfill(context.Background()))

	// Three trailing days plus the previous month.
	for _, key := range []string{"2024-03-11", "2024-03-10", "2024-03-09", "2024-02"} {
		_, ok := store.status[key]
		require.True(t, ok, "expected refresh for %s", key)
	}
}
