package rollup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/revlens-lab/revlens/internal/core/period"
	"github.com/revlens-lab/revlens/internal/core/storage"
)

// SchedulerParameter controls the refresh cadence and retry behavior.
type SchedulerParameter struct {
	TickInterval time.Duration // how often period boundaries are checked
	BackfillDays int           // catch-up horizon at startup
	MaxRetries   int           // retries for upstream-unavailable failures
	RetryBackoff time.Duration // base backoff, doubled per attempt
}

func (p SchedulerParameter) normalized() SchedulerParameter {
	n := p
	if n.TickInterval <= 0 {
		n.TickInterval = time.Minute
	}
	if n.BackfillDays < 0 {
		n.BackfillDays = 0
	}
	if n.MaxRetries < 0 {
		n.MaxRetries = 0
	}
	if n.RetryBackoff <= 0 {
		n.RetryBackoff = 5 * time.Second
	}
	return n
}

// Scheduler triggers refreshes once a period's end boundary has passed.
// It is stateless between ticks: each tick independently checks the most
// recently completed day and month against the store's staleness records.
type Scheduler struct {
	engine *Engine
	opts   SchedulerParameter
	nowFn  func() time.Time
}

// NewScheduler creates a boundary scheduler over the given engine.
func NewScheduler(engine *Engine, opts SchedulerParameter) *Scheduler {
	return &Scheduler{
		engine: engine,
		opts:   opts.normalized(),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the scheduler until the context is cancelled.
// A startup backfill pass covers the configured horizon first, then each tick
// refreshes whichever completed periods are still stale.
func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("[Scheduler] Starting rollup scheduler",
		"tick_interval", s.opts.TickInterval,
		"backfill_days", s.opts.BackfillDays,
		"max_retries", s.opts.MaxRetries,
	)

	if err := s.backfill(ctx); err != nil {
		slog.Error("[Scheduler] Startup backfill incomplete", "error", err)
	}

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refreshCompletedPeriods(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")
			return nil
		}
	}
}

// backfill refreshes every stale day in the horizon plus the months they touch.
// Periods are independent windows over immutable history, so they run
// concurrently; the per-period in-flight guard in the engine still applies.
func (s *Scheduler) backfill(ctx context.Context) error {
	now := s.nowFn()
	periods := make(map[string]period.Period)

	day := period.PreviousDay(now)
	for i := 0; i < s.opts.BackfillDays; i++ {
		periods[day.Key()] = day
		month := period.MonthOf(day.Start)
		if month.Elapsed(now) {
			periods[month.Key()] = month
		}
		day = period.DayOf(day.Start.Add(-time.Hour))
	}
	periods[period.PreviousMonth(now).Key()] = period.PreviousMonth(now)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range periods {
		p := p
		g.Go(func() error {
			return s.refreshIfStale(gctx, p)
		})
	}
	return g.Wait()
}

func (s *Scheduler) refreshCompletedPeriods(ctx context.Context) {
	now := s.nowFn()
	for _, p := range []period.Period{period.PreviousDay(now), period.PreviousMonth(now)} {
		if err := s.refreshIfStale(ctx, p); err != nil {
			slog.Error("[Scheduler] Refresh failed", "period", p.Key(), "error", err)
		}
	}
}

func (s *Scheduler) refreshIfStale(ctx context.Context, p period.Period) error {
	_, stale, err := s.engine.Status(ctx, p)
	if err != nil {
		return err
	}
	if !stale {
		return nil
	}
	return s.refreshWithRetry(ctx, p)
}

// refreshWithRetry retries upstream-unavailable failures with exponential
// backoff. Data-quality problems are already handled inside the engine
// (logged, excluded) and anything else is surfaced immediately; retrying a
// deterministic failure would just repeat it.
func (s *Scheduler) refreshWithRetry(ctx context.Context, p period.Period) error {
	backoff := s.opts.RetryBackoff

	var err error
	for attempt := 0; ; attempt++ {
		err = s.engine.Refresh(ctx, p)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrConcurrentRefresh) {
			slog.Info("[Scheduler] Refresh already in flight, skipping", "period", p.Key())
			return nil
		}
		if !errors.Is(err, storage.ErrUpstreamUnavailable) || attempt >= s.opts.MaxRetries {
			return err
		}

		slog.Warn("[Scheduler] Upstream unavailable, retrying",
			"period", p.Key(),
			"attempt", attempt+1,
			"backoff", backoff,
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}
