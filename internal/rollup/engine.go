package rollup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/revlens-lab/revlens/internal/core/period"
	"github.com/revlens-lab/revlens/internal/core/report"
	"github.com/revlens-lab/revlens/internal/core/storage"
)

// ErrConcurrentRefresh is returned when a refresh is requested for a period
// that already has one in flight. Periods are independent windows, so distinct
// periods refresh concurrently; the same period never has two writers.
var ErrConcurrentRefresh = errors.New("refresh already in flight for period")

// Engine owns the rollup refresh lifecycle: it reads the upstream window,
// runs the pre-aggregate-then-join pipeline and atomically replaces the
// period's rows in the store. Reads go straight to the store and never block
// on a refresh.
type Engine struct {
	upstream storage.TransactionStore
	store    Store
	nowFn    func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewEngine creates a rollup engine over the given upstream reader and store.
func NewEngine(upstream storage.TransactionStore, store Store) *Engine {
	return &Engine{
		upstream: upstream,
		store:    store,
		nowFn:    func() time.Time { return time.Now().UTC() },
		inflight: make(map[string]struct{}),
	}
}

// Refresh recomputes and atomically replaces all rollup rows for the period.
// Idempotent: re-running with unchanged source data produces identical store
// content. On any upstream failure nothing is written and the prior snapshot
// stays committed.
func (e *Engine) Refresh(ctx context.Context, p period.Period) error {
	window, err := p.Range()
	if err != nil {
		return err
	}

	key := p.Key()
	if !e.acquire(key) {
		return fmt.Errorf("%w: %s", ErrConcurrentRefresh, key)
	}
	defer e.release(key)

	runID := uuid.NewString()
	started := e.nowFn()
	slog.Info("[RollupEngine] Refresh started",
		"run_id", runID,
		"period", key,
		"window_start", window.Start,
		"window_end", window.End,
	)

	orders, err := e.upstream.OrdersInRange(ctx, window)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", key, err)
	}

	orderIDs := make([]string, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
	}

	items, err := e.upstream.FulfilledLineItemsForOrders(ctx, orderIDs)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", key, err)
	}
	refunds, err := e.upstream.RefundsForOrders(ctx, orderIDs, window)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", key, err)
	}
	currencies, err := e.upstream.Currencies(ctx)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", key, err)
	}

	rollups, violations := report.Combine(
		orders,
		report.SumFulfilledLineItems(items),
		report.SumRefundsInRange(refunds, window),
		currencies,
	)
	for _, v := range violations {
		slog.Warn("[RollupEngine] Integrity violation, row excluded from aggregation",
			"run_id", runID,
			"period", key,
			"kind", v.Kind,
			"order_id", v.OrderID,
			"detail", v.Detail,
		)
	}

	rows := buildRows(p, rollups)
	if err := e.store.ReplacePeriod(ctx, key, rows, e.nowFn()); err != nil {
		return fmt.Errorf("refresh %s: replace period: %w", key, err)
	}

	slog.Info("[RollupEngine] Refresh committed",
		"run_id", runID,
		"period", key,
		"orders", len(orders),
		"rows", len(rows),
		"excluded", len(violations),
		"elapsed", e.nowFn().Sub(started),
	)
	return nil
}

// Status reports when the period was last refreshed and whether its current
// snapshot is stale. A period is stale until a successful refresh lands after
// its end boundary; before the first refresh it has no status row at all.
func (e *Engine) Status(ctx context.Context, p period.Period) (RefreshStatus, bool, error) {
	status, err := e.store.Status(ctx, p.Key())
	if errors.Is(err, storage.ErrNotComputed) {
		return RefreshStatus{PeriodKey: p.Key()}, true, nil
	}
	if err != nil {
		return RefreshStatus{}, true, err
	}
	stale := status.LastRefreshedAt.Before(p.End())
	return status, stale, nil
}

func (e *Engine) acquire(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[key]; busy {
		return false
	}
	e.inflight[key] = struct{}{}
	return true
}

func (e *Engine) release(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, key)
}

// buildRows derives the period's persisted rows from the combined per-order
// rollups. Output order is deterministic so an unchanged source window always
// produces identical store content.
func buildRows(p period.Period, rollups []report.OrderRollup) []Row {
	switch p.Kind {
	case period.KindDay:
		return buildDailyOrderRows(p.Key(), rollups)
	case period.KindMonth:
		return buildMonthlyRows(p.Key(), rollups)
	}
	return nil
}

func buildDailyOrderRows(periodKey string, rollups []report.OrderRollup) []Row {
	rows := make([]Row, 0, len(rollups))
	for _, r := range rollups {
		rows = append(rows, Row{
			ReportType:   ReportDailyOrders,
			PeriodKey:    periodKey,
			GroupKey:     r.OrderID,
			CustomerID:   r.CustomerID,
			CurrencyCode: r.CurrencyCode,
			GrossSales:   r.GrossSales,
			TotalRefund:  r.TotalRefund,
			OrderCount:   1,
		})
	}
	sortRows(rows)
	return rows
}

func buildMonthlyRows(periodKey string, rollups []report.OrderRollup) []Row {
	totalSales := decimal.Zero
	totalRefund := decimal.Zero
	byCustomer := make(map[string]Row)

	for _, r := range rollups {
		totalSales = totalSales.Add(r.GrossSales)
		totalRefund = totalRefund.Add(r.TotalRefund)

		c := byCustomer[r.CustomerID]
		c.GrossSales = c.GrossSales.Add(r.GrossSales)
		c.TotalRefund = c.TotalRefund.Add(r.TotalRefund)
		c.OrderCount++
		byCustomer[r.CustomerID] = c
	}

	rows := make([]Row, 0, len(byCustomer)+1)
	rows = append(rows, Row{
		ReportType:  ReportMonthlyTotals,
		PeriodKey:   periodKey,
		GroupKey:    totalsGroupKey,
		GrossSales:  totalSales,
		TotalRefund: totalRefund,
		OrderCount:  int64(len(rollups)),
	})
	for customerID, c := range byCustomer {
		rows = append(rows, Row{
			ReportType:  ReportMonthlyCustomerTotals,
			PeriodKey:   periodKey,
			GroupKey:    customerID,
			CustomerID:  customerID,
			GrossSales:  c.GrossSales,
			TotalRefund: c.TotalRefund,
			OrderCount:  c.OrderCount,
		})
	}
	sortRows(rows)
	return rows
}

func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ReportType != rows[j].ReportType {
			return rows[i].ReportType < rows[j].ReportType
		}
		if !rows[i].GrossSales.Equal(rows[j].GrossSales) {
			return rows[i].GrossSales.GreaterThan(rows[j].GrossSales)
		}
		return rows[i].GroupKey < rows[j].GroupKey
	})
}
