package reporting

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/revlens-lab/revlens/internal/core/period"
	"github.com/revlens-lab/revlens/internal/core/report"
	"github.com/revlens-lab/revlens/internal/rollup"
)

// RollupReader is the committed-snapshot read side of the rollup store.
type RollupReader interface {
	RowsByTypeAndPeriod(ctx context.Context, rt rollup.ReportType, periodKey string) ([]rollup.Row, error)
	RowsByType(ctx context.Context, rt rollup.ReportType) ([]rollup.Row, error)
}

// RefreshController is the operational surface of the rollup engine.
type RefreshController interface {
	Refresh(ctx context.Context, p period.Period) error
	Status(ctx context.Context, p period.Period) (rollup.RefreshStatus, bool, error)
}

// Service serves report queries from the rollup store's committed snapshots.
// It never recomputes from raw data and never blocks behind a refresh.
type Service struct {
	reader     RollupReader
	controller RefreshController
}

// NewService creates a reporting service.
func NewService(reader RollupReader, controller RefreshController) *Service {
	return &Service{reader: reader, controller: controller}
}

// GetDailyReport returns the committed per-order rows for one day, ordered by
// gross sales descending.
func (s *Service) GetDailyReport(ctx context.Context, dateKey string) (*DailyReport, error) {
	p, err := parseKind(dateKey, period.KindDay)
	if err != nil {
		return nil, err
	}

	rows, err := s.reader.RowsByTypeAndPeriod(ctx, rollup.ReportDailyOrders, p.Key())
	if err != nil {
		return nil, fmt.Errorf("read daily rows: %w", err)
	}
	status, stale, err := s.controller.Status(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("read refresh status: %w", err)
	}

	out := &DailyReport{
		Date:            p.Key(),
		Rows:            make([]DailyReportRow, 0, len(rows)),
		Computed:        !status.LastRefreshedAt.IsZero(),
		Stale:           stale,
		LastRefreshedAt: status.LastRefreshedAt,
	}
	for _, row := range rows {
		out.Rows = append(out.Rows, DailyReportRow{
			OrderID:      row.GroupKey,
			CustomerID:   row.CustomerID,
			GrossSales:   row.GrossSales,
			TotalRefund:  row.TotalRefund,
			CurrencyCode: row.CurrencyCode,
		})
	}
	return out, nil
}

// GetMonthlyTotals returns the committed monthly summary. Average order value
// is derived at read time from the stored totals.
func (s *Service) GetMonthlyTotals(ctx context.Context, monthKey string) (*MonthlyTotals, error) {
	p, err := parseKind(monthKey, period.KindMonth)
	if err != nil {
		return nil, err
	}

	rows, err := s.reader.RowsByTypeAndPeriod(ctx, rollup.ReportMonthlyTotals, p.Key())
	if err != nil {
		return nil, fmt.Errorf("read monthly totals: %w", err)
	}
	status, stale, err := s.controller.Status(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("read refresh status: %w", err)
	}

	out := &MonthlyTotals{
		Month:           p.Key(),
		TotalSales:      decimal.Zero,
		AvgOrderValue:   decimal.Zero,
		Computed:        !status.LastRefreshedAt.IsZero(),
		Stale:           stale,
		LastRefreshedAt: status.LastRefreshedAt,
	}
	if len(rows) > 0 {
		out.TotalSales = rows[0].GrossSales
		out.OrderCount = rows[0].OrderCount
		if out.OrderCount > 0 {
			out.AvgOrderValue = out.TotalSales.DivRound(decimal.NewFromInt(out.OrderCount), 2)
		}
	}
	return out, nil
}

// GetTopCustomer returns the top spender, either within one month (periodKey
// set) or across all committed periods (periodKey empty). Ties resolve to the
// lexicographically smaller customer ID, so repeated calls always agree.
func (s *Service) GetTopCustomer(ctx context.Context, periodKey string) (*TopCustomer, error) {
	if periodKey == "" {
		return s.topCustomerOverall(ctx)
	}

	p, err := parseKind(periodKey, period.KindMonth)
	if err != nil {
		return nil, err
	}

	rows, err := s.reader.RowsByTypeAndPeriod(ctx, rollup.ReportMonthlyCustomerTotals, p.Key())
	if err != nil {
		return nil, fmt.Errorf("read customer totals: %w", err)
	}

	entries := make([]report.ScoredEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, report.ScoredEntry{
			Partition: p.Key(),
			Key:       row.CustomerID,
			Score:     row.GrossSales,
		})
	}

	out := &TopCustomer{Period: p.Key(), TotalSpent: decimal.Zero}
	if winner, ok := report.Top1(entries)[p.Key()]; ok {
		out.CustomerID = winner.Key
		out.TotalSpent = winner.Score
		out.Found = true
	}
	return out, nil
}

// topCustomerOverall folds per-month customer totals across all committed
// periods into one partition, then ranks. The grouped sum matters: a customer
// with several mid-sized months must beat one big single transaction.
func (s *Service) topCustomerOverall(ctx context.Context) (*TopCustomer, error) {
	rows, err := s.reader.RowsByType(ctx, rollup.ReportMonthlyCustomerTotals)
	if err != nil {
		return nil, fmt.Errorf("read customer totals: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	for _, row := range rows {
		totals[row.CustomerID] = totals[row.CustomerID].Add(row.GrossSales)
	}

	entries := make([]report.ScoredEntry, 0, len(totals))
	for customerID, total := range totals {
		entries = append(entries, report.ScoredEntry{
			Partition: report.OverallPartition,
			Key:       customerID,
			Score:     total,
		})
	}

	out := &TopCustomer{TotalSpent: decimal.Zero}
	if winner, ok := report.Top1(entries)[report.OverallPartition]; ok {
		out.CustomerID = winner.Key
		out.TotalSpent = winner.Score
		out.Found = true
	}
	return out, nil
}

// ForceRefresh triggers a manual recomputation for backfill.
func (s *Service) ForceRefresh(ctx context.Context, periodKey string) error {
	p, err := period.Parse(periodKey)
	if err != nil {
		return err
	}
	return s.controller.Refresh(ctx, p)
}

// GetRefreshStatus reports a period's staleness state.
func (s *Service) GetRefreshStatus(ctx context.Context, periodKey string) (*RefreshStatusResponse, error) {
	p, err := period.Parse(periodKey)
	if err != nil {
		return nil, err
	}
	status, stale, err := s.controller.Status(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("read refresh status: %w", err)
	}
	return &RefreshStatusResponse{
		Period:          p.Key(),
		Stale:           stale,
		LastRefreshedAt: status.LastRefreshedAt,
	}, nil
}

func parseKind(key string, kind period.Kind) (period.Period, error) {
	p, err := period.Parse(key)
	if err != nil {
		return period.Period{}, err
	}
	if p.Kind != kind {
		return period.Period{}, fmt.Errorf("%w: %q is not a %s period", period.ErrInvalidPeriod, key, kind)
	}
	return p, nil
}
