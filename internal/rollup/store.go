package rollup

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ReportType identifies one rollup family inside the store.
type ReportType string

const (
	// ReportDailyOrders holds one row per order for a day period.
	ReportDailyOrders ReportType = "daily_orders"
	// ReportMonthlyTotals holds a single totals row for a month period.
	ReportMonthlyTotals ReportType = "monthly_totals"
	// ReportMonthlyCustomerTotals holds one row per customer for a month
	// period; it feeds the top-customer ranking.
	ReportMonthlyCustomerTotals ReportType = "monthly_customer_totals"
)

// totalsGroupKey is the grouping key of the single ReportMonthlyTotals row.
const totalsGroupKey = "totals"

// Row is a persisted rollup entry, keyed by (report_type, period_key, group_key).
// Which fields carry meaning depends on the report type; unused fields stay at
// their zero values.
type Row struct {
	ReportType   ReportType
	PeriodKey    string
	GroupKey     string
	CustomerID   string
	CurrencyCode string
	GrossSales   decimal.Decimal
	TotalRefund  decimal.Decimal
	OrderCount   int64
}

// RefreshStatus is the per-period staleness record.
type RefreshStatus struct {
	PeriodKey       string
	LastRefreshedAt time.Time
}

// Store is the durable rollup persistence interface.
//
// Contract: ReplacePeriod swaps the whole period atomically; delete, insert
// and status write happen in one database transaction, so readers observe
// either the prior committed snapshot or the new one, never a partial state.
// A failed replace leaves the prior snapshot untouched.
type Store interface {
	// ReplacePeriod atomically replaces all rows for periodKey and records
	// refreshedAt as the period's last successful refresh time.
	ReplacePeriod(ctx context.Context, periodKey string, rows []Row, refreshedAt time.Time) error

	// RowsByTypeAndPeriod returns the committed rows of one report type for one
	// period, ordered by gross sales descending then group key ascending.
	RowsByTypeAndPeriod(ctx context.Context, rt ReportType, periodKey string) ([]Row, error)

	// RowsByType returns the committed rows of one report type across all
	// periods. Used for rankings over the full history.
	RowsByType(ctx context.Context, rt ReportType) ([]Row, error)

	// Status returns the refresh status for a period key, or
	// storage.ErrNotComputed if the period has never been refreshed.
	Status(ctx context.Context, periodKey string) (RefreshStatus, error)
}
