package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyReportRow is one order's line in the daily revenue/refund report.
type DailyReportRow struct {
	OrderID      string          `json:"order_id"`
	CustomerID   string          `json:"customer_id"`
	GrossSales   decimal.Decimal `json:"gross_sales"`
	TotalRefund  decimal.Decimal `json:"total_refund"`
	CurrencyCode string          `json:"currency_code"`
}

// DailyReport is the committed daily snapshot, ordered by gross sales
// descending. Stale snapshots are served as-is with the flag set; a period
// that failed to refresh never turns into a query error.
type DailyReport struct {
	Date            string           `json:"date"`
	Rows            []DailyReportRow `json:"rows"`
	Computed        bool             `json:"computed"`
	Stale           bool             `json:"stale"`
	LastRefreshedAt time.Time        `json:"last_refreshed_at,omitempty"`
}

// MonthlyTotals is the committed monthly summary.
type MonthlyTotals struct {
	Month           string          `json:"month"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	OrderCount      int64           `json:"order_count"`
	AvgOrderValue   decimal.Decimal `json:"avg_order_value"`
	Computed        bool            `json:"computed"`
	Stale           bool            `json:"stale"`
	LastRefreshedAt time.Time       `json:"last_refreshed_at,omitempty"`
}

// TopCustomer is the winner of a top-spender ranking. Period is empty for the
// overall (all-time) ranking.
type TopCustomer struct {
	Period     string          `json:"period,omitempty"`
	CustomerID string          `json:"customer_id"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	Found      bool            `json:"found"`
}

// RefreshStatusResponse reports a period's refresh state for the ops API.
type RefreshStatusResponse struct {
	Period          string    `json:"period"`
	Stale           bool      `json:"stale"`
	LastRefreshedAt time.Time `json:"last_refreshed_at,omitempty"`
}
