package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// FulfillmentStatus is the lifecycle state of a line item.
// Only fulfilled items contribute to gross sales.
type FulfillmentStatus string

const (
	StatusPending   FulfillmentStatus = "PENDING"
	StatusFulfilled FulfillmentStatus = "FULFILLED"
	StatusCancelled FulfillmentStatus = "CANCELLED"
)

// Order is a transactional order header. Immutable once created; line items
// and refunds reference it, never own it.
type Order struct {
	ID         string
	CustomerID string
	CurrencyID string
	CreatedAt  time.Time
}

// LineItem belongs to exactly one order.
type LineItem struct {
	OrderID   string
	Quantity  int64
	UnitPrice decimal.Decimal
	Status    FulfillmentStatus
}

// Refund belongs to exactly one order. Multiple refunds per order are permitted.
type Refund struct {
	OrderID   string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// OrderRollup is the combined per-order row produced by the join stage:
// exactly one row per order in the window, pre-aggregated entity values
// resolved to zero when absent.
type OrderRollup struct {
	OrderID      string
	CustomerID   string
	GrossSales   decimal.Decimal
	TotalRefund  decimal.Decimal
	CurrencyCode string
	CreatedAt    time.Time
}

// ViolationKind classifies a data integrity problem found while combining.
type ViolationKind string

const (
	ViolationUnknownCurrency ViolationKind = "unknown_currency"
	ViolationOrphanRollup    ViolationKind = "orphan_rollup"
)

// IntegrityViolation records a row that was excluded from aggregation rather
// than failing the whole refresh. Callers log these; they are never silently
// dropped and never abort the pass.
type IntegrityViolation struct {
	Kind    ViolationKind
	OrderID string
	Detail  string
}
