package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/revlens-lab/revlens/internal/core/period"
	"github.com/revlens-lab/revlens/internal/core/report"
)

// ErrUpstreamUnavailable is returned when the transactional source store is
// unreachable mid-refresh. The refresh aborts and the prior rollup snapshot
// is retained; the scheduler retries with backoff.
var ErrUpstreamUnavailable = errors.New("upstream transaction store unavailable")

// ErrNotComputed is the "not yet computed" sentinel for rollup reads against
// a period that has never been refreshed.
var ErrNotComputed = errors.New("rollup not yet computed for period")

// Unavailable wraps a driver error so callers can detect the condition with
// errors.Is while keeping the underlying detail in the message.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUpstreamUnavailable, err)
}

// TransactionStore is the upstream read interface over the external
// order/line-item/refund store. The engine only ever reads through it:
// range scans on raw timestamp columns and equality lookups by order ID
// or currency ID, nothing else.
type TransactionStore interface {
	// OrdersInRange fetches orders created inside the half-open window,
	// ordered by creation time then ID.
	OrdersInRange(ctx context.Context, window period.Range) ([]report.Order, error)

	// FulfilledLineItemsForOrders fetches line items for the given orders.
	// The fulfillment filter is applied in the store's WHERE clause so only
	// qualifying rows travel; the pre-aggregator enforces it again structurally.
	FulfilledLineItemsForOrders(ctx context.Context, orderIDs []string) ([]report.LineItem, error)

	// RefundsForOrders fetches refunds for the given orders whose timestamps
	// fall inside the half-open window.
	RefundsForOrders(ctx context.Context, orderIDs []string, window period.Range) ([]report.Refund, error)

	// Currencies loads the whole currency dimension (small, read-only).
	Currencies(ctx context.Context) (map[string]string, error)
}
