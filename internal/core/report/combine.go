package report

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Combine merges the windowed order stream with the two pre-aggregated entity
// maps and the currency dimension, using equality joins on order ID and
// currency ID only. Both entity inputs are already one row per order, so the
// output is guaranteed to be exactly one row per order, since there is no raw
// multi-row relationship left to fan out.
//
// Orders absent from an entity map get that value defaulted to zero
// (outer-join-with-default, not an inner join). Orders with a missing or
// unknown currency ID are excluded and reported as integrity violations;
// pre-aggregate keys with no matching order are reported as orphans.
func Combine(
	orders []Order,
	grossByOrder map[string]decimal.Decimal,
	refundByOrder map[string]decimal.Decimal,
	currencies map[string]string,
) ([]OrderRollup, []IntegrityViolation) {
	rollups := make([]OrderRollup, 0, len(orders))
	var violations []IntegrityViolation

	seen := make(map[string]struct{}, len(orders))
	for _, order := range orders {
		seen[order.ID] = struct{}{}

		code, ok := currencies[order.CurrencyID]
		if !ok {
			violations = append(violations, IntegrityViolation{
				Kind:    ViolationUnknownCurrency,
				OrderID: order.ID,
				Detail:  fmt.Sprintf("currency_id %q not present in currency dimension", order.CurrencyID),
			})
			continue
		}

		gross, ok := grossByOrder[order.ID]
		if !ok {
			gross = decimal.Zero
		}
		refund, ok := refundByOrder[order.ID]
		if !ok {
			refund = decimal.Zero
		}

		rollups = append(rollups, OrderRollup{
			OrderID:      order.ID,
			CustomerID:   order.CustomerID,
			GrossSales:   gross,
			TotalRefund:  refund,
			CurrencyCode: code,
			CreatedAt:    order.CreatedAt,
		})
	}

	for orderID := range grossByOrder {
		if _, ok := seen[orderID]; !ok {
			violations = append(violations, IntegrityViolation{
				Kind:    ViolationOrphanRollup,
				OrderID: orderID,
				Detail:  "line-item rollup references an order outside the window",
			})
		}
	}
	for orderID := range refundByOrder {
		if _, ok := seen[orderID]; !ok {
			violations = append(violations, IntegrityViolation{
				Kind:    ViolationOrphanRollup,
				OrderID: orderID,
				Detail:  "refund rollup references an order outside the window",
			})
		}
	}

	return rollups, violations
}
