package report

import (
	"github.com/shopspring/decimal"

	"github.com/revlens-lab/revlens/internal/core/period"
)

// SumFulfilledLineItems reduces a line-item stream to one gross-sales value per
// order. The fulfillment filter runs before the sum, so an unfulfilled item
// never enters the accumulator. The output contains no zero rows for orders
// whose items were all pending or cancelled; those orders are simply absent.
// Absence is resolved to zero downstream by Combine.
func SumFulfilledLineItems(items []LineItem) map[string]decimal.Decimal {
	gross := make(map[string]decimal.Decimal)
	for _, item := range items {
		if item.Status != StatusFulfilled {
			continue
		}
		amount := item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
		gross[item.OrderID] = gross[item.OrderID].Add(amount)
	}
	return gross
}

// SumRefundsInRange reduces a refund stream to one total per order, counting
// only refunds whose timestamp falls inside the half-open window. One output
// row per order regardless of how many refunds it has: summing happens here,
// before any join, so a multi-refund order can never fan out into duplicate
// order rows later in the pipeline.
func SumRefundsInRange(refunds []Refund, window period.Range) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, refund := range refunds {
		if !window.Contains(refund.CreatedAt) {
			continue
		}
		totals[refund.OrderID] = totals[refund.OrderID].Add(refund.Amount)
	}
	return totals
}
