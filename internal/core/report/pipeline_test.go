package report

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/revlens-lab/revlens/internal/core/period"
)

// naiveOrderTotals is the reference implementation: join every raw row to its
// order and aggregate afterward, with careful dedup. Slow and join-heavy, but
// semantically unambiguous. The production pipeline (pre-aggregate, then join)
// must produce identical totals over the same data.
func naiveOrderTotals(
	orders []Order,
	items []LineItem,
	refunds []Refund,
	window period.Range,
) (gross, refunded map[string]decimal.Decimal) {
	gross = make(map[string]decimal.Decimal)
	refunded = make(map[string]decimal.Decimal)

	for _, order := range orders {
		g := decimal.Zero
		for _, item := range items {
			if item.OrderID == order.ID && item.Status == StatusFulfilled {
				g = g.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
			}
		}
		r := decimal.Zero
		for _, refund := range refunds {
			if refund.OrderID == order.ID && window.Contains(refund.CreatedAt) {
				r = r.Add(refund.Amount)
			}
		}
		gross[order.ID] = g
		refunded[order.ID] = r
	}
	return gross, refunded
}

func TestPipeline_EquivalentToNaiveReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	window := period.Range{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	statuses := []FulfillmentStatus{StatusPending, StatusFulfilled, StatusCancelled}

	var orders []Order
	var items []LineItem
	var refunds []Refund
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("o%03d", i)
		orders = append(orders, Order{
			ID:         id,
			CustomerID: fmt.Sprintf("c%02d", rng.Intn(20)),
			CurrencyID: "cur-eur",
			CreatedAt:  window.Start.Add(time.Duration(rng.Int63n(int64(window.End.Sub(window.Start))))),
		})
		for j := 0; j < rng.Intn(5); j++ {
			items = append(items, LineItem{
				OrderID:   id,
				Quantity:  int64(1 + rng.Intn(9)),
				UnitPrice: decimal.NewFromInt(int64(rng.Intn(10000))).Div(decimal.NewFromInt(100)),
				Status:    statuses[rng.Intn(len(statuses))],
			})
		}
		for j := 0; j < rng.Intn(4); j++ {
			// Some refunds land outside the window and must not count.
			at := window.Start.Add(time.Duration(rng.Int63n(int64(45 * 24 * time.Hour))))
			refunds = append(refunds, Refund{
				OrderID:   id,
				Amount:    decimal.NewFromInt(int64(rng.Intn(5000))).Div(decimal.NewFromInt(100)),
				CreatedAt: at,
			})
		}
	}

	wantGross, wantRefund := naiveOrderTotals(orders, items, refunds, window)

	rollups, violations := Combine(
		orders,
		SumFulfilledLineItems(items),
		SumRefundsInRange(refunds, window),
		map[string]string{"cur-eur": "EUR"},
	)
	require.Empty(t, violations)
	require.Len(t, rollups, len(orders))

	totalWant, totalGot := decimal.Zero, decimal.Zero
	for _, r := range rollups {
		require.True(t, wantGross[r.OrderID].Equal(r.GrossSales),
			"order %s gross: want %s got %s", r.OrderID, wantGross[r.OrderID], r.GrossSales)
		require.True(t, wantRefund[r.OrderID].Equal(r.TotalRefund),
			"order %s refund: want %s got %s", r.OrderID, wantRefund[r.OrderID], r.TotalRefund)
		totalGot = totalGot.Add(r.GrossSales)
	}
	for _, g := range wantGross {
		totalWant = totalWant.Add(g)
	}
	require.True(t, totalWant.Equal(totalGot))
}
