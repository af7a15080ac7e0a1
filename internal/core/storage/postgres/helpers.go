package postgres

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/revlens-lab/revlens/internal/core/report"
	"github.com/revlens-lab/revlens/internal/rollup"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// Numeric columns are scanned as strings and parsed into decimals so values
// round-trip exactly; float64 scanning would silently lose precision.

func scanLineItemRow(row scanner) (report.LineItem, error) {
	var item report.LineItem
	var priceStr string
	var status string

	if err := row.Scan(&item.OrderID, &item.Quantity, &priceStr, &status); err != nil {
		return report.LineItem{}, fmt.Errorf("scan line item row: %w", err)
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return report.LineItem{}, fmt.Errorf("parse unit_price %q: %w", priceStr, err)
	}
	item.UnitPrice = price
	item.Status = report.FulfillmentStatus(status)
	return item, nil
}

func scanRefundRow(row scanner) (report.Refund, error) {
	var refund report.Refund
	var amountStr string

	if err := row.Scan(&refund.OrderID, &amountStr, &refund.CreatedAt); err != nil {
		return report.Refund{}, fmt.Errorf("scan refund row: %w", err)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return report.Refund{}, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}
	refund.Amount = amount
	return refund, nil
}

func scanRollupRow(row scanner) (rollup.Row, error) {
	var r rollup.Row
	var reportType, grossStr, refundStr string

	if err := row.Scan(
		&reportType,
		&r.PeriodKey,
		&r.GroupKey,
		&r.CustomerID,
		&r.CurrencyCode,
		&grossStr,
		&refundStr,
		&r.OrderCount,
	); err != nil {
		return rollup.Row{}, fmt.Errorf("scan rollup row: %w", err)
	}
	r.ReportType = rollup.ReportType(reportType)

	gross, err := decimal.NewFromString(grossStr)
	if err != nil {
		return rollup.Row{}, fmt.Errorf("parse gross_sales %q: %w", grossStr, err)
	}
	refund, err := decimal.NewFromString(refundStr)
	if err != nil {
		return rollup.Row{}, fmt.Errorf("parse total_refund %q: %w", refundStr, err)
	}
	r.GrossSales = gross
	r.TotalRefund = refund
	return r, nil
}
