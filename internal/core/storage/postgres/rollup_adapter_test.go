package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/revlens-lab/revlens/internal/core/storage"
	"github.com/revlens-lab/revlens/internal/rollup"
)

func TestRollupAdapter_ReplacePeriodIsOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRollupAdapter(db)
	refreshedAt := time.Date(2024, 4, 1, 0, 5, 0, 0, time.UTC)

	row := rollup.Row{
		ReportType:   rollup.ReportDailyOrders,
		PeriodKey:    "2024-03-15",
		GroupKey:     "o1",
		CustomerID:   "alice",
		CurrencyCode: "EUR",
		GrossSales:   decimal.NewFromInt(100),
		TotalRefund:  decimal.NewFromInt(10),
		OrderCount:   1,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(queryDeleteRollupRows)).
		WithArgs("2024-03-15").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectPrepare(regexp.QuoteMeta(queryInsertRollupRow)).
		ExpectExec().
		WithArgs(
			"daily_orders",
			"2024-03-15",
			"o1",
			"alice",
			"EUR",
			row.GrossSales,
			row.TotalRefund,
			int64(1),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(queryUpsertRefreshStatus)).
		WithArgs("2024-03-15", refreshedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = adapter.ReplacePeriod(context.Background(), "2024-03-15", []rollup.Row{row}, refreshedAt)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollupAdapter_ReplacePeriodRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRollupAdapter(db)

	row := rollup.Row{
		ReportType: rollup.ReportMonthlyTotals,
		PeriodKey:  "2024-03",
		GroupKey:   "totals",
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(queryDeleteRollupRows)).
		WithArgs("2024-03").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(regexp.QuoteMeta(queryInsertRollupRow)).
		ExpectExec().
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	err = adapter.ReplacePeriod(context.Background(), "2024-03", []rollup.Row{row}, time.Now().UTC())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollupAdapter_ReplacePeriodRejectsMismatchedRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRollupAdapter(db)

	row := rollup.Row{
		ReportType: rollup.ReportMonthlyTotals,
		PeriodKey:  "2024-02", // wrong period for this replace
		GroupKey:   "totals",
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(queryDeleteRollupRows)).
		WithArgs("2024-03").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(regexp.QuoteMeta(queryInsertRollupRow))
	mock.ExpectRollback()

	err = adapter.ReplacePeriod(context.Background(), "2024-03", []rollup.Row{row}, time.Now().UTC())
	require.Error(t, err)
	require.Contains(t, err.Error(), "period mismatch")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollupAdapter_RowsByTypeAndPeriod(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRollupAdapter(db)

	mock.ExpectQuery(regexp.QuoteMeta(queryRowsByTypeAndPeriod)).
		WithArgs("daily_orders", "2024-03-15").
		WillReturnRows(sqlmock.NewRows([]string{
			"report_type", "period_key", "group_key",
			"customer_id", "currency_code", "gross_sales", "total_refund", "order_count",
		}).
			AddRow("daily_orders", "2024-03-15", "o1", "alice", "EUR", "100.50", "0", int64(1)).
			AddRow("daily_orders", "2024-03-15", "o2", "bob", "USD", "80", "12.25", int64(1)))

	rows, err := adapter.RowsByTypeAndPeriod(context.Background(), rollup.ReportDailyOrders, "2024-03-15")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.True(t, rows[0].GrossSales.Equal(decimal.RequireFromString("100.50")))
	require.True(t, rows[1].TotalRefund.Equal(decimal.RequireFromString("12.25")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollupAdapter_StatusNotComputed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	adapter := NewRollupAdapter(db)

	mock.ExpectQuery(regexp.QuoteMeta(queryRefreshStatus)).
		WithArgs("2024-03").
		WillReturnRows(sqlmock.NewRows([]string{"last_refreshed_at"}))

	_, err = adapter.Status(context.Background(), "2024-03")
	require.ErrorIs(t, err, storage.ErrNotComputed)
	require.NoError(t, mock.ExpectationsWereMet())
}
