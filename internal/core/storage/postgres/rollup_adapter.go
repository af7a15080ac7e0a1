package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/revlens-lab/revlens/internal/core/storage"
	"github.com/revlens-lab/revlens/internal/rollup"
)

// RollupAdapter implements rollup.Store using PostgreSQL.
// ReplacePeriod runs delete, inserts and the status upsert in one transaction,
// so a period's snapshot is all-or-nothing: plain SELECT readers see either
// the prior commit or the new one, never the middle.
type RollupAdapter struct {
	db *sql.DB
}

// NewRollupAdapter creates a RollupAdapter sharing the given connection.
func NewRollupAdapter(db *sql.DB) *RollupAdapter {
	return &RollupAdapter{db: db}
}

// ReplacePeriod atomically replaces all rollup rows for a period and records
// its refresh timestamp.
func (a *RollupAdapter) ReplacePeriod(ctx context.Context, periodKey string, rows []rollup.Row, refreshedAt time.Time) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rollup replace: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, queryDeleteRollupRows, periodKey); err != nil {
		return fmt.Errorf("rollup replace: delete period %s: %w", periodKey, err)
	}

	insertStmt, err := tx.PrepareContext(ctx, queryInsertRollupRow)
	if err != nil {
		return fmt.Errorf("rollup replace: prepare insert: %w", err)
	}
	defer insertStmt.Close()

	for _, row := range rows {
		if row.PeriodKey != periodKey {
			return fmt.Errorf("rollup replace: row period mismatch: expected %s, got %s for %s/%s",
				periodKey, row.PeriodKey, row.ReportType, row.GroupKey)
		}
		if _, err := insertStmt.ExecContext(ctx,
			string(row.ReportType),
			row.PeriodKey,
			row.GroupKey,
			row.CustomerID,
			row.CurrencyCode,
			row.GrossSales,
			row.TotalRefund,
			row.OrderCount,
		); err != nil {
			return fmt.Errorf("rollup replace: insert %s/%s: %w", row.ReportType, row.GroupKey, err)
		}
	}

	if _, err := tx.ExecContext(ctx, queryUpsertRefreshStatus, periodKey, refreshedAt); err != nil {
		return fmt.Errorf("rollup replace: write refresh status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rollup replace: commit: %w", err)
	}

	slog.Info("[RollupAdapter] Period replaced",
		"period", periodKey,
		"rows", len(rows),
		"refreshed_at", refreshedAt,
	)
	return nil
}

// RowsByTypeAndPeriod returns committed rows for one report type and period,
// ordered by gross sales descending then group key ascending.
func (a *RollupAdapter) RowsByTypeAndPeriod(ctx context.Context, rt rollup.ReportType, periodKey string) ([]rollup.Row, error) {
	return a.queryRows(ctx, queryRowsByTypeAndPeriod, string(rt), periodKey)
}

// RowsByType returns committed rows for one report type across all periods.
func (a *RollupAdapter) RowsByType(ctx context.Context, rt rollup.ReportType) ([]rollup.Row, error) {
	return a.queryRows(ctx, queryRowsByType, string(rt))
}

func (a *RollupAdapter) queryRows(ctx context.Context, query string, args ...interface{}) ([]rollup.Row, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rollup rows: %w", err)
	}
	defer rows.Close()

	var results []rollup.Row
	for rows.Next() {
		row, err := scanRollupRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollup rows: %w", err)
	}
	return results, nil
}

// Status returns the refresh status for a period key.
// Returns storage.ErrNotComputed if the period has never been refreshed.
func (a *RollupAdapter) Status(ctx context.Context, periodKey string) (rollup.RefreshStatus, error) {
	var refreshedAt time.Time
	err := a.db.QueryRowContext(ctx, queryRefreshStatus, periodKey).Scan(&refreshedAt)
	if err == sql.ErrNoRows {
		return rollup.RefreshStatus{}, fmt.Errorf("period %s: %w", periodKey, storage.ErrNotComputed)
	}
	if err != nil {
		return rollup.RefreshStatus{}, fmt.Errorf("read refresh status: %w", err)
	}
	return rollup.RefreshStatus{PeriodKey: periodKey, LastRefreshedAt: refreshedAt}, nil
}
