package postgres

// SQL for the upstream read path and the rollup store.
//
// Every time filter is a half-open range on the raw timestamp column
// (ts >= $n AND ts < $m), never a truncated or derived value, so the
// supporting range indexes stay usable.

const (
	queryOrdersInRange = `
		SELECT id, customer_id, currency_id, created_at
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at ASC, id ASC
	`

	// queryFulfilledLineItemsForOrders filters fulfillment status in the WHERE
	// clause, before any aggregation downstream: unqualified rows never leave
	// the store.
	queryFulfilledLineItemsForOrders = `
		SELECT order_id, quantity, unit_price, fulfillment_status
		FROM order_items
		WHERE order_id = ANY($1)
		  AND fulfillment_status = 'FULFILLED'
		ORDER BY order_id ASC
	`

	queryRefundsForOrders = `
		SELECT order_id, amount, created_at
		FROM refunds
		WHERE order_id = ANY($1)
		  AND created_at >= $2 AND created_at < $3
		ORDER BY order_id ASC, created_at ASC
	`

	queryCurrencies = `SELECT id, code FROM currencies`

	queryDeleteRollupRows = `DELETE FROM rollup_rows WHERE period_key = $1`

	queryInsertRollupRow = `
		INSERT INTO rollup_rows (
			report_type, period_key, group_key,
			customer_id, currency_code, gross_sales, total_refund, order_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	queryUpsertRefreshStatus = `
		INSERT INTO rollup_refresh_status (period_key, last_refreshed_at)
		VALUES ($1, $2)
		ON CONFLICT (period_key) DO UPDATE SET
			last_refreshed_at = EXCLUDED.last_refreshed_at
	`

	queryRowsByTypeAndPeriod = `
		SELECT report_type, period_key, group_key,
		       customer_id, currency_code, gross_sales, total_refund, order_count
		FROM rollup_rows
		WHERE report_type = $1 AND period_key = $2
		ORDER BY gross_sales DESC, group_key ASC
	`

	queryRowsByType = `
		SELECT report_type, period_key, group_key,
		       customer_id, currency_code, gross_sales, total_refund, order_count
		FROM rollup_rows
		WHERE report_type = $1
		ORDER BY period_key ASC, group_key ASC
	`

	queryRefreshStatus = `
		SELECT last_refreshed_at
		FROM rollup_refresh_status
		WHERE period_key = $1
	`
)
