package database

// Order queries
const (
	NextDaySequenceSQL = `
		INSERT INTO order_day_counters (day, count)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET count = order_day_counters.count + 1
		RETURNING count`

	InsertOrderSQL = `
		INSERT INTO orders (id, order_number, type, table_number, subtotal, discount, tax, total,
			status, payment_status, payment_method, cashier_id, notes, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)`

	InsertOrderLineSQL = `
		INSERT INTO order_items (order_id, menu_item_id, name, quantity, price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`

	InsertOrderStatusLogSQL = `
		INSERT INTO order_status_log (order_id, status, changed_by, notes)
		VALUES ($1, $2, $3, $4)`

	GetOrderByIDSQL = `
		SELECT id, order_number, type, table_number, subtotal, discount, tax, total,
			   status, payment_status, payment_method, cashier_id, notes, created_at, completed_at, version
		FROM orders WHERE id = $1`

	ListOrdersSQL = `
		SELECT id, order_number, type, table_number, subtotal, discount, tax, total,
			   status, payment_status, payment_method, cashier_id, notes, created_at, completed_at, version
		FROM orders
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR payment_status = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at < $4)
		ORDER BY created_at DESC`

	GetOrderLinesSQL = `
		SELECT menu_item_id, name, quantity, price, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY id ASC`

	UpdateOrderStatusSQL = `
		UPDATE orders
		SET status = $2, completed_at = COALESCE(completed_at, $3), version = version + 1
		WHERE id = $1 AND version = $4`

	MarkOrderPaidSQL = `
		UPDATE orders
		SET payment_status = 'paid', payment_method = $2, status = 'completed',
			completed_at = COALESCE(completed_at, $3), version = version + 1
		WHERE id = $1 AND payment_status = 'unpaid'`

	MarkOrderRefundedSQL = `
		UPDATE orders
		SET payment_status = 'refunded', version = version + 1
		WHERE id = $1 AND payment_status = 'paid'`

	TodaySummarySQL = `
		SELECT COUNT(*),
			   COALESCE(SUM(total), 0),
			   COUNT(*) FILTER (WHERE status = 'pending'),
			   COUNT(*) FILTER (WHERE status = 'completed')
		FROM orders
		WHERE created_at >= $1 AND created_at < $2`
)

// Catalog queries
const (
	GetMenuItemSQL = `
		SELECT id, name, category, price, description, available
		FROM menu_items WHERE id = $1`

	GetMenuItemIngredientsSQL = `
		SELECT ingredient_id, quantity
		FROM menu_item_ingredients WHERE menu_item_id = $1`

	ListMenuItemsSQL = `
		SELECT id, name, category, price, description, available
		FROM menu_items ORDER BY category, name`
)

// Inventory queries
const (
	DecrementStockSQL = `
		UPDATE ingredients SET current_stock = current_stock - $2
		WHERE id = $1`

	RestockSQL = `
		UPDATE ingredients SET current_stock = current_stock + $2, last_restocked = NOW()
		WHERE id = $1
		RETURNING id, name, unit, current_stock, min_stock, cost, supplier, last_restocked`

	LowStockSQL = `
		SELECT id, name, unit, current_stock, min_stock, cost, supplier, last_restocked
		FROM ingredients
		WHERE current_stock <= min_stock
		ORDER BY name ASC`
)

// Settings queries
const (
	GetSettingsSQL = `
		SELECT restaurant_name, currency, tax_rate
		FROM settings LIMIT 1`

	UpsertSettingsSQL = `
		INSERT INTO settings (id, restaurant_name, currency, tax_rate)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			restaurant_name = EXCLUDED.restaurant_name,
			currency = EXCLUDED.currency,
			tax_rate = EXCLUDED.tax_rate`
)
