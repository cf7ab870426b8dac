package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gohmolo58-collab/caisse-manger/internal/database"
	"github.com/gohmolo58-collab/caisse-manger/internal/models"
)

// PostgresStore persists orders in PostgreSQL.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates an order store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert persists the order, its lines and the initial status log entry in a
// single transaction. The day-scoped sequence is allocated by an atomic
// counter upsert inside the same transaction, so no two committed orders can
// share an order number.
func (s *PostgresStore) Insert(ctx context.Context, o *models.Order) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	day := o.CreatedAt.UTC().Format("2006-01-02")
	var seq int
	if err := tx.QueryRow(ctx, database.NextDaySequenceSQL, day).Scan(&seq); err != nil {
		return fmt.Errorf("failed to allocate day sequence: %w", err)
	}
	o.OrderNumber = FormatOrderNumber(o.CreatedAt, seq)

	_, err = tx.Exec(ctx, database.InsertOrderSQL,
		o.ID, o.OrderNumber, o.Type, o.TableNumber, o.Subtotal, o.Discount, o.Tax, o.Total,
		o.Status, o.PaymentStatus, string(o.PaymentMethod), o.Cashier, o.Notes, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, line := range o.Items {
		_, err = tx.Exec(ctx, database.InsertOrderLineSQL,
			o.ID, line.MenuItemID, line.Name, line.Quantity, line.Price, line.Subtotal)
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	_, err = tx.Exec(ctx, database.InsertOrderStatusLogSQL, o.ID, o.Status, o.Cashier, "order created")
	if err != nil {
		return fmt.Errorf("failed to insert status log: %w", err)
	}

	return tx.Commit(ctx)
}

// FindByID loads an order with its lines.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.scanOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, database.GetOrderLinesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.OrderLine
		if err := rows.Scan(&line.MenuItemID, &line.Name, &line.Quantity, &line.Price, &line.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		o.Items = append(o.Items, line)
	}

	return o, rows.Err()
}

// List returns orders matching the filter, newest first. Lines are not loaded;
// FindByID serves the detailed view.
func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]models.Order, error) {
	var start, end *time.Time
	if f.Date != nil {
		d := f.Date.UTC()
		from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		to := from.Add(24 * time.Hour)
		start, end = &from, &to
	}

	rows, err := s.db.Query(ctx, database.ListOrdersSQL,
		string(f.Status), string(f.PaymentStatus), start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var out []models.Order
	for rows.Next() {
		var o models.Order
		var method string
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.Type, &o.TableNumber, &o.Subtotal, &o.Discount, &o.Tax, &o.Total,
			&o.Status, &o.PaymentStatus, &method, &o.Cashier, &o.Notes, &o.CreatedAt, &o.CompletedAt, &o.Version); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.PaymentMethod = models.PaymentMethod(method)
		out = append(out, o)
	}

	return out, rows.Err()
}

// UpdateStatus applies a status change guarded by the optimistic version
// counter and appends an audit entry.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, to models.OrderStatus, completedAt *time.Time, changedBy string, expectedVersion int) (*models.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, database.UpdateOrderStatusSQL, id, to, completedAt, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.scanOrder(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: order %s", ErrVersionConflict, id)
	}

	note := fmt.Sprintf("status changed to %s by %s", to, changedBy)
	if _, err := tx.Exec(ctx, database.InsertOrderStatusLogSQL, id, to, changedBy, note); err != nil {
		return nil, fmt.Errorf("failed to insert status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.FindByID(ctx, id)
}

// MarkPaid flips paymentStatus/paymentMethod/status/completedAt in one update
// guarded on the order still being unpaid. A concurrent duplicate settle sees
// zero rows and gets ErrAlreadyPaid.
func (s *PostgresStore) MarkPaid(ctx context.Context, id string, method models.PaymentMethod, paidAt time.Time) (*models.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, database.MarkOrderPaidSQL, id, string(method), paidAt)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.scanOrder(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: order %s", ErrAlreadyPaid, id)
	}

	note := fmt.Sprintf("paid by %s", method)
	if _, err := tx.Exec(ctx, database.InsertOrderStatusLogSQL, id, models.StatusCompleted, "payment", note); err != nil {
		return nil, fmt.Errorf("failed to insert status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.FindByID(ctx, id)
}

// MarkRefunded moves a paid order to refunded.
func (s *PostgresStore) MarkRefunded(ctx context.Context, id string) (*models.Order, error) {
	tag, err := s.db.Pool.Exec(ctx, database.MarkOrderRefundedSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order refunded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.scanOrder(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: only paid orders can be refunded", ErrInvalidTransition)
	}

	return s.FindByID(ctx, id)
}

// TodaySummary aggregates the orders created on the given UTC calendar date.
func (s *PostgresStore) TodaySummary(ctx context.Context, day time.Time) (*models.DaySummary, error) {
	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var sum models.DaySummary
	err := s.db.QueryRow(ctx, database.TodaySummarySQL, start, end).Scan(
		&sum.TotalOrders, &sum.TotalRevenue, &sum.PendingOrders, &sum.CompletedOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate today's orders: %w", err)
	}

	return &sum, nil
}

func (s *PostgresStore) scanOrder(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	var method string
	err := s.db.QueryRow(ctx, database.GetOrderByIDSQL, id).Scan(
		&o.ID, &o.OrderNumber, &o.Type, &o.TableNumber, &o.Subtotal, &o.Discount, &o.Tax, &o.Total,
		&o.Status, &o.PaymentStatus, &method, &o.Cashier, &o.Notes, &o.CreatedAt, &o.CompletedAt, &o.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	o.PaymentMethod = models.PaymentMethod(method)
	return &o, nil
}
