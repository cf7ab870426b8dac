// Package inventory maintains ingredient stock levels.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/gohmolo58-collab/caisse-manger/internal/database"
	"github.com/gohmolo58-collab/caisse-manger/internal/logger"
	"github.com/gohmolo58-collab/caisse-manger/internal/models"
)

// ErrNotFound is returned when no ingredient exists for the given id.
var ErrNotFound = errors.New("ingredient not found")

// Ledger applies stock movements to the ingredients table.
type Ledger struct {
	db     *database.DB
	logger *logger.Logger
}

// NewLedger creates an inventory ledger.
func NewLedger(db *database.DB, log *logger.Logger) *Ledger {
	return &Ledger{db: db, logger: log}
}

// Decrement subtracts qty from an ingredient's stock as a single atomic
// update. An unknown ingredient id is skipped, not an error: a stale recipe
// row must not block a sale. Stock is allowed to go negative; the low-stock
// report surfaces the drift.
func (l *Ledger) Decrement(ctx context.Context, ingredientID string, qty decimal.Decimal) error {
	tag, err := l.db.Pool.Exec(ctx, database.DecrementStockSQL, ingredientID, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		l.logger.Warn("inventory_skip_unknown_ingredient",
			"Recipe references an ingredient with no stock record", "",
			map[string]interface{}{"ingredient_id": ingredientID})
	}

	return nil
}

// Restock adds qty to an ingredient's stock and stamps last_restocked.
func (l *Ledger) Restock(ctx context.Context, ingredientID string, qty decimal.Decimal) (*models.Ingredient, error) {
	var ing models.Ingredient
	err := l.db.QueryRow(ctx, database.RestockSQL, ingredientID, qty).Scan(
		&ing.ID, &ing.Name, &ing.Unit, &ing.CurrentStock, &ing.MinStock,
		&ing.Cost, &ing.Supplier, &ing.LastRestocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ingredientID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to restock ingredient: %w", err)
	}
	return &ing, nil
}

// LowStock returns all ingredients at or below their minimum stock level.
func (l *Ledger) LowStock(ctx context.Context) ([]models.Ingredient, error) {
	rows, err := l.db.Query(ctx, database.LowStockSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	defer rows.Close()

	var out []models.Ingredient
	for rows.Next() {
		var ing models.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.CurrentStock, &ing.MinStock,
			&ing.Cost, &ing.Supplier, &ing.LastRestocked); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		out = append(out, ing)
	}

	return out, rows.Err()
}
