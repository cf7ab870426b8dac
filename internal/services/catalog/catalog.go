// Package catalog resolves menu item references against the menu store.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gohmolo58-collab/caisse-manger/internal/database"
	"github.com/gohmolo58-collab/caisse-manger/internal/models"
)

// ErrNotFound is returned when no menu item exists for the given id.
var ErrNotFound = errors.New("menu item not found")

// Store looks up menu items in PostgreSQL.
type Store struct {
	db *database.DB
}

// NewStore creates a catalog store.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Get resolves a menu item by id, including its ingredient consumption list.
func (s *Store) Get(ctx context.Context, id string) (*models.MenuItemRef, error) {
	var item models.MenuItemRef
	err := s.db.QueryRow(ctx, database.GetMenuItemSQL, id).Scan(
		&item.ID, &item.Name, &item.Category, &item.Price, &item.Description, &item.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}

	rows, err := s.db.Query(ctx, database.GetMenuItemIngredientsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var use models.IngredientUse
		if err := rows.Scan(&use.IngredientID, &use.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		item.Ingredients = append(item.Ingredients, use)
	}

	return &item, rows.Err()
}

// List returns all menu items ordered by category and name.
func (s *Store) List(ctx context.Context) ([]models.MenuItemRef, error) {
	rows, err := s.db.Query(ctx, database.ListMenuItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	defer rows.Close()

	var items []models.MenuItemRef
	for rows.Next() {
		var item models.MenuItemRef
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.Price, &item.Description, &item.Available); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
