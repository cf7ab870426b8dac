// Package settings provides the restaurant-wide settings row (tax rate,
// currency, display name).
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gohmolo58-collab/caisse-manger/internal/database"
	"github.com/gohmolo58-collab/caisse-manger/internal/models"
)

// Store reads and writes the single settings row.
type Store struct {
	db *database.DB
}

// NewStore creates a settings store.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Get returns the current settings, falling back to defaults when no row
// exists yet.
func (s *Store) Get(ctx context.Context) (*models.Settings, error) {
	var out models.Settings
	err := s.db.QueryRow(ctx, database.GetSettingsSQL).Scan(
		&out.RestaurantName, &out.Currency, &out.TaxRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &out, nil
}

// Update replaces the settings row.
func (s *Store) Update(ctx context.Context, in *models.Settings) error {
	err := s.db.Exec(ctx, database.UpsertSettingsSQL, in.RestaurantName, in.Currency, in.TaxRate)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}
