package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IngredientUse is one (ingredient, quantity per unit) consumption pair of a
// menu item recipe.
type IngredientUse struct {
	IngredientID string          `json:"ingredientId" db:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity"`
}

// MenuItemRef is a snapshot of a catalog entry at lookup time. The order
// engine copies name and price out of it; the catalog remains the owner.
type MenuItemRef struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Category    string          `json:"category" db:"category"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Description string          `json:"description,omitempty" db:"description"`
	Available   bool            `json:"available" db:"available"`
	Ingredients []IngredientUse `json:"ingredients,omitempty"`
}

// Ingredient is a stock-tracked inventory record.
type Ingredient struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Unit          string          `json:"unit" db:"unit"`
	CurrentStock  decimal.Decimal `json:"currentStock" db:"current_stock"`
	MinStock      decimal.Decimal `json:"minStock" db:"min_stock"`
	Cost          decimal.Decimal `json:"cost" db:"cost"`
	Supplier      string          `json:"supplier,omitempty" db:"supplier"`
	LastRestocked time.Time       `json:"lastRestocked" db:"last_restocked"`
}

// NeedsRestock reports whether stock has fallen to or below the minimum.
func (i *Ingredient) NeedsRestock() bool {
	return i.CurrentStock.LessThanOrEqual(i.MinStock)
}

// Settings holds the restaurant-wide settings row.
type Settings struct {
	RestaurantName string          `json:"restaurantName" db:"restaurant_name"`
	Currency       string          `json:"currency" db:"currency"`
	TaxRate        decimal.Decimal `json:"taxRate" db:"tax_rate"`
}

// DefaultSettings mirrors the defaults applied when no settings row exists yet.
func DefaultSettings() *Settings {
	return &Settings{
		RestaurantName: "Caisse Manager Pro",
		Currency:       "EUR",
		TaxRate:        decimal.NewFromInt(20),
	}
}
