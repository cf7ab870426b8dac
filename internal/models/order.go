package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Receipt and reporting consumers read monetary fields as bare JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderType represents the type of an order.
type OrderType string

const (
	DineIn   OrderType = "dine-in"
	Takeout  OrderType = "takeout"
	Delivery OrderType = "delivery"
)

// OrderStatus represents the fulfillment status of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus represents the payment status of an order.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentMethod represents how an order was paid.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentWallet PaymentMethod = "digital-wallet"
	PaymentNone   PaymentMethod = ""
)

// OrderLine is one cart entry resolved against the catalog. Name and price are
// copied from the menu item at order time and never change afterwards.
type OrderLine struct {
	MenuItemID string          `json:"menuItem" db:"menu_item_id"`
	Name       string          `json:"name" db:"name"`
	Quantity   int             `json:"quantity" db:"quantity"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Subtotal   decimal.Decimal `json:"subtotal" db:"subtotal"`
}

// Order is the central entity of the POS backend.
//
// Invariants: subtotal is the sum of line subtotals, discount never exceeds
// subtotal, total = (subtotal - discount) + tax and is never negative. Orders
// are created atomically, mutated only through status and payment operations,
// and never deleted.
type Order struct {
	ID            string          `json:"id" db:"id"`
	OrderNumber   string          `json:"orderNumber" db:"order_number"`
	Type          OrderType       `json:"type" db:"type"`
	TableNumber   string          `json:"tableNumber,omitempty" db:"table_number"`
	Items         []OrderLine     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	Discount      decimal.Decimal `json:"discount" db:"discount"`
	Tax           decimal.Decimal `json:"tax" db:"tax"`
	Total         decimal.Decimal `json:"total" db:"total"`
	Status        OrderStatus     `json:"status" db:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	Cashier       string          `json:"cashier" db:"cashier_id"`
	Notes         string          `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty" db:"completed_at"`

	// Version guards concurrent status/payment updates.
	Version int `json:"-" db:"version"`
}

// IsTerminalStatus reports whether no further status transitions are permitted.
func IsTerminalStatus(s OrderStatus) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ValidOrderStatus reports whether s is one of the known order statuses.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether p is one of the known payment statuses.
func ValidPaymentStatus(p PaymentStatus) bool {
	switch p {
	case PaymentUnpaid, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// DaySummary aggregates the orders created on one calendar date.
type DaySummary struct {
	TotalOrders     int             `json:"totalOrders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	PendingOrders   int             `json:"pendingOrders"`
	CompletedOrders int             `json:"completedOrders"`
}
