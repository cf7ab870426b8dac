package models

import (
	"github.com/shopspring/decimal"
)

// OrderLineRequest is one requested cart entry. Only the menu item reference
// and quantity are accepted from the caller; price is always re-resolved from
// the catalog.
type OrderLineRequest struct {
	MenuItemID string `json:"menuItem" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,min=1"`
}

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	Type        string             `json:"type" validate:"required,oneof=dine-in takeout delivery"`
	TableNumber string             `json:"tableNumber"`
	Items       []OrderLineRequest `json:"items" validate:"required,min=1,dive"`
	Discount    decimal.Decimal    `json:"discount"`
	Notes       string             `json:"notes"`
}

// ChangeStatusRequest asks for a status transition on an existing order.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending preparing ready completed cancelled"`
}

// SettlePaymentRequest records a payment attempt against an order.
type SettlePaymentRequest struct {
	PaymentMethod string          `json:"paymentMethod" validate:"required,oneof=cash card digital-wallet"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
}

// SettlePaymentResponse is returned on successful settlement.
type SettlePaymentResponse struct {
	Message string          `json:"message"`
	Order   *Order          `json:"order"`
	Change  decimal.Decimal `json:"change"`
}
