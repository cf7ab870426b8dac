package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gohmolo58-collab/caisse-manger/internal/models"
)

// OrderCreatedEvent is published to the pos_events topic exchange when a new
// order is persisted. The kitchen display consumes it.
type OrderCreatedEvent struct {
	OrderNumber string             `json:"order_number"`
	OrderType   string             `json:"order_type"`
	TableNumber string             `json:"table_number,omitempty"`
	Items       []models.OrderLine `json:"items"`
	Total       decimal.Decimal    `json:"total"`
	Notes       string             `json:"notes,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewOrderCreatedEvent builds the creation event for an order.
func NewOrderCreatedEvent(o *models.Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		OrderNumber: o.OrderNumber,
		OrderType:   string(o.Type),
		TableNumber: o.TableNumber,
		Items:       o.Items,
		Total:       o.Total,
		Notes:       o.Notes,
		CreatedAt:   o.CreatedAt,
	}
}

// StatusChangedEvent is broadcast on the notifications fanout exchange when
// an order's status changes.
type StatusChangedEvent struct {
	OrderNumber string     `json:"order_number"`
	OldStatus   string     `json:"old_status"`
	NewStatus   string     `json:"new_status"`
	ChangedBy   string     `json:"changed_by"`
	Timestamp   time.Time  `json:"timestamp"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewStatusChangedEvent builds the status change notification.
func NewStatusChangedEvent(o *models.Order, old models.OrderStatus, changedBy string) *StatusChangedEvent {
	return &StatusChangedEvent{
		OrderNumber: o.OrderNumber,
		OldStatus:   string(old),
		NewStatus:   string(o.Status),
		ChangedBy:   changedBy,
		Timestamp:   time.Now().UTC(),
		CompletedAt: o.CompletedAt,
	}
}

// PaymentSettledEvent is broadcast when an order is paid.
type PaymentSettledEvent struct {
	OrderNumber   string          `json:"order_number"`
	PaymentMethod string          `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	Change        decimal.Decimal `json:"change"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewPaymentSettledEvent builds the settlement notification.
func NewPaymentSettledEvent(o *models.Order, change decimal.Decimal) *PaymentSettledEvent {
	return &PaymentSettledEvent{
		OrderNumber:   o.OrderNumber,
		PaymentMethod: string(o.PaymentMethod),
		Total:         o.Total,
		Change:        change,
		Timestamp:     time.Now().UTC(),
	}
}
