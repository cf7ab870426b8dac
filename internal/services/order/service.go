package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gohmolo58-collab/caisse-manger/internal/logger"
	"github.com/gohmolo58-collab/caisse-manger/internal/metrics"
	"github.com/gohmolo58-collab/caisse-manger/internal/models"
	"github.com/gohmolo58-collab/caisse-manger/internal/services/catalog"
)

// Catalog resolves menu item references to their current price, availability
// and recipe.
type Catalog interface {
	Get(ctx context.Context, id string) (*models.MenuItemRef, error)
}

// Inventory applies stock decrements for consumed ingredients.
type Inventory interface {
	Decrement(ctx context.Context, ingredientID string, qty decimal.Decimal) error
}

// SettingsProvider supplies the current tax rate and currency.
type SettingsProvider interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// ListFilter narrows the orders returned by ListOrders. Zero-valued fields
// match everything.
type ListFilter struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus

	// Date restricts results to one UTC calendar date.
	Date *time.Time
}

// Store persists orders. Insert must allocate the day-scoped order number
// atomically with the insert; MarkPaid must only succeed while the order is
// still unpaid.
type Store interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, f ListFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, to models.OrderStatus, completedAt *time.Time, changedBy string, expectedVersion int) (*models.Order, error)
	MarkPaid(ctx context.Context, id string, method models.PaymentMethod, paidAt time.Time) (*models.Order, error)
	MarkRefunded(ctx context.Context, id string) (*models.Order, error)
	TodaySummary(ctx context.Context, day time.Time) (*models.DaySummary, error)
}

// EventPublisher pushes order lifecycle events to the message broker.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, routingKey string, msg interface{}) error
	PublishNotification(ctx context.Context, msg interface{}) error
}

// Service is the order lifecycle and checkout computation engine.
type Service struct {
	catalog   Catalog
	inventory Inventory
	settings  SettingsProvider
	store     Store
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
	validate  *validatorv10.Validate

	now func() time.Time
}

// NewService creates the order service. publisher and m may be nil; events
// and metrics are then skipped.
func NewService(store Store, cat Catalog, inv Inventory, set SettingsProvider,
	publisher EventPublisher, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		catalog:   cat,
		inventory: inv,
		settings:  set,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    log,
		validate:  models.NewValidator(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type consumption struct {
	ingredientID string
	qty          decimal.Decimal
}

// CreateOrder validates the requested lines against the catalog, computes
// subtotal/discount/tax/total, decrements inventory for consumed ingredients
// and persists the order with a day-scoped number, all before returning.
//
// Prices always come from the catalog at resolution time, never from the
// caller. All lines are validated before any stock is touched, so a rejected
// checkout never mutates inventory; a store failure after the decrements is
// the one path that can leak stock, and is not compensated.
func (s *Service) CreateOrder(ctx context.Context, req *models.CreateOrderRequest, cashierID, requestID string) (*models.Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid order request: %w", err)
	}

	// Resolve every line first; full-precision decimals throughout.
	subtotal := decimal.Zero
	lines := make([]models.OrderLine, 0, len(req.Items))
	var consumed []consumption

	for _, lr := range req.Items {
		item, err := s.catalog.Get(ctx, lr.MenuItemID)
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, lr.MenuItemID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve menu item %s: %w", lr.MenuItemID, err)
		}
		if !item.Available {
			return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
		}

		qty := decimal.NewFromInt(int64(lr.Quantity))
		lineSubtotal := item.Price.Mul(qty)
		subtotal = subtotal.Add(lineSubtotal)

		lines = append(lines, models.OrderLine{
			MenuItemID: item.ID,
			Name:       item.Name,
			Quantity:   lr.Quantity,
			Price:      item.Price,
			Subtotal:   lineSubtotal.Round(2),
		})

		for _, use := range item.Ingredients {
			consumed = append(consumed, consumption{
				ingredientID: use.IngredientID,
				qty:          use.Quantity.Mul(qty),
			})
		}
	}

	discount := req.Discount
	if discount.GreaterThan(subtotal) {
		return nil, fmt.Errorf("%w: discount %s, subtotal %s", ErrInvalidDiscount, discount, subtotal)
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	afterDiscount := subtotal.Sub(discount)
	tax := afterDiscount.Mul(cfg.TaxRate).Div(decimal.NewFromInt(100))
	total := afterDiscount.Add(tax)

	// All validation passed; decrement stock for every consumed ingredient.
	for _, c := range consumed {
		if err := s.inventory.Decrement(ctx, c.ingredientID, c.qty); err != nil {
			return nil, fmt.Errorf("failed to decrement inventory: %w", err)
		}
	}

	now := s.now()
	o := &models.Order{
		ID:            uuid.NewString(),
		Type:          models.OrderType(req.Type),
		TableNumber:   req.TableNumber,
		Items:         lines,
		Subtotal:      subtotal.Round(2),
		Discount:      discount.Round(2),
		Tax:           tax.Round(2),
		Total:         total.Round(2),
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentUnpaid,
		PaymentMethod: models.PaymentNone,
		Cashier:       cashierID,
		Notes:         req.Notes,
		CreatedAt:     now,
		Version:       1,
	}

	if err := s.store.Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	s.logger.Info("order_created", fmt.Sprintf("Order %s created", o.OrderNumber), requestID, map[string]interface{}{
		"order_number": o.OrderNumber,
		"order_type":   string(o.Type),
		"total":        o.Total.String(),
		"cashier":      cashierID,
	})

	if s.metrics != nil {
		s.metrics.OrdersCreated.WithLabelValues(string(o.Type)).Inc()
	}
	s.publishEvent(ctx, "order.created."+string(o.Type), NewOrderCreatedEvent(o), requestID)

	return o, nil
}

// GetOrder returns a single order by id.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.FindByID(ctx, orderID)
}

// ListOrders returns orders matching the filter, newest first, without their
// line items.
func (s *Service) ListOrders(ctx context.Context, f ListFilter) ([]models.Order, error) {
	return s.store.List(ctx, f)
}

// ChangeStatus applies a status transition requested by staff. Re-submitting
// the current status of a non-terminal order is a no-op; transitions out of
// completed or cancelled fail with ErrInvalidTransition. completedAt is
// stamped once, on first entry into a terminal state.
func (s *Service) ChangeStatus(ctx context.Context, orderID string, target models.OrderStatus, actor, requestID string) (*models.Order, error) {
	o, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}
	if o.Status == target {
		return o, nil
	}

	var completedAt *time.Time
	if models.IsTerminalStatus(target) && o.CompletedAt == nil {
		now := s.now()
		completedAt = &now
	}

	updated, err := s.store.UpdateStatus(ctx, orderID, target, completedAt, actor, o.Version)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_status_changed", fmt.Sprintf("Order %s: %s -> %s", o.OrderNumber, o.Status, target), requestID, map[string]interface{}{
		"order_number": o.OrderNumber,
		"old_status":   string(o.Status),
		"new_status":   string(target),
		"changed_by":   actor,
	})

	s.publishNotification(ctx, NewStatusChangedEvent(updated, o.Status, actor), requestID)

	return updated, nil
}

// SettlePayment validates a payment attempt against a priced order and marks
// it paid and completed in one guarded update. For cash the amount must cover
// the total and the true change is returned; for other methods the amount is
// informational and change is zero.
func (s *Service) SettlePayment(ctx context.Context, orderID string, method models.PaymentMethod, amountPaid decimal.Decimal, requestID string) (*models.Order, decimal.Decimal, error) {
	o, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if o.PaymentStatus != models.PaymentUnpaid {
		return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrAlreadyPaid, o.OrderNumber)
	}

	change := decimal.Zero
	if method == models.PaymentCash {
		if amountPaid.LessThan(o.Total) {
			return nil, decimal.Zero, fmt.Errorf("%w: paid %s, total %s", ErrInsufficientPayment, amountPaid, o.Total)
		}
		change = amountPaid.Sub(o.Total)
	}

	updated, err := s.store.MarkPaid(ctx, orderID, method, s.now())
	if err != nil {
		return nil, decimal.Zero, err
	}

	s.logger.Info("payment_settled", fmt.Sprintf("Order %s paid by %s", o.OrderNumber, method), requestID, map[string]interface{}{
		"order_number": o.OrderNumber,
		"method":       string(method),
		"total":        o.Total.String(),
		"change":       change.String(),
	})

	if s.metrics != nil {
		s.metrics.PaymentsSettled.WithLabelValues(string(method)).Inc()
	}
	s.publishNotification(ctx, NewPaymentSettledEvent(updated, change), requestID)

	return updated, change, nil
}

// RefundPayment moves a paid order to refunded. The order's fulfillment
// status is left untouched.
func (s *Service) RefundPayment(ctx context.Context, orderID, requestID string) (*models.Order, error) {
	updated, err := s.store.MarkRefunded(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment_refunded", fmt.Sprintf("Order %s refunded", updated.OrderNumber), requestID, map[string]interface{}{
		"order_number": updated.OrderNumber,
		"total":        updated.Total.String(),
	})

	return updated, nil
}

// TodaySummary aggregates the orders created today (UTC).
func (s *Service) TodaySummary(ctx context.Context) (*models.DaySummary, error) {
	return s.store.TodaySummary(ctx, s.now())
}

func (s *Service) publishEvent(ctx context.Context, routingKey string, msg interface{}, requestID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, routingKey, msg); err != nil {
		// A broker outage never fails the sale.
		s.logger.Error("event_publish_failed", "Failed to publish order event", requestID, err, map[string]interface{}{
			"routing_key": routingKey,
		})
	}
}

func (s *Service) publishNotification(ctx context.Context, msg interface{}, requestID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishNotification(ctx, msg); err != nil {
		s.logger.Error("notification_publish_failed", "Failed to publish notification", requestID, err, nil)
	}
}
