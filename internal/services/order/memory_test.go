package order

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gohmolo58-collab/caisse-manger/internal/models"
	"github.com/gohmolo58-collab/caisse-manger/internal/services/catalog"
)

// memStore is an in-memory Store with the same guard semantics as the
// Postgres implementation: day-scoped counter allocated with the insert,
// version check on status updates, unpaid check on MarkPaid.
type memStore struct {
	mu       sync.Mutex
	orders   map[string]*models.Order
	counters map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		orders:   map[string]*models.Order{},
		counters: map[string]int{},
	}
}

func (m *memStore) Insert(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := o.CreatedAt.UTC().Format("20060102")
	m.counters[day]++
	o.OrderNumber = FormatOrderNumber(o.CreatedAt, m.counters[day])

	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Order
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
			continue
		}
		if f.Date != nil && o.CreatedAt.UTC().Format("20060102") != f.Date.UTC().Format("20060102") {
			continue
		}
		out = append(out, *o)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].OrderNumber > out[j].OrderNumber
	})
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, to models.OrderStatus, completedAt *time.Time, _ string, expectedVersion int) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if o.Version != expectedVersion {
		return nil, fmt.Errorf("%w: order %s", ErrVersionConflict, id)
	}

	o.Status = to
	if completedAt != nil && o.CompletedAt == nil {
		o.CompletedAt = completedAt
	}
	o.Version++

	cp := *o
	return &cp, nil
}

func (m *memStore) MarkPaid(_ context.Context, id string, method models.PaymentMethod, paidAt time.Time) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if o.PaymentStatus != models.PaymentUnpaid {
		return nil, fmt.Errorf("%w: order %s", ErrAlreadyPaid, id)
	}

	o.PaymentStatus = models.PaymentPaid
	o.PaymentMethod = method
	o.Status = models.StatusCompleted
	if o.CompletedAt == nil {
		o.CompletedAt = &paidAt
	}
	o.Version++

	cp := *o
	return &cp, nil
}

func (m *memStore) MarkRefunded(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if o.PaymentStatus != models.PaymentPaid {
		return nil, fmt.Errorf("%w: only paid orders can be refunded", ErrInvalidTransition)
	}

	o.PaymentStatus = models.PaymentRefunded
	o.Version++

	cp := *o
	return &cp, nil
}

func (m *memStore) TodaySummary(_ context.Context, day time.Time) (*models.DaySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	date := day.UTC().Format("20060102")
	sum := &models.DaySummary{TotalRevenue: decimal.Zero}
	for _, o := range m.orders {
		if o.CreatedAt.UTC().Format("20060102") != date {
			continue
		}
		sum.TotalOrders++
		sum.TotalRevenue = sum.TotalRevenue.Add(o.Total)
		switch o.Status {
		case models.StatusPending:
			sum.PendingOrders++
		case models.StatusCompleted:
			sum.CompletedOrders++
		}
	}
	return sum, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// memCatalog resolves menu items from a fixed map.
type memCatalog struct {
	items map[string]*models.MenuItemRef
}

func (c *memCatalog) Get(_ context.Context, id string) (*models.MenuItemRef, error) {
	item, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}
	cp := *item
	return &cp, nil
}

// memInventory records decrements; unknown ingredients are skipped, matching
// the ledger.
type memInventory struct {
	mu      sync.Mutex
	stock   map[string]decimal.Decimal
	skipped []string
}

func newMemInventory(stock map[string]decimal.Decimal) *memInventory {
	if stock == nil {
		stock = map[string]decimal.Decimal{}
	}
	return &memInventory{stock: stock}
}

func (i *memInventory) Decrement(_ context.Context, ingredientID string, qty decimal.Decimal) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	current, ok := i.stock[ingredientID]
	if !ok {
		i.skipped = append(i.skipped, ingredientID)
		return nil
	}
	i.stock[ingredientID] = current.Sub(qty)
	return nil
}

// memSettings returns a fixed tax rate.
type memSettings struct {
	taxRate decimal.Decimal
}

func (s *memSettings) Get(_ context.Context) (*models.Settings, error) {
	return &models.Settings{
		RestaurantName: "Test Restaurant",
		Currency:       "EUR",
		TaxRate:        s.taxRate,
	}, nil
}

// memPublisher captures published events.
type memPublisher struct {
	mu            sync.Mutex
	events        []string
	notifications []interface{}
}

func (p *memPublisher) PublishOrderEvent(_ context.Context, routingKey string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return nil
}

func (p *memPublisher) PublishNotification(_ context.Context, msg interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, msg)
	return nil
}
