package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"order-engine/internal/domain"
	"order-engine/internal/events"
	orderrepo "order-engine/internal/repository/order"
)

type inTxKey struct{}

// memStore is an in-memory stand-in for the carts, products, orders and
// outbox tables. WithinTx serializes transactions and restores a snapshot
// when fn fails.
type memStore struct {
	mu       sync.Mutex
	carts    map[string]*domain.Cart
	products map[string]domain.Product
	orders   map[string]*domain.Order
	events   []events.Event

	outboxErr      error
	afterCartRead  func()
	afterOrderRead func(id string)
	forceConflicts int
}

func newMemStore() *memStore {
	return &memStore{
		carts:    map[string]*domain.Cart{},
		products: map[string]domain.Product{},
		orders:   map[string]*domain.Order{},
	}
}

func (m *memStore) lock(ctx context.Context) func() {
	if ctx.Value(inTxKey{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func cloneCart(c *domain.Cart) *domain.Cart {
	cp := *c
	cp.Lines = append([]domain.CartLine(nil), c.Lines...)
	return &cp
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	carts := make(map[string]*domain.Cart, len(m.carts))
	for id, c := range m.carts {
		carts[id] = cloneCart(c)
	}
	orders := make(map[string]*domain.Order, len(m.orders))
	for id, o := range m.orders {
		orders[id] = cloneOrder(o)
	}
	evs := append([]events.Event(nil), m.events...)

	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		m.carts, m.orders, m.events = carts, orders, evs
		return err
	}
	return nil
}

// cartRepo

type memCarts struct{ *memStore }

func (m memCarts) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	unlock := m.lock(ctx)
	c, ok := m.carts[id]
	var cp *domain.Cart
	if ok {
		cp = cloneCart(c)
	}
	hook := m.afterCartRead
	unlock()

	if !ok {
		return nil, domain.ErrNotFound
	}
	if hook != nil {
		hook()
	}
	return cp, nil
}

func (m memCarts) RemoveLines(ctx context.Context, cartID string, productIDs []string, expectedVersion int64) error {
	defer m.lock(ctx)()
	if m.forceConflicts > 0 {
		m.forceConflicts--
		return domain.ErrConflict
	}
	c, ok := m.carts[cartID]
	if !ok || c.Version != expectedVersion {
		return domain.ErrConflict
	}
	remove := map[string]bool{}
	for _, id := range productIDs {
		remove[id] = true
	}
	kept := c.Lines[:0:0]
	for _, l := range c.Lines {
		if remove[l.ProductID] {
			delete(remove, l.ProductID)
			continue
		}
		kept = append(kept, l)
	}
	if len(remove) > 0 {
		return domain.ErrConflict
	}
	c.Lines = kept
	c.Version++
	return nil
}

// productRepo

type memProducts struct{ *memStore }

func (m memProducts) FindMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	defer m.lock(ctx)()
	out := map[string]domain.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// orderRepo

type memOrders struct{ *memStore }

func (m memOrders) Create(ctx context.Context, o *domain.Order) error {
	defer m.lock(ctx)()
	if _, dup := m.orders[o.ID]; dup {
		return domain.ErrConflict
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
		o.UpdatedAt = o.CreatedAt
	}
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m memOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	unlock := m.lock(ctx)
	o, ok := m.orders[id]
	var cp *domain.Order
	if ok {
		cp = cloneOrder(o)
	}
	hook := m.afterOrderRead
	unlock()

	if !ok {
		return nil, domain.ErrNotFound
	}
	if hook != nil {
		hook(id)
	}
	return cp, nil
}

func (m memOrders) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	defer m.lock(ctx)()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return domain.ErrConflict
	}
	o.Status = to
	return nil
}

func (m memOrders) List(ctx context.Context, q orderrepo.ListQuery) ([]domain.Order, error) {
	defer m.lock(ctx)()
	var out []domain.Order
	for _, o := range m.orders {
		if q.UserID != "" && o.UserID != q.UserID {
			continue
		}
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		if q.CreatedAfter != nil && o.CreatedAt.Before(*q.CreatedAfter) {
			continue
		}
		out = append(out, *cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// outboxRepo

type memOutbox struct{ *memStore }

func (m memOutbox) Insert(ctx context.Context, ev events.Event) error {
	defer m.lock(ctx)()
	if m.outboxErr != nil {
		return m.outboxErr
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Type
	}
	return out
}

func (m *memStore) cart(id string) *domain.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneCart(m.carts[id])
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}
