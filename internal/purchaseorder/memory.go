package purchaseorder

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]Order
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[uuid.UUID]Order)}
}

var _ Store = (*MemoryStore)(nil)

// CreateOrder stores a new order with its lines.
func (m *MemoryStore) CreateOrder(_ context.Context, order Order) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now().UTC()
	for i := range order.Lines {
		if order.Lines[i].ID == uuid.Nil {
			order.Lines[i].ID = uuid.New()
		}
		order.Lines[i].OrderID = order.ID
	}
	m.orders[order.ID] = cloneOrder(order)
	out := cloneOrder(order)
	return &out, nil
}

// GetOrder fetches an order by id.
func (m *MemoryStore) GetOrder(_ context.Context, id uuid.UUID) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneOrder(order)
	return &out, nil
}

// ListOrders returns orders newest first with the total count.
func (m *MemoryStore) ListOrders(_ context.Context, filter ListFilter) ([]Order, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Order, 0, len(m.orders))
	for _, order := range m.orders {
		out = append(out, cloneOrder(order))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))

	offset := filter.Offset
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func cloneOrder(order Order) Order {
	lines := make([]Line, len(order.Lines))
	copy(lines, order.Lines)
	order.Lines = lines
	return order
}
