package calculator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-resale/internal/pricing"
)

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	rates    map[string]pricing.RateValue
	sessions map[uuid.UUID]Session
	items    map[uuid.UUID]Item
}

// NewMemoryStore constructs an empty in-memory store, optionally seeded with a
// rate configuration.
func NewMemoryStore(rates map[string]pricing.RateValue) *MemoryStore {
	copied := make(map[string]pricing.RateValue, len(rates))
	for k, v := range rates {
		copied[k] = v
	}
	return &MemoryStore{
		rates:    copied,
		sessions: make(map[uuid.UUID]Session),
		items:    make(map[uuid.UUID]Item),
	}
}

var _ Store = (*MemoryStore)(nil)

// RateConfig returns a copy of the stored rate configuration.
func (m *MemoryStore) RateConfig(_ context.Context) (map[string]pricing.RateValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]pricing.RateValue, len(m.rates))
	for k, v := range m.rates {
		out[k] = v
	}
	return out, nil
}

// ReplaceRateConfig swaps the full configuration set.
func (m *MemoryStore) ReplaceRateConfig(_ context.Context, entries map[string]pricing.RateValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = make(map[string]pricing.RateValue, len(entries))
	for k, v := range entries {
		m.rates[k] = v
	}
	return nil
}

// CreateSession stores a new session.
func (m *MemoryStore) CreateSession(_ context.Context, s Session) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = StatusDraft
	}
	m.sessions[s.ID] = s
	out := s
	return &out, nil
}

// GetSession fetches a session by id.
func (m *MemoryStore) GetSession(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := s
	return &out, nil
}

// ListSessions returns sessions newest first with the total match count.
func (m *MemoryStore) ListSessions(_ context.Context, filter ListFilter) ([]Session, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))

	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// UpdateSession replaces a stored session. The optimistic check compares the
// caller's UpdatedAt against the stored value.
func (m *MemoryStore) UpdateSession(_ context.Context, s Session) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[s.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.UpdatedAt.IsZero() && !current.UpdatedAt.Equal(s.UpdatedAt) {
		return nil, ErrStaleUpdate
	}
	s.CreatedAt = current.CreatedAt
	s.UpdatedAt = time.Now().UTC()
	m.sessions[s.ID] = s
	out := s
	return &out, nil
}

// DeleteSession removes a session and its items.
func (m *MemoryStore) DeleteSession(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	for itemID, it := range m.items {
		if it.SessionID == id {
			delete(m.items, itemID)
		}
	}
	return nil
}

// ListSessionIDs returns ids of sessions in any of the given statuses.
func (m *MemoryStore) ListSessionIDs(_ context.Context, statuses ...SessionStatus) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []uuid.UUID
	for id, s := range m.sessions {
		for _, status := range statuses {
			if s.Status == status {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// AddItem stores a new item.
func (m *MemoryStore) AddItem(_ context.Context, it Item) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[it.SessionID]; !ok {
		return nil, ErrNotFound
	}
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	now := time.Now().UTC()
	it.CreatedAt = now
	it.UpdatedAt = now
	m.items[it.ID] = it
	out := it
	return &out, nil
}

// GetItem fetches an item by id.
func (m *MemoryStore) GetItem(_ context.Context, id uuid.UUID) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := it
	return &out, nil
}

// ListItems returns a session's items oldest first.
func (m *MemoryStore) ListItems(_ context.Context, sessionID uuid.UUID) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Item
	for _, it := range m.items {
		if it.SessionID == sessionID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateItem replaces a stored item.
func (m *MemoryStore) UpdateItem(_ context.Context, it Item) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.items[it.ID]
	if !ok {
		return nil, ErrNotFound
	}
	it.SessionID = current.SessionID
	it.CreatedAt = current.CreatedAt
	it.UpdatedAt = time.Now().UTC()
	m.items[it.ID] = it
	out := it
	return &out, nil
}

// DeleteItem removes an item.
func (m *MemoryStore) DeleteItem(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}
