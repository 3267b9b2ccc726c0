package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	platforms map[uuid.UUID]Platform
	products  map[uuid.UUID]Product
	variants  map[uuid.UUID]Variant
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		platforms: make(map[uuid.UUID]Platform),
		products:  make(map[uuid.UUID]Product),
		variants:  make(map[uuid.UUID]Variant),
	}
}

var _ Store = (*MemoryStore)(nil)

// SeedPlatform inserts or replaces a platform.
func (m *MemoryStore) SeedPlatform(p Platform) Platform {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.platforms[p.ID] = p
	return p
}

// SeedProduct inserts or replaces a product.
func (m *MemoryStore) SeedProduct(p Product) Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.products[p.ID] = p
	return p
}

// SeedVariant inserts or replaces a variant.
func (m *MemoryStore) SeedVariant(v Variant) Variant {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.PricedAt.IsZero() {
		v.PricedAt = time.Now().UTC()
	}
	m.variants[v.ID] = v
	return v
}

// ListPlatforms returns platforms sorted by name.
func (m *MemoryStore) ListPlatforms(_ context.Context) ([]Platform, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Platform, 0, len(m.platforms))
	for _, p := range m.platforms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetPlatform fetches one platform by id.
func (m *MemoryStore) GetPlatform(_ context.Context, id uuid.UUID) (*Platform, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.platforms[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := p
	return &out, nil
}

// UpdatePlatformMarkup sets a platform's default markup.
func (m *MemoryStore) UpdatePlatformMarkup(_ context.Context, id uuid.UUID, markup decimal.Decimal) (*Platform, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.platforms[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.DefaultMarkup = markup
	p.UpdatedAt = time.Now().UTC()
	m.platforms[id] = p
	out := p
	return &out, nil
}

// VariantContext resolves the denormalised pricing context for a variant.
func (m *MemoryStore) VariantContext(_ context.Context, variantID uuid.UUID) (*VariantContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.variants[variantID]
	if !ok {
		return nil, ErrNotFound
	}
	prod, ok := m.products[v.ProductID]
	if !ok {
		return nil, ErrNotFound
	}
	plat, ok := m.platforms[prod.PlatformID]
	if !ok {
		return nil, ErrNotFound
	}
	return &VariantContext{
		ProductID:       prod.ID,
		VariantID:       v.ID,
		ProductTitle:    prod.Title,
		PlatformName:    plat.Name,
		Category:        plat.Category,
		ManualSensitive: plat.ManualSensitive,
		VariantKind:     v.Kind,
		MarketPrice:     v.MarketPrice,
		DefaultMarkup:   plat.DefaultMarkup,
	}, nil
}
