package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resale/internal/common"
)

const platformsCacheKey = "catalog:platforms"

// Service orchestrates catalog lookups and caching.
type Service struct {
	store Store
	cache *Cache
}

// NewService constructs a Service instance.
func NewService(store Store, cache *Cache) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog: store is required")
	}
	return &Service{store: store, cache: cache}, nil
}

// ListPlatforms returns all platforms, served from cache when warm.
func (s *Service) ListPlatforms(ctx context.Context) ([]Platform, error) {
	if s.cache != nil {
		var cached []Platform
		if ok, err := s.cache.GetJSON(ctx, platformsCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	platforms, err := s.store.ListPlatforms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, platformsCacheKey, platforms)
	}
	return platforms, nil
}

// UpdatePlatformMarkup sets a platform's default markup and invalidates the
// platform list cache.
func (s *Service) UpdatePlatformMarkup(ctx context.Context, id uuid.UUID, markup decimal.Decimal) (*Platform, error) {
	if markup.IsNegative() {
		return nil, common.NewAppError("BAD_REQUEST", "markup must not be negative", http.StatusBadRequest, nil)
	}
	platform, err := s.store.UpdatePlatformMarkup(ctx, id, markup)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update platform markup: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, platformsCacheKey)
	}
	return platform, nil
}

// VariantContext resolves the pricing context a calculator item needs when it
// references a catalog variant.
func (s *Service) VariantContext(ctx context.Context, variantID uuid.UUID) (*VariantContext, error) {
	vc, err := s.store.VariantContext(ctx, variantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get variant context: %w", err)
	}
	return vc, nil
}
