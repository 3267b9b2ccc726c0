package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resale/internal/pricing"
)

// ErrNotFound is returned when a platform, product, or variant does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Platform groups products that share fee category, manual sensitivity, and a
// default markup applied to market prices.
type Platform struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	Category        pricing.Category `json:"category"`
	ManualSensitive bool             `json:"manual_sensitive"`
	DefaultMarkup   decimal.Decimal  `json:"default_markup"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Product is a sellable title on a platform.
type Product struct {
	ID         uuid.UUID `json:"id"`
	PlatformID uuid.UUID `json:"platform_id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Variant is one condition variant of a product with its current market price.
type Variant struct {
	ID          uuid.UUID           `json:"id"`
	ProductID   uuid.UUID           `json:"product_id"`
	Kind        pricing.VariantKind `json:"kind"`
	MarketPrice decimal.Decimal     `json:"market_price"`
	PricedAt    time.Time           `json:"priced_at"`
}

// VariantContext is the denormalised lookup consumed when a variant is added
// to a calculator session.
type VariantContext struct {
	ProductID       uuid.UUID           `json:"product_id"`
	VariantID       uuid.UUID           `json:"variant_id"`
	ProductTitle    string              `json:"product_title"`
	PlatformName    string              `json:"platform_name"`
	Category        pricing.Category    `json:"category"`
	ManualSensitive bool                `json:"manual_sensitive"`
	VariantKind     pricing.VariantKind `json:"variant_kind"`
	MarketPrice     decimal.Decimal     `json:"market_price"`
	DefaultMarkup   decimal.Decimal     `json:"default_markup"`
}

// Store abstracts catalog persistence.
type Store interface {
	ListPlatforms(ctx context.Context) ([]Platform, error)
	GetPlatform(ctx context.Context, id uuid.UUID) (*Platform, error)
	UpdatePlatformMarkup(ctx context.Context, id uuid.UUID, markup decimal.Decimal) (*Platform, error)
	VariantContext(ctx context.Context, variantID uuid.UUID) (*VariantContext, error)
}
