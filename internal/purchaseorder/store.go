package purchaseorder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a purchase order does not exist.
var ErrNotFound = errors.New("purchaseorder: not found")

// AllocationBasis records which value a line's share of the total cost was
// weighted by.
type AllocationBasis string

const (
	// BasisMarketValue weights catalog-priced lines by their market value.
	BasisMarketValue AllocationBasis = "market_value"
	// BasisRecommendedPrice weights ad-hoc lines by their recommended
	// purchase price.
	BasisRecommendedPrice AllocationBasis = "recommended_price"
)

// Order is a purchase order snapshotted from a calculator session.
type Order struct {
	ID           uuid.UUID       `json:"id"`
	SessionID    uuid.UUID       `json:"session_id"`
	SupplierName string          `json:"supplier_name,omitempty"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Lines        []Line          `json:"lines"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Line is one purchased lot within an order.
type Line struct {
	ID           uuid.UUID       `json:"id"`
	OrderID      uuid.UUID       `json:"order_id"`
	ProductID    *uuid.UUID      `json:"product_id,omitempty"`
	VariantID    *uuid.UUID      `json:"variant_id,omitempty"`
	Title        string          `json:"title"`
	PlatformName string          `json:"platform_name,omitempty"`
	Quantity     int             `json:"quantity"`
	Basis        AllocationBasis `json:"basis"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	LineCost     decimal.Decimal `json:"line_cost"`
}

// ListFilter bounds order listings.
type ListFilter struct {
	Limit  int
	Offset int
}

// Store abstracts purchase order persistence.
type Store interface {
	CreateOrder(ctx context.Context, order Order) (*Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]Order, int64, error)
}
