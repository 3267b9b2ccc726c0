package purchaseorder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resale/internal/calculator"
)

// Service creates purchase orders from calculator sessions and serves reads.
type Service struct {
	store Store
}

// NewService constructs a Service instance.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("purchaseorder: store is required")
	}
	return &Service{store: store}, nil
}

// CreateFromSession snapshots a priced session into a purchase order. The
// total cost is the asking price when the session has one, otherwise the sum
// of recommended purchase prices. That total is allocated across lines
// proportionally to each line's basis weight: market value for catalog-priced
// lines, recommended price for ad-hoc ones.
func (s *Service) CreateFromSession(ctx context.Context, sess calculator.Session, items []calculator.Item) (uuid.UUID, error) {
	if len(items) == 0 {
		return uuid.Nil, errors.New("purchaseorder: session has no items")
	}

	type weighted struct {
		line   Line
		weight decimal.Decimal
	}
	entries := make([]weighted, 0, len(items))
	weightSum := decimal.Zero
	recommendedSum := decimal.Zero
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Line.Quantity))
		line := Line{
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			Title:        item.ProductTitle,
			PlatformName: item.PlatformName,
			Quantity:     item.Line.Quantity,
		}
		var weight decimal.Decimal
		if item.VariantID != nil {
			line.Basis = BasisMarketValue
			weight = item.Line.MarketPrice.Mul(qty)
		} else {
			line.Basis = BasisRecommendedPrice
			weight = item.Breakdown.RecommendedPrice.Mul(qty)
		}
		entries = append(entries, weighted{line: line, weight: weight})
		weightSum = weightSum.Add(weight)
		recommendedSum = recommendedSum.Add(item.Breakdown.RecommendedPrice.Mul(qty))
	}

	totalCost := recommendedSum
	if sess.AskingPrice != nil {
		totalCost = *sess.AskingPrice
	}

	order := Order{
		SessionID:    sess.ID,
		SupplierName: sess.SourceName,
		TotalCost:    totalCost.Round(2),
		Lines:        make([]Line, 0, len(entries)),
	}
	equalShare := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(entries))))
	for _, entry := range entries {
		share := equalShare
		if weightSum.IsPositive() {
			share = entry.weight.Div(weightSum)
		}
		lineCost := totalCost.Mul(share)
		entry.line.LineCost = lineCost.Round(2)
		qty := decimal.NewFromInt(int64(entry.line.Quantity))
		entry.line.UnitCost = lineCost.Div(qty).Round(2)
		order.Lines = append(order.Lines, entry.line)
	}

	created, err := s.store.CreateOrder(ctx, order)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create order: %w", err)
	}
	return created.ID, nil
}

// Get returns one purchase order with its lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// List returns purchase orders with the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, int64, error) {
	orders, total, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}
