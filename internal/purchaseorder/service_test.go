package purchaseorder

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resale/internal/calculator"
	"github.com/noah-isme/backend-resale/internal/pricing"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func catalogItem(marketPrice, recommended string, qty int) calculator.Item {
	productID := uuid.New()
	variantID := uuid.New()
	return calculator.Item{
		ID:           uuid.New(),
		ProductID:    &productID,
		VariantID:    &variantID,
		ProductTitle: "catalog item",
		PlatformName: "PlayStation 3",
		Line: pricing.LineItem{
			MarketPrice: dec(marketPrice),
			VariantKind: pricing.VariantCompleteInBox,
			Category:    pricing.CategoryGames,
			Quantity:    qty,
		},
		Breakdown: pricing.Breakdown{RecommendedPrice: dec(recommended)},
	}
}

func adHocItem(recommended string, qty int) calculator.Item {
	return calculator.Item{
		ID:           uuid.New(),
		ProductTitle: "ad-hoc item",
		Line: pricing.LineItem{
			MarketPrice: dec(recommended).Mul(dec("2")),
			VariantKind: pricing.VariantLoose,
			Category:    pricing.CategoryGames,
			Quantity:    qty,
		},
		Breakdown: pricing.Breakdown{RecommendedPrice: dec(recommended)},
	}
}

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func TestCreateFromSessionAllocatesAskingPrice(t *testing.T) {
	svc, store := newTestService(t)
	sess := calculator.Session{
		ID:          uuid.New(),
		SourceName:  "estate sale",
		AskingPrice: decPtr("100.00"),
	}
	// Weights: 80 market value vs 20 recommended, so the asking price splits
	// 80/20 across the two lines.
	items := []calculator.Item{
		catalogItem("80.00", "30.00", 1),
		adHocItem("20.00", 1),
	}

	id, err := svc.CreateFromSession(context.Background(), sess, items)
	if err != nil {
		t.Fatalf("create from session: %v", err)
	}
	order, err := store.GetOrder(context.Background(), id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}

	if order.SupplierName != "estate sale" {
		t.Fatalf("supplier = %q", order.SupplierName)
	}
	if !order.TotalCost.Equal(dec("100.00")) {
		t.Fatalf("total cost = %s, want 100.00", order.TotalCost)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(order.Lines))
	}

	byBasis := map[AllocationBasis]Line{}
	for _, line := range order.Lines {
		byBasis[line.Basis] = line
	}
	if !byBasis[BasisMarketValue].LineCost.Equal(dec("80.00")) {
		t.Fatalf("market line cost = %s, want 80.00", byBasis[BasisMarketValue].LineCost)
	}
	if !byBasis[BasisRecommendedPrice].LineCost.Equal(dec("20.00")) {
		t.Fatalf("ad-hoc line cost = %s, want 20.00", byBasis[BasisRecommendedPrice].LineCost)
	}
}

func TestCreateFromSessionFallsBackToRecommendedSum(t *testing.T) {
	svc, store := newTestService(t)
	sess := calculator.Session{ID: uuid.New()}
	items := []calculator.Item{
		adHocItem("12.50", 2),
		adHocItem("5.00", 1),
	}

	id, err := svc.CreateFromSession(context.Background(), sess, items)
	if err != nil {
		t.Fatalf("create from session: %v", err)
	}
	order, err := store.GetOrder(context.Background(), id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	// 12.50*2 + 5.00 = 30.00
	if !order.TotalCost.Equal(dec("30.00")) {
		t.Fatalf("total cost = %s, want 30.00", order.TotalCost)
	}
}

func TestCreateFromSessionUnitCost(t *testing.T) {
	svc, store := newTestService(t)
	sess := calculator.Session{ID: uuid.New(), AskingPrice: decPtr("30.00")}
	items := []calculator.Item{catalogItem("50.00", "20.00", 3)}

	id, err := svc.CreateFromSession(context.Background(), sess, items)
	if err != nil {
		t.Fatalf("create from session: %v", err)
	}
	order, err := store.GetOrder(context.Background(), id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	line := order.Lines[0]
	if !line.LineCost.Equal(dec("30.00")) {
		t.Fatalf("line cost = %s, want 30.00", line.LineCost)
	}
	if !line.UnitCost.Equal(dec("10.00")) {
		t.Fatalf("unit cost = %s, want 10.00", line.UnitCost)
	}
}

func TestCreateFromSessionZeroWeightsSplitEqually(t *testing.T) {
	svc, store := newTestService(t)
	sess := calculator.Session{ID: uuid.New(), AskingPrice: decPtr("10.00")}
	// Unprofitable items carry a zero recommended price, so every weight is
	// zero and the cost splits evenly.
	items := []calculator.Item{
		adHocItem("0", 1),
		adHocItem("0", 1),
	}

	id, err := svc.CreateFromSession(context.Background(), sess, items)
	if err != nil {
		t.Fatalf("create from session: %v", err)
	}
	order, err := store.GetOrder(context.Background(), id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	for _, line := range order.Lines {
		if !line.LineCost.Equal(dec("5.00")) {
			t.Fatalf("line cost = %s, want 5.00", line.LineCost)
		}
	}
}

func TestCreateFromSessionRejectsEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.CreateFromSession(context.Background(), calculator.Session{ID: uuid.New()}, nil); err == nil {
		t.Fatal("expected error for empty session")
	}
}

func TestGetUnknownOrder(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListOrders(t *testing.T) {
	svc, _ := newTestService(t)
	for i := 0; i < 3; i++ {
		sess := calculator.Session{ID: uuid.New()}
		if _, err := svc.CreateFromSession(context.Background(), sess, []calculator.Item{adHocItem("10.00", 1)}); err != nil {
			t.Fatalf("create from session: %v", err)
		}
	}

	orders, total, err := svc.List(context.Background(), ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(orders) != 2 {
		t.Fatalf("orders = %d, want 2", len(orders))
	}
}
