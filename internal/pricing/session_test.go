package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAggregateEmptySession(t *testing.T) {
	rates := testRates(t)
	totals, err := Aggregate(nil, nil, Session{}, rates.Bands)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if totals.TotalItems != 0 || totals.TotalQuantity != 0 {
		t.Fatalf("counts = %d/%d, want 0/0", totals.TotalItems, totals.TotalQuantity)
	}
	for field, v := range map[string]decimal.Decimal{
		"revenue": totals.TotalEstimatedRevenue,
		"cost":    totals.TotalPurchaseCost,
		"profit":  totals.ExpectedProfit,
		"margin":  totals.ExpectedProfitMargin,
		"pom":     totals.AveragePercentOfMarket,
		"roi":     totals.AverageROI,
	} {
		if !v.IsZero() {
			t.Fatalf("%s = %s, want 0", field, v)
		}
	}
	if totals.DealRating != DealUnrated {
		t.Fatalf("deal rating = %s, want %s", totals.DealRating, DealUnrated)
	}
}

func TestAggregateQuantityWeightedRevenue(t *testing.T) {
	rates := testRates(t)
	flags := SessionFlags{TaxExempt: true}
	items := []LineItem{
		{MarketPrice: dec("86.34"), VariantKind: VariantCompleteInBox, Category: CategoryGames, ManualSensitive: true, Quantity: 2},
		{MarketPrice: dec("120.00"), VariantKind: VariantConsole, Category: CategoryConsoles, Quantity: 1},
		{MarketPrice: dec("25.50"), VariantKind: VariantLoose, Category: CategoryGames, Quantity: 3},
	}
	breakdowns := make([]Breakdown, len(items))
	want := zero
	for i, item := range items {
		breakdowns[i] = mustPrice(t, item, flags, rates)
		want = want.Add(breakdowns[i].NetAfterFees.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	totals, err := Aggregate(items, breakdowns, Session{Flags: flags}, rates.Bands)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	wantEqual(t, "total_estimated_revenue", totals.TotalEstimatedRevenue, want)
	wantEqual(t, "expected_profit", totals.ExpectedProfit, totals.TotalEstimatedRevenue.Sub(totals.TotalPurchaseCost))
	if totals.TotalQuantity != 6 {
		t.Fatalf("total quantity = %d, want 6", totals.TotalQuantity)
	}
	if totals.TotalItems != 3 {
		t.Fatalf("total items = %d, want 3", totals.TotalItems)
	}
}

// Items without a positive market price drop out of the percent-of-market
// average; items with a zero recommended price drop out of the ROI average.
// Neither contributes NaN or infinity.
func TestAggregateExcludesZeroDenominators(t *testing.T) {
	rates := testRates(t)
	flags := SessionFlags{TaxExempt: true}

	overrideOnly := LineItem{
		OverridePrice: decPtr("50.00"),
		VariantKind:   VariantLoose,
		Category:      CategoryGames,
		Quantity:      1,
	}
	underwater := LineItem{
		MarketPrice: dec("1.00"),
		VariantKind: VariantLoose,
		Category:    CategoryGames,
		Quantity:    1,
	}
	healthy := LineItem{
		MarketPrice: dec("100.00"),
		VariantKind: VariantLoose,
		Category:    CategoryGames,
		Quantity:    1,
	}
	items := []LineItem{overrideOnly, underwater, healthy}
	breakdowns := make([]Breakdown, len(items))
	for i, item := range items {
		breakdowns[i] = mustPrice(t, item, flags, rates)
	}
	if !breakdowns[1].RecommendedPrice.IsZero() {
		t.Fatalf("underwater item should clamp to 0, got %s", breakdowns[1].RecommendedPrice)
	}

	totals, err := Aggregate(items, breakdowns, Session{Flags: flags}, rates.Bands)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	// Only the two items with a market price enter the PoM average; only the
	// two with a positive recommended price enter ROI.
	wantPoM := breakdowns[1].RecommendedPrice.Div(underwater.MarketPrice).
		Add(breakdowns[2].RecommendedPrice.Div(healthy.MarketPrice)).
		Div(dec("2"))
	wantEqual(t, "average_percent_of_market", totals.AveragePercentOfMarket, wantPoM)

	roi := func(b Breakdown) decimal.Decimal {
		return b.NetAfterFees.Sub(b.RecommendedPrice).Div(b.RecommendedPrice)
	}
	wantROI := roi(breakdowns[0]).Add(roi(breakdowns[2])).Div(dec("2"))
	wantEqual(t, "average_roi", totals.AverageROI, wantROI)
}

func TestAggregateBreakdownCountMismatch(t *testing.T) {
	rates := testRates(t)
	items := []LineItem{{MarketPrice: dec("10"), VariantKind: VariantLoose, Category: CategoryGames, Quantity: 1}}
	if _, err := Aggregate(items, nil, Session{}, rates.Bands); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestClassifyDealBands(t *testing.T) {
	rates := testRates(t)
	cost := dec("100")
	cases := []struct {
		asking string
		want   DealRating
	}{
		{"60", DealExcellent},
		{"79.99", DealExcellent},
		{"80", DealGood},
		{"94.99", DealGood},
		{"95", DealFair},
		{"100", DealFair},
		{"100.01", DealOverpriced},
	}
	for _, tc := range cases {
		asking := dec(tc.asking)
		if got := ClassifyDeal(&asking, cost, rates.Bands); got != tc.want {
			t.Fatalf("asking %s: rating = %s, want %s", tc.asking, got, tc.want)
		}
	}

	if got := ClassifyDeal(nil, cost, rates.Bands); got != DealUnrated {
		t.Fatalf("nil asking: rating = %s, want %s", got, DealUnrated)
	}
	asking := dec("50")
	if got := ClassifyDeal(&asking, zero, rates.Bands); got != DealUnrated {
		t.Fatalf("zero cost: rating = %s, want %s", got, DealUnrated)
	}
}

// Flipping the session cashback toggle must flow through a full recompute:
// every item's cashback drops to zero and net-after-fees falls accordingly.
func TestCashbackToggleRecompute(t *testing.T) {
	rates := testRates(t)
	items := []LineItem{
		{MarketPrice: dec("86.34"), VariantKind: VariantLoose, Category: CategoryGames, Quantity: 1},
		{MarketPrice: dec("199.99"), VariantKind: VariantConsole, Category: CategoryConsoles, Quantity: 2},
	}

	on := SessionFlags{CashbackEnabled: true}
	off := SessionFlags{CashbackEnabled: false}
	withCB := make([]Breakdown, len(items))
	withoutCB := make([]Breakdown, len(items))
	for i, item := range items {
		withCB[i] = mustPrice(t, item, on, rates)
		withoutCB[i] = mustPrice(t, item, off, rates)

		if !withoutCB[i].TotalCashback.IsZero() {
			t.Fatalf("item %d: cashback = %s after disable, want 0", i, withoutCB[i].TotalCashback)
		}
		drop := withCB[i].NetAfterFees.Sub(withoutCB[i].NetAfterFees)
		wantEqual(t, "net drop", drop, withCB[i].TotalCashback)
	}

	before, err := Aggregate(items, withCB, Session{Flags: on}, rates.Bands)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	after, err := Aggregate(items, withoutCB, Session{Flags: off}, rates.Bands)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if after.TotalEstimatedRevenue.GreaterThanOrEqual(before.TotalEstimatedRevenue) {
		t.Fatalf("revenue did not fall after disabling cashback: %s >= %s",
			after.TotalEstimatedRevenue, before.TotalEstimatedRevenue)
	}
}
