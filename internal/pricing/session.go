package pricing

import "github.com/shopspring/decimal"

// DealRating classifies an asking price against the total recommended
// purchase cost.
type DealRating string

const (
	DealExcellent  DealRating = "excellent"
	DealGood       DealRating = "good"
	DealFair       DealRating = "fair"
	DealOverpriced DealRating = "overpriced"
	// DealUnrated is returned when no asking price is present or the total
	// recommended cost is zero.
	DealUnrated DealRating = "unrated"
)

// Session carries the session-level inputs the aggregator consumes. The
// toggles are authoritative: callers must recompute every breakdown through
// Price with these flags before aggregating; the aggregator never patches
// stored totals incrementally.
type Session struct {
	AskingPrice *decimal.Decimal
	Flags       SessionFlags
}

// Totals is the session-level aggregate over all line items.
type Totals struct {
	TotalItems             int             `json:"total_items"`
	TotalQuantity          int             `json:"total_quantity"`
	TotalMarketValue       decimal.Decimal `json:"total_market_value"`
	TotalEstimatedRevenue  decimal.Decimal `json:"total_estimated_revenue"`
	TotalPurchaseCost      decimal.Decimal `json:"total_purchase_cost"`
	ExpectedProfit         decimal.Decimal `json:"expected_profit"`
	ExpectedProfitMargin   decimal.Decimal `json:"expected_profit_margin"`
	AveragePercentOfMarket decimal.Decimal `json:"average_percent_of_market"`
	AverageROI             decimal.Decimal `json:"average_roi"`
	DealRating             DealRating      `json:"deal_rating"`
}

// Aggregate folds priced line items into session totals. Monetary totals are
// quantity-weighted; percent-of-market and ROI are simple per-item averages
// with zero-denominator items excluded, preserving the behavior observed in
// the system this replaces. An empty session yields all-zero totals.
func Aggregate(items []LineItem, breakdowns []Breakdown, sess Session, bands DealBands) (Totals, error) {
	if len(items) != len(breakdowns) {
		return Totals{}, invalid("breakdowns", "one breakdown is required per line item")
	}

	t := Totals{
		TotalItems:             len(items),
		TotalMarketValue:       zero,
		TotalEstimatedRevenue:  zero,
		TotalPurchaseCost:      zero,
		ExpectedProfit:         zero,
		ExpectedProfitMargin:   zero,
		AveragePercentOfMarket: zero,
		AverageROI:             zero,
		DealRating:             DealUnrated,
	}

	pomSum, pomCount := zero, 0
	roiSum, roiCount := zero, 0

	for i, item := range items {
		b := breakdowns[i]
		qty := decimal.NewFromInt(int64(item.Quantity))
		t.TotalQuantity += item.Quantity

		t.TotalMarketValue = t.TotalMarketValue.Add(item.MarketPrice.Mul(qty))
		t.TotalEstimatedRevenue = t.TotalEstimatedRevenue.Add(b.NetAfterFees.Mul(qty))
		t.TotalPurchaseCost = t.TotalPurchaseCost.Add(b.RecommendedPrice.Mul(qty))

		if item.MarketPrice.IsPositive() {
			pomSum = pomSum.Add(b.RecommendedPrice.Div(item.MarketPrice))
			pomCount++
		}
		if b.RecommendedPrice.IsPositive() {
			roiSum = roiSum.Add(b.NetAfterFees.Sub(b.RecommendedPrice).Div(b.RecommendedPrice))
			roiCount++
		}
	}

	t.ExpectedProfit = t.TotalEstimatedRevenue.Sub(t.TotalPurchaseCost)
	if t.TotalEstimatedRevenue.IsPositive() {
		t.ExpectedProfitMargin = t.ExpectedProfit.Div(t.TotalEstimatedRevenue)
	}
	if pomCount > 0 {
		t.AveragePercentOfMarket = pomSum.Div(decimal.NewFromInt(int64(pomCount)))
	}
	if roiCount > 0 {
		t.AverageROI = roiSum.Div(decimal.NewFromInt(int64(roiCount)))
	}
	t.DealRating = ClassifyDeal(sess.AskingPrice, t.TotalPurchaseCost, bands)
	return t, nil
}

// ClassifyDeal rates an asking price against the total recommended purchase
// cost using the configured band edges.
func ClassifyDeal(askingPrice *decimal.Decimal, totalPurchaseCost decimal.Decimal, bands DealBands) DealRating {
	if askingPrice == nil || !totalPurchaseCost.IsPositive() {
		return DealUnrated
	}
	ratio := askingPrice.Div(totalPurchaseCost)
	switch {
	case ratio.LessThan(bands.Excellent):
		return DealExcellent
	case ratio.LessThan(bands.Good):
		return DealGood
	case ratio.LessThanOrEqual(bands.Fair):
		return DealFair
	default:
		return DealOverpriced
	}
}

// Rounded applies display rounding to the totals: two places for money, four
// for ratios.
func (t Totals) Rounded() Totals {
	out := t
	out.TotalMarketValue = t.TotalMarketValue.Round(2)
	out.TotalEstimatedRevenue = t.TotalEstimatedRevenue.Round(2)
	out.TotalPurchaseCost = t.TotalPurchaseCost.Round(2)
	out.ExpectedProfit = t.ExpectedProfit.Round(2)
	out.ExpectedProfitMargin = t.ExpectedProfitMargin.Round(4)
	out.AveragePercentOfMarket = t.AveragePercentOfMarket.Round(4)
	out.AverageROI = t.AverageROI.Round(4)
	return out
}
