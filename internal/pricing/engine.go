package pricing

import "github.com/shopspring/decimal"

// VariantKind is the closed set of condition grades a line item may carry.
type VariantKind string

const (
	VariantCompleteInBox VariantKind = "COMPLETE_IN_BOX"
	VariantLoose         VariantKind = "LOOSE"
	VariantNew           VariantKind = "NEW"
	VariantConsole       VariantKind = "CONSOLE"
)

// Category selects the category-specific fee and shipping defaults.
type Category string

const (
	CategoryGames    Category = "games"
	CategoryConsoles Category = "consoles"
)

// DeductionKind tags why a price deduction was applied.
type DeductionKind string

const (
	DeductionNone              DeductionKind = "none"
	DeductionAutoMissingManual DeductionKind = "auto_missing_manual"
	DeductionCustom            DeductionKind = "custom"
)

// Deduction records the single deduction applied to a line item, as a tagged
// variant rather than a loose map so display layers can label it.
type Deduction struct {
	Kind   DeductionKind   `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

// Warning marks a non-fatal condition attached to a breakdown.
type Warning string

// WarningUnprofitable is attached when the raw recommended purchase price was
// negative before clamping to zero.
const WarningUnprofitable Warning = "UNPROFITABLE"

// LineItem is one candidate purchase as consumed by the engine. The
// product/variant identity is opaque here; only pricing inputs appear.
type LineItem struct {
	MarketPrice                decimal.Decimal
	OverridePrice              *decimal.Decimal
	VariantKind                VariantKind
	Category                   Category
	ManualSensitive            bool
	HasManual                  bool
	CustomDeduction            *decimal.Decimal
	CustomDeductionNote        string
	MarkupAmount               *decimal.Decimal
	ShippingCostOverride       *decimal.Decimal
	TargetProfitMarginOverride *decimal.Decimal
	Quantity                   int
}

// SessionFlags are the session-level toggles passed into every Price call.
// They are authoritative inputs, never baked into stored per-item state.
type SessionFlags struct {
	CashbackEnabled bool
	TaxExempt       bool
}

// Breakdown is the full per-item cost/profit decomposition. Values keep full
// precision; Rounded produces the 2dp display form.
type Breakdown struct {
	BasePrice          decimal.Decimal `json:"base_price"`
	MarkupAmount       decimal.Decimal `json:"markup_amount"`
	PricedValue        decimal.Decimal `json:"priced_value"`
	Deduction          Deduction       `json:"deduction"`
	AdjustedPrice      decimal.Decimal `json:"adjusted_price"`
	SalesTax           decimal.Decimal `json:"sales_tax"`
	NetOfTax           decimal.Decimal `json:"net_of_tax"`
	MarketplaceFee     decimal.Decimal `json:"marketplace_fee"`
	ProcessingFee      decimal.Decimal `json:"processing_fee"`
	FlatTransactionFee decimal.Decimal `json:"flat_transaction_fee"`
	AdvertisingFee     decimal.Decimal `json:"advertising_fee"`
	ShippingCost       decimal.Decimal `json:"shipping_cost"`
	SuppliesCost       decimal.Decimal `json:"supplies_cost"`
	RegularCashback    decimal.Decimal `json:"regular_cashback"`
	ShippingCashback   decimal.Decimal `json:"shipping_cashback"`
	TotalCashback      decimal.Decimal `json:"total_cashback"`
	FeesBeforeCashback decimal.Decimal `json:"fees_before_cashback"`
	TotalFees          decimal.Decimal `json:"total_fees"`
	NetAfterFees       decimal.Decimal `json:"net_after_fees"`
	TargetProfitMargin decimal.Decimal `json:"target_profit_margin"`
	RecommendedPrice   decimal.Decimal `json:"recommended_purchase_price"`
	Profit             decimal.Decimal `json:"profit"`
	ProfitMargin       decimal.Decimal `json:"profit_margin"`
	Warnings           []Warning       `json:"warnings,omitempty"`
}

var (
	zero = decimal.NewFromInt(0)
	one  = decimal.NewFromInt(1)
)

// Price computes the full breakdown and recommended purchase price for one
// line item. It is pure and total: identical input yields identical output,
// and valid-shaped input never panics. Invalid input returns a
// *ValidationError naming the offending field.
func Price(item LineItem, flags SessionFlags, rates Rates) (Breakdown, error) {
	if err := validateItem(item); err != nil {
		return Breakdown{}, err
	}

	// Step 1: resolve base price.
	base := item.MarketPrice
	if item.OverridePrice != nil {
		base = *item.OverridePrice
	}
	if !base.IsPositive() {
		return Breakdown{}, invalid("market_price", "a positive market or override price is required")
	}

	// Step 2: markup.
	markup := zero
	if item.MarkupAmount != nil {
		markup = *item.MarkupAmount
	}
	priced := base.Add(markup)

	margin := rates.TargetProfitMargin
	if item.TargetProfitMarginOverride != nil {
		margin = *item.TargetProfitMarginOverride
	}

	// Step 3: deduction. A missing manual on a manual-sensitive CIB variant is
	// modeled as erasing the expected profit margin; an explicit custom
	// deduction takes precedence.
	ded := Deduction{Kind: DeductionNone, Amount: zero}
	switch {
	case item.CustomDeduction != nil && item.CustomDeduction.IsPositive():
		ded = Deduction{Kind: DeductionCustom, Amount: *item.CustomDeduction, Note: item.CustomDeductionNote}
	case item.VariantKind == VariantCompleteInBox && item.ManualSensitive && !item.HasManual && item.CustomDeduction == nil:
		ded = Deduction{Kind: DeductionAutoMissingManual, Amount: margin.Mul(priced)}
	}
	adjusted := priced.Sub(ded.Amount)
	if adjusted.IsNegative() {
		adjusted = zero
	}

	// Step 4: sales tax, withheld from the adjusted price unless exempt.
	salesTax := zero
	if !flags.TaxExempt {
		salesTax = adjusted.Mul(rates.SalesTaxRate)
	}
	netOfTax := adjusted.Sub(salesTax)

	// Step 5: marketplace final value fee. The basis is the pre-tax adjusted
	// price, matching how the marketplace actually bills.
	feeRate, err := rates.MarketplaceFee(item.Category)
	if err != nil {
		return Breakdown{}, err
	}
	marketplaceFee := adjusted.Mul(feeRate)

	// Step 6: payment processing fee on the net-of-tax value.
	processingFee := netOfTax.Mul(rates.PaymentProcessingRate)

	// Step 7: flat and fixed costs.
	advertisingFee := adjusted.Mul(rates.AdvertisingFeeRate)
	shipping, err := rates.ShippingCost(item.Category)
	if err != nil {
		return Breakdown{}, err
	}
	if item.ShippingCostOverride != nil {
		shipping = *item.ShippingCostOverride
	}
	supplies := rates.SuppliesCost(adjusted)

	// Step 8: cashback.
	regularCB, shippingCB := zero, zero
	if flags.CashbackEnabled {
		regularCB = netOfTax.Mul(rates.CashbackRegular)
		shippingCB = shipping.Mul(rates.CashbackShipping)
	}
	totalCB := regularCB.Add(shippingCB)

	// Step 9: totals. Cashback is counted exactly once: it reduces TotalFees,
	// and NetAfterFees subtracts the gross fees then adds it back.
	feesBeforeCB := marketplaceFee.
		Add(processingFee).
		Add(rates.FlatTransactionFee).
		Add(advertisingFee).
		Add(shipping).
		Add(supplies)
	totalFees := feesBeforeCB.Sub(totalCB)
	netAfterFees := netOfTax.Sub(feesBeforeCB).Add(totalCB)

	// Step 10: purchase price inversion with the effective target margin.
	recommended := netAfterFees.Mul(one.Sub(margin))
	var warnings []Warning
	if recommended.IsNegative() {
		recommended = zero
		warnings = append(warnings, WarningUnprofitable)
	}

	// Step 11: realized profit and margin at the recommended price.
	profit := netAfterFees.Sub(recommended)
	profitMargin := zero
	if netAfterFees.IsPositive() {
		profitMargin = profit.Div(netAfterFees)
	}

	return Breakdown{
		BasePrice:          base,
		MarkupAmount:       markup,
		PricedValue:        priced,
		Deduction:          ded,
		AdjustedPrice:      adjusted,
		SalesTax:           salesTax,
		NetOfTax:           netOfTax,
		MarketplaceFee:     marketplaceFee,
		ProcessingFee:      processingFee,
		FlatTransactionFee: rates.FlatTransactionFee,
		AdvertisingFee:     advertisingFee,
		ShippingCost:       shipping,
		SuppliesCost:       supplies,
		RegularCashback:    regularCB,
		ShippingCashback:   shippingCB,
		TotalCashback:      totalCB,
		FeesBeforeCashback: feesBeforeCB,
		TotalFees:          totalFees,
		NetAfterFees:       netAfterFees,
		TargetProfitMargin: margin,
		RecommendedPrice:   recommended,
		Profit:             profit,
		ProfitMargin:       profitMargin,
		Warnings:           warnings,
	}, nil
}

func validateItem(item LineItem) error {
	switch item.VariantKind {
	case VariantCompleteInBox, VariantLoose, VariantNew, VariantConsole:
	default:
		return invalid("variant_kind", "unknown variant kind "+string(item.VariantKind))
	}
	switch item.Category {
	case CategoryGames, CategoryConsoles:
	default:
		return invalid("category", "unknown category "+string(item.Category))
	}
	if item.Quantity < 1 {
		return invalid("quantity", "quantity must be >= 1")
	}
	if item.MarketPrice.IsNegative() {
		return invalid("market_price", "market price must not be negative")
	}
	if item.OverridePrice != nil && !item.OverridePrice.IsPositive() {
		return invalid("override_price", "override price must be > 0")
	}
	if item.MarkupAmount != nil && item.MarkupAmount.IsNegative() {
		return invalid("markup_amount", "markup must be >= 0")
	}
	if item.CustomDeduction != nil && item.CustomDeduction.IsNegative() {
		return invalid("custom_deduction", "deduction must be >= 0")
	}
	if item.ShippingCostOverride != nil && item.ShippingCostOverride.IsNegative() {
		return invalid("shipping_cost_override", "shipping cost must be >= 0")
	}
	if o := item.TargetProfitMarginOverride; o != nil && (o.IsNegative() || o.GreaterThan(one)) {
		return invalid("target_profit_margin_override", "margin must lie in [0, 1]")
	}
	return nil
}

// Rounded returns a copy of the breakdown with every monetary field rounded
// half-up to two decimal places for storage and display. Ratios keep four
// places. Computation never consumes a rounded breakdown.
func (b Breakdown) Rounded() Breakdown {
	out := b
	out.BasePrice = b.BasePrice.Round(2)
	out.MarkupAmount = b.MarkupAmount.Round(2)
	out.PricedValue = b.PricedValue.Round(2)
	out.Deduction.Amount = b.Deduction.Amount.Round(2)
	out.AdjustedPrice = b.AdjustedPrice.Round(2)
	out.SalesTax = b.SalesTax.Round(2)
	out.NetOfTax = b.NetOfTax.Round(2)
	out.MarketplaceFee = b.MarketplaceFee.Round(2)
	out.ProcessingFee = b.ProcessingFee.Round(2)
	out.FlatTransactionFee = b.FlatTransactionFee.Round(2)
	out.AdvertisingFee = b.AdvertisingFee.Round(2)
	out.ShippingCost = b.ShippingCost.Round(2)
	out.SuppliesCost = b.SuppliesCost.Round(2)
	out.RegularCashback = b.RegularCashback.Round(2)
	out.ShippingCashback = b.ShippingCashback.Round(2)
	out.TotalCashback = b.TotalCashback.Round(2)
	out.FeesBeforeCashback = b.FeesBeforeCashback.Round(2)
	out.TotalFees = b.TotalFees.Round(2)
	out.NetAfterFees = b.NetAfterFees.Round(2)
	out.RecommendedPrice = b.RecommendedPrice.Round(2)
	out.Profit = b.Profit.Round(2)
	out.ProfitMargin = b.ProfitMargin.Round(4)
	out.TargetProfitMargin = b.TargetProfitMargin.Round(4)
	return out
}

// Unprofitable reports whether the unprofitable warning is attached.
func (b Breakdown) Unprofitable() bool {
	for _, w := range b.Warnings {
		if w == WarningUnprofitable {
			return true
		}
	}
	return false
}
