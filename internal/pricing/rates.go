package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RateKind tags how a configuration value is interpreted.
type RateKind string

const (
	// RateKindPercentage values are fractions in [0, 1].
	RateKindPercentage RateKind = "percentage"
	// RateKindFixedAmount values are non-negative currency amounts.
	RateKindFixedAmount RateKind = "fixed_amount"
)

// Recognized rate configuration keys. The set is closed: unknown keys are
// rejected and every key must be present for a snapshot to parse.
const (
	KeySalesTaxRate                 = "sales_tax_rate"
	KeyMarketplaceFeeRateGames      = "marketplace_final_value_fee_rate_games"
	KeyMarketplaceFeeRateConsoles   = "marketplace_final_value_fee_rate_consoles"
	KeyPaymentProcessingFeeRate     = "payment_processing_fee_rate"
	KeyFlatTransactionFee           = "flat_transaction_fee"
	KeyAdvertisingFeeRate           = "advertising_fee_rate"
	KeyShippingCostGames            = "shipping_cost_fixed_games"
	KeyShippingCostConsoles         = "shipping_cost_fixed_consoles"
	KeySuppliesCostThreshold        = "supplies_cost_threshold"
	KeySuppliesCostUnder            = "supplies_cost_fixed_under"
	KeySuppliesCostOver             = "supplies_cost_fixed_over"
	KeyCashbackRateRegular          = "cashback_rate_regular"
	KeyCashbackRateShipping         = "cashback_rate_shipping"
	KeyTargetProfitMargin           = "target_profit_margin"
	KeyDealBandExcellent            = "deal_band_excellent"
	KeyDealBandGood                 = "deal_band_good"
	KeyDealBandFair                 = "deal_band_fair"
)

// rateKinds declares the expected kind for every recognized key.
var rateKinds = map[string]RateKind{
	KeySalesTaxRate:               RateKindPercentage,
	KeyMarketplaceFeeRateGames:    RateKindPercentage,
	KeyMarketplaceFeeRateConsoles: RateKindPercentage,
	KeyPaymentProcessingFeeRate:   RateKindPercentage,
	KeyFlatTransactionFee:         RateKindFixedAmount,
	KeyAdvertisingFeeRate:         RateKindPercentage,
	KeyShippingCostGames:          RateKindFixedAmount,
	KeyShippingCostConsoles:       RateKindFixedAmount,
	KeySuppliesCostThreshold:      RateKindFixedAmount,
	KeySuppliesCostUnder:          RateKindFixedAmount,
	KeySuppliesCostOver:           RateKindFixedAmount,
	KeyCashbackRateRegular:        RateKindPercentage,
	KeyCashbackRateShipping:       RateKindPercentage,
	KeyTargetProfitMargin:         RateKindPercentage,
	KeyDealBandExcellent:          RateKindPercentage,
	KeyDealBandGood:               RateKindPercentage,
	KeyDealBandFair:               RateKindPercentage,
}

// RateKeys returns the full recognized key set in stable order.
func RateKeys() []string {
	keys := make([]string, 0, len(rateKinds))
	for key := range rateKinds {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// KindForKey reports the expected kind of a recognized key.
func KindForKey(key string) (RateKind, bool) {
	kind, ok := rateKinds[key]
	return kind, ok
}

// RateValue is one entry of the flat configuration mapping supplied by the
// configuration store.
type RateValue struct {
	Value decimal.Decimal `json:"value"`
	Kind  RateKind        `json:"kind"`
}

// DealBands holds the asking-price classification edges as fractions of the
// total recommended purchase cost.
type DealBands struct {
	Excellent decimal.Decimal `json:"excellent"`
	Good      decimal.Decimal `json:"good"`
	Fair      decimal.Decimal `json:"fair"`
}

// Rates is an immutable, validated snapshot of the rate configuration. A live
// configuration update produces a new snapshot; a snapshot is never mutated
// mid-calculation.
type Rates struct {
	SalesTaxRate           decimal.Decimal
	MarketplaceFeeGames    decimal.Decimal
	MarketplaceFeeConsoles decimal.Decimal
	PaymentProcessingRate  decimal.Decimal
	FlatTransactionFee     decimal.Decimal
	AdvertisingFeeRate     decimal.Decimal
	ShippingGames          decimal.Decimal
	ShippingConsoles       decimal.Decimal
	SuppliesThreshold      decimal.Decimal
	SuppliesUnder          decimal.Decimal
	SuppliesOver           decimal.Decimal
	CashbackRegular        decimal.Decimal
	CashbackShipping       decimal.Decimal
	TargetProfitMargin     decimal.Decimal
	Bands                  DealBands
}

// ParseRates validates a flat key/value mapping and builds a snapshot. The
// engine fails closed: a missing or unknown key, a kind mismatch, a percentage
// outside [0, 1], or a negative amount all reject the whole mapping.
func ParseRates(values map[string]RateValue) (Rates, error) {
	for key := range values {
		if _, ok := rateKinds[key]; !ok {
			return Rates{}, configErr(key, "unknown configuration key")
		}
	}

	get := func(key string) (decimal.Decimal, error) {
		entry, ok := values[key]
		if !ok {
			return decimal.Decimal{}, configErr(key, "required key missing")
		}
		expected := rateKinds[key]
		if entry.Kind != expected {
			return decimal.Decimal{}, configErr(key, "kind mismatch: expected "+string(expected))
		}
		switch expected {
		case RateKindPercentage:
			if entry.Value.IsNegative() || entry.Value.GreaterThan(decimal.NewFromInt(1)) {
				return decimal.Decimal{}, configErr(key, "percentage must lie in [0, 1]")
			}
		case RateKindFixedAmount:
			if entry.Value.IsNegative() {
				return decimal.Decimal{}, configErr(key, "amount must be >= 0")
			}
		}
		return entry.Value, nil
	}

	var (
		r   Rates
		err error
	)
	fields := []struct {
		key string
		dst *decimal.Decimal
	}{
		{KeySalesTaxRate, &r.SalesTaxRate},
		{KeyMarketplaceFeeRateGames, &r.MarketplaceFeeGames},
		{KeyMarketplaceFeeRateConsoles, &r.MarketplaceFeeConsoles},
		{KeyPaymentProcessingFeeRate, &r.PaymentProcessingRate},
		{KeyFlatTransactionFee, &r.FlatTransactionFee},
		{KeyAdvertisingFeeRate, &r.AdvertisingFeeRate},
		{KeyShippingCostGames, &r.ShippingGames},
		{KeyShippingCostConsoles, &r.ShippingConsoles},
		{KeySuppliesCostThreshold, &r.SuppliesThreshold},
		{KeySuppliesCostUnder, &r.SuppliesUnder},
		{KeySuppliesCostOver, &r.SuppliesOver},
		{KeyCashbackRateRegular, &r.CashbackRegular},
		{KeyCashbackRateShipping, &r.CashbackShipping},
		{KeyTargetProfitMargin, &r.TargetProfitMargin},
		{KeyDealBandExcellent, &r.Bands.Excellent},
		{KeyDealBandGood, &r.Bands.Good},
		{KeyDealBandFair, &r.Bands.Fair},
	}
	for _, f := range fields {
		if *f.dst, err = get(f.key); err != nil {
			return Rates{}, err
		}
	}
	return r, nil
}

// MarketplaceFee returns the category-specific final value fee rate.
func (r Rates) MarketplaceFee(cat Category) (decimal.Decimal, error) {
	switch cat {
	case CategoryGames:
		return r.MarketplaceFeeGames, nil
	case CategoryConsoles:
		return r.MarketplaceFeeConsoles, nil
	default:
		return decimal.Decimal{}, invalid("category", "unknown category "+string(cat))
	}
}

// ShippingCost returns the category-specific default shipping cost.
func (r Rates) ShippingCost(cat Category) (decimal.Decimal, error) {
	switch cat {
	case CategoryGames:
		return r.ShippingGames, nil
	case CategoryConsoles:
		return r.ShippingConsoles, nil
	default:
		return decimal.Decimal{}, invalid("category", "unknown category "+string(cat))
	}
}

// SuppliesCost returns the tiered packing supplies cost. Prices at or above the
// threshold take the higher tier.
func (r Rates) SuppliesCost(adjustedPrice decimal.Decimal) decimal.Decimal {
	if adjustedPrice.GreaterThanOrEqual(r.SuppliesThreshold) {
		return r.SuppliesOver
	}
	return r.SuppliesUnder
}
