package pricing

import (
	"errors"
	"testing"
)

func TestParseRatesRejectsMissingKey(t *testing.T) {
	values := testRateValues()
	delete(values, KeyPaymentProcessingFeeRate)
	_, err := ParseRates(values)
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cerr.Key != KeyPaymentProcessingFeeRate {
		t.Fatalf("key = %s, want %s", cerr.Key, KeyPaymentProcessingFeeRate)
	}
}

func TestParseRatesRejectsUnknownKey(t *testing.T) {
	values := testRateValues()
	values["top_seller_discount"] = RateValue{Value: dec("0.1"), Kind: RateKindPercentage}
	_, err := ParseRates(values)
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cerr.Key != "top_seller_discount" {
		t.Fatalf("key = %s, want top_seller_discount", cerr.Key)
	}
}

func TestParseRatesRejectsOutOfRangePercentage(t *testing.T) {
	values := testRateValues()
	values[KeySalesTaxRate] = RateValue{Value: dec("1.5"), Kind: RateKindPercentage}
	if _, err := ParseRates(values); err == nil {
		t.Fatal("expected error for percentage above 1")
	}

	values = testRateValues()
	values[KeyCashbackRateRegular] = RateValue{Value: dec("-0.01"), Kind: RateKindPercentage}
	if _, err := ParseRates(values); err == nil {
		t.Fatal("expected error for negative percentage")
	}
}

func TestParseRatesRejectsNegativeAmountAndKindMismatch(t *testing.T) {
	values := testRateValues()
	values[KeyShippingCostGames] = RateValue{Value: dec("-4"), Kind: RateKindFixedAmount}
	if _, err := ParseRates(values); err == nil {
		t.Fatal("expected error for negative amount")
	}

	values = testRateValues()
	values[KeyFlatTransactionFee] = RateValue{Value: dec("0.30"), Kind: RateKindPercentage}
	if _, err := ParseRates(values); err == nil {
		t.Fatal("expected error for kind mismatch")
	}
}

func TestSuppliesCostTier(t *testing.T) {
	rates := testRates(t)
	if got := rates.SuppliesCost(dec("39.99")); !got.Equal(dec("0.87")) {
		t.Fatalf("below threshold = %s, want 0.87", got)
	}
	// The single threshold boundary takes the higher tier.
	if got := rates.SuppliesCost(dec("40")); !got.Equal(dec("1.25")) {
		t.Fatalf("at threshold = %s, want 1.25", got)
	}
}

func TestRateKeysCoversEveryRecognizedKey(t *testing.T) {
	keys := RateKeys()
	if len(keys) != len(testRateValues()) {
		t.Fatalf("RateKeys returned %d keys, fixture has %d", len(keys), len(testRateValues()))
	}
	for _, key := range keys {
		if _, ok := KindForKey(key); !ok {
			t.Fatalf("KindForKey missing %s", key)
		}
	}
}
