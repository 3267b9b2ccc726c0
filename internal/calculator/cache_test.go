package calculator

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-resale/internal/pricing"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestRatesCachedAfterFirstLoad(t *testing.T) {
	cache, mr := newTestCache(t)
	svc := newTestService(t, ServiceConfig{Cache: cache})

	if _, err := svc.rates(context.Background()); err != nil {
		t.Fatalf("rates: %v", err)
	}
	if !mr.Exists(rateConfigCacheKey) {
		t.Fatal("rate config snapshot was not cached")
	}
}

func TestUpdateRateConfigInvalidatesCache(t *testing.T) {
	cache, mr := newTestCache(t)
	svc := newTestService(t, ServiceConfig{Cache: cache})

	if _, err := svc.rates(context.Background()); err != nil {
		t.Fatalf("rates: %v", err)
	}
	if _, err := svc.UpdateRateConfig(context.Background(), map[string]pricing.RateValue{
		pricing.KeySalesTaxRate: {Value: dec("0.08"), Kind: pricing.RateKindPercentage},
	}); err != nil {
		t.Fatalf("update rate config: %v", err)
	}
	if mr.Exists(rateConfigCacheKey) {
		t.Fatal("stale rate config snapshot left in cache")
	}

	// The next load reflects the update and re-warms the cache.
	rates, err := svc.rates(context.Background())
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if !rates.SalesTaxRate.Equal(dec("0.08")) {
		t.Fatalf("tax rate = %s, want 0.08", rates.SalesTaxRate)
	}
	if !mr.Exists(rateConfigCacheKey) {
		t.Fatal("cache not re-warmed")
	}
}

func TestCorruptCacheEntryFallsBackToStore(t *testing.T) {
	cache, mr := newTestCache(t)
	svc := newTestService(t, ServiceConfig{Cache: cache})

	if err := mr.Set(rateConfigCacheKey, "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}
	rates, err := svc.rates(context.Background())
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if !rates.SalesTaxRate.Equal(dec("0.07")) {
		t.Fatalf("tax rate = %s, want 0.07", rates.SalesTaxRate)
	}
}
