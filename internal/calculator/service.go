package calculator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resale/internal/catalog"
	"github.com/noah-isme/backend-resale/internal/common"
	"github.com/noah-isme/backend-resale/internal/obs"
	"github.com/noah-isme/backend-resale/internal/pricing"
)

// ErrSessionEmpty rejects conversion of a session without items.
var ErrSessionEmpty = errors.New("calculator: session has no items")

type catalogProvider interface {
	VariantContext(ctx context.Context, variantID uuid.UUID) (*catalog.VariantContext, error)
}

type recalcEnqueuer interface {
	EnqueueRecalculateAll(ctx context.Context) error
}

type purchaseOrderCreator interface {
	CreateFromSession(ctx context.Context, sess Session, items []Item) (uuid.UUID, error)
}

// Service orchestrates sessions, items, and rate configuration. Every mutation
// recomputes all breakdowns and the session totals from scratch; nothing is
// patched incrementally.
type Service struct {
	store    Store
	cache    *Cache
	catalog  catalogProvider
	enqueuer recalcEnqueuer
	orders   purchaseOrderCreator
	metrics  *obs.CalculatorMetrics
	log      zerolog.Logger
}

// ServiceConfig groups Service dependencies. Cache, Catalog, Enqueuer, Orders,
// and Metrics are optional.
type ServiceConfig struct {
	Store    Store
	Cache    *Cache
	Catalog  catalogProvider
	Enqueuer recalcEnqueuer
	Orders   purchaseOrderCreator
	Metrics  *obs.CalculatorMetrics
	Logger   zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("calculator: store is required")
	}
	return &Service{
		store:    cfg.Store,
		cache:    cfg.Cache,
		catalog:  cfg.Catalog,
		enqueuer: cfg.Enqueuer,
		orders:   cfg.Orders,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
	}, nil
}

// SessionParams carries the mutable session fields. Nil pointers mean "leave
// unchanged" on update; ClearAskingPrice removes a previously set price.
// UpdatedAt, when set, is the caller's view of the session; a mismatch with
// the stored value rejects the update.
type SessionParams struct {
	Name             *string
	SourceName       *string
	AskingPrice      *decimal.Decimal
	ClearAskingPrice bool
	CashbackEnabled  *bool
	TaxExempt        *bool
	Status           *SessionStatus
	UpdatedAt        *time.Time
}

// ItemParams carries the item fields accepted from callers. Catalog-linked
// items resolve market price, category, variant kind, and manual sensitivity
// from the referenced variant; ad-hoc items must provide them directly.
type ItemParams struct {
	VariantID                  *uuid.UUID
	Title                      string
	PlatformName               string
	MarketPrice                *decimal.Decimal
	OverridePrice              *decimal.Decimal
	VariantKind                *pricing.VariantKind
	Category                   *pricing.Category
	ManualSensitive            *bool
	HasManual                  bool
	CustomDeduction            *decimal.Decimal
	CustomDeductionNote        string
	MarkupAmount               *decimal.Decimal
	ShippingCostOverride       *decimal.Decimal
	TargetProfitMarginOverride *decimal.Decimal
	Quantity                   int
	Notes                      string
}

// RateConfig returns the raw persisted configuration entries.
func (s *Service) RateConfig(ctx context.Context) (map[string]pricing.RateValue, error) {
	entries, err := s.store.RateConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rate config: %w", err)
	}
	return entries, nil
}

// UpdateRateConfig merges updates into the stored configuration. The full
// merged set must validate before anything is written; a rejected update
// leaves the previous configuration untouched. On success the cached snapshot
// is invalidated and a background recompute of all open sessions is enqueued.
func (s *Service) UpdateRateConfig(ctx context.Context, updates map[string]pricing.RateValue) (map[string]pricing.RateValue, error) {
	if len(updates) == 0 {
		return nil, badRequest("config", "at least one configuration entry is required", nil)
	}
	current, err := s.store.RateConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rate config: %w", err)
	}
	merged := make(map[string]pricing.RateValue, len(current)+len(updates))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}
	if _, err := pricing.ParseRates(merged); err != nil {
		var cfgErr *pricing.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, badRequest(cfgErr.Key, cfgErr.Reason, err)
		}
		return nil, fmt.Errorf("validate rate config: %w", err)
	}
	if err := s.store.ReplaceRateConfig(ctx, merged); err != nil {
		return nil, fmt.Errorf("replace rate config: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, rateConfigCacheKey)
	}
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueRecalculateAll(ctx); err != nil {
			s.log.Error().Err(err).Msg("enqueue recalculate-all failed")
		}
	}
	return merged, nil
}

// rates loads the validated snapshot, cache first.
func (s *Service) rates(ctx context.Context) (pricing.Rates, error) {
	if s.cache != nil {
		var cached map[string]pricing.RateValue
		if ok, err := s.cache.GetJSON(ctx, rateConfigCacheKey, &cached); err == nil && ok {
			if rates, err := pricing.ParseRates(cached); err == nil {
				return rates, nil
			}
		}
	}
	entries, err := s.store.RateConfig(ctx)
	if err != nil {
		return pricing.Rates{}, fmt.Errorf("load rate config: %w", err)
	}
	rates, err := pricing.ParseRates(entries)
	if err != nil {
		return pricing.Rates{}, fmt.Errorf("parse rate config: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, rateConfigCacheKey, entries)
	}
	return rates, nil
}

// CreateSession opens a new draft session.
func (s *Service) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	sess := Session{Status: StatusDraft}
	if params.Name != nil {
		sess.Name = *params.Name
	}
	if sess.Name == "" {
		return nil, badRequest("name", "name is required", nil)
	}
	if params.SourceName != nil {
		sess.SourceName = *params.SourceName
	}
	if params.AskingPrice != nil {
		if params.AskingPrice.IsNegative() {
			return nil, badRequest("asking_price", "asking price must not be negative", nil)
		}
		price := *params.AskingPrice
		sess.AskingPrice = &price
	}
	if params.CashbackEnabled != nil {
		sess.CashbackEnabled = *params.CashbackEnabled
	}
	if params.TaxExempt != nil {
		sess.TaxExempt = *params.TaxExempt
	}
	created, err := s.store.CreateSession(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return created, nil
}

// GetSession returns a session with its items.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, []Item, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.store.ListItems(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list items: %w", err)
	}
	return sess, items, nil
}

// ListSessions returns sessions matching the filter with the total count.
func (s *Service) ListSessions(ctx context.Context, filter ListFilter) ([]Session, int64, error) {
	sessions, total, err := s.store.ListSessions(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, total, nil
}

// UpdateSession applies the given fields and recomputes. Converted sessions
// are immutable; the converted status itself is only reachable through
// ConvertToPurchaseOrder.
func (s *Service) UpdateSession(ctx context.Context, id uuid.UUID, params SessionParams) (*Session, []Item, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status == StatusConvertedToPO {
		return nil, nil, ErrSessionConverted
	}
	if params.UpdatedAt != nil && !sess.UpdatedAt.Equal(*params.UpdatedAt) {
		return nil, nil, ErrStaleUpdate
	}
	if params.Status != nil {
		if !ValidStatus(*params.Status) || *params.Status == StatusConvertedToPO {
			return nil, nil, badRequest("status", "status must be draft or finalized", nil)
		}
		sess.Status = *params.Status
	}
	if params.Name != nil {
		if *params.Name == "" {
			return nil, nil, badRequest("name", "name must not be empty", nil)
		}
		sess.Name = *params.Name
	}
	if params.SourceName != nil {
		sess.SourceName = *params.SourceName
	}
	if params.ClearAskingPrice {
		sess.AskingPrice = nil
	} else if params.AskingPrice != nil {
		if params.AskingPrice.IsNegative() {
			return nil, nil, badRequest("asking_price", "asking price must not be negative", nil)
		}
		price := *params.AskingPrice
		sess.AskingPrice = &price
	}
	if params.CashbackEnabled != nil {
		sess.CashbackEnabled = *params.CashbackEnabled
	}
	if params.TaxExempt != nil {
		sess.TaxExempt = *params.TaxExempt
	}
	return s.recompute(ctx, *sess)
}

// DeleteSession removes a session and its items. Converted sessions stay.
func (s *Service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if sess.Status == StatusConvertedToPO {
		return ErrSessionConverted
	}
	return s.store.DeleteSession(ctx, id)
}

// AddItem appends an item to a session and recomputes.
func (s *Service) AddItem(ctx context.Context, sessionID uuid.UUID, params ItemParams) (*Session, []Item, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status == StatusConvertedToPO {
		return nil, nil, ErrSessionConverted
	}
	item, err := s.buildItem(ctx, sessionID, params)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkPriceable(ctx, item.Line, sess.Flags()); err != nil {
		return nil, nil, err
	}
	if _, err := s.store.AddItem(ctx, *item); err != nil {
		return nil, nil, fmt.Errorf("add item: %w", err)
	}
	return s.recompute(ctx, *sess)
}

// UpdateItem replaces an item's inputs and recomputes.
func (s *Service) UpdateItem(ctx context.Context, sessionID, itemID uuid.UUID, params ItemParams) (*Session, []Item, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status == StatusConvertedToPO {
		return nil, nil, ErrSessionConverted
	}
	existing, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if existing.SessionID != sessionID {
		return nil, nil, ErrNotFound
	}
	item, err := s.buildItem(ctx, sessionID, params)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkPriceable(ctx, item.Line, sess.Flags()); err != nil {
		return nil, nil, err
	}
	item.ID = itemID
	if _, err := s.store.UpdateItem(ctx, *item); err != nil {
		return nil, nil, fmt.Errorf("update item: %w", err)
	}
	return s.recompute(ctx, *sess)
}

// DeleteItem removes an item and recomputes.
func (s *Service) DeleteItem(ctx context.Context, sessionID, itemID uuid.UUID) (*Session, []Item, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status == StatusConvertedToPO {
		return nil, nil, ErrSessionConverted
	}
	existing, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if existing.SessionID != sessionID {
		return nil, nil, ErrNotFound
	}
	if err := s.store.DeleteItem(ctx, itemID); err != nil {
		return nil, nil, fmt.Errorf("delete item: %w", err)
	}
	return s.recompute(ctx, *sess)
}

// Recalculate forces a full recompute of one session.
func (s *Service) Recalculate(ctx context.Context, sessionID uuid.UUID) (*Session, []Item, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return s.recompute(ctx, *sess)
}

// RecalculateAll recomputes every draft and finalized session. It is the
// worker entry point after a configuration change and returns the number of
// sessions updated.
func (s *Service) RecalculateAll(ctx context.Context) (int, error) {
	ids, err := s.store.ListSessionIDs(ctx, StatusDraft, StatusFinalized)
	if err != nil {
		return 0, fmt.Errorf("list session ids: %w", err)
	}
	updated := 0
	for _, id := range ids {
		sess, err := s.store.GetSession(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return updated, err
		}
		if _, _, err := s.recompute(ctx, *sess); err != nil {
			s.log.Error().Err(err).Str("session_id", id.String()).Msg("bulk recompute failed for session")
			continue
		}
		updated++
	}
	s.metrics.ObserveBulkRecompute(updated)
	return updated, nil
}

// ConvertToPurchaseOrder snapshots a non-empty session into a purchase order
// and freezes the session.
func (s *Service) ConvertToPurchaseOrder(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	if s.orders == nil {
		return nil, errors.New("calculator: purchase order service not configured")
	}
	sess, items, err := s.Recalculate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusConvertedToPO {
		return nil, ErrSessionConverted
	}
	if len(items) == 0 {
		return nil, ErrSessionEmpty
	}
	poID, err := s.orders.CreateFromSession(ctx, *sess, items)
	if err != nil {
		return nil, fmt.Errorf("create purchase order: %w", err)
	}
	sess.Status = StatusConvertedToPO
	sess.PurchaseOrderID = &poID
	updated, err := s.store.UpdateSession(ctx, *sess)
	if err != nil {
		return nil, fmt.Errorf("mark session converted: %w", err)
	}
	return updated, nil
}

// checkPriceable rejects item inputs the engine would refuse, before anything
// is persisted.
func (s *Service) checkPriceable(ctx context.Context, line pricing.LineItem, flags pricing.SessionFlags) error {
	rates, err := s.rates(ctx)
	if err != nil {
		return err
	}
	if _, err := pricing.Price(line, flags, rates); err != nil {
		var vErr *pricing.ValidationError
		if errors.As(err, &vErr) {
			return badRequest(vErr.Field, vErr.Reason, err)
		}
		return fmt.Errorf("price item: %w", err)
	}
	return nil
}

// recompute prices every item with the session's current flags, aggregates,
// and persists both the breakdowns and the session totals.
func (s *Service) recompute(ctx context.Context, sess Session) (*Session, []Item, error) {
	rates, err := s.rates(ctx)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.store.ListItems(ctx, sess.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list items: %w", err)
	}
	flags := sess.Flags()
	lines := make([]pricing.LineItem, len(items))
	breakdowns := make([]pricing.Breakdown, len(items))
	for i := range items {
		breakdown, err := pricing.Price(items[i].Line, flags, rates)
		if err != nil {
			var vErr *pricing.ValidationError
			if errors.As(err, &vErr) {
				return nil, nil, badRequest(vErr.Field, vErr.Reason, err)
			}
			return nil, nil, fmt.Errorf("price item %s: %w", items[i].ID, err)
		}
		s.metrics.ObserveBreakdown(breakdown.Unprofitable())
		// Full precision feeds the aggregation; only the stored and served
		// copies are rounded.
		items[i].Breakdown = breakdown.Rounded()
		lines[i] = items[i].Line
		breakdowns[i] = breakdown
		if _, err := s.store.UpdateItem(ctx, items[i]); err != nil {
			return nil, nil, fmt.Errorf("persist breakdown: %w", err)
		}
	}
	totals, err := pricing.Aggregate(lines, breakdowns, pricing.Session{AskingPrice: sess.AskingPrice, Flags: flags}, rates.Bands)
	if err != nil {
		return nil, nil, fmt.Errorf("aggregate session: %w", err)
	}
	sess.Totals = totals.Rounded()
	updated, err := s.store.UpdateSession(ctx, sess)
	if err != nil {
		return nil, nil, fmt.Errorf("persist totals: %w", err)
	}
	return updated, items, nil
}

// buildItem assembles a stored item from caller params, enriching from the
// catalog when a variant is referenced.
func (s *Service) buildItem(ctx context.Context, sessionID uuid.UUID, params ItemParams) (*Item, error) {
	item := Item{
		SessionID:    sessionID,
		ProductTitle: params.Title,
		PlatformName: params.PlatformName,
		Notes:        params.Notes,
	}
	line := pricing.LineItem{
		OverridePrice:              params.OverridePrice,
		HasManual:                  params.HasManual,
		CustomDeduction:            params.CustomDeduction,
		CustomDeductionNote:        params.CustomDeductionNote,
		MarkupAmount:               params.MarkupAmount,
		ShippingCostOverride:       params.ShippingCostOverride,
		TargetProfitMarginOverride: params.TargetProfitMarginOverride,
		Quantity:                   params.Quantity,
	}
	if params.VariantID != nil {
		if s.catalog == nil {
			return nil, badRequest("variant_id", "catalog lookups are not configured", nil)
		}
		vc, err := s.catalog.VariantContext(ctx, *params.VariantID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, badRequest("variant_id", "variant not found", err)
			}
			return nil, fmt.Errorf("resolve variant: %w", err)
		}
		item.ProductID = &vc.ProductID
		item.VariantID = &vc.VariantID
		item.ProductTitle = vc.ProductTitle
		item.PlatformName = vc.PlatformName
		line.MarketPrice = vc.MarketPrice
		line.Category = vc.Category
		line.VariantKind = vc.VariantKind
		line.ManualSensitive = vc.ManualSensitive
		if line.MarkupAmount == nil && vc.DefaultMarkup.IsPositive() {
			markup := vc.DefaultMarkup
			line.MarkupAmount = &markup
		}
	} else {
		if params.MarketPrice == nil {
			return nil, badRequest("market_price", "market price is required for ad-hoc items", nil)
		}
		if params.Category == nil {
			return nil, badRequest("category", "category is required for ad-hoc items", nil)
		}
		if params.VariantKind == nil {
			return nil, badRequest("variant_kind", "variant kind is required for ad-hoc items", nil)
		}
		line.MarketPrice = *params.MarketPrice
		line.Category = *params.Category
		line.VariantKind = *params.VariantKind
		if params.ManualSensitive != nil {
			line.ManualSensitive = *params.ManualSensitive
		}
	}
	item.Line = line
	return &item, nil
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
