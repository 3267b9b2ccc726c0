package calculator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resale/internal/pricing"
)

var (
	// ErrNotFound is returned when a session or item does not exist.
	ErrNotFound = errors.New("calculator: not found")
	// ErrSessionConverted is returned when mutating a session that has already
	// been converted to a purchase order.
	ErrSessionConverted = errors.New("calculator: session already converted to purchase order")
	// ErrStaleUpdate is returned when an optimistic updated_at check fails.
	ErrStaleUpdate = errors.New("calculator: session modified concurrently")
)

// SessionStatus is the editability gate of a calculator session. The pricing
// engine itself is state-agnostic; status only controls whether edits are
// permitted.
type SessionStatus string

const (
	StatusDraft         SessionStatus = "draft"
	StatusFinalized     SessionStatus = "finalized"
	StatusConvertedToPO SessionStatus = "converted_to_po"
)

// ValidStatus reports whether s is a known session status.
func ValidStatus(s SessionStatus) bool {
	switch s {
	case StatusDraft, StatusFinalized, StatusConvertedToPO:
		return true
	}
	return false
}

// Session is a purchase calculator working set: a batch of candidate items
// priced against a single seller's asking price.
type Session struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	SourceName      string           `json:"source_name,omitempty"`
	AskingPrice     *decimal.Decimal `json:"asking_price,omitempty"`
	CashbackEnabled bool             `json:"cashback_enabled"`
	TaxExempt       bool             `json:"tax_exempt"`
	Status          SessionStatus    `json:"status"`
	PurchaseOrderID *uuid.UUID       `json:"purchase_order_id,omitempty"`
	Totals          pricing.Totals   `json:"totals"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Flags derives the engine toggles from the session.
func (s Session) Flags() pricing.SessionFlags {
	return pricing.SessionFlags{CashbackEnabled: s.CashbackEnabled, TaxExempt: s.TaxExempt}
}

// Item is one candidate purchase line stored with its latest breakdown. The
// breakdown is derived state: it is recomputed from scratch on every mutation
// and whenever a session toggle or the rate configuration changes.
type Item struct {
	ID           uuid.UUID         `json:"id"`
	SessionID    uuid.UUID         `json:"session_id"`
	ProductID    *uuid.UUID        `json:"product_id,omitempty"`
	VariantID    *uuid.UUID        `json:"variant_id,omitempty"`
	ProductTitle string            `json:"product_title,omitempty"`
	PlatformName string            `json:"platform_name,omitempty"`
	Line         pricing.LineItem  `json:"line"`
	Breakdown    pricing.Breakdown `json:"breakdown"`
	Notes        string            `json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ListFilter narrows session listing.
type ListFilter struct {
	Status *SessionStatus
	Limit  int
	Offset int
}

// Store is the persistence boundary for calculator state. Implementations:
// postgres for production, memory for tests.
type Store interface {
	RateConfig(ctx context.Context) (map[string]pricing.RateValue, error)
	ReplaceRateConfig(ctx context.Context, entries map[string]pricing.RateValue) error

	CreateSession(ctx context.Context, s Session) (*Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	ListSessions(ctx context.Context, filter ListFilter) ([]Session, int64, error)
	UpdateSession(ctx context.Context, s Session) (*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	ListSessionIDs(ctx context.Context, statuses ...SessionStatus) ([]uuid.UUID, error)

	AddItem(ctx context.Context, it Item) (*Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, sessionID uuid.UUID) ([]Item, error)
	UpdateItem(ctx context.Context, it Item) (*Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
}
