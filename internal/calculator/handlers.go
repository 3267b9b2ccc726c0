package calculator

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resale/internal/common"
	"github.com/noah-isme/backend-resale/internal/pricing"
)

// Handler exposes the calculator endpoints.
type Handler struct {
	Svc      *Service
	validate *validator.Validate
}

// NewHandler builds a Handler with its payload validator.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, validate: validator.New()}
}

type sessionPayload struct {
	Name            *string          `json:"name" validate:"omitempty,min=1,max=200"`
	SourceName      *string          `json:"source_name" validate:"omitempty,max=200"`
	AskingPrice     *decimal.Decimal `json:"asking_price"`
	ClearAsking     bool             `json:"clear_asking_price"`
	CashbackEnabled *bool            `json:"cashback_enabled"`
	TaxExempt       *bool            `json:"tax_exempt"`
	Status          *string          `json:"status" validate:"omitempty,oneof=draft finalized"`
	UpdatedAt       *time.Time       `json:"updated_at"`
}

type itemPayload struct {
	VariantID                  *string          `json:"variant_id" validate:"omitempty,uuid"`
	Title                      string           `json:"title" validate:"max=300"`
	PlatformName               string           `json:"platform_name" validate:"max=200"`
	MarketPrice                *decimal.Decimal `json:"market_price"`
	OverridePrice              *decimal.Decimal `json:"override_price"`
	VariantKind                *string          `json:"variant_kind" validate:"omitempty,oneof=COMPLETE_IN_BOX LOOSE NEW CONSOLE"`
	Category                   *string          `json:"category" validate:"omitempty,oneof=games consoles"`
	ManualSensitive            *bool            `json:"manual_sensitive"`
	HasManual                  bool             `json:"has_manual"`
	CustomDeduction            *decimal.Decimal `json:"custom_deduction"`
	CustomDeductionNote        string           `json:"custom_deduction_note" validate:"max=500"`
	MarkupAmount               *decimal.Decimal `json:"markup_amount"`
	ShippingCostOverride       *decimal.Decimal `json:"shipping_cost_override"`
	TargetProfitMarginOverride *decimal.Decimal `json:"target_profit_margin_override"`
	Quantity                   int              `json:"quantity" validate:"omitempty,min=1"`
	Notes                      string           `json:"notes" validate:"max=2000"`
}

type sessionEnvelope struct {
	Session *Session `json:"session"`
	Items   []Item   `json:"items"`
}

// GetConfig returns every rate configuration entry.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Svc.RateConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

// UpdateConfig merges the submitted entries into the rate configuration.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var payload map[string]pricing.RateValue
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	merged, err := h.Svc.UpdateRateConfig(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": merged})
}

// CreateSession opens a new draft session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var payload sessionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if !h.checkPayload(w, payload) {
		return
	}
	params, err := payload.toParams()
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.Svc.CreateSession(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": sessionEnvelope{Session: sess, Items: []Item{}}})
}

// ListSessions returns sessions filtered by status with limit/offset paging.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 20}
	if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
		status := SessionStatus(v)
		if !ValidStatus(status) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid status filter", nil)
			return
		}
		filter.Status = &status
	}
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer", nil)
			return
		}
		if limit > 100 {
			limit = 100
		}
		filter.Limit = limit
	}
	if v := strings.TrimSpace(r.URL.Query().Get("offset")); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "offset must not be negative", nil)
			return
		}
		filter.Offset = offset
	}
	sessions, total, err := h.Svc.ListSessions(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []Session{}
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{"data": sessions})
}

// GetSession returns a session with its items and breakdowns.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	sess, items, err := h.Svc.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sessionEnvelope{Session: sess, Items: emptyIfNil(items)}})
}

// UpdateSession applies session-level changes and recomputes.
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var payload sessionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if !h.checkPayload(w, payload) {
		return
	}
	params, err := payload.toParams()
	if err != nil {
		writeError(w, err)
		return
	}
	sess, items, err := h.Svc.UpdateSession(r.Context(), id, params)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sessionEnvelope{Session: sess, Items: emptyIfNil(items)}})
}

// DeleteSession removes a session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Svc.DeleteSession(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem appends an item and returns the recomputed session.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	params, ok := h.decodeItem(w, r)
	if !ok {
		return
	}
	sess, items, err := h.Svc.AddItem(r.Context(), id, params)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": sessionEnvelope{Session: sess, Items: emptyIfNil(items)}})
}

// UpdateItem replaces an item's inputs and returns the recomputed session.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	params, ok := h.decodeItem(w, r)
	if !ok {
		return
	}
	sess, items, err := h.Svc.UpdateItem(r.Context(), id, itemID, params)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sessionEnvelope{Session: sess, Items: emptyIfNil(items)}})
}

// DeleteItem removes an item and returns the recomputed session.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemID")
	if !ok {
		return
	}
	sess, items, err := h.Svc.DeleteItem(r.Context(), id, itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sessionEnvelope{Session: sess, Items: emptyIfNil(items)}})
}

// Recalculate forces a recompute of one session.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	sess, items, err := h.Svc.Recalculate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sessionEnvelope{Session: sess, Items: emptyIfNil(items)}})
}

// Convert snapshots the session into a purchase order.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	sess, err := h.Svc.ConvertToPurchaseOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

func (p sessionPayload) toParams() (SessionParams, error) {
	params := SessionParams{
		Name:             p.Name,
		SourceName:       p.SourceName,
		AskingPrice:      p.AskingPrice,
		ClearAskingPrice: p.ClearAsking,
		CashbackEnabled:  p.CashbackEnabled,
		TaxExempt:        p.TaxExempt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.Status != nil {
		status := SessionStatus(strings.TrimSpace(*p.Status))
		params.Status = &status
	}
	return params, nil
}

func (h *Handler) decodeItem(w http.ResponseWriter, r *http.Request) (ItemParams, bool) {
	var payload itemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return ItemParams{}, false
	}
	if !h.checkPayload(w, payload) {
		return ItemParams{}, false
	}
	params := ItemParams{
		Title:                      payload.Title,
		PlatformName:               payload.PlatformName,
		MarketPrice:                payload.MarketPrice,
		OverridePrice:              payload.OverridePrice,
		ManualSensitive:            payload.ManualSensitive,
		HasManual:                  payload.HasManual,
		CustomDeduction:            payload.CustomDeduction,
		CustomDeductionNote:        payload.CustomDeductionNote,
		MarkupAmount:               payload.MarkupAmount,
		ShippingCostOverride:       payload.ShippingCostOverride,
		TargetProfitMarginOverride: payload.TargetProfitMarginOverride,
		Quantity:                   payload.Quantity,
		Notes:                      payload.Notes,
	}
	if params.Quantity == 0 {
		params.Quantity = 1
	}
	if payload.VariantID != nil && strings.TrimSpace(*payload.VariantID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*payload.VariantID))
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid variant id", nil)
			return ItemParams{}, false
		}
		params.VariantID = &id
	}
	if payload.VariantKind != nil {
		kind := pricing.VariantKind(strings.TrimSpace(*payload.VariantKind))
		params.VariantKind = &kind
	}
	if payload.Category != nil {
		category := pricing.Category(strings.TrimSpace(*payload.Category))
		params.Category = &category
	}
	return params, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid "+name, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func emptyIfNil(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}

func (h *Handler) checkPayload(w http.ResponseWriter, payload any) bool {
	if h.validate == nil {
		return true
	}
	err := h.validate.Struct(payload)
	if err == nil {
		return true
	}
	details := map[string]any{}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fieldErr := range fieldErrs {
			details[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", details)
	return false
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
	case errors.Is(err, ErrSessionConverted):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "session already converted to a purchase order", nil)
	case errors.Is(err, ErrSessionEmpty):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "session has no items", nil)
	case errors.Is(err, ErrStaleUpdate):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "session was modified concurrently", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
