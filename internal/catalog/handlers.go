package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resale/internal/common"
)

// Handler exposes the catalog endpoints.
type Handler struct {
	Svc *Service
}

type markupPayload struct {
	DefaultMarkup string `json:"default_markup"`
}

// ListPlatforms returns all platforms.
func (h *Handler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	platforms, err := h.Svc.ListPlatforms(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list platforms", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": platforms})
}

// UpdateMarkup sets a platform's default markup.
func (h *Handler) UpdateMarkup(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid platform id", nil)
		return
	}
	var payload markupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	markup, err := decimal.NewFromString(strings.TrimSpace(payload.DefaultMarkup))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "default_markup must be a decimal number", nil)
		return
	}
	if markup.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "default_markup must not be negative", nil)
		return
	}
	platform, err := h.Svc.UpdatePlatformMarkup(r.Context(), id, markup)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "platform not found", nil)
			return
		}
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update platform", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": platform})
}
