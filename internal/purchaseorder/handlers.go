package purchaseorder

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-resale/internal/common"
)

// Handler exposes purchase order read endpoints. Orders are only created
// through session conversion.
type Handler struct {
	Svc *Service
}

// List returns purchase orders with limit/offset paging.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 20}
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
	orders, total, err := h.Svc.List(r.Context(), filter)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list purchase orders", nil)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{"data": orders})
}

// Get returns one purchase order.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid purchase order id", nil)
		return
	}
	order, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "purchase order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load purchase order", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}
