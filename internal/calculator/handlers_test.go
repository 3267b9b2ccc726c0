package calculator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, svc *Service) *chi.Mux {
	t.Helper()
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Route("/calculator", func(r chi.Router) {
		r.Get("/config", h.GetConfig)
		r.Put("/config", h.UpdateConfig)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)
			r.Get("/", h.ListSessions)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Put("/", h.UpdateSession)
				r.Delete("/", h.DeleteSession)
				r.Post("/items", h.AddItem)
				r.Put("/items/{itemID}", h.UpdateItem)
				r.Delete("/items/{itemID}", h.DeleteItem)
				r.Post("/recalculate", h.Recalculate)
				r.Post("/convert", h.Convert)
			})
		})
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func dataField(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestHandlerCreateSession(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	router := newTestRouter(t, svc)

	rr := doJSON(t, router, http.MethodPost, "/calculator/sessions", map[string]any{
		"name":         "garage sale lot",
		"asking_price": "25.00",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	data := dataField(t, rr)
	sess, ok := data["session"].(map[string]any)
	require.True(t, ok, "missing session in %s", rr.Body.String())
	require.Equal(t, "garage sale lot", sess["name"])
	require.Equal(t, string(StatusDraft), sess["status"])
	require.NotEmpty(t, sess["id"])
}

func TestHandlerCreateSessionMissingName(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	router := newTestRouter(t, svc)

	rr := doJSON(t, router, http.MethodPost, "/calculator/sessions", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerCreateSessionRejectsBadStatus(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	router := newTestRouter(t, svc)

	rr := doJSON(t, router, http.MethodPost, "/calculator/sessions", map[string]any{
		"name":   "lot",
		"status": "converted_to_po",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerGetSessionNotFound(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	router := newTestRouter(t, svc)

	rr := doJSON(t, router, http.MethodGet, "/calculator/sessions/6f1f3a2e-9b9b-4e52-b1f9-0f4a4c1d2e3f", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerGetSessionBadID(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	router := newTestRouter(t, svc)

	rr := doJSON(t, router, http.MethodGet, "/calculator/sessions/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerListSessions(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	mustCreateSession(t, svc, SessionParams{Name: strPtr("first")})
	mustCreateSession(t, svc, SessionParams{Name: strPtr("second")})
	router := newTestRouter(t, svc)

	rr := doJSON(t, router, http.MethodGet, "/calculator/sessions?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "2", rr.Header().Get("X-Total-Count"))

	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
}

func TestHandlerListSessionsRejectsBadPaging(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	router := newTestRouter(t, svc)

	require.Equal(t, http.StatusBadRequest, doJSON(t, router, http.MethodGet, "/calculator/sessions?limit=zero", nil).Code)
	require.Equal(t, http.StatusBadRequest, doJSON(t, router, http.MethodGet, "/calculator/sessions?offset=-1", nil).Code)
	require.Equal(t, http.StatusBadRequest, doJSON(t, router, http.MethodGet, "/calculator/sessions?status=bogus", nil).Code)
}

func TestHandlerAddItemValidation(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	sess := mustCreateSession(t, svc, SessionParams{})
	router := newTestRouter(t, svc)

	rr := doJSON(t, router, http.MethodPost, "/calculator/sessions/"+sess.ID.String()+"/items", map[string]any{
		"title":        "loose cart",
		"market_price": "45.50",
		"variant_kind": "SEALED",
		"category":     "games",
		"quantity":     1,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/calculator/sessions/"+sess.ID.String()+"/items", map[string]any{
		"title":        "loose cart",
		"market_price": "45.50",
		"variant_kind": "LOOSE",
		"category":     "games",
		"quantity":     -2,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerAddItemAndRecompute(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	sess := mustCreateSession(t, svc, SessionParams{})
	router := newTestRouter(t, svc)

	rr := doJSON(t, router, http.MethodPost, "/calculator/sessions/"+sess.ID.String()+"/items", map[string]any{
		"title":        "loose cart",
		"market_price": "45.50",
		"variant_kind": "LOOSE",
		"category":     "games",
		"quantity":     2,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	data := dataField(t, rr)
	items, ok := data["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	sessBody, ok := data["session"].(map[string]any)
	require.True(t, ok)
	totals, ok := sessBody["totals"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 2, totals["total_quantity"])
}

func TestHandlerAddItemDefaultsQuantity(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	sess := mustCreateSession(t, svc, SessionParams{})
	router := newTestRouter(t, svc)

	rr := doJSON(t, router, http.MethodPost, "/calculator/sessions/"+sess.ID.String()+"/items", map[string]any{
		"title":        "loose cart",
		"market_price": "45.50",
		"variant_kind": "LOOSE",
		"category":     "games",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	data := dataField(t, rr)
	sessBody, ok := data["session"].(map[string]any)
	require.True(t, ok)
	totals, ok := sessBody["totals"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 1, totals["total_quantity"])
}

func TestHandlerDeleteSession(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	sess := mustCreateSession(t, svc, SessionParams{})
	router := newTestRouter(t, svc)

	rr := doJSON(t, router, http.MethodDelete, "/calculator/sessions/"+sess.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/calculator/sessions/"+sess.ID.String(), nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerUpdateConfig(t *testing.T) {
	svc := newTestService(t, ServiceConfig{})
	router := newTestRouter(t, svc)

	rr := doJSON(t, router, http.MethodPut, "/calculator/config", map[string]any{
		"sales_tax_rate": map[string]any{"value": "0.08", "kind": "percentage"},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodPut, "/calculator/config", map[string]any{
		"top_seller_discount": map[string]any{"value": "0.1", "kind": "percentage"},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerConvertConflicts(t *testing.T) {
	orders := &stubOrders{}
	svc := newTestService(t, ServiceConfig{Orders: orders})
	sess := mustCreateSession(t, svc, SessionParams{})
	router := newTestRouter(t, svc)

	path := "/calculator/sessions/" + sess.ID.String() + "/convert"

	// Empty session cannot convert.
	require.Equal(t, http.StatusConflict, doJSON(t, router, http.MethodPost, path, nil).Code)

	rr := doJSON(t, router, http.MethodPost, "/calculator/sessions/"+sess.ID.String()+"/items", map[string]any{
		"title":        "loose cart",
		"market_price": "45.50",
		"variant_kind": "LOOSE",
		"category":     "games",
		"quantity":     1,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, path, nil).Code)

	// Already converted.
	require.Equal(t, http.StatusConflict, doJSON(t, router, http.MethodPost, path, nil).Code)
	require.Equal(t, 1, orders.created)
}
