package purchaseorder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resale/internal/calculator"
)

func newTestRouter(t *testing.T, svc *Service) *chi.Mux {
	t.Helper()
	h := &Handler{Svc: svc}
	r := chi.NewRouter()
	r.Get("/purchase-orders", h.List)
	r.Get("/purchase-orders/{id}", h.Get)
	return r
}

func TestHandlerListAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	sess := calculator.Session{ID: uuid.New(), SourceName: "flea market"}
	id, err := svc.CreateFromSession(context.Background(), sess, []calculator.Item{adHocItem("10.00", 1)})
	require.NoError(t, err)
	router := newTestRouter(t, svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/purchase-orders", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "1", rr.Header().Get("X-Total-Count"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/purchase-orders/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "flea market")
}

func TestHandlerGetErrors(t *testing.T) {
	svc, _ := newTestService(t)
	router := newTestRouter(t, svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/purchase-orders/nope", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/purchase-orders/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/purchase-orders?limit=-1", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
