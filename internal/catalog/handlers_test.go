package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, svc *Service) *chi.Mux {
	t.Helper()
	h := &Handler{Svc: svc}
	r := chi.NewRouter()
	r.Get("/platforms", h.ListPlatforms)
	r.Put("/platforms/{id}/markup", h.UpdateMarkup)
	return r
}

func TestHandlerListPlatforms(t *testing.T) {
	store, _ := seedStore(t)
	svc, err := NewService(store, nil)
	require.NoError(t, err)
	router := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/platforms", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "PlayStation 3")
}

func TestHandlerUpdateMarkup(t *testing.T) {
	store, _ := seedStore(t)
	svc, err := NewService(store, nil)
	require.NoError(t, err)
	platforms, err := store.ListPlatforms(context.Background())
	require.NoError(t, err)
	router := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPut, "/platforms/"+platforms[0].ID.String()+"/markup",
		strings.NewReader(`{"default_markup":"4.25"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "4.25")
}

func TestHandlerUpdateMarkupErrors(t *testing.T) {
	store, _ := seedStore(t)
	svc, err := NewService(store, nil)
	require.NoError(t, err)
	router := newTestRouter(t, svc)

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"bad id", "/platforms/nope/markup", `{"default_markup":"1"}`, http.StatusBadRequest},
		{"bad decimal", "/platforms/" + uuid.NewString() + "/markup", `{"default_markup":"abc"}`, http.StatusBadRequest},
		{"negative", "/platforms/" + uuid.NewString() + "/markup", `{"default_markup":"-2"}`, http.StatusBadRequest},
		{"missing", "/platforms/" + uuid.NewString() + "/markup", `{"default_markup":"1.00"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tc.path, strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			require.Equal(t, tc.want, rr.Code)
		})
	}
}
