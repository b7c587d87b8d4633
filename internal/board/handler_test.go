package board

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestHandler(t *testing.T, repo *MockOrderRepo) *chi.Mux {
	t.Helper()
	actions, cache, _ := newTestActions(repo)
	if err := cache.Warm(context.Background()); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}

	h := NewHandler(HandlerDeps{Cache: cache, Actions: actions}, nil, nil)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func doRequest(router *chi.Mux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateOrder(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "created",
			body:       `{"orderNumber":"5","clientName":"Acme","printType":["digital"],"deliveryDate":"2024-05-10"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "blankOrderNumber",
			body:       `{"orderNumber":"  ","clientName":"Acme","printType":["digital"],"deliveryDate":"2024-05-10"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "emptyTechnologySet",
			body:       `{"orderNumber":"5","clientName":"Acme","printType":[],"deliveryDate":"2024-05-10"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "badDeliveryDate",
			body:       `{"orderNumber":"5","clientName":"Acme","printType":["digital"],"deliveryDate":"tomorrow"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformedBody",
			body:       `{"orderNumber"`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestHandler(t, NewMockOrderRepo())
			rec := doRequest(router, http.MethodPost, "/orders/", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestHandlerSetStage(t *testing.T) {
	repo := NewMockOrderRepo()
	repo.Seed("o1", map[string]any{"currentStage": "studio"})
	router := newTestHandler(t, repo)

	rec := doRequest(router, http.MethodPatch, "/orders/o1/stage", `{"stage":"print"}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodPatch, "/orders/o1/stage", `{"stage":"warehouse"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown stage status = %d, want 400", rec.Code)
	}
}

func TestHandlerToggleUrgency(t *testing.T) {
	repo := NewMockOrderRepo()
	repo.Seed("o1", map[string]any{"isUrgent": false})
	router := newTestHandler(t, repo)

	rec := doRequest(router, http.MethodPatch, "/orders/o1/urgency", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodPatch, "/orders/missing/urgency", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing order status = %d, want 404", rec.Code)
	}
}

func TestHandlerToggleTechnology(t *testing.T) {
	repo := NewMockOrderRepo()
	repo.Seed("o1", map[string]any{"printType": []any{"digital"}})
	router := newTestHandler(t, repo)

	rec := doRequest(router, http.MethodPatch, "/orders/o1/technology", `{"technology":"offset"}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodPatch, "/orders/o1/technology", `{"technology":"gravure"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown technology status = %d, want 400", rec.Code)
	}

	rec = doRequest(router, http.MethodPatch, "/orders/missing/technology", `{"technology":"offset"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing order status = %d, want 404", rec.Code)
	}
}

func TestHandlerUpdateOrderField(t *testing.T) {
	repo := NewMockOrderRepo()
	repo.Seed("o1", map[string]any{"clientName": "Acme"})
	router := newTestHandler(t, repo)

	rec := doRequest(router, http.MethodPatch, "/orders/o1", `{"field":"clientName","value":"New"}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodPatch, "/orders/o1", `{"field":"currentStage","value":"print"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-editable field status = %d, want 400", rec.Code)
	}
}

func TestHandlerDeleteOrder(t *testing.T) {
	repo := NewMockOrderRepo()
	repo.Seed("o1", map[string]any{"clientName": "Acme"})
	router := newTestHandler(t, repo)

	rec := doRequest(router, http.MethodDelete, "/orders/o1", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodDelete, "/orders/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing order status = %d, want 404", rec.Code)
	}
}

func TestHandlerGuardsWrapEveryRoute(t *testing.T) {
	repo := NewMockOrderRepo()
	repo.Seed("o1", map[string]any{"clientName": "Acme"})
	actions, cache, _ := newTestActions(repo)
	if err := cache.Warm(context.Background()); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}

	reject := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}

	h := NewHandler(HandlerDeps{
		Cache:   cache,
		Actions: actions,
		Guards:  []func(http.Handler) http.Handler{reject},
	}, nil, nil)
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	requests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/orders/"},
		{http.MethodGet, "/orders/ws"},
		{http.MethodPost, "/orders/"},
		{http.MethodPatch, "/orders/o1/stage"},
		{http.MethodDelete, "/orders/o1"},
	}

	for _, req := range requests {
		rec := doRequest(router, req.method, req.path, "{}")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", req.method, req.path, rec.Code)
		}
	}
}
