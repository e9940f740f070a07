package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.EventPublished("item.created")
	m.HandlerFailed("item.created", "activity")
	m.HandlerDone("activity", time.Millisecond)
	m.SetQueueDepth(3)
	m.AlertDerived("low_quantity", "created")
	m.ActivityRecorded("item")
	m.SweepRemoved("alerts", 2)

	called := false
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("expected nil middleware to pass through")
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New("test")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `test_http_requests_total{method="GET",route="/items/{id}",status="201"} 2`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("expected %s in exposition", want)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New("test")
	m.EventPublished("item.created")
	m.AlertDerived("low_quantity", "created")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"test_events_published_total", "test_alerts_derived_total", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in exposition", want)
		}
	}
}
