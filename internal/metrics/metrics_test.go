package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndGauge(t *testing.T) {
	m := New()
	m.MessagePersisted("live")
	m.MessagePersisted("live")
	m.MessagePersisted("http")
	m.DeliveryFailed("persist")
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	if got := testutil.ToFloat64(m.PersistedCounter("live")); got != 2 {
		t.Fatalf("expected 2 live messages, got %v", got)
	}
	if got := testutil.ToFloat64(m.PersistedCounter("http")); got != 1 {
		t.Fatalf("expected 1 http message, got %v", got)
	}
	if got := testutil.ToFloat64(m.FailureCounter("persist")); got != 1 {
		t.Fatalf("expected 1 persist failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.LiveConnections()); got != 1 {
		t.Fatalf("expected 1 open connection, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.MessagePersisted("live")
	m.DeliveryFailed("notify")
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.Upload("stored")
	if m.Registry() != nil {
		t.Fatalf("expected nil registry")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil handler, got %d", rec.Code)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Upload("rejected")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `chat_attachment_uploads_total{outcome="rejected"} 1`) {
		t.Fatalf("expected upload counter in output, got:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go collector metrics")
	}
}

func TestObserveRouterReadsStatsOnScrape(t *testing.T) {
	m := New()
	stats := map[string]int{"subscribers": 1, "active_rooms": 1, "active_channels": 0}
	m.ObserveRouter(func() map[string]int { return stats })

	stats = map[string]int{"subscribers": 3, "active_rooms": 2, "active_channels": 1}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"chat_router_subscribers 3", "chat_active_rooms 2", "chat_active_channels 1"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, body)
		}
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveRouter(func() map[string]int { return stats })
}
