package metrics

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestCounterAddUpdatesValueAndCollector(t *testing.T) {
	r := NewRegistry()
	r.FramesForwarded.Inc()
	r.FramesForwarded.Add(4)
	if got := r.FramesForwarded.Value(); got != 5 {
		t.Fatalf("Value() = %d, want 5", got)
	}
}

func TestGaugeSetAndAdd(t *testing.T) {
	r := NewRegistry()
	r.KnownNetworks.Set(3)
	r.KnownNetworks.Add(-1)
	if got := r.KnownNetworks.Value(); got != 2 {
		t.Fatalf("Value() = %d, want 2", got)
	}
}

func TestLatencyAverages(t *testing.T) {
	r := NewRegistry()
	r.RequestLatency.Record(10 * time.Millisecond)
	r.RequestLatency.Record(30 * time.Millisecond)
	if got := r.RequestLatency.Avg(); got != 20*time.Millisecond {
		t.Fatalf("Avg() = %v, want 20ms", got)
	}
}

func TestHandlerServesPrometheusExposition(t *testing.T) {
	r := NewRegistry()
	r.FramesForwarded.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !contains(rec.Body.String(), "bacnet_frames_forwarded_total") {
		t.Fatal("expected exposition to contain the frames-forwarded metric")
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
