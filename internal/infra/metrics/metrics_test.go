package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.VoteCast(1)
	m.VoteCast(1)
	m.RateLimitDecision("offers", "denied")

	if got := testutil.ToFloat64(m.votesCast.WithLabelValues("1")); got != 2 {
		t.Fatalf("expected 2 votes, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `dealboard_rate_limit_decisions_total{class="offers",result="denied"} 1`) {
		t.Fatalf("rate limit counter missing from exposition")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.VoteCast(1)
	m.ReputationDropped()
	m.ObserveHTTP(http.MethodGet, 200, 0)
}
