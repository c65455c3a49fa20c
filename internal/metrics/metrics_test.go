package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordGeneration(t *testing.T) {
	before := testutil.ToFloat64(GenerationTotal.WithLabelValues("Test Provider", "success"))
	RecordGeneration("Test Provider", "success", 250*time.Millisecond)
	RecordGeneration("Test Provider", "success", time.Second)

	after := testutil.ToFloat64(GenerationTotal.WithLabelValues("Test Provider", "success"))
	if after-before != 2 {
		t.Errorf("expected counter to grow by 2, grew by %v", after-before)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/test", "400"))
	RecordHTTPRequest("POST", "/api/test", http.StatusBadRequest, 5*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/test", "400"))
	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, grew by %v", after-before)
	}
}

func TestRecordHistoryWriteFailure(t *testing.T) {
	before := testutil.ToFloat64(HistoryWriteFailuresTotal)
	RecordHistoryWriteFailure()
	if got := testutil.ToFloat64(HistoryWriteFailuresTotal); got-before != 1 {
		t.Errorf("expected counter to grow by 1, grew by %v", got-before)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordSloganRequest("success")
	RecordGeneration("Scrape Provider", "degraded", time.Millisecond)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"climatecanvas_slogans_requests_total", "climatecanvas_generation_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("scrape output missing %s", name)
		}
	}
}
