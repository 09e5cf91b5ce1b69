package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAddRecords(t *testing.T) {
	scanned := testutil.ToFloat64(recordsScanned)
	eligible := testutil.ToFloat64(recordsEligible)
	truncated := testutil.ToFloat64(recordsTruncated)

	AddRecords(10, 4, 1)

	if got := testutil.ToFloat64(recordsScanned) - scanned; got != 10 {
		t.Errorf("Expected 10 scanned, got %v", got)
	}
	if got := testutil.ToFloat64(recordsEligible) - eligible; got != 4 {
		t.Errorf("Expected 4 eligible, got %v", got)
	}
	if got := testutil.ToFloat64(recordsTruncated) - truncated; got != 1 {
		t.Errorf("Expected 1 truncated, got %v", got)
	}
}

func TestLabeledCounters(t *testing.T) {
	before := testutil.ToFloat64(runs.WithLabelValues("success"))
	ObserveRun("success", 2*time.Second)
	if got := testutil.ToFloat64(runs.WithLabelValues("success")) - before; got != 1 {
		t.Errorf("Expected one successful run, got %v", got)
	}

	before = testutil.ToFloat64(jobs.WithLabelValues("validated"))
	JobTransition("validated")
	if got := testutil.ToFloat64(jobs.WithLabelValues("validated")) - before; got != 1 {
		t.Errorf("Expected one validated transition, got %v", got)
	}

	before = testutil.ToFloat64(callbacks.WithLabelValues("failed"))
	CallbackSent("failed")
	if got := testutil.ToFloat64(callbacks.WithLabelValues("failed")) - before; got != 1 {
		t.Errorf("Expected one failed callback, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	AddRecords(1, 1, 0)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "feed_records_scanned_total") {
		t.Error("Expected feed counters in exposition output")
	}
}

func TestPush(t *testing.T) {
	var path string
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := Push(server.URL, "feed_inspector_analyze"); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if path != "/metrics/job/feed_inspector_analyze" {
		t.Errorf("Unexpected push path %s", path)
	}
	if body == "" {
		t.Error("Expected metrics in push body")
	}
}

func TestPushFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := Push(server.URL, "feed_inspector_analyze"); err == nil {
		t.Error("Expected error when the gateway rejects the push")
	}
}
