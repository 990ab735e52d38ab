package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ragops/banditd/pkg/bandit"
	"github.com/ragops/banditd/pkg/cleanup"
	"github.com/ragops/banditd/pkg/store"
)

// NewExporter registers collectors on the default registry, so the
// exporter is built once and shared across subtests.
func TestExporterServeHTTP(t *testing.T) {
	tracker := bandit.NewTracker()
	tracker.SetEnabled(true)
	tracker.MarkTotal(4)

	exporter := NewExporter(tracker, store.NewMemoryStore())
	exporter.RecordUnit("success", 50*time.Millisecond)

	scrape := func() string {
		rr := httptest.NewRecorder()
		exporter.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("metrics endpoint returned %d", rr.Code)
		}
		return rr.Body.String()
	}

	t.Run("TrackerGauges", func(t *testing.T) {
		body := scrape()
		for _, want := range []string{
			"bandit_enabled 1",
			"bandit_cycle_total_units 4",
			"bandit_training_units_total{result=\"success\"} 1",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("scrape missing %q", want)
			}
		}
	})

	t.Run("RetentionStats", func(t *testing.T) {
		body := scrape()
		if strings.Contains(body, "bandit_retention_deleted_runs_total") {
			t.Error("retention metrics emitted without a source")
		}

		now := time.Now()
		exporter.SetRetentionSource(func() cleanup.Stats {
			return cleanup.Stats{LastRunTime: now, TotalDeleted: 7}
		})

		body = scrape()
		if !strings.Contains(body, "bandit_retention_deleted_runs_total 7") {
			t.Error("scrape missing retention delete counter")
		}
		if !strings.Contains(body, "bandit_retention_last_run_timestamp_seconds") {
			t.Error("scrape missing retention timestamp gauge")
		}
	})
}
