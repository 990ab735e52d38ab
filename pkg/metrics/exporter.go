package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/ragops/banditd/pkg/bandit"
	"github.com/ragops/banditd/pkg/cleanup"
	"github.com/ragops/banditd/pkg/store"
)

// Exporter serves Prometheus metrics for the bandit status daemon
type Exporter struct {
	tracker   *bandit.Tracker
	store     store.Store
	startTime time.Time
	retention func() cleanup.Stats

	unitResults  *promclient.CounterVec
	unitDuration promclient.Histogram
}

// NewExporter creates a Prometheus exporter and registers its collectors
// on the default registry
func NewExporter(tracker *bandit.Tracker, s store.Store) *Exporter {
	e := &Exporter{
		tracker:   tracker,
		store:     s,
		startTime: time.Now(),
		unitResults: promclient.NewCounterVec(
			promclient.CounterOpts{
				Name: "bandit_training_units_total",
				Help: "Training units processed, by result",
			},
			[]string{"result"},
		),
		unitDuration: promclient.NewHistogram(
			promclient.HistogramOpts{
				Name:    "bandit_training_unit_duration_seconds",
				Help:    "Duration of individual training units",
				Buckets: promclient.ExponentialBuckets(0.01, 2, 12),
			},
		),
	}

	promclient.MustRegister(e.unitResults)
	promclient.MustRegister(e.unitDuration)

	return e
}

// SetRetentionSource registers a stats callback for the run retention
// pruner. Its counters are included in the scrape output when set.
func (e *Exporter) SetRetentionSource(fn func() cleanup.Stats) {
	e.retention = fn
}

// RecordUnit records the outcome and duration of one training unit
func (e *Exporter) RecordUnit(result string, duration time.Duration) {
	e.unitResults.WithLabelValues(result).Inc()
	e.unitDuration.Observe(duration.Seconds())
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ServeHTTP serves Prometheus-compatible metrics at /metrics
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	snap := e.tracker.Status()

	fmt.Fprintf(w, "# HELP banditd_uptime_seconds Time since the daemon started\n")
	fmt.Fprintf(w, "# TYPE banditd_uptime_seconds gauge\n")
	fmt.Fprintf(w, "banditd_uptime_seconds %d\n", int64(time.Since(e.startTime).Seconds()))

	fmt.Fprintf(w, "\n# HELP bandit_enabled Whether the strategy selector is enabled\n")
	fmt.Fprintf(w, "# TYPE bandit_enabled gauge\n")
	fmt.Fprintf(w, "bandit_enabled %g\n", boolToFloat(snap.Enabled))

	fmt.Fprintf(w, "\n# HELP bandit_cycle_started Whether a training cycle has begun\n")
	fmt.Fprintf(w, "# TYPE bandit_cycle_started gauge\n")
	fmt.Fprintf(w, "bandit_cycle_started %g\n", boolToFloat(snap.Started))

	fmt.Fprintf(w, "\n# HELP bandit_cycle_done Whether the current cycle has finished\n")
	fmt.Fprintf(w, "# TYPE bandit_cycle_done gauge\n")
	fmt.Fprintf(w, "bandit_cycle_done %g\n", boolToFloat(snap.Done))

	fmt.Fprintf(w, "\n# HELP bandit_cold_start Whether the cycle began without learned weights\n")
	fmt.Fprintf(w, "# TYPE bandit_cold_start gauge\n")
	fmt.Fprintf(w, "bandit_cold_start %g\n", boolToFloat(snap.ColdStart))

	fmt.Fprintf(w, "\n# HELP bandit_cycle_total_units Expected unit count for the current cycle\n")
	fmt.Fprintf(w, "# TYPE bandit_cycle_total_units gauge\n")
	fmt.Fprintf(w, "bandit_cycle_total_units %d\n", snap.Total)

	fmt.Fprintf(w, "\n# HELP bandit_cycle_completed_units Units completed in the current cycle\n")
	fmt.Fprintf(w, "# TYPE bandit_cycle_completed_units gauge\n")
	fmt.Fprintf(w, "bandit_cycle_completed_units %d\n", snap.Completed)

	fmt.Fprintf(w, "\n# HELP bandit_last_error Whether the tracker holds an error message\n")
	fmt.Fprintf(w, "# TYPE bandit_last_error gauge\n")
	fmt.Fprintf(w, "bandit_last_error %g\n", boolToFloat(snap.LastError != nil))

	// Run history aggregates from the store
	runMetrics, err := e.store.GetRunMetrics()
	if err != nil {
		fmt.Fprintf(w, "\n# Error collecting run metrics: %v\n", err)
	} else {
		fmt.Fprintf(w, "\n# HELP bandit_runs_total Total number of recorded training runs\n")
		fmt.Fprintf(w, "# TYPE bandit_runs_total gauge\n")
		fmt.Fprintf(w, "bandit_runs_total %d\n", runMetrics.TotalRuns)

		fmt.Fprintf(w, "\n# HELP bandit_runs_by_status Number of runs by status\n")
		fmt.Fprintf(w, "# TYPE bandit_runs_by_status gauge\n")
		for status, count := range runMetrics.RunsByStatus {
			fmt.Fprintf(w, "bandit_runs_by_status{status=\"%s\"} %d\n", status, count)
		}

		fmt.Fprintf(w, "\n# HELP bandit_cold_start_runs_total Runs that began without learned weights\n")
		fmt.Fprintf(w, "# TYPE bandit_cold_start_runs_total gauge\n")
		fmt.Fprintf(w, "bandit_cold_start_runs_total %d\n", runMetrics.ColdStartRuns)

		fmt.Fprintf(w, "\n# HELP bandit_run_duration_seconds_avg Average duration of finished runs\n")
		fmt.Fprintf(w, "# TYPE bandit_run_duration_seconds_avg gauge\n")
		fmt.Fprintf(w, "bandit_run_duration_seconds_avg %.2f\n", runMetrics.AvgDurationSec)
	}

	if e.retention != nil {
		stats := e.retention()

		fmt.Fprintf(w, "\n# HELP bandit_retention_deleted_runs_total Runs deleted by the retention pruner\n")
		fmt.Fprintf(w, "# TYPE bandit_retention_deleted_runs_total counter\n")
		fmt.Fprintf(w, "bandit_retention_deleted_runs_total %d\n", stats.TotalDeleted)

		var lastRun int64
		if !stats.LastRunTime.IsZero() {
			lastRun = stats.LastRunTime.Unix()
		}
		fmt.Fprintf(w, "\n# HELP bandit_retention_last_run_timestamp_seconds Unix time of the last retention pass\n")
		fmt.Fprintf(w, "# TYPE bandit_retention_last_run_timestamp_seconds gauge\n")
		fmt.Fprintf(w, "bandit_retention_last_run_timestamp_seconds %d\n", lastRun)
	}

	// Append metrics from the default registry (unit counters and histograms)
	fmt.Fprintf(w, "\n")
	metricFamilies, err := promclient.DefaultGatherer.Gather()
	if err != nil {
		fmt.Fprintf(w, "# Error gathering Prometheus metrics: %v\n", err)
		return
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range metricFamilies {
		if err := encoder.Encode(mf); err != nil {
			fmt.Fprintf(w, "# Error encoding metric %s: %v\n", mf.GetName(), err)
		}
	}
	w.Write(buf.Bytes())
}
