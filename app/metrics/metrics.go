package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	registry = prometheus.NewRegistry()

	recordsScanned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_records_scanned_total",
		Help: "Records produced by the splitter.",
	})
	recordsEligible = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_records_eligible_total",
		Help: "Records that passed every eligibility marker.",
	})
	recordsTruncated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_records_truncated_total",
		Help: "Trailing records cut off by the end of the stream.",
	})
	runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_runs_total",
		Help: "Analysis runs by outcome.",
	}, []string{"status"})
	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_run_duration_seconds",
		Help:    "Wall time of analysis runs.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
	jobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_jobs_total",
		Help: "Job status transitions.",
	}, []string{"status"})
	callbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_callbacks_total",
		Help: "Callback deliveries by result.",
	}, []string{"status"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		recordsScanned,
		recordsEligible,
		recordsTruncated,
		runs,
		runDuration,
		jobs,
		callbacks,
	)
}

func AddRecords(scanned, eligible, truncated int) {
	recordsScanned.Add(float64(scanned))
	recordsEligible.Add(float64(eligible))
	recordsTruncated.Add(float64(truncated))
}

func ObserveRun(status string, duration time.Duration) {
	runs.WithLabelValues(status).Inc()
	runDuration.Observe(duration.Seconds())
}

func JobTransition(status string) {
	jobs.WithLabelValues(status).Inc()
}

func CallbackSent(status string) {
	callbacks.WithLabelValues(status).Inc()
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Push sends the current registry to a Pushgateway. Used by one-shot runs
// that exit before they could be scraped.
func Push(gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
