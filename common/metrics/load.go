// Package metrics provides the Prometheus collectors for content loading.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const (
	// MetricsNamespace is the namespace for all ordview metrics.
	MetricsNamespace = "ordview"

	// MetricsSubsystem is the subsystem for load metrics.
	MetricsSubsystem = "loader"
)

// Load outcomes, used as the "outcome" label value
const (
	OutcomeLoad         = "load"          // Load calls
	OutcomeShared       = "shared"        // Load calls that joined an in-flight resolution
	OutcomeCacheHit     = "cache_hit"     // resolutions served from the content cache
	OutcomeFetcherHit   = "fetcher_hit"   // resolutions served by the custom fetcher
	OutcomeWalletHit    = "wallet_hit"    // resolutions served by the wallet
	OutcomeNetworkFetch = "network_fetch" // successful network fetches
	OutcomeMemoHit      = "memo_hit"      // loads short-circuited by a remembered failure
	OutcomeFailure      = "failure"       // failures recorded in the memo
	OutcomeCancelled    = "cancelled"     // results dropped because the caller went away
	OutcomeSourceError  = "source_error"  // fetcher/wallet errors that fell through
	OutcomeCacheSkipped = "cache_skipped" // cache writes skipped because every caller left
)

var snapshotKeys = map[string]string{
	OutcomeLoad:         "loads",
	OutcomeShared:       "shared",
	OutcomeCacheHit:     "cache_hits",
	OutcomeFetcherHit:   "fetcher_hits",
	OutcomeWalletHit:    "wallet_hits",
	OutcomeNetworkFetch: "network_fetches",
	OutcomeMemoHit:      "memo_hits",
	OutcomeFailure:      "failures",
	OutcomeCancelled:    "cancelled",
	OutcomeSourceError:  "source_errors",
	OutcomeCacheSkipped: "cache_skipped",
}

// LoadMetrics counts content loads by outcome and times them by source.
// Safe for concurrent use.
type LoadMetrics struct {
	outcomes  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewLoadMetrics creates the load collectors and registers them on reg.
// A nil reg leaves them unregistered, which keeps tests independent.
func NewLoadMetrics(reg prometheus.Registerer) *LoadMetrics {
	factory := promauto.With(reg)

	m := &LoadMetrics{
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "outcomes_total",
				Help:      "Content load outcomes",
			},
			[]string{"outcome"},
		),
		durations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "load_duration_seconds",
				Help:      "Duration of content loads in seconds, by winning source",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			},
			[]string{"source"},
		),
	}

	// pre-create every series so Snapshot and /metrics report zeros
	for outcome := range snapshotKeys {
		m.outcomes.WithLabelValues(outcome)
	}
	return m
}

// Inc counts one occurrence of outcome
func (m *LoadMetrics) Inc(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}

// ObserveLoad records the duration of a load that ended at source.
// Failed loads use source "error".
func (m *LoadMetrics) ObserveLoad(source string, start time.Time) {
	m.durations.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

// Count returns the current value of the outcome counter
func (m *LoadMetrics) Count(outcome string) int64 {
	counter, err := m.outcomes.GetMetricWithLabelValues(outcome)
	if err != nil {
		return 0
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		return 0
	}
	return int64(metric.GetCounter().GetValue())
}

// Observations returns how many load durations were recorded for source
func (m *LoadMetrics) Observations(source string) uint64 {
	observer, err := m.durations.GetMetricWithLabelValues(source)
	if err != nil {
		return 0
	}

	hist, ok := observer.(prometheus.Histogram)
	if !ok {
		return 0
	}

	var metric dto.Metric
	if err := hist.Write(&metric); err != nil {
		return 0
	}
	return metric.GetHistogram().GetSampleCount()
}

// Snapshot returns the current counter values keyed by name
func (m *LoadMetrics) Snapshot() map[string]int64 {
	snap := make(map[string]int64, len(snapshotKeys))
	for outcome, key := range snapshotKeys {
		snap[key] = m.Count(outcome)
	}
	return snap
}

// String returns a human-readable summary
func (m *LoadMetrics) String() string {
	return fmt.Sprintf(
		"Loads: %d (shared %d) | Cache: %d | Fetcher: %d | Wallet: %d | Network: %d | Memo hits: %d | Failures: %d | Cancelled: %d",
		m.Count(OutcomeLoad),
		m.Count(OutcomeShared),
		m.Count(OutcomeCacheHit),
		m.Count(OutcomeFetcherHit),
		m.Count(OutcomeWalletHit),
		m.Count(OutcomeNetworkFetch),
		m.Count(OutcomeMemoHit),
		m.Count(OutcomeFailure),
		m.Count(OutcomeCancelled),
	)
}
