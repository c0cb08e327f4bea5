package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ordview/ordview/common/logger"
)

const (
	// MetricsNamespace is the namespace for telemetry metrics
	MetricsNamespace = "ordview"

	// MetricsSubsystem is the subsystem for telemetry metrics
	MetricsSubsystem = "telemetry"
)

// Telemetry holds observability components
type Telemetry struct {
	log       *logger.Logger
	pprofAddr string
	server    *http.Server

	durations *prometheus.HistogramVec
	events    *prometheus.CounterVec
}

// New creates telemetry components. Collectors register on reg (nil leaves
// them unregistered). A pprofPort of zero disables the pprof endpoint.
func New(pprofPort int, reg prometheus.Registerer, log *logger.Logger) *Telemetry {
	factory := promauto.With(reg)

	t := &Telemetry{
		log: log,
		durations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "operation_duration_seconds",
				Help:      "Duration of recorded operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			},
			[]string{"operation"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Subsystem: MetricsSubsystem,
				Name:      "events_total",
				Help:      "Recorded telemetry events",
			},
			[]string{"event"},
		),
	}
	if pprofPort > 0 {
		t.pprofAddr = fmt.Sprintf("localhost:%d", pprofPort)
	}
	return t
}

// Start starts the pprof endpoint, if enabled; it stops when ctx is done
func (t *Telemetry) Start(ctx context.Context) error {
	if t.pprofAddr == "" {
		return nil
	}

	t.server = &http.Server{
		Addr:              t.pprofAddr,
		Handler:           http.DefaultServeMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		t.log.Info("pprof server starting", "addr", t.pprofAddr)
		if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Error("pprof server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = t.Close()
	}()

	return nil
}

// Close stops the pprof endpoint
func (t *Telemetry) Close() error {
	if t.server == nil {
		return nil
	}
	return t.server.Close()
}

// RecordDuration observes the operation duration and logs it at debug level
func (t *Telemetry) RecordDuration(operation string, start time.Time, attrs ...any) {
	duration := time.Since(start)
	t.durations.WithLabelValues(operation).Observe(duration.Seconds())

	args := append([]any{
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	}, attrs...)
	t.log.Debug("operation completed", args...)
}

// RecordEvent counts and logs a telemetry event
func (t *Telemetry) RecordEvent(event string, attrs map[string]any) {
	t.events.WithLabelValues(event).Inc()
	t.log.Info("telemetry_event",
		"event", event,
		"attrs", attrs,
	)
}
