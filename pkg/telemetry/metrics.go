package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the provider host.
type Metrics struct {
	config MetricsConfig

	// RPC metrics
	rpcRequests *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec

	// Provider operation metrics
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	providerErrors   *prometheus.CounterVec

	// Error metrics
	errorsByCode *prometheus.CounterVec

	// Checkpoint store metrics
	storeOperations *prometheus.CounterVec

	// In-flight work
	activeRequests     prometheus.Gauge
	outstandingOutputs prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		rpcRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_requests_total",
				Help:      "Total number of RPC requests handled",
			},
			[]string{"method", "status"},
		),
		rpcDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_duration_seconds",
				Help:      "Duration of RPC handling in seconds",
				Buckets:   buckets,
			},
			[]string{"method"},
		),

		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Total number of provider operation calls",
			},
			[]string{"provider", "operation"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_call_duration_seconds",
				Help:      "Duration of provider operations in seconds",
				Buckets:   buckets,
			},
			[]string{"provider", "operation"},
		),
		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Total number of provider operation errors",
			},
			[]string{"provider", "operation"},
		),

		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of RPC failures by error code",
			},
			[]string{"code"},
		),

		storeOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of checkpoint store operations",
			},
			[]string{"operation", "status"},
		),

		activeRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_requests",
				Help:      "Current number of in-flight RPC requests",
			},
		),
		outstandingOutputs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "outstanding_outputs",
				Help:      "Current number of unresolved output cells",
			},
		),
	}

	registry.MustRegister(
		m.rpcRequests,
		m.rpcDuration,
		m.providerCalls,
		m.providerDuration,
		m.providerErrors,
		m.errorsByCode,
		m.storeOperations,
		m.activeRequests,
		m.outstandingOutputs,
	)

	return m, nil
}

// RPC Metrics

// RecordRPCStarted marks an RPC as in flight.
func (m *Metrics) RecordRPCStarted() {
	if m.activeRequests == nil {
		return
	}
	m.activeRequests.Inc()
}

// RecordRPCCompleted records a handled RPC with its status and duration.
func (m *Metrics) RecordRPCCompleted(method, status string, duration time.Duration) {
	if m.rpcRequests == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method, status).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(duration.Seconds())
	m.activeRequests.Dec()
}

// Provider Metrics

// RecordProviderCall records a provider operation with its duration.
func (m *Metrics) RecordProviderCall(provider, operation string, duration time.Duration) {
	if m.providerCalls == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, operation).Inc()
	m.providerDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordProviderError records a provider operation error.
func (m *Metrics) RecordProviderError(provider, operation string) {
	if m.providerErrors == nil {
		return
	}
	m.providerErrors.WithLabelValues(provider, operation).Inc()
}

// Error Metrics

// RecordError records an RPC failure by error code.
func (m *Metrics) RecordError(code string) {
	if m.errorsByCode == nil {
		return
	}
	m.errorsByCode.WithLabelValues(code).Inc()
}

// Store Metrics

// RecordStoreOperation records a checkpoint store operation.
func (m *Metrics) RecordStoreOperation(operation, status string) {
	if m.storeOperations == nil {
		return
	}
	m.storeOperations.WithLabelValues(operation, status).Inc()
}

// Output Metrics

// SetOutstandingOutputs sets the current number of unresolved output cells.
func (m *Metrics) SetOutstandingOutputs(count float64) {
	if m.outstandingOutputs == nil {
		return
	}
	m.outstandingOutputs.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
