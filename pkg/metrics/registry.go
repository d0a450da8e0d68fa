// Package metrics wraps a Prometheus registry with the counters, gauges
// and histograms the validator and dispatcher emit, following the
// registration/accessor shape of the codebase's existing metrics
// registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every collector the security and management stack
// reports against. A nil *Registry is valid everywhere it's accepted as
// a constructor argument: every recording method is a no-op on a nil
// receiver so callers that don't care about metrics don't have to wire a
// no-op implementation.
type Registry struct {
	registry *prometheus.Registry

	validationTotal   *prometheus.CounterVec
	validationDepth   prometheus.Histogram
	certCacheSize     *prometheus.GaugeVec
	certFetchTotal    *prometheus.CounterVec
	replayRejections  *prometheus.CounterVec
	dispatcherTotal   *prometheus.CounterVec
	dispatcherLatency *prometheus.HistogramVec
}

// NewRegistry builds a Registry and registers every collector against a
// fresh Prometheus registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,

		validationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ndnsec_validation_total",
				Help: "Total number of packet validations by result",
			},
			[]string{"result", "error_code"},
		),
		validationDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ndnsec_validation_depth",
				Help:    "Certificate chain depth walked per successful validation",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 10},
			},
		),
		certCacheSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ndnsec_cert_cache_size",
				Help: "Current number of cached certificates",
			},
			[]string{"pool"},
		),
		certFetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ndnsec_cert_fetch_total",
				Help: "Total certificate fetch attempts by outcome",
			},
			[]string{"outcome"},
		),
		replayRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ndnsec_replay_rejections_total",
				Help: "Total replay-guard rejections by guard type",
			},
			[]string{"guard"},
		),
		dispatcherTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ndnsec_dispatcher_requests_total",
				Help: "Total dispatcher requests by kind and status",
			},
			[]string{"kind", "status"},
		),
		dispatcherLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ndnsec_dispatcher_request_duration_seconds",
				Help:    "Dispatcher request handling duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
	r.registerMetrics()
	return r
}

func (r *Registry) registerMetrics() {
	collectors := []prometheus.Collector{
		r.validationTotal,
		r.validationDepth,
		r.certCacheSize,
		r.certFetchTotal,
		r.replayRejections,
		r.dispatcherTotal,
		r.dispatcherLatency,
	}
	for _, c := range collectors {
		r.registry.MustRegister(c)
	}
}

// GetRegistry returns the underlying Prometheus registry, e.g. for
// exposition over an HTTP handler the caller owns.
func (r *Registry) GetRegistry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordValidation records a completed Validate/ValidateInterest call.
// errorCode is empty for a successful validation.
func (r *Registry) RecordValidation(result, errorCode string) {
	if r == nil {
		return
	}
	r.validationTotal.WithLabelValues(result, errorCode).Inc()
}

// RecordValidationDepth records how many certificates a successful
// validation chained through.
func (r *Registry) RecordValidationDepth(depth int) {
	if r == nil {
		return
	}
	r.validationDepth.Observe(float64(depth))
}

// SetCertCacheSize reports the current occupancy of a cache pool
// ("trusted" or "untrusted").
func (r *Registry) SetCertCacheSize(pool string, size int) {
	if r == nil {
		return
	}
	r.certCacheSize.WithLabelValues(pool).Set(float64(size))
}

// RecordCertFetch records one certificate-fetch attempt outcome
// ("hit", "miss", "timeout", "nack", "exhausted").
func (r *Registry) RecordCertFetch(outcome string) {
	if r == nil {
		return
	}
	r.certFetchTotal.WithLabelValues(outcome).Inc()
}

// RecordReplayRejection records one replay-guard rejection
// ("command" or "signed-interest").
func (r *Registry) RecordReplayRejection(guard string) {
	if r == nil {
		return
	}
	r.replayRejections.WithLabelValues(guard).Inc()
}

// RecordDispatcherRequest records one dispatcher request
// (kind in "command"/"dataset"/"notification").
func (r *Registry) RecordDispatcherRequest(kind, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.dispatcherTotal.WithLabelValues(kind, status).Inc()
	r.dispatcherLatency.WithLabelValues(kind).Observe(duration.Seconds())
}
