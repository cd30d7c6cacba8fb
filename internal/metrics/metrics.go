package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
)

// #region metrics
// Metrics holds the estimator's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	estimates         *prometheus.CounterVec
	states            *prometheus.CounterVec
	skipped           prometheus.Counter
	evalFailures      prometheus.Counter
	ingested          *prometheus.CounterVec
	ingestErrors      *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estimator_estimates_total",
			Help: "Total estimates produced by transport.",
		}, []string{"transport"}),
		states: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estimator_functional_state_total",
			Help: "Estimates by classified functional state.",
		}, []string{"state"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "estimator_skipped_events_total",
			Help: "Malformed events skipped while estimating.",
		}),
		evalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "estimator_eval_failures_total",
			Help: "Estimates whose invariant checks failed.",
		}),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estimator_ingested_events_total",
			Help: "Events stored from broker messages by source.",
		}, []string{"source"}),
		ingestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estimator_ingest_errors_total",
			Help: "Broker messages that could not be stored by source.",
		}, []string{"source"}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.estimates,
		m.states,
		m.skipped,
		m.evalFailures,
		m.ingested,
		m.ingestErrors,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// #endregion metrics

// #region http
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts and times requests to next under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// #endregion http

// #region domain
// ObserveResult records one estimate served over transport.
func (m *Metrics) ObserveResult(transport string, res engine.Result) {
	if m == nil {
		return
	}
	m.estimates.WithLabelValues(transport).Inc()
	m.states.WithLabelValues(string(res.Balance.State)).Inc()
	m.skipped.Add(float64(len(res.Skipped)))
	if !res.Eval.Passed {
		m.evalFailures.Inc()
	}
}

// ObserveIngest records the outcome of one broker message.
func (m *Metrics) ObserveIngest(source string, stored int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ingestErrors.WithLabelValues(source).Inc()
		return
	}
	m.ingested.WithLabelValues(source).Add(float64(stored))
}

// #endregion domain
