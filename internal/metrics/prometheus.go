// Package metrics records Prometheus metrics for calls made to the election API.
package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metric names, without namespace.
const (
	MetricRequestsTotal          = "api_requests_total"
	MetricRequestDurationSeconds = "api_request_duration_seconds"
	MetricRequestErrorsTotal     = "api_request_errors_total"
)

// Config holds configuration for the client metrics.
type Config struct {
	// Namespace is the prefix for all metrics. Default: "electionctl"
	Namespace string

	// HistogramBuckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	HistogramBuckets []float64
}

// ClientMetrics tracks per-endpoint request counts, failures and latency.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type ClientMetrics struct {
	registry *prometheus.Registry

	requestsTotal          *prometheus.CounterVec
	requestErrorsTotal     *prometheus.CounterVec
	requestDurationSeconds *prometheus.HistogramVec
}

// NewClientMetrics creates the metrics on a private registry.
func NewClientMetrics(cfg Config) *ClientMetrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "electionctl"
	}
	if len(cfg.HistogramBuckets) == 0 {
		cfg.HistogramBuckets = prometheus.DefBuckets
	}

	m := &ClientMetrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      MetricRequestsTotal,
			Help:      "Total number of requests made to the election API.",
		},
		[]string{"endpoint", "status"},
	)
	m.requestErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      MetricRequestErrorsTotal,
			Help:      "Requests that failed in transport or returned an error status.",
		},
		[]string{"endpoint"},
	)
	m.requestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      MetricRequestDurationSeconds,
			Help:      "Duration of election API requests in seconds.",
			Buckets:   cfg.HistogramBuckets,
		},
		[]string{"endpoint"},
	)

	m.registry.MustRegister(m.requestsTotal, m.requestErrorsTotal, m.requestDurationSeconds)
	return m
}

// ObserveRequest records one finished request. statusCode is 0 when the
// request never got a response.
func (m *ClientMetrics) ObserveRequest(endpoint string, statusCode int, duration time.Duration, failed bool) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.requestsTotal.WithLabelValues(endpoint, status).Inc()
	m.requestDurationSeconds.WithLabelValues(endpoint).Observe(duration.Seconds())
	if failed {
		m.requestErrorsTotal.WithLabelValues(endpoint).Inc()
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *ClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// EndpointStat summarizes traffic to one endpoint.
type EndpointStat struct {
	Endpoint     string
	Requests     uint64
	Errors       uint64
	TotalSeconds float64
}

// Snapshot returns per-endpoint totals sorted by endpoint.
func (m *ClientMetrics) Snapshot() ([]EndpointStat, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*EndpointStat)
	get := func(endpoint string) *EndpointStat {
		s, ok := stats[endpoint]
		if !ok {
			s = &EndpointStat{Endpoint: endpoint}
			stats[endpoint] = s
		}
		return s
	}

	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			endpoint := labelValue(metric, "endpoint")
			switch mf.GetType() {
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				s := get(endpoint)
				s.Requests += h.GetSampleCount()
				s.TotalSeconds += h.GetSampleSum()
			case dto.MetricType_COUNTER:
				if isErrorFamily(mf.GetName()) {
					get(endpoint).Errors += uint64(metric.GetCounter().GetValue())
				}
			}
		}
	}

	out := make([]EndpointStat, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out, nil
}

func isErrorFamily(name string) bool {
	n := len(MetricRequestErrorsTotal)
	return len(name) >= n && name[len(name)-n:] == MetricRequestErrorsTotal
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
