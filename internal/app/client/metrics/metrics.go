package metrics

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/exp/slog"
)

const namespace = "todoctl"

// Metrics groups the client collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRetriesTotal    *prometheus.CounterVec

	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	CacheInvalidations *prometheus.CounterVec

	MutationsTotal *prometheus.CounterVec
	AuthAttempts   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests sent to the backend",
			},
			[]string{"method", "route", "status"}, // status: 2xx, 4xx, 5xx, error
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests sent to the backend",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		HTTPRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_retries_total",
				Help:      "Total number of retried query requests",
			},
			[]string{"route"},
		),
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Query cache hits",
			},
			[]string{"cache"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Query cache misses (fetches)",
			},
			[]string{"cache"},
		),
		CacheInvalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_invalidations_total",
				Help:      "Query cache invalidation calls",
			},
			[]string{"cache"},
		),
		MutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "todo_mutations_total",
				Help:      "Todo mutations by operation and outcome",
			},
			[]string{"operation", "status"}, // create, update, delete, export / success, failure
		),
		AuthAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Authentication attempts",
			},
			[]string{"type", "status"}, // login, register, logout / success, failure
		),
	}
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, StatusClass(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Retry(route string) {
	if m == nil {
		return
	}
	m.HTTPRetriesTotal.WithLabelValues(route).Inc()
}

func (m *Metrics) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(cache).Inc()
}

func (m *Metrics) CacheInvalidated(cache string) {
	if m == nil {
		return
	}
	m.CacheInvalidations.WithLabelValues(cache).Inc()
}

func (m *Metrics) Mutation(op string, err error) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(op, outcome(err)).Inc()
}

func (m *Metrics) Auth(kind string, err error) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(kind, outcome(err)).Inc()
}

// Log writes every non-zero counter to log at Debug.
func (m *Metrics) Log(log *slog.Logger) {
	if m == nil {
		return
	}

	families, err := m.Registry.Gather()
	if err != nil {
		log.Debug("failed to gather metrics", "error", err)
		return
	}

	lines := make([]string, 0)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			var value float64
			switch {
			case metric.GetCounter() != nil:
				value = metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				value = float64(metric.GetHistogram().GetSampleCount())
			default:
				continue
			}
			if value == 0 {
				continue
			}

			labels := make([]string, 0, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			lines = append(lines, mf.GetName()+"{"+strings.Join(labels, ",")+"} "+formatFloat(value))
		}
	}
	sort.Strings(lines)

	log.Debug("client metrics", slog.Any("metrics", lines))
}

// StatusClass maps an HTTP status to its label. Zero means no response.
func StatusClass(status int) string {
	switch {
	case status <= 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
