package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Namespace         = "ragsearch"
	SubsystemHTTP     = "http"
	SubsystemUpstream = "upstream"

	UpstreamSearch     = "search"
	UpstreamCompletion = "completion"

	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal prometheus.Counter
	httpErrorsTotal   prometheus.Counter
	upstreamTime      *prometheus.HistogramVec
}

func New(version string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
		Namespace: Namespace,
	}))
	m.registry.MustRegister(collectors.NewGoCollector())

	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Name:        "info",
		Help:        "The server version.",
		ConstLabels: prometheus.Labels{"version": version},
	})
	info.Set(1)
	m.registry.MustRegister(info)

	m.httpRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemHTTP,
		Name:      "requests_total",
		Help:      "The total number of search requests.",
	})
	m.registry.MustRegister(m.httpRequestsTotal)

	m.httpErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemHTTP,
		Name:      "errors_total",
		Help:      "The total number of search requests that failed.",
	})
	m.registry.MustRegister(m.httpErrorsTotal)

	m.upstreamTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemUpstream,
		Name:      "time_seconds",
		Help:      "Time taken by calls to the search and completion services.",
	}, []string{"upstream", "outcome"})
	m.registry.MustRegister(m.upstreamTime)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncrementHTTPRequests() {
	if m != nil {
		m.httpRequestsTotal.Inc()
	}
}

func (m *Metrics) IncrementHTTPErrors() {
	if m != nil {
		m.httpErrorsTotal.Inc()
	}
}

func (m *Metrics) ObserveUpstream(upstream string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.upstreamTime.With(prometheus.Labels{"upstream": upstream, "outcome": outcome}).Observe(elapsed.Seconds())
}
