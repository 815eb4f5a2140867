package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeptools/gw-invoice/rw"
)

// Metrics holds the service collectors on their own registry
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec   // route, code
	HTTPDuration *prometheus.HistogramVec // route
	Invoices     *prometheus.CounterVec   // result: ok | composition_error | storage_error | bad_request
	ComposeTime  prometheus.Histogram
	PDFBytes     prometheus.Histogram
	ArchiveFails prometheus.Counter
	LastSequence prometheus.GaugeFunc // reads lastSeq, see RaiseLastSequence

	lastSeq atomic.Int64
}

func New(namespace string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_total",
			Help:      "Invoice generation attempts by result.",
		}, []string{"result"}),
		ComposeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compose_duration_seconds",
			Help:      "Time to draw and encode one invoice.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		PDFBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pdf_size_bytes",
			Help:      "Size of generated documents.",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 10),
		}),
		ArchiveFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_failures_total",
			Help:      "Documents that could not be archived.",
		}),
	}
	m.LastSequence = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_sequence_number",
		Help:      "Last invoice number issued.",
	}, func() float64 { return float64(m.lastSeq.Load()) })
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Invoices,
		m.ComposeTime,
		m.PDFBytes,
		m.ArchiveFails,
		m.LastSequence,
	)
	return m
}

// RaiseLastSequence records n as the last issued number unless a higher one
// is already recorded. Concurrent callers never move the gauge backwards.
func (m *Metrics) RaiseLastSequence(n int64) {
	for {
		cur := m.lastSeq.Load()
		if n <= cur || m.lastSeq.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Handler serves the registry in the exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Route returns a routing.HandlerWrapper that records requests under the route label
func (m *Metrics) Route(route string) RouteWrapper {
	return RouteWrapper{m: m, route: route}
}

type RouteWrapper struct {
	m     *Metrics
	route string
}

func (rtw RouteWrapper) Wrap(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := rw.NewStatusWriter(w)
		inner.ServeHTTP(sw, r)
		rtw.m.HTTPDuration.WithLabelValues(rtw.route).Observe(time.Since(start).Seconds())
		rtw.m.HTTPRequests.WithLabelValues(rtw.route, strconv.Itoa(sw.StatusCode())).Inc()
	})
}
