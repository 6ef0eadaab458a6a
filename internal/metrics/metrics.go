// Package metrics exposes sampler and delivery counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "netsampler"

// Metrics owns a private registry. All methods are safe on a nil receiver so
// components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	ticks            prometheus.Counter
	tickFailures     prometheus.Counter
	published        prometheus.Counter
	skipped          *prometheus.CounterVec
	dropped          prometheus.Counter
	deliveryErrors   prometheus.Counter
	locationRequests prometheus.Counter
	subscribers      prometheus.Gauge
	downloadKBps     prometheus.Gauge
	uploadKBps       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of sampling ticks",
		}),
		tickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_failures_total",
			Help:      "Ticks aborted by an error or a recovered panic",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_published_total",
			Help:      "Samples handed to the publisher",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_skipped_total",
			Help:      "Ticks that produced no sample, by reason",
		}, []string{"reason"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_dropped_total",
			Help:      "Samples dropped because a subscriber queue was full",
		}),
		deliveryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_errors_total",
			Help:      "Subscriber handlers that returned an error or panicked",
		}),
		locationRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_requests_total",
			Help:      "Location fix requests started",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Currently registered subscribers",
		}),
		downloadKBps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "download_kbps",
			Help:      "Last download rate in KB/s",
		}),
		uploadKBps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upload_kbps",
			Help:      "Last upload rate in KB/s",
		}),
	}

	m.registry.MustRegister(
		m.ticks,
		m.tickFailures,
		m.published,
		m.skipped,
		m.dropped,
		m.deliveryErrors,
		m.locationRequests,
		m.subscribers,
		m.downloadKBps,
		m.uploadKBps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Tick() {
	if m != nil {
		m.ticks.Inc()
	}
}

func (m *Metrics) TickFailed() {
	if m != nil {
		m.tickFailures.Inc()
	}
}

func (m *Metrics) Published() {
	if m != nil {
		m.published.Inc()
	}
}

func (m *Metrics) Skipped(reason string) {
	if m != nil {
		m.skipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Dropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) DeliveryError() {
	if m != nil {
		m.deliveryErrors.Inc()
	}
}

func (m *Metrics) LocationRequested() {
	if m != nil {
		m.locationRequests.Inc()
	}
}

func (m *Metrics) SetSubscribers(n int) {
	if m != nil {
		m.subscribers.Set(float64(n))
	}
}

// ObserveRates records the rates of the last published sample as computed.
func (m *Metrics) ObserveRates(download, upload float64) {
	if m == nil {
		return
	}

	m.downloadKBps.Set(download)
	m.uploadKBps.Set(upload)
}
