package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics the bot exports.
type Metrics struct {
	// Inbound event metrics
	EventsTotal   *prometheus.CounterVec
	EventsDropped *prometheus.CounterVec

	// Upload metrics
	UploadsRejected *prometheus.CounterVec
	FetchErrors     prometheus.Counter

	// Build metrics
	BuildsTotal   *prometheus.CounterVec
	BuildDuration prometheus.Histogram

	// Delivery metrics
	DeliveriesTotal *prometheus.CounterVec
	SendErrors      prometheus.Counter

	// Session metrics
	SessionsActive prometheus.Gauge

	// HTTP metrics (ops server)
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a metrics collector registered on the default
// registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates a metrics collector on a specific registerer.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		startTime: time.Now(),

		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mergebot_events_total",
				Help: "Inbound events by kind",
			},
			[]string{"kind"},
		),
		EventsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mergebot_events_dropped_total",
				Help: "Events dropped by the inbound cooldown",
			},
			[]string{"kind"},
		),
		UploadsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mergebot_uploads_rejected_total",
				Help: "Uploads rejected before fetch by limit checks",
			},
			[]string{"reason"},
		),
		FetchErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mergebot_fetch_errors_total",
				Help: "Transport failures while downloading uploads",
			},
		),
		BuildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mergebot_builds_total",
				Help: "Packaging runs by outcome",
			},
			[]string{"outcome"},
		),
		BuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mergebot_build_duration_seconds",
				Help:    "Packaging run duration",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mergebot_deliveries_total",
				Help: "Binary deliveries by outcome",
			},
			[]string{"outcome"},
		),
		SendErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mergebot_send_errors_total",
				Help: "Outbound transmissions that failed",
			},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mergebot_sessions_active",
				Help: "Live merge sessions",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mergebot_http_requests_total",
				Help: "Ops server HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mergebot_http_request_duration_seconds",
				Help:    "Ops server HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mergebot_uptime_seconds",
				Help: "Process uptime",
			},
		),
	}
}

// RecordEvent counts an admitted inbound event.
func (m *Metrics) RecordEvent(kind string) {
	m.EventsTotal.WithLabelValues(kind).Inc()
}

// RecordDrop counts an event the inbound cooldown rejected.
func (m *Metrics) RecordDrop(kind string) {
	m.EventsDropped.WithLabelValues(kind).Inc()
}

// RecordUploadRejected counts a pre-flight upload rejection.
func (m *Metrics) RecordUploadRejected(reason string) {
	m.UploadsRejected.WithLabelValues(reason).Inc()
}

// RecordBuild counts a packaging run and its duration.
func (m *Metrics) RecordBuild(outcome string, duration time.Duration) {
	m.BuildsTotal.WithLabelValues(outcome).Inc()
	m.BuildDuration.Observe(duration.Seconds())
}

// RecordDelivery counts a delivery outcome.
func (m *Metrics) RecordDelivery(outcome string) {
	m.DeliveriesTotal.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records one ops-server request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
