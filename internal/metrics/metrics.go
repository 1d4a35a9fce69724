// Package metrics exposes Prometheus instrumentation for the upload queue.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upload outcomes used as label values.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFault    = "fault"
	OutcomeDropped  = "dropped"
)

// Metrics holds the queue collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	uploads      *prometheus.CounterVec
	inFlight     prometheus.Gauge
	queued       prometheus.Gauge
	payloadBytes prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uploadq_uploads_total",
				Help: "Files that left the upload queue, by outcome.",
			},
			[]string{"outcome"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uploadq_uploads_in_flight",
			Help: "Uploads currently handed to the transport.",
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uploadq_queue_length",
			Help: "Files waiting in or being uploaded from the queue.",
		}),
		payloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uploadq_payload_bytes",
			Help:    "Estimated size of enqueued payloads.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
	}
	for _, c := range []prometheus.Collector{m.uploads, m.inFlight, m.queued, m.payloadBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Enqueued records a file entering the queue.
func (m *Metrics) Enqueued(size int64) {
	if m == nil {
		return
	}
	m.queued.Inc()
	m.payloadBytes.Observe(float64(size))
}

// Started records a dispatch to the transport.
func (m *Metrics) Started() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// Finished records a dispatched upload settling with the given outcome.
func (m *Metrics) Finished(outcome string) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.queued.Dec()
	m.uploads.WithLabelValues(outcome).Inc()
}

// Dropped records a queued file removed without being dispatched.
func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.queued.Dec()
	m.uploads.WithLabelValues(OutcomeDropped).Inc()
}
