package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	peersConnected prometheus.Gauge
	roomsActive    prometheus.Gauge

	signalEvents        *prometheus.CounterVec
	signalEventsDropped *prometheus.CounterVec
	joinFailures        *prometheus.CounterVec

	joinDuration prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		peersConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "roomcast_peers_connected",
			Help: "Number of peers currently registered",
		}),

		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "roomcast_rooms_active",
			Help: "Number of rooms with at least one member",
		}),

		signalEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roomcast_signal_events_total",
			Help: "Signaling events processed, by event type",
		}, []string{"type"}),

		signalEventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roomcast_signal_events_dropped_total",
			Help: "Signaling events dropped without effect, by reason",
		}, []string{"reason"}),

		joinFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roomcast_join_failures_total",
			Help: "Failed join attempts, by reason",
		}, []string{"reason"}),

		joinDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "roomcast_join_duration_seconds",
			Help:    "Time from join request to token reply",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
	}
}

func (p *PrometheusCollector) RecordPeerJoined(roomCreated bool) {
	p.peersConnected.Inc()
	if roomCreated {
		p.roomsActive.Inc()
	}
}

func (p *PrometheusCollector) RecordPeerLeft(roomDeleted bool) {
	p.peersConnected.Dec()
	if roomDeleted {
		p.roomsActive.Dec()
	}
}

func (p *PrometheusCollector) RecordSignalEvent(eventType string) {
	p.signalEvents.WithLabelValues(eventType).Inc()
}

func (p *PrometheusCollector) RecordDroppedEvent(reason string) {
	p.signalEventsDropped.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) RecordJoinFailure(reason string) {
	p.joinFailures.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) RecordJoinDuration(seconds float64) {
	p.joinDuration.Observe(seconds)
}
