// Package metrics exposes Prometheus instruments for the signaling relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "signaling"

// Relay groups the relay's instruments.
type Relay struct {
	Connections prometheus.Gauge
	Messages    *prometheus.CounterVec
	Errors      *prometheus.CounterVec
	Forwarded   prometheus.Counter
	SendFailed  prometheus.Counter
	Offers      prometheus.Gauge
	Swept       prometheus.Counter
}

// New creates the instruments and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Relay {
	m := &Relay{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open signaling connections.",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound messages by type.",
		}, []string{"type"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Error replies by kind.",
		}, []string{"kind"}),
		Forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarded_total",
			Help:      "Messages forwarded to peers.",
		}),
		SendFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Frames that could not be queued on a connection.",
		}),
		Offers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sdp_offers",
			Help:      "Offers held in the rendezvous cache, including unswept expired ones.",
		}),
		Swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sdp_offers_swept_total",
			Help:      "Expired offers removed by the sweep.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Connections, m.Messages, m.Errors, m.Forwarded, m.SendFailed, m.Offers, m.Swept)
	}
	return m
}
