package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// WSActiveConnections tracks currently registered gateway connections.
	WSActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "resaleo_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)

	// WSEventsTotal counts gateway events by type and direction.
	WSEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resaleo_ws_events_total",
			Help: "Total number of websocket events handled by the gateway.",
		},
		[]string{"event", "direction"},
	)

	// WSDroppedClientsTotal counts connections dropped because their send
	// buffer filled up.
	WSDroppedClientsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resaleo_ws_dropped_clients_total",
			Help: "Total number of websocket clients dropped due to slow consumption.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		WSActiveConnections,
		WSEventsTotal,
		WSDroppedClientsTotal,
	)
}

// EventReceived records a client-to-gateway event.
func EventReceived(event string) {
	WSEventsTotal.WithLabelValues(event, "in").Inc()
}

// EventEmitted records a gateway-to-client event.
func EventEmitted(event string) {
	WSEventsTotal.WithLabelValues(event, "out").Inc()
}
