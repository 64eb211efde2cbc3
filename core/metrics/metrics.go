// Package metrics holds the prometheus collectors of the sync core. They are
// registered on Registry rather than the global default registry so that the
// status endpoint only exposes client metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var Registry = prometheus.NewRegistry()

var (
	GatewayConnects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "drocsid",
		Subsystem: "gateway",
		Name:      "connects_total",
		Help:      "Successful gateway socket opens.",
	})

	GatewayReconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drocsid",
		Subsystem: "gateway",
		Name:      "reconnects_scheduled_total",
		Help:      "Reconnects scheduled after an unintentional close, by reason.",
	}, []string{"reason"})

	GatewayHeartbeats = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "drocsid",
		Subsystem: "gateway",
		Name:      "heartbeats_sent_total",
		Help:      "Heartbeat frames sent.",
	})

	DispatchEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drocsid",
		Subsystem: "store",
		Name:      "dispatch_events_total",
		Help:      "Dispatch events applied, by event name and outcome.",
	}, []string{"event", "outcome"})

	CacheEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "drocsid",
		Subsystem: "store",
		Name:      "cache_evictions_total",
		Help:      "Channel message caches evicted by the LRU governor.",
	})

	CachedChannels = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "drocsid",
		Subsystem: "store",
		Name:      "cached_channels",
		Help:      "Channels with a materialized message cache.",
	})

	Rollbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drocsid",
		Subsystem: "store",
		Name:      "optimistic_rollbacks_total",
		Help:      "Optimistic mutations reverted after the server rejected them.",
	}, []string{"action"})

	AcksSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drocsid",
		Subsystem: "readstate",
		Name:      "acks_total",
		Help:      "Read acknowledgements sent, by outcome.",
	}, []string{"outcome"})

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drocsid",
		Subsystem: "notifications",
		Name:      "decisions_total",
		Help:      "Notification decisions for foreign messages, by decision.",
	}, []string{"decision"})

	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drocsid",
		Subsystem: "api",
		Name:      "token_refreshes_total",
		Help:      "Access token refresh attempts, by outcome.",
	}, []string{"outcome"})
)

func init() {
	Registry.MustRegister(
		GatewayConnects,
		GatewayReconnects,
		GatewayHeartbeats,
		DispatchEvents,
		CacheEvictions,
		CachedChannels,
		Rollbacks,
		AcksSent,
		Notifications,
		TokenRefreshes,
	)
}
