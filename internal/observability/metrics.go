package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InteractionToggles counts ledger toggles by relation and resulting state.
	InteractionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_interaction_toggles_total",
		Help: "Total number of like/favorite toggles by relation and result",
	}, []string{"relation", "result"})

	// InteractionRaces counts toggles that lost an insert race to a concurrent writer.
	InteractionRaces = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_interaction_insert_races_total",
		Help: "Total number of toggles resolved by the uniqueness constraint",
	}, []string{"relation"})

	// EventsPublished counts domain events by type and outcome.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_events_published_total",
		Help: "Total number of domain events published",
	}, []string{"event_type", "outcome"})

	// Uploads counts stored uploads by kind and outcome.
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_uploads_total",
		Help: "Total number of image uploads",
	}, []string{"kind", "outcome"})

	// WebSocketBackpressureDrops counts messages dropped because a client buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
