// Package metrics holds the prometheus collectors of the watch party server
// and the participant CLI.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Playback sync
	PlaybackPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_playback_publishes_total",
			Help: "Playback state publishes by result (accepted, stale, error)",
		},
		[]string{"result"},
	)

	PlaybackPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_playback_polls_total",
			Help: "Playback state polls by result (ok, empty, error)",
		},
		[]string{"result"},
	)

	ReconcileActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_reconcile_actions_total",
			Help: "Actions emitted by playback reconciliation by kind",
		},
		[]string{"kind"},
	)

	DriftSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "watchparty_drift_seconds",
			Help:    "Absolute drift between local and estimated remote position",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	SkippedTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchparty_skipped_ticks_total",
			Help: "Polling loop ticks skipped because of store errors, by loop",
		},
		[]string{"loop"},
	)

	// Chat
	ChatMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "watchparty_chat_messages_total",
			Help: "Chat messages appended",
		},
	)

	// Presence
	Heartbeats = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "watchparty_presence_heartbeats_total",
			Help: "Presence heartbeats written",
		},
	)

	PresenceSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "watchparty_presence_swept_total",
			Help: "Stale presence entries removed by the sweeper",
		},
	)

	// Rooms
	RoomsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "watchparty_rooms_created_total",
			Help: "Rooms created",
		},
	)

	// API
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watchparty_api_request_duration_seconds",
			Help:    "HTTP API request duration by route pattern, method and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	PushConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "watchparty_push_connections",
			Help: "Open websocket push connections",
		},
	)

	PushMessageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watchparty_push_message_duration_seconds",
			Help:    "Handling time of client websocket frames by type and outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(PlaybackPublishes)
	prometheus.MustRegister(PlaybackPolls)
	prometheus.MustRegister(ReconcileActions)
	prometheus.MustRegister(DriftSeconds)
	prometheus.MustRegister(SkippedTicks)
	prometheus.MustRegister(ChatMessages)
	prometheus.MustRegister(Heartbeats)
	prometheus.MustRegister(PresenceSwept)
	prometheus.MustRegister(RoomsCreated)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(PushConnections)
	prometheus.MustRegister(PushMessageDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

func (t *Timer) ObserveDuration(o prometheus.Observer) {
	o.Observe(t.Duration().Seconds())
}
