package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GamesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bc_games_started_total",
			Help: "Games started (new sessions and resets)",
		},
	)
	GuessesSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bc_guesses_submitted_total",
			Help: "Guesses accepted and scored",
		},
	)
	GamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bc_games_finished_total",
			Help: "Games that reached a terminal status",
		},
		[]string{"result"},
	)
	RejectedActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bc_rejected_actions_total",
			Help: "Player actions rejected by the engine",
		},
		[]string{"code"},
	)
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bc_ws_connections",
			Help: "Open WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(GamesStarted)
	prometheus.MustRegister(GuessesSubmitted)
	prometheus.MustRegister(GamesFinished)
	prometheus.MustRegister(RejectedActions)
	prometheus.MustRegister(WSConnections)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
