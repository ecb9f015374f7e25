// Package metrics holds the domain counters and the metrics/health server.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BetsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betpals_bets_created_total",
		Help: "Total number of bets created",
	})

	BetTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betpals_bet_transitions_total",
			Help: "Bet status transitions by target status",
		},
		[]string{"status"},
	)

	AchievementRewards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betpals_achievement_rewards_total",
			Help: "Bet-coins paid out for achievement tiers",
		},
		[]string{"achievement"},
	)

	FriendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betpals_friend_requests_total",
			Help: "Friend request state changes",
		},
		[]string{"outcome"},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betpals_event_publish_failures_total",
			Help: "Domain events that could not be published",
		},
		[]string{"type"},
	)
)

type HealthFunc func(ctx context.Context) error

// NewServer builds the metrics server exposing /metrics and /healthz.
func NewServer(port string, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
