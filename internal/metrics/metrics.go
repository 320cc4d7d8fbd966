package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BetsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_bets_settled_total",
		Help: "Settled bets by game type and result.",
	}, []string{"game", "result"})

	InsufficientFunds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casino_insufficient_funds_total",
		Help: "Bets rejected for insufficient balance.",
	})

	AutoBetIterations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_autobet_iterations_total",
		Help: "AutoBet iterations by terminal status.",
	}, []string{"status"})

	SeedRotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casino_seed_rotations_total",
		Help: "Seed pair rotations performed.",
	})
)

// Result label helper for BetsSettled.
func ResultLabel(won bool) string {
	if won {
		return "win"
	}
	return "loss"
}
