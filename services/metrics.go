package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Degraded ledger reads keep the product available but must never be
// silent; every fallback path increments one of these.
var (
	degradedReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "degraded_ledger_reads_total",
		Help: "Ledger read failures absorbed by a documented fallback, by call site.",
	}, []string{"site"})

	mintOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credential_mint_outcomes_total",
		Help: "Terminal mint workflow outcomes.",
	}, []string{"outcome"})

	leaderboardCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaderboard_cache_total",
		Help: "Leaderboard cache hits and misses.",
	}, []string{"result"})
)
