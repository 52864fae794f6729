package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_rpc_requests_total",
		Help: "JSON-RPC calls against the ledger endpoint by method and outcome.",
	}, []string{"method", "outcome"})

	rpcScanAccountsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_scan_accounts_total",
		Help: "Holder accounts returned by full-mint program scans.",
	})

	mintResolverLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_mint_resolver_lookups_total",
		Help: "Mint runtime resolutions by result (cached, extended, legacy, unresolved).",
	}, []string{"result"})
)

func observeRPC(method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	rpcRequestsTotal.WithLabelValues(method, outcome).Inc()
}
