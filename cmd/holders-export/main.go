// Scans every holder of the XP mint over raw RPC and prints their
// balances as JSON. Useful for seeding LEADERBOARD_STATIC_HOLDERS or
// auditing the on-chain totals against the leaderboard endpoint.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"learnledger/ledger"
)

type holderExport struct {
	Wallet string  `json:"wallet"`
	Raw    uint64  `json:"raw"`
	XP     float64 `json:"xp"`
}

func main() {
	endpoint := flag.String("endpoint", os.Getenv("RPC_ENDPOINT"), "ledger RPC endpoint")
	mintArg := flag.String("mint", os.Getenv("XP_MINT"), "XP mint address")
	timeout := flag.Duration("timeout", 60*time.Second, "scan timeout")
	flag.Parse()

	if *endpoint == "" || *mintArg == "" {
		fmt.Println("error: -endpoint and -mint are required (or RPC_ENDPOINT / XP_MINT)")
		os.Exit(1)
	}
	mint, err := ledger.ParseAddress(*mintArg)
	if err != nil {
		fmt.Println("error: invalid mint address:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := ledger.NewClient(*endpoint, ledger.Address{})
	resolver := ledger.NewMintResolver(client)

	cfg, err := resolver.Resolve(ctx, mint)
	if err != nil {
		fmt.Println("error: cannot resolve mint:", err)
		os.Exit(1)
	}

	records, err := client.ScanHoldersOfMint(ctx, mint, cfg.Variant.Program())
	if err != nil {
		fmt.Println("error: holder scan failed:", err)
		os.Exit(1)
	}

	totals := make(map[string]uint64)
	for _, rec := range records {
		totals[rec.Owner.String()] += rec.RawAmount
	}

	divisor := math.Pow10(int(cfg.Decimals))
	holders := make([]holderExport, 0, len(totals))
	for wallet, raw := range totals {
		holders = append(holders, holderExport{
			Wallet: wallet,
			Raw:    raw,
			XP:     float64(raw) / divisor,
		})
	}
	sort.Slice(holders, func(i, j int) bool {
		if holders[i].Raw != holders[j].Raw {
			return holders[i].Raw > holders[j].Raw
		}
		return holders[i].Wallet < holders[j].Wallet
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(holders); err != nil {
		fmt.Println("error: encode:", err)
		os.Exit(1)
	}
}
