// services/leaderboard.go - XP leaderboard from full-mint scans
package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"learnledger/ledger"
	"learnledger/utils"
)

// Timeframe selects which derived leaderboard figures to serve.
type Timeframe string

const (
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
	TimeframeAlltime Timeframe = "alltime"
)

// Timeframe projection factors. These are a placeholder heuristic over
// the all-time balance, not genuine historical deltas; see DESIGN.md.
const (
	monthlyFactor = 0.65
	weeklyFactor  = 0.3
)

const leaderboardCacheTTL = 60 * time.Second

// ParseTimeframe normalizes a query value, defaulting to alltime.
func ParseTimeframe(raw string) Timeframe {
	switch Timeframe(raw) {
	case TimeframeWeekly, TimeframeMonthly:
		return Timeframe(raw)
	default:
		return TimeframeAlltime
	}
}

// LeaderboardEntry is one ranked holder. Derived and ephemeral,
// recomputed from token-account aggregation, never persisted.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Wallet      string `json:"wallet"`
	DisplayName string `json:"display_name"`
	XP          int    `json:"xp"`
	Level       int    `json:"level"`
	Streak      int    `json:"streak"`
}

// TimeframeCache holds computed leaderboards keyed by timeframe. It is
// injected so tests control time and isolate cache state per run.
type TimeframeCache interface {
	Get(tf Timeframe, now time.Time) ([]LeaderboardEntry, bool)
	Put(tf Timeframe, entries []LeaderboardEntry, expiresAt time.Time)
}

type memoryTimeframeCache struct {
	mu      sync.Mutex
	entries map[Timeframe]timeframeCacheEntry
}

type timeframeCacheEntry struct {
	entries   []LeaderboardEntry
	expiresAt time.Time
}

// NewTimeframeCache returns the in-memory TimeframeCache implementation.
func NewTimeframeCache() TimeframeCache {
	return &memoryTimeframeCache{entries: make(map[Timeframe]timeframeCacheEntry)}
}

func (c *memoryTimeframeCache) Get(tf Timeframe, now time.Time) ([]LeaderboardEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[tf]
	if !ok || now.After(entry.expiresAt) {
		return nil, false
	}
	cloned := make([]LeaderboardEntry, len(entry.entries))
	copy(cloned, entry.entries)
	return cloned, true
}

func (c *memoryTimeframeCache) Put(tf Timeframe, entries []LeaderboardEntry, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cloned := make([]LeaderboardEntry, len(entries))
	copy(cloned, entries)
	c.entries[tf] = timeframeCacheEntry{entries: cloned, expiresAt: expiresAt}
}

// HolderScanner is the slice of the ledger reader the aggregator needs.
type HolderScanner interface {
	ScanHoldersOfMint(ctx context.Context, mint, tokenProgram ledger.Address) ([]*ledger.TokenAccountRecord, error)
}

// MintResolver resolves the token-program variant and decimals of a mint.
type MintResolver interface {
	Resolve(ctx context.Context, mint ledger.Address) (ledger.MintRuntimeConfig, error)
}

// WalletProfile enriches a ranked wallet with mirrored learner data.
type WalletProfile struct {
	DisplayName string
	Level       int
	Streak      int
}

// WalletDirectory looks up mirrored profiles for ranked wallets. May be
// nil; entries then fall back to the XP level curve and no streak.
type WalletDirectory interface {
	ProfilesByWallet(wallets []string) map[string]WalletProfile
}

// StaticHolder is one entry of the configured holder-list override for
// environments where full-mint scanning is unavailable.
type StaticHolder struct {
	Wallet string  `json:"wallet"`
	XP     float64 `json:"xp"`
}

// LeaderboardService aggregates holder balances of the XP mint into
// ranked, timeframe-adjusted leaderboards with a 60 second cache.
type LeaderboardService struct {
	Scanner       HolderScanner
	Resolver      MintResolver
	Directory     WalletDirectory
	Mint          ledger.Address
	Cache         TimeframeCache
	Aliases       map[string]string
	StaticHolders []StaticHolder
	Logger        utils.Logger
	Now           func() time.Time
}

// NewLeaderboardService wires the aggregator with its default cache and
// clock.
func NewLeaderboardService(scanner HolderScanner, resolver MintResolver, mint ledger.Address) *LeaderboardService {
	return &LeaderboardService{
		Scanner:  scanner,
		Resolver: resolver,
		Mint:     mint,
		Cache:    NewTimeframeCache(),
		Logger:   utils.NewLogger("leaderboard"),
		Now:      time.Now,
	}
}

func (s *LeaderboardService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *LeaderboardService) logger() utils.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return utils.NewDiscardLogger()
}

// Leaderboard returns the ranked entries for a timeframe, serving from
// cache within the TTL. Concurrent cache misses may race into duplicate
// scans; both produce equivalent data and the last writer wins.
func (s *LeaderboardService) Leaderboard(ctx context.Context, tf Timeframe) ([]LeaderboardEntry, error) {
	now := s.now()
	if entries, ok := s.Cache.Get(tf, now); ok {
		leaderboardCacheTotal.WithLabelValues("hit").Inc()
		return entries, nil
	}
	leaderboardCacheTotal.WithLabelValues("miss").Inc()

	totals, err := s.holderTotals(ctx)
	if err != nil {
		return nil, err
	}

	entries := s.rank(totals, tf)
	s.Cache.Put(tf, entries, s.now().Add(leaderboardCacheTTL))
	return entries, nil
}

// Rank returns one wallet's position for a timeframe, 0 when unranked.
func (s *LeaderboardService) Rank(ctx context.Context, tf Timeframe, wallet string) (LeaderboardEntry, bool, error) {
	entries, err := s.Leaderboard(ctx, tf)
	if err != nil {
		return LeaderboardEntry{}, false, err
	}
	for _, entry := range entries {
		if entry.Wallet == wallet {
			return entry, true, nil
		}
	}
	return LeaderboardEntry{}, false, nil
}

// holderTotals sums converted balances per owner wallet.
func (s *LeaderboardService) holderTotals(ctx context.Context) (map[string]float64, error) {
	if len(s.StaticHolders) > 0 {
		totals := make(map[string]float64, len(s.StaticHolders))
		for _, holder := range s.StaticHolders {
			totals[holder.Wallet] += holder.XP
		}
		return totals, nil
	}

	cfg, err := s.Resolver.Resolve(ctx, s.Mint)
	if err != nil {
		return nil, fmt.Errorf("resolve xp mint: %w", err)
	}

	records, err := s.Scanner.ScanHoldersOfMint(ctx, s.Mint, cfg.Variant.Program())
	if err != nil {
		return nil, fmt.Errorf("scan holders: %w", err)
	}

	// One owner may hold several token accounts for the mint. Sum the
	// raw amounts first and divide once, so large balances keep integer
	// precision all the way to the floor.
	raw := make(map[string]uint64)
	for _, record := range records {
		if record.RawAmount == 0 {
			continue
		}
		raw[record.Owner.String()] += record.RawAmount
	}

	divisor := uint64(math.Pow10(int(cfg.Decimals)))
	totals := make(map[string]float64, len(raw))
	for wallet, amount := range raw {
		totals[wallet] = float64(amount / divisor)
	}
	return totals, nil
}

// rank converts owner totals into sorted, timeframe-adjusted entries
// with dense 1-based ranks over the positive-XP holders.
func (s *LeaderboardService) rank(totals map[string]float64, tf Timeframe) []LeaderboardEntry {
	type holderTotal struct {
		wallet string
		total  float64
	}

	holders := make([]holderTotal, 0, len(totals))
	for wallet, total := range totals {
		if total <= 0 {
			continue
		}
		holders = append(holders, holderTotal{wallet: wallet, total: total})
	}
	sort.Slice(holders, func(i, j int) bool {
		if holders[i].total != holders[j].total {
			return holders[i].total > holders[j].total
		}
		return holders[i].wallet < holders[j].wallet
	})

	wallets := make([]string, len(holders))
	for i, holder := range holders {
		wallets[i] = holder.wallet
	}
	profiles := s.profiles(wallets)

	entries := make([]LeaderboardEntry, 0, len(holders))
	for _, holder := range holders {
		xp := timeframeXP(holder.total, tf)
		if xp <= 0 {
			continue
		}
		entry := LeaderboardEntry{
			Rank:   len(entries) + 1,
			Wallet: holder.wallet,
			XP:     xp,
		}
		if profile, ok := profiles[holder.wallet]; ok {
			entry.DisplayName = profile.DisplayName
			entry.Level = profile.Level
			entry.Streak = profile.Streak
		}
		if entry.DisplayName == "" {
			entry.DisplayName = s.displayName(holder.wallet)
		}
		if entry.Level == 0 {
			entry.Level = LevelForXP(xp)
		}
		entries = append(entries, entry)
	}
	return entries
}

// timeframeXP projects the all-time balance onto a timeframe. Heuristic
// percentages, not historical truth.
func timeframeXP(total float64, tf Timeframe) int {
	switch tf {
	case TimeframeWeekly:
		return int(math.Floor(total * weeklyFactor))
	case TimeframeMonthly:
		return int(math.Floor(total * monthlyFactor))
	default:
		return int(math.Floor(total))
	}
}

func (s *LeaderboardService) profiles(wallets []string) map[string]WalletProfile {
	if s.Directory == nil || len(wallets) == 0 {
		return nil
	}
	return s.Directory.ProfilesByWallet(wallets)
}

// displayName prefers a configured alias, then truncates the address to
// its first and last four characters.
func (s *LeaderboardService) displayName(wallet string) string {
	if alias, ok := s.Aliases[wallet]; ok && alias != "" {
		return alias
	}
	if len(wallet) <= 8 {
		return wallet
	}
	return wallet[:4] + ".." + wallet[len(wallet)-4:]
}
