package services

import (
	"context"
	"testing"
	"time"

	"learnledger/ledger"
	"learnledger/utils"
)

type fakeScanner struct {
	calls   int
	records []*ledger.TokenAccountRecord
	err     error
}

func (f *fakeScanner) ScanHoldersOfMint(_ context.Context, _, _ ledger.Address) ([]*ledger.TokenAccountRecord, error) {
	f.calls++
	return f.records, f.err
}

type fakeResolver struct {
	cfg ledger.MintRuntimeConfig
	err error
}

func (f *fakeResolver) Resolve(_ context.Context, _ ledger.Address) (ledger.MintRuntimeConfig, error) {
	return f.cfg, f.err
}

type fakeDirectory struct {
	profiles map[string]WalletProfile
}

func (f *fakeDirectory) ProfilesByWallet(_ []string) map[string]WalletProfile {
	return f.profiles
}

func tokenRecord(owner ledger.Address, raw uint64) *ledger.TokenAccountRecord {
	return &ledger.TokenAccountRecord{Owner: owner, RawAmount: raw}
}

func testLeaderboard(scanner *fakeScanner, decimals uint8) *LeaderboardService {
	s := NewLeaderboardService(scanner, &fakeResolver{
		cfg: ledger.MintRuntimeConfig{Variant: ledger.VariantLegacy, Decimals: decimals},
	}, ledger.Address{0xAA})
	s.Logger = utils.NewDiscardLogger()
	return s
}

func TestLeaderboardSumsAccountsPerOwner(t *testing.T) {
	t.Parallel()

	owner1 := ledger.Address{1}
	owner2 := ledger.Address{2}

	// owner1 holds two accounts of the same mint; they must be summed
	// before the decimal conversion.
	scanner := &fakeScanner{records: []*ledger.TokenAccountRecord{
		tokenRecord(owner1, 1_500_000),
		tokenRecord(owner1, 2_500_000),
		tokenRecord(owner2, 3_000_000),
		tokenRecord(ledger.Address{3}, 0), // zero balances are discarded
	}}
	s := testLeaderboard(scanner, 6)

	entries, err := s.Leaderboard(context.Background(), TimeframeAlltime)
	if err != nil {
		t.Fatalf("leaderboard returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Wallet != owner1.String() || entries[0].XP != 4 {
		t.Fatalf("unexpected top entry: %+v", entries[0])
	}
	if entries[1].Wallet != owner2.String() || entries[1].XP != 3 {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 {
		t.Fatal("ranks must be dense and 1-based")
	}
}

func TestLeaderboardKeepsIntegerPrecisionForLargeBalances(t *testing.T) {
	t.Parallel()

	// Raw amounts above 2^53 lose their low bits if they pass through
	// float64 before being summed. The per-owner total must stay exact.
	owner := ledger.Address{1}
	scanner := &fakeScanner{records: []*ledger.TokenAccountRecord{
		tokenRecord(owner, 1<<53+1),
		tokenRecord(owner, 1),
	}}
	s := testLeaderboard(scanner, 0)

	entries, err := s.Leaderboard(context.Background(), TimeframeAlltime)
	if err != nil {
		t.Fatalf("leaderboard returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if want := 1<<53 + 2; entries[0].XP != want {
		t.Fatalf("got XP %d, want %d", entries[0].XP, want)
	}
}

func TestLeaderboardTimeframeMonotonicity(t *testing.T) {
	t.Parallel()

	scanner := &fakeScanner{records: []*ledger.TokenAccountRecord{
		tokenRecord(ledger.Address{1}, 10_000),
		tokenRecord(ledger.Address{2}, 777),
	}}
	s := testLeaderboard(scanner, 0)

	byTF := map[Timeframe]map[string]int{}
	for _, tf := range []Timeframe{TimeframeWeekly, TimeframeMonthly, TimeframeAlltime} {
		entries, err := s.Leaderboard(context.Background(), tf)
		if err != nil {
			t.Fatalf("%s: %v", tf, err)
		}
		byTF[tf] = map[string]int{}
		for _, e := range entries {
			byTF[tf][e.Wallet] = e.XP
		}
	}

	for wallet, alltime := range byTF[TimeframeAlltime] {
		weekly := byTF[TimeframeWeekly][wallet]
		monthly := byTF[TimeframeMonthly][wallet]
		if !(weekly <= monthly && monthly <= alltime) {
			t.Fatalf("%s: weekly=%d monthly=%d alltime=%d not monotonic", wallet, weekly, monthly, alltime)
		}
	}
}

func TestLeaderboardCacheTTL(t *testing.T) {
	t.Parallel()

	scanner := &fakeScanner{records: []*ledger.TokenAccountRecord{
		tokenRecord(ledger.Address{1}, 100),
	}}
	s := testLeaderboard(scanner, 0)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		if _, err := s.Leaderboard(context.Background(), TimeframeAlltime); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if scanner.calls != 1 {
		t.Fatalf("expected 1 scan within TTL, got %d", scanner.calls)
	}

	// Within the window: still cached.
	current = current.Add(59 * time.Second)
	if _, err := s.Leaderboard(context.Background(), TimeframeAlltime); err != nil {
		t.Fatal(err)
	}
	if scanner.calls != 1 {
		t.Fatalf("expected cache hit at 59s, got %d scans", scanner.calls)
	}

	// Past the window: recompute.
	current = current.Add(2 * time.Second)
	if _, err := s.Leaderboard(context.Background(), TimeframeAlltime); err != nil {
		t.Fatal(err)
	}
	if scanner.calls != 2 {
		t.Fatalf("expected rescan after TTL, got %d scans", scanner.calls)
	}
}

func TestLeaderboardStaticHoldersBypassScan(t *testing.T) {
	t.Parallel()

	scanner := &fakeScanner{}
	s := testLeaderboard(scanner, 0)
	s.StaticHolders = []StaticHolder{
		{Wallet: "walletA", XP: 500},
		{Wallet: "walletB", XP: 900},
	}

	entries, err := s.Leaderboard(context.Background(), TimeframeAlltime)
	if err != nil {
		t.Fatalf("leaderboard returned error: %v", err)
	}
	if scanner.calls != 0 {
		t.Fatal("static holders must not trigger a scan")
	}
	if len(entries) != 2 || entries[0].Wallet != "walletB" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestLeaderboardDisplayNames(t *testing.T) {
	t.Parallel()

	long := ledger.Address{9}
	scanner := &fakeScanner{records: []*ledger.TokenAccountRecord{
		tokenRecord(long, 100),
	}}
	s := testLeaderboard(scanner, 0)

	entries, err := s.Leaderboard(context.Background(), TimeframeAlltime)
	if err != nil {
		t.Fatal(err)
	}
	wallet := long.String()
	want := wallet[:4] + ".." + wallet[len(wallet)-4:]
	if entries[0].DisplayName != want {
		t.Fatalf("got %q want truncated %q", entries[0].DisplayName, want)
	}

	// A configured alias wins over truncation.
	s2 := testLeaderboard(&fakeScanner{records: scanner.records}, 0)
	s2.Aliases = map[string]string{wallet: "Ada"}
	entries, err = s2.Leaderboard(context.Background(), TimeframeAlltime)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].DisplayName != "Ada" {
		t.Fatalf("got %q want alias", entries[0].DisplayName)
	}
}

func TestLeaderboardDirectoryEnrichment(t *testing.T) {
	t.Parallel()

	owner := ledger.Address{5}
	scanner := &fakeScanner{records: []*ledger.TokenAccountRecord{
		tokenRecord(owner, 4200),
	}}
	s := testLeaderboard(scanner, 0)
	s.Directory = &fakeDirectory{profiles: map[string]WalletProfile{
		owner.String(): {DisplayName: "Grace", Level: 7, Streak: 12},
	}}

	entries, err := s.Leaderboard(context.Background(), TimeframeAlltime)
	if err != nil {
		t.Fatal(err)
	}
	e := entries[0]
	if e.DisplayName != "Grace" || e.Level != 7 || e.Streak != 12 {
		t.Fatalf("profile not applied: %+v", e)
	}
}

func TestRankFindsWallet(t *testing.T) {
	t.Parallel()

	a := ledger.Address{1}
	b := ledger.Address{2}
	scanner := &fakeScanner{records: []*ledger.TokenAccountRecord{
		tokenRecord(a, 100),
		tokenRecord(b, 900),
	}}
	s := testLeaderboard(scanner, 0)

	entry, found, err := s.Rank(context.Background(), TimeframeAlltime, a.String())
	if err != nil {
		t.Fatal(err)
	}
	if !found || entry.Rank != 2 {
		t.Fatalf("got found=%v rank=%d, want rank 2", found, entry.Rank)
	}

	_, found, err = s.Rank(context.Background(), TimeframeAlltime, "unknown-wallet")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("unknown wallet must be unranked")
	}
}

func TestParseTimeframe(t *testing.T) {
	t.Parallel()

	if ParseTimeframe("weekly") != TimeframeWeekly {
		t.Fatal("weekly not parsed")
	}
	if ParseTimeframe("monthly") != TimeframeMonthly {
		t.Fatal("monthly not parsed")
	}
	for _, raw := range []string{"", "alltime", "yearly", "ALLTIME"} {
		if ParseTimeframe(raw) != TimeframeAlltime {
			t.Fatalf("%q should default to alltime", raw)
		}
	}
}
