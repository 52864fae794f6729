// ledger/resolver.go - which token program governs a mint
package ledger

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrMintNotResolved is returned when the mint is governed by neither
// token-program variant (or does not exist).
var ErrMintNotResolved = errors.New("ledger: mint not resolved under any token program variant")

// ProgramVariant is the closed set of token-program implementations a
// mint may be governed by.
type ProgramVariant uint8

const (
	VariantExtended ProgramVariant = iota // token-2022
	VariantLegacy
)

func (v ProgramVariant) String() string {
	switch v {
	case VariantExtended:
		return "extended"
	case VariantLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// Program returns the program address implementing the variant.
func (v ProgramVariant) Program() Address {
	if v == VariantExtended {
		return TokenProgramExtended
	}
	return TokenProgramLegacy
}

// MintRuntimeConfig carries the resolved variant and decimal precision of
// a mint. Both are immutable after mint creation, so a resolved entry is
// safe to cache for the process lifetime.
type MintRuntimeConfig struct {
	Variant  ProgramVariant
	Decimals uint8
}

type accountFetcher interface {
	GetAccount(ctx context.Context, address Address) (*AccountInfo, error)
}

// MintResolver probes the extended variant first, then legacy, and caches
// successful resolutions per mint address. Failures are never cached.
type MintResolver struct {
	fetcher accountFetcher
	cache   *lru.Cache[Address, MintRuntimeConfig]
}

const mintResolverCacheSize = 128

// NewMintResolver builds a resolver over the provided account fetcher.
func NewMintResolver(fetcher accountFetcher) *MintResolver {
	cache, _ := lru.New[Address, MintRuntimeConfig](mintResolverCacheSize)
	return &MintResolver{
		fetcher: fetcher,
		cache:   cache,
	}
}

// Resolve returns the mint's runtime config, probing variants in order.
func (r *MintResolver) Resolve(ctx context.Context, mint Address) (MintRuntimeConfig, error) {
	if cfg, ok := r.cache.Get(mint); ok {
		mintResolverLookups.WithLabelValues("cached").Inc()
		return cfg, nil
	}

	info, err := r.fetcher.GetAccount(ctx, mint)
	if err != nil {
		return MintRuntimeConfig{}, err
	}

	for _, variant := range []ProgramVariant{VariantExtended, VariantLegacy} {
		cfg, err := resolveUnderVariant(info, variant)
		if err != nil {
			continue
		}
		r.cache.Add(mint, cfg)
		mintResolverLookups.WithLabelValues(variant.String()).Inc()
		return cfg, nil
	}

	mintResolverLookups.WithLabelValues("unresolved").Inc()
	return MintRuntimeConfig{}, fmt.Errorf("%w: %s", ErrMintNotResolved, mint)
}

// resolveUnderVariant decodes the mint metadata assuming a specific
// variant; it fails when the account is absent, owned by a different
// program, or undecodable under that layout.
func resolveUnderVariant(info *AccountInfo, variant ProgramVariant) (MintRuntimeConfig, error) {
	if info == nil {
		return MintRuntimeConfig{}, fmt.Errorf("mint account not found")
	}
	if info.Owner != variant.Program() {
		return MintRuntimeConfig{}, fmt.Errorf("mint not owned by %s program", variant)
	}
	decimals, err := DecodeMintDecimals(info.Data)
	if err != nil {
		return MintRuntimeConfig{}, err
	}
	return MintRuntimeConfig{Variant: variant, Decimals: decimals}, nil
}
