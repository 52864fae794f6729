// ledger/address.go - addresses and deterministic derivation
package ledger

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const addressLen = 32

// Address is a 32-byte ledger account address.
type Address [addressLen]byte

// Well-known program addresses.
var (
	SystemProgram          = MustParseAddress("11111111111111111111111111111111")
	TokenProgramLegacy     = MustParseAddress("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	TokenProgramExtended   = MustParseAddress("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	AssociatedTokenProgram = MustParseAddress("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// PDA seed tags of the achievement program.
var (
	seedConfig          = []byte("config")
	seedAchievementType = []byte("achievement")
	seedReceipt         = []byte("receipt")
	seedMinterRole      = []byte("minter")
)

var pdaMarker = []byte("ProgramDerivedAddress")

// ErrNoViableBump is returned when no bump seed in [255..0] produces an
// off-curve address. Practically unreachable for honest inputs.
var ErrNoViableBump = errors.New("ledger: unable to find viable program address bump")

// ParseAddress decodes a base58 address and checks its length.
func ParseAddress(s string) (Address, error) {
	var addr Address
	raw, err := base58.Decode(s)
	if err != nil {
		return addr, fmt.Errorf("decode address %q: %w", s, err)
	}
	if len(raw) != addressLen {
		return addr, fmt.Errorf("address %q has %d bytes, want %d", s, len(raw), addressLen)
	}
	copy(addr[:], raw)
	return addr, nil
}

// MustParseAddress parses a base58 address and panics on failure. Reserved
// for compile-time constants.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// AddressFromBytes copies a 32-byte slice into an Address.
func AddressFromBytes(raw []byte) (Address, error) {
	var addr Address
	if len(raw) != addressLen {
		return addr, fmt.Errorf("address has %d bytes, want %d", len(raw), addressLen)
	}
	copy(addr[:], raw)
	return addr, nil
}

// AddressFromPublicKey converts an ed25519 public key.
func AddressFromPublicKey(key ed25519.PublicKey) Address {
	var addr Address
	copy(addr[:], key)
	return addr
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) Bytes() []byte {
	out := make([]byte, addressLen)
	copy(out, a[:])
	return out
}

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// isOnCurve reports whether the 32 bytes decompress to a valid ed25519
// point. Program-derived addresses must be off curve so no private key
// can ever sign for them.
func isOnCurve(candidate []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(candidate)
	return err == nil
}

// createProgramAddress hashes seeds + bump + program id + marker and
// rejects on-curve results.
func createProgramAddress(seeds [][]byte, program Address) (Address, error) {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write(pdaMarker)
	digest := h.Sum(nil)

	if isOnCurve(digest) {
		return Address{}, errors.New("ledger: derived address is on curve")
	}
	return AddressFromBytes(digest)
}

// FindProgramAddress searches bump seeds from 255 downward until the
// derived address lands off curve, mirroring the runtime's derivation.
func FindProgramAddress(seeds [][]byte, program Address) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		full := make([][]byte, 0, len(seeds)+1)
		full = append(full, seeds...)
		full = append(full, []byte{uint8(bump)})
		addr, err := createProgramAddress(full, program)
		if err == nil {
			return addr, uint8(bump), nil
		}
	}
	return Address{}, 0, ErrNoViableBump
}

// DeriveConfigAddress returns the program's singleton config account.
func DeriveConfigAddress(program Address) (Address, error) {
	addr, _, err := FindProgramAddress([][]byte{seedConfig}, program)
	return addr, err
}

// DeriveAchievementTypeAddress returns the catalog account for one
// achievement id.
func DeriveAchievementTypeAddress(program Address, achievementID string) (Address, error) {
	addr, _, err := FindProgramAddress([][]byte{seedAchievementType, []byte(achievementID)}, program)
	return addr, err
}

// DeriveReceiptAddress returns the proof-of-award account for an
// (achievement, recipient) pair. Its existence is the sole idempotency
// guard for minting.
func DeriveReceiptAddress(program Address, achievementID string, recipient Address) (Address, error) {
	addr, _, err := FindProgramAddress([][]byte{seedReceipt, []byte(achievementID), recipient[:]}, program)
	return addr, err
}

// DeriveMinterRoleAddress returns the backend signer's role account.
func DeriveMinterRoleAddress(program Address, minter Address) (Address, error) {
	addr, _, err := FindProgramAddress([][]byte{seedMinterRole, minter[:]}, program)
	return addr, err
}

// DeriveAssociatedTokenAddress returns the owner's associated token
// account for a mint under the provided token program variant.
func DeriveAssociatedTokenAddress(owner, mint, tokenProgram Address) (Address, error) {
	addr, _, err := FindProgramAddress(
		[][]byte{owner[:], tokenProgram[:], mint[:]},
		AssociatedTokenProgram,
	)
	return addr, err
}
