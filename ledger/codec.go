// ledger/codec.go - binary account layouts
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedAccount is returned when raw account bytes are shorter than
// the layout requires. Callers must treat this as fatal and never substitute
// default field values.
var ErrMalformedAccount = errors.New("ledger: malformed account data")

const (
	accountDiscriminatorLen = 8

	// SPL token account layout offsets.
	tokenAccountMintOffset   = 0
	tokenAccountOwnerOffset  = 32
	tokenAccountAmountOffset = 64
	tokenAccountMinLen       = 72

	// SPL mint layout: decimals byte sits behind the mint authority
	// option (4+32) and the supply u64.
	mintDecimalsOffset = 44
)

// byteCursor walks a raw account buffer left to right. Every read advances
// the offset and fails loudly when the remaining bytes are insufficient;
// the buffer boundaries are computed, not declared, because variable-length
// string fields precede the fixed-width tail.
type byteCursor struct {
	data   []byte
	offset int
}

func newByteCursor(data []byte) *byteCursor {
	return &byteCursor{data: data}
}

func (c *byteCursor) remaining() int {
	return len(c.data) - c.offset
}

func (c *byteCursor) require(n int) error {
	if n < 0 || c.remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrMalformedAccount, n, c.offset, c.remaining())
	}
	return nil
}

func (c *byteCursor) skip(n int) error {
	if err := c.require(n); err != nil {
		return err
	}
	c.offset += n
	return nil
}

func (c *byteCursor) readU32LE() (uint32, error) {
	if err := c.require(4); err != nil {
		return 0, err
	}
	value := binary.LittleEndian.Uint32(c.data[c.offset:])
	c.offset += 4
	return value, nil
}

func (c *byteCursor) readU64LE() (uint64, error) {
	if err := c.require(8); err != nil {
		return 0, err
	}
	value := binary.LittleEndian.Uint64(c.data[c.offset:])
	c.offset += 8
	return value, nil
}

func (c *byteCursor) readFixedBytes(n int) ([]byte, error) {
	if err := c.require(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, c.data[c.offset:c.offset+n])
	c.offset += n
	return out, nil
}

// readLengthPrefixedString consumes a 4-byte little-endian length followed
// by that many UTF-8 bytes.
func (c *byteCursor) readLengthPrefixedString() (string, error) {
	length, err := c.readU32LE()
	if err != nil {
		return "", err
	}
	raw, err := c.readFixedBytes(int(length))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (c *byteCursor) skipLengthPrefixedString() error {
	length, err := c.readU32LE()
	if err != nil {
		return err
	}
	return c.skip(int(length))
}

// AchievementTypeAccount is the on-ledger catalog account for one
// achievement. Mutated only by the on-chain program; read-only here.
type AchievementTypeAccount struct {
	ID          string
	Name        string
	URI         string
	Collection  Address
	Creator     Address
	MaxSupply   uint32
	MintedCount uint32
}

// SupplyExhausted reports whether the capped supply has been fully minted.
// MaxSupply == 0 means uncapped.
func (a *AchievementTypeAccount) SupplyExhausted() bool {
	return a.MaxSupply > 0 && a.MintedCount >= a.MaxSupply
}

// DecodeAchievementTypeAccount parses the raw account bytes: an 8-byte
// discriminator, three length-prefixed strings (id, name, uri) whose
// lengths are data-dependent, then the fixed tail of collection (32),
// creator (32), maxSupply (u32 LE) and mintedCount (u32 LE).
func DecodeAchievementTypeAccount(data []byte) (*AchievementTypeAccount, error) {
	cursor := newByteCursor(data)
	if err := cursor.skip(accountDiscriminatorLen); err != nil {
		return nil, err
	}

	id, err := cursor.readLengthPrefixedString()
	if err != nil {
		return nil, err
	}
	name, err := cursor.readLengthPrefixedString()
	if err != nil {
		return nil, err
	}
	uri, err := cursor.readLengthPrefixedString()
	if err != nil {
		return nil, err
	}

	collection, err := cursor.readFixedBytes(addressLen)
	if err != nil {
		return nil, err
	}
	creator, err := cursor.readFixedBytes(addressLen)
	if err != nil {
		return nil, err
	}
	maxSupply, err := cursor.readU32LE()
	if err != nil {
		return nil, err
	}
	mintedCount, err := cursor.readU32LE()
	if err != nil {
		return nil, err
	}

	account := &AchievementTypeAccount{
		ID:          id,
		Name:        name,
		URI:         uri,
		MaxSupply:   maxSupply,
		MintedCount: mintedCount,
	}
	copy(account.Collection[:], collection)
	copy(account.Creator[:], creator)
	return account, nil
}

// TokenAccountRecord is one holder account of a mint. One owner may hold
// several of these for the same mint.
type TokenAccountRecord struct {
	Account   Address
	Mint      Address
	Owner     Address
	RawAmount uint64
}

// DecodeTokenAccount parses the fixed SPL token-account layout:
// mint at offset 0, owner at 32, raw amount (u64 LE) at 64.
func DecodeTokenAccount(pubkey Address, data []byte) (*TokenAccountRecord, error) {
	if len(data) < tokenAccountMinLen {
		return nil, fmt.Errorf("%w: token account is %d bytes, want >= %d",
			ErrMalformedAccount, len(data), tokenAccountMinLen)
	}

	record := &TokenAccountRecord{Account: pubkey}
	copy(record.Mint[:], data[tokenAccountMintOffset:])
	copy(record.Owner[:], data[tokenAccountOwnerOffset:])
	record.RawAmount = DecodeRawAmount(data[tokenAccountAmountOffset : tokenAccountAmountOffset+8])
	return record, nil
}

// DecodeRawAmount sums a little-endian byte sequence of arbitrary width
// by positional byte shift. Widths beyond 8 bytes saturate into the low
// 64 bits, matching the on-ledger u64 amount domain.
func DecodeRawAmount(raw []byte) uint64 {
	var amount uint64
	for i, b := range raw {
		if i >= 8 {
			break
		}
		amount |= uint64(b) << (8 * i)
	}
	return amount
}

// DecodeMintDecimals extracts the decimal precision byte from a raw mint
// account.
func DecodeMintDecimals(data []byte) (uint8, error) {
	if len(data) <= mintDecimalsOffset {
		return 0, fmt.Errorf("%w: mint account is %d bytes, want > %d",
			ErrMalformedAccount, len(data), mintDecimalsOffset)
	}
	return data[mintDecimalsOffset], nil
}
