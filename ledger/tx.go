// ledger/tx.go - legacy transaction assembly and partial signing
package ledger

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const signatureLen = 64

// AccountMeta describes one account an instruction touches, in the fixed
// order the on-chain program expects.
type AccountMeta struct {
	Address    Address
	IsSigner   bool
	IsWritable bool
}

// Instruction is one program invocation inside a transaction.
type Instruction struct {
	Program  Address
	Accounts []AccountMeta
	Data     []byte
}

// AnchorDiscriminator computes the 8-byte instruction discriminator
// sha256("namespace:name")[:8].
func AnchorDiscriminator(namespace, name string) [8]byte {
	hash := sha256.Sum256([]byte(namespace + ":" + name))
	var disc [8]byte
	copy(disc[:], hash[:8])
	return disc
}

// appendCompactU16 writes the shortvec length encoding used by the wire
// format.
func appendCompactU16(dst []byte, value int) []byte {
	v := uint16(value)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// readCompactU16 decodes a shortvec length; used by tests and by the
// duplicate-broadcast inspection path.
func readCompactU16(data []byte) (int, int, error) {
	var value, shift uint
	for i := 0; i < len(data) && i < 3; i++ {
		value |= uint(data[i]&0x7f) << shift
		if data[i]&0x80 == 0 {
			return int(value), i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("truncated compact-u16")
}

// compiledKey tracks the signer/writable attributes accumulated for one
// address across all instructions.
type compiledKey struct {
	address  Address
	signer   bool
	writable bool
}

// compileMessage orders account keys per the wire rules: fee payer first,
// then remaining writable signers, read-only signers, writable
// non-signers and read-only non-signers. Program ids are read-only
// non-signers.
func compileMessage(feePayer Address, blockhash [32]byte, instructions []Instruction) ([]byte, []Address, error) {
	index := make(map[Address]*compiledKey)
	order := make([]Address, 0)

	upsert := func(addr Address, signer, writable bool) {
		entry, ok := index[addr]
		if !ok {
			entry = &compiledKey{address: addr}
			index[addr] = entry
			order = append(order, addr)
		}
		entry.signer = entry.signer || signer
		entry.writable = entry.writable || writable
	}

	upsert(feePayer, true, true)
	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			upsert(meta.Address, meta.IsSigner, meta.IsWritable)
		}
		upsert(ix.Program, false, false)
	}

	buckets := [4][]*compiledKey{}
	for _, addr := range order {
		entry := index[addr]
		if addr == feePayer {
			continue
		}
		switch {
		case entry.signer && entry.writable:
			buckets[0] = append(buckets[0], entry)
		case entry.signer:
			buckets[1] = append(buckets[1], entry)
		case entry.writable:
			buckets[2] = append(buckets[2], entry)
		default:
			buckets[3] = append(buckets[3], entry)
		}
	}

	keys := []*compiledKey{index[feePayer]}
	for _, bucket := range buckets {
		keys = append(keys, bucket...)
	}

	var numSigners, numReadonlySigned, numReadonlyUnsigned int
	position := make(map[Address]int, len(keys))
	for i, entry := range keys {
		position[entry.address] = i
		if entry.signer {
			numSigners++
			if !entry.writable {
				numReadonlySigned++
			}
		} else if !entry.writable {
			numReadonlyUnsigned++
		}
	}

	var msg []byte
	msg = append(msg, byte(numSigners), byte(numReadonlySigned), byte(numReadonlyUnsigned))
	msg = appendCompactU16(msg, len(keys))
	for _, entry := range keys {
		msg = append(msg, entry.address[:]...)
	}
	msg = append(msg, blockhash[:]...)

	msg = appendCompactU16(msg, len(instructions))
	for _, ix := range instructions {
		programIdx, ok := position[ix.Program]
		if !ok {
			return nil, nil, fmt.Errorf("program %s not compiled", ix.Program)
		}
		msg = append(msg, byte(programIdx))
		msg = appendCompactU16(msg, len(ix.Accounts))
		for _, meta := range ix.Accounts {
			msg = append(msg, byte(position[meta.Address]))
		}
		msg = appendCompactU16(msg, len(ix.Data))
		msg = append(msg, ix.Data...)
	}

	signerOrder := make([]Address, 0, numSigners)
	for _, entry := range keys {
		if entry.signer {
			signerOrder = append(signerOrder, entry.address)
		}
	}
	return msg, signerOrder, nil
}

// BuildPartiallySignedTransaction assembles a legacy transaction, signs
// the message with every private key supplied, zero-fills the signature
// slots of the remaining required signers (typically the fee-paying
// recipient) and returns the base64 wire bytes.
func BuildPartiallySignedTransaction(
	feePayer Address,
	blockhash [32]byte,
	instructions []Instruction,
	keys map[Address]ed25519.PrivateKey,
) (string, error) {
	message, signerOrder, err := compileMessage(feePayer, blockhash, instructions)
	if err != nil {
		return "", err
	}

	var tx []byte
	tx = appendCompactU16(tx, len(signerOrder))
	for _, signer := range signerOrder {
		key, ok := keys[signer]
		if !ok {
			tx = append(tx, make([]byte, signatureLen)...)
			continue
		}
		if len(key) != ed25519.PrivateKeySize {
			return "", fmt.Errorf("signer %s: invalid private key length %d", signer, len(key))
		}
		tx = append(tx, ed25519.Sign(key, message)...)
	}
	tx = append(tx, message...)

	return base64.StdEncoding.EncodeToString(tx), nil
}

// DecodeTransactionSignatures splits base64 wire bytes back into the
// signature slots and message. Used by tests and confirm-side validation.
func DecodeTransactionSignatures(encoded string) ([][]byte, []byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("decode transaction: %w", err)
	}
	count, consumed, err := readCompactU16(raw)
	if err != nil {
		return nil, nil, err
	}
	offset := consumed
	sigs := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		if offset+signatureLen > len(raw) {
			return nil, nil, fmt.Errorf("truncated signature %d", i)
		}
		sigs = append(sigs, bytes.Clone(raw[offset:offset+signatureLen]))
		offset += signatureLen
	}
	return sigs, raw[offset:], nil
}
