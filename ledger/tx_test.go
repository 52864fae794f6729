package ledger

import (
	"bytes"
	"crypto/ed25519"
	"testing"
)

func TestCompactU16RoundTrip(t *testing.T) {
	t.Parallel()

	for _, value := range []int{0, 1, 0x7f, 0x80, 0x3fff, 0x4000, 0xffff} {
		encoded := appendCompactU16(nil, value)
		decoded, consumed, err := readCompactU16(encoded)
		if err != nil {
			t.Fatalf("value %d: decode error: %v", value, err)
		}
		if decoded != value || consumed != len(encoded) {
			t.Fatalf("value %d: got %d (consumed %d of %d)", value, decoded, consumed, len(encoded))
		}
	}
}

func TestReadCompactU16Truncated(t *testing.T) {
	t.Parallel()

	if _, _, err := readCompactU16([]byte{0x80}); err == nil {
		t.Fatal("expected error for dangling continuation byte")
	}
	if _, _, err := readCompactU16(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestAnchorDiscriminatorStable(t *testing.T) {
	t.Parallel()

	a := AnchorDiscriminator("global", "award_achievement")
	b := AnchorDiscriminator("global", "award_achievement")
	if a != b {
		t.Fatal("discriminator is not deterministic")
	}
	if a == AnchorDiscriminator("global", "revoke_achievement") {
		t.Fatal("different instruction names collided")
	}
}

func testKeypair(t *testing.T) Keypair {
	t.Helper()
	kp, err := NewKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp
}

func TestBuildPartiallySignedTransaction(t *testing.T) {
	t.Parallel()

	recipient := testKeypair(t) // fee payer, signs client-side later
	backend := testKeypair(t)
	asset := testKeypair(t)
	program := MustParseAddress("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	var blockhash [32]byte
	copy(blockhash[:], "test-blockhash-for-tx-assembly!!")

	ix := Instruction{
		Program: program,
		Accounts: []AccountMeta{
			{Address: backend.Public, IsSigner: true},
			{Address: recipient.Public, IsSigner: true, IsWritable: true},
			{Address: asset.Public, IsSigner: true, IsWritable: true},
			{Address: SystemProgram},
		},
		Data: []byte{1, 2, 3},
	}

	encoded, err := BuildPartiallySignedTransaction(
		recipient.Public,
		blockhash,
		[]Instruction{ix},
		map[Address]ed25519.PrivateKey{
			backend.Public: backend.Private,
			asset.Public:   asset.Private,
		},
	)
	if err != nil {
		t.Fatalf("build returned error: %v", err)
	}

	sigs, message, err := DecodeTransactionSignatures(encoded)
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	if len(sigs) != 3 {
		t.Fatalf("got %d signature slots, want 3", len(sigs))
	}

	// Fee payer slot comes first and stays zeroed for the client to fill.
	if !bytes.Equal(sigs[0], make([]byte, signatureLen)) {
		t.Fatal("fee payer signature slot must be zero-filled")
	}

	// The backend and asset signatures must verify against the message.
	verified := 0
	for _, sig := range sigs[1:] {
		for _, kp := range []Keypair{backend, asset} {
			if ed25519.Verify(kp.Private.Public().(ed25519.PublicKey), message, sig) {
				verified++
			}
		}
	}
	if verified != 2 {
		t.Fatalf("verified %d partial signatures, want 2", verified)
	}
}

func TestCompileMessageKeyOrdering(t *testing.T) {
	t.Parallel()

	feePayer := Address{1}
	roSigner := Address{2}
	writable := Address{3}
	readonly := Address{4}
	program := Address{5}

	ix := Instruction{
		Program: program,
		Accounts: []AccountMeta{
			{Address: readonly},
			{Address: writable, IsWritable: true},
			{Address: roSigner, IsSigner: true},
		},
	}

	message, signerOrder, err := compileMessage(feePayer, [32]byte{}, []Instruction{ix})
	if err != nil {
		t.Fatalf("compile returned error: %v", err)
	}

	// Header: 2 signers, 1 read-only signed, 2 read-only unsigned
	// (readonly + program id).
	if message[0] != 2 || message[1] != 1 || message[2] != 2 {
		t.Fatalf("unexpected header: %v", message[:3])
	}

	if len(signerOrder) != 2 || signerOrder[0] != feePayer || signerOrder[1] != roSigner {
		t.Fatalf("unexpected signer order: %v", signerOrder)
	}

	count, consumed, err := readCompactU16(message[3:])
	if err != nil {
		t.Fatalf("key count: %v", err)
	}
	if count != 5 {
		t.Fatalf("got %d keys, want 5", count)
	}

	keyBytes := message[3+consumed:]
	want := []Address{feePayer, roSigner, writable, readonly, program}
	for i, addr := range want {
		var got Address
		copy(got[:], keyBytes[i*32:])
		if got != addr {
			t.Fatalf("key %d: got %s want %s", i, got, addr)
		}
	}
}

func TestCompileMessageMergesDuplicateMetas(t *testing.T) {
	t.Parallel()

	feePayer := Address{1}
	shared := Address{2}
	program := Address{9}

	// The same account appears read-only in one instruction and writable
	// in another; attributes must be OR-merged into one key entry.
	instructions := []Instruction{
		{Program: program, Accounts: []AccountMeta{{Address: shared}}},
		{Program: program, Accounts: []AccountMeta{{Address: shared, IsWritable: true}}},
	}

	message, _, err := compileMessage(feePayer, [32]byte{}, instructions)
	if err != nil {
		t.Fatalf("compile returned error: %v", err)
	}

	count, _, err := readCompactU16(message[3:])
	if err != nil {
		t.Fatalf("key count: %v", err)
	}
	if count != 3 { // fee payer, shared, program
		t.Fatalf("got %d keys, want 3", count)
	}
	// 1 signer (fee payer), 0 read-only signed, 1 read-only unsigned
	// (the program id; shared became writable).
	if message[0] != 1 || message[1] != 0 || message[2] != 1 {
		t.Fatalf("unexpected header: %v", message[:3])
	}
}
