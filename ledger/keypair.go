// ledger/keypair.go - signing key material
package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Keypair pairs an address with the ed25519 private key able to sign for it.
type Keypair struct {
	Public  Address
	Private ed25519.PrivateKey
}

// NewKeypair generates a fresh random keypair, e.g. for a new credential
// asset account.
func NewKeypair() (Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return Keypair{Public: AddressFromPublicKey(pub), Private: priv}, nil
}

// ParseSigningKey accepts either a base58-encoded 64-byte secret key or
// a JSON byte-array (the common wallet export formats).
func ParseSigningKey(material string) (Keypair, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return Keypair{}, fmt.Errorf("signing key material is empty")
	}

	var raw []byte
	if strings.HasPrefix(material, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(material), &ints); err != nil {
			return Keypair{}, fmt.Errorf("decode json keypair: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return Keypair{}, fmt.Errorf("json keypair byte %d out of range", i)
			}
			raw[i] = byte(v)
		}
	} else {
		decoded, err := base58.Decode(material)
		if err != nil {
			return Keypair{}, fmt.Errorf("decode base58 keypair: %w", err)
		}
		raw = decoded
	}

	if len(raw) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("signing key has %d bytes, want %d", len(raw), ed25519.PrivateKeySize)
	}

	priv := ed25519.PrivateKey(raw)
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return Keypair{}, fmt.Errorf("derive public key")
	}
	return Keypair{Public: AddressFromPublicKey(pub), Private: priv}, nil
}

// SecretBase58 exports the private key in base58 wallet format.
func (k Keypair) SecretBase58() string {
	return base58.Encode(k.Private)
}
