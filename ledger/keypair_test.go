package ledger

import (
	"fmt"
	"strings"
	"testing"
)

func TestParseSigningKeyBase58RoundTrip(t *testing.T) {
	t.Parallel()

	kp, err := NewKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	parsed, err := ParseSigningKey(kp.SecretBase58())
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if parsed.Public != kp.Public {
		t.Fatal("round trip changed the public key")
	}
}

func TestParseSigningKeyJSONArray(t *testing.T) {
	t.Parallel()

	kp, err := NewKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	parts := make([]string, len(kp.Private))
	for i, b := range kp.Private {
		parts[i] = fmt.Sprintf("%d", b)
	}
	material := "[" + strings.Join(parts, ",") + "]"

	parsed, err := ParseSigningKey(material)
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if parsed.Public != kp.Public {
		t.Fatal("json export did not parse to the same key")
	}
}

func TestParseSigningKeyRejectsBadMaterial(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "  ", "[1,2,3]", "[300]", "not!!base58", "abc"} {
		if _, err := ParseSigningKey(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
