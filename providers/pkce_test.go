package providers

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestGeneratePKCEPair(t *testing.T) {
	verifier, challenge, err := GeneratePKCEPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(verifier) != 43 {
		t.Fatalf("expected 43 verifier chars, got %d", len(verifier))
	}
	if _, err := base64.RawURLEncoding.DecodeString(verifier); err != nil {
		t.Fatalf("verifier is not base64url: %v", err)
	}
	if challenge != PKCEChallengeS256(verifier) {
		t.Fatalf("challenge does not match the verifier")
	}
	if challenge == verifier {
		t.Fatalf("challenge must differ from the verifier")
	}
}

func TestGeneratePKCEPairUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		verifier, _, err := GeneratePKCEPair()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if seen[verifier] {
			t.Fatalf("duplicate verifier generated")
		}
		seen[verifier] = true
	}
}

func TestPKCEChallengeS256(t *testing.T) {
	digest := sha256.Sum256([]byte("verifier-value"))
	want := base64.RawURLEncoding.EncodeToString(digest[:])
	if got := PKCEChallengeS256("verifier-value"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
