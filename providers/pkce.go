package providers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// pkceVerifierBytes is the entropy behind the code verifier. 32 bytes
// encodes to 43 base64url characters, the RFC 7636 minimum length.
const pkceVerifierBytes = 32

// GeneratePKCEPair returns a fresh code verifier and its S256 challenge.
// The challenge is derived from the encoded verifier string, not the raw
// bytes; that is the form the token endpoint will hash for comparison.
func GeneratePKCEPair() (verifier string, challenge string, err error) {
	raw := make([]byte, pkceVerifierBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("providers: generate pkce verifier: %w", err)
	}
	verifier = base64.RawURLEncoding.EncodeToString(raw)
	challenge = PKCEChallengeS256(verifier)
	return verifier, challenge, nil
}

// PKCEChallengeS256 computes base64url(SHA-256(verifier)) without padding.
func PKCEChallengeS256(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}
