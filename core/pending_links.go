package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultPendingLinkTTL bounds how long an authorization round-trip may
// stay open before the callback is rejected.
const DefaultPendingLinkTTL = 10 * time.Minute

// MemoryPendingLinkStore is the default session cache. Consume removes the
// entry before checking expiry, so a reference is spent by its first use
// whether or not that use succeeds.
type MemoryPendingLinkStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]PendingLink
}

func NewMemoryPendingLinkStore(ttl time.Duration) *MemoryPendingLinkStore {
	if ttl <= 0 {
		ttl = DefaultPendingLinkTTL
	}
	return &MemoryPendingLinkStore{
		ttl:     ttl,
		entries: map[string]PendingLink{},
	}
}

func (s *MemoryPendingLinkStore) Save(_ context.Context, sessionRef string, link PendingLink) error {
	if s == nil {
		return fmt.Errorf("core: pending link store is not configured")
	}
	sessionRef = strings.TrimSpace(sessionRef)
	if sessionRef == "" {
		return fmt.Errorf("core: session reference is required")
	}
	if strings.TrimSpace(link.State) == "" && strings.TrimSpace(link.PKCEVerifier) == "" {
		return fmt.Errorf("core: pending link carries neither state nor pkce verifier")
	}

	now := time.Now().UTC()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	if link.ExpiresAt.IsZero() {
		link.ExpiresAt = link.CreatedAt.Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[sessionRef] = link
	s.mu.Unlock()

	return nil
}

func (s *MemoryPendingLinkStore) Consume(_ context.Context, sessionRef string) (PendingLink, error) {
	if s == nil {
		return PendingLink{}, fmt.Errorf("core: pending link store is not configured")
	}
	sessionRef = strings.TrimSpace(sessionRef)
	if sessionRef == "" {
		return PendingLink{}, fmt.Errorf("core: session reference is required: %w", ErrSessionExpired)
	}

	s.mu.Lock()
	link, ok := s.entries[sessionRef]
	if ok {
		delete(s.entries, sessionRef)
	}
	s.mu.Unlock()

	if !ok {
		return PendingLink{}, fmt.Errorf("core: link session not found: %w", ErrSessionExpired)
	}
	if !link.ExpiresAt.IsZero() && time.Now().UTC().After(link.ExpiresAt) {
		return PendingLink{}, fmt.Errorf("core: link session expired at %s: %w", link.ExpiresAt.Format(time.RFC3339), ErrSessionExpired)
	}

	return link, nil
}

// GenerateSessionRef returns the opaque reference a PendingLink is stored
// under. It is distinct from the OAuth state value; the two never double
// for one another.
func GenerateSessionRef() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate session reference: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

var _ PendingLinkStore = (*MemoryPendingLinkStore)(nil)
