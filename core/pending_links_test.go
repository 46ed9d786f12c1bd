package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryPendingLinkStoreSaveAndConsume(t *testing.T) {
	store := NewMemoryPendingLinkStore(time.Minute)

	link := PendingLink{
		OwnerUserID: "user-1",
		Platform:    PlatformMicroblog,
		State:       "state-1",
	}
	if err := store.Save(context.Background(), "ref-1", link); err != nil {
		t.Fatalf("save: %v", err)
	}

	consumed, err := store.Consume(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if consumed.OwnerUserID != "user-1" || consumed.State != "state-1" {
		t.Fatalf("unexpected record: %+v", consumed)
	}
	if consumed.CreatedAt.IsZero() || consumed.ExpiresAt.IsZero() {
		t.Fatalf("expected timestamps to be filled: %+v", consumed)
	}

	if _, err := store.Consume(context.Background(), "ref-1"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("second consume must fail with session expired, got %v", err)
	}
}

func TestMemoryPendingLinkStoreExpiry(t *testing.T) {
	store := NewMemoryPendingLinkStore(time.Minute)

	expired := time.Now().UTC().Add(-time.Second)
	link := PendingLink{
		OwnerUserID: "user-1",
		Platform:    PlatformVideo,
		State:       "state-1",
		CreatedAt:   expired.Add(-time.Minute),
		ExpiresAt:   expired,
	}
	if err := store.Save(context.Background(), "ref-1", link); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := store.Consume(context.Background(), "ref-1"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
	// Expired entry is gone after the failed consume.
	if _, err := store.Consume(context.Background(), "ref-1"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected session expired on retry, got %v", err)
	}
}

func TestMemoryPendingLinkStoreAcceptsVerifierOnly(t *testing.T) {
	store := NewMemoryPendingLinkStore(time.Minute)

	// A provider without state protection still carries a PKCE verifier.
	link := PendingLink{
		OwnerUserID:  "user-1",
		Platform:     PlatformMicroblog,
		PKCEVerifier: "verifier-1",
	}
	if err := store.Save(context.Background(), "ref-1", link); err != nil {
		t.Fatalf("save verifier-only link: %v", err)
	}

	consumed, err := store.Consume(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if consumed.State != "" || consumed.PKCEVerifier != "verifier-1" {
		t.Fatalf("unexpected record: %+v", consumed)
	}
}

func TestMemoryPendingLinkStoreValidation(t *testing.T) {
	store := NewMemoryPendingLinkStore(0)

	if err := store.Save(context.Background(), " ", PendingLink{State: "state"}); err == nil {
		t.Fatalf("expected error for blank session reference")
	}
	if err := store.Save(context.Background(), "ref", PendingLink{}); err == nil {
		t.Fatalf("expected error when neither state nor verifier is present")
	}
	if _, err := store.Consume(context.Background(), ""); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected session expired for blank reference, got %v", err)
	}
}

func TestGenerateSessionRef(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		ref, err := GenerateSessionRef()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(ref) < 32 {
			t.Fatalf("reference too short: %q", ref)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference %q", ref)
		}
		seen[ref] = true
	}
}
