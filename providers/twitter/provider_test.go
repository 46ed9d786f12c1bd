package twitter

import (
	"errors"
	"testing"

	"github.com/goliatone/go-account-links/core"
)

func TestNewCapabilities(t *testing.T) {
	provider, err := New(Config{ClientID: "client-1", ClientSecret: "secret-1"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if provider.Platform() != core.PlatformMicroblog {
		t.Fatalf("unexpected platform %q", provider.Platform())
	}
	caps := provider.Capabilities()
	if !caps.UsesPKCE || !caps.UsesState || !caps.IssuesRefreshToken || !caps.LifetimeKnownAtIssuance {
		t.Fatalf("unexpected capabilities %+v", caps)
	}
}

func TestNormalizeMePayload(t *testing.T) {
	identity, err := normalizeMePayload(map[string]any{
		"data": map[string]any{
			"id":       "2244994945",
			"name":     "API Account",
			"username": "apiaccount",
		},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if identity.AccountID != "2244994945" {
		t.Fatalf("unexpected account id %q", identity.AccountID)
	}
	if identity.DisplayName != "API Account" {
		t.Fatalf("unexpected display name %q", identity.DisplayName)
	}
	if identity.AccountType != "user" {
		t.Fatalf("unexpected account type %q", identity.AccountType)
	}
}

func TestNormalizeMePayloadMissingID(t *testing.T) {
	_, err := normalizeMePayload(map[string]any{"data": map[string]any{"name": "Ghost"}})
	if !errors.Is(err, core.ErrIdentityUnresolvable) {
		t.Fatalf("expected identity unresolvable, got %v", err)
	}
}
