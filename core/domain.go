package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPlatform      = errors.New("core: invalid platform")
	ErrLinkedAccountMissing = errors.New("core: linked account not found")
)

// Platform identifies the kind of external content platform an account
// belongs to. Each platform maps to exactly one registered provider adapter.
type Platform string

const (
	PlatformVideo     Platform = "video"
	PlatformPhoto     Platform = "photo"
	PlatformMicroblog Platform = "microblog"
)

func ParsePlatform(value string) (Platform, error) {
	normalized := Platform(strings.TrimSpace(strings.ToLower(value)))
	switch normalized {
	case PlatformVideo, PlatformPhoto, PlatformMicroblog:
		return normalized, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, value)
	}
}

func (p Platform) Validate() error {
	_, err := ParsePlatform(string(p))
	return err
}

func (p Platform) String() string {
	return string(p)
}

// Capabilities declares the protocol variant a provider adapter drives.
// Every platform-specific quirk is declared here once; the orchestrator
// never branches on platform identity.
type Capabilities struct {
	UsesPKCE                bool
	UsesState               bool
	IssuesRefreshToken      bool
	LifetimeKnownAtIssuance bool
}

// LinkedAccount is the durable pairing of one external platform account to
// one local user and its current credential. The (Platform,
// ExternalAccountID) pair is unique across all rows; the store enforces it
// at insert time.
type LinkedAccount struct {
	ID                string
	Platform          Platform
	ExternalAccountID string
	OwnerUserID       string
	AccessToken       string
	RefreshToken      string
	TokenType         string
	ExpiresAt         *time.Time
	DisplayName       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Summary strips credential material for anything that leaves the library.
func (a LinkedAccount) Summary() LinkedAccountSummary {
	return LinkedAccountSummary{
		ID:                a.ID,
		Platform:          a.Platform,
		ExternalAccountID: a.ExternalAccountID,
		OwnerUserID:       a.OwnerUserID,
		DisplayName:       a.DisplayName,
		TokenExpiresAt:    cloneTimePointer(a.ExpiresAt),
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

type LinkedAccountSummary struct {
	ID                string
	Platform          Platform
	ExternalAccountID string
	OwnerUserID       string
	DisplayName       string
	TokenExpiresAt    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PendingLink is the ephemeral record of one in-flight authorization
// round-trip. It lives in the session cache under an opaque session
// reference, is valid for at most the configured TTL, and is consumed by
// exactly one CompleteLink call.
type PendingLink struct {
	OwnerUserID  string
	Platform     Platform
	State        string
	PKCEVerifier string
	RedirectURI  string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// TokenGrant is the credential material a provider adapter obtains from a
// token endpoint. ExpiresAt is nil for platforms whose token lifetime is not
// known at issuance.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scopes       []string
	ExpiresAt    *time.Time
}

// ExternalIdentity is the platform-stable account identity resolved with a
// fresh access token. AccountID is the platform-assigned identifier, never
// the mutable username.
type ExternalIdentity struct {
	AccountID   string
	DisplayName string
	AccountType string
	Raw         map[string]any
}

// FreshCredential is what EnsureFreshCredential hands back to callers that
// are about to use a stored token.
type FreshCredential struct {
	LinkedAccountID string
	AccessToken     string
	TokenType       string
	ExpiresAt       *time.Time
	Refreshed       bool
}

func normalizeTokenType(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "bearer"
	}
	return normalized
}

func cloneTimePointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := value.UTC()
	return &clone
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
