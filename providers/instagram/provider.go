// Package instagram wires the photo platform: state-protected
// authorization, client secret in the token request body, long-lived
// tokens with no refresh grant, and a business-account eligibility gate.
package instagram

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-account-links/core"
	"github.com/goliatone/go-account-links/identity"
	"github.com/goliatone/go-account-links/providers"
)

const (
	ProviderID = "instagram"
	AuthURL    = "https://api.instagram.com/oauth/authorize"
	TokenURL   = "https://api.instagram.com/oauth/access_token"
	ProfileURL = "https://graph.instagram.com/me"
)

// eligibleAccountTypes lists the account types allowed to link. Personal
// accounts cannot use the content APIs this library exists to feed.
var eligibleAccountTypes = map[string]bool{
	"business":      true,
	"creator":       true,
	"media_creator": true,
}

type Config struct {
	ClientID       string
	ClientSecret   string
	AuthURL        string
	TokenURL       string
	ProfileURL     string
	DefaultScopes  []string
	HTTPClient     providers.HTTPDoer
	IdentityClient *identity.Client
}

func DefaultConfig() Config {
	return Config{
		AuthURL:    AuthURL,
		TokenURL:   TokenURL,
		ProfileURL: ProfileURL,
		DefaultScopes: []string{
			"instagram_business_basic",
		},
	}
}

func New(cfg Config) (core.Provider, error) {
	defaults := DefaultConfig()
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaults.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaults.TokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaults.ProfileURL
	}
	if len(cfg.DefaultScopes) == 0 {
		cfg.DefaultScopes = defaults.DefaultScopes
	}
	identityClient := cfg.IdentityClient
	if identityClient == nil {
		identityClient = identity.NewClient(identity.Config{HTTPClient: cfg.HTTPClient})
	}

	return providers.NewOAuth2Adapter(providers.ProtocolConfig{
		ID:            ProviderID,
		Platform:      core.PlatformPhoto,
		AuthURL:       cfg.AuthURL,
		TokenURL:      cfg.TokenURL,
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		DefaultScopes: cfg.DefaultScopes,
		UsesState:     true,
		// The token endpoint rejects basic auth; the secret travels in
		// the form body.
		ClientSecretInBody: true,
		// Long-lived tokens expire but there is no refresh grant; the
		// user re-links when the token dies.
		IssuesRefreshToken:      false,
		LifetimeKnownAtIssuance: false,
		HTTPClient:              cfg.HTTPClient,
		Identity: identity.EndpointResolver{
			Client: identityClient,
			URL:    cfg.ProfileURL,
			Query: url.Values{
				"fields": []string{"id,username,account_type"},
			},
			Normalize: normalizeProfilePayload,
		},
	})
}

func normalizeProfilePayload(payload map[string]any) (core.ExternalIdentity, error) {
	accountID := identity.ReadString(payload, "id")
	if accountID == "" {
		return core.ExternalIdentity{}, fmt.Errorf("instagram: profile payload has no id: %w", core.ErrIdentityUnresolvable)
	}
	accountType := strings.ToLower(identity.ReadString(payload, "account_type"))
	if !eligibleAccountTypes[accountType] {
		return core.ExternalIdentity{}, fmt.Errorf(
			"instagram: account type %q is not eligible for linking: %w",
			accountType, core.ErrIdentityUnresolvable,
		)
	}
	return core.ExternalIdentity{
		AccountID:   accountID,
		DisplayName: identity.ReadString(payload, "username"),
		AccountType: accountType,
		Raw:         payload,
	}, nil
}
