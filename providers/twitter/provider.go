// Package twitter wires the microblog platform: PKCE and state on every
// authorization, refreshable tokens via the offline.access scope, and the
// numeric user id as the stable external account identifier.
package twitter

import (
	"fmt"

	"github.com/goliatone/go-account-links/core"
	"github.com/goliatone/go-account-links/identity"
	"github.com/goliatone/go-account-links/providers"
)

const (
	ProviderID = "twitter"
	AuthURL    = "https://twitter.com/i/oauth2/authorize"
	TokenURL   = "https://api.twitter.com/2/oauth2/token"
	MeURL      = "https://api.twitter.com/2/users/me"
)

type Config struct {
	ClientID       string
	ClientSecret   string
	AuthURL        string
	TokenURL       string
	MeURL          string
	DefaultScopes  []string
	HTTPClient     providers.HTTPDoer
	IdentityClient *identity.Client
}

func DefaultConfig() Config {
	return Config{
		AuthURL:  AuthURL,
		TokenURL: TokenURL,
		MeURL:    MeURL,
		DefaultScopes: []string{
			"tweet.read",
			"users.read",
			"offline.access",
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
	if cfg.MeURL == "" {
		cfg.MeURL = defaults.MeURL
	}
	if len(cfg.DefaultScopes) == 0 {
		cfg.DefaultScopes = defaults.DefaultScopes
	}
	identityClient := cfg.IdentityClient
	if identityClient == nil {
		identityClient = identity.NewClient(identity.Config{HTTPClient: cfg.HTTPClient})
	}

	return providers.NewOAuth2Adapter(providers.ProtocolConfig{
		ID:                      ProviderID,
		Platform:                core.PlatformMicroblog,
		AuthURL:                 cfg.AuthURL,
		TokenURL:                cfg.TokenURL,
		ClientID:                cfg.ClientID,
		ClientSecret:            cfg.ClientSecret,
		DefaultScopes:           cfg.DefaultScopes,
		UsesPKCE:                true,
		UsesState:               true,
		IssuesRefreshToken:      true,
		LifetimeKnownAtIssuance: true,
		HTTPClient:              cfg.HTTPClient,
		Identity: identity.EndpointResolver{
			Client:    identityClient,
			URL:       cfg.MeURL,
			Normalize: normalizeMePayload,
		},
	})
}

func normalizeMePayload(payload map[string]any) (core.ExternalIdentity, error) {
	accountID := identity.ReadString(payload, "data", "id")
	if accountID == "" {
		return core.ExternalIdentity{}, fmt.Errorf("twitter: me payload has no data.id: %w", core.ErrIdentityUnresolvable)
	}
	return core.ExternalIdentity{
		AccountID:   accountID,
		DisplayName: identity.ReadString(payload, "data", "name"),
		AccountType: "user",
		Raw:         payload,
	}, nil
}
