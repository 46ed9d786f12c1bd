// Package youtube wires the video platform: state-protected authorization,
// refreshable tokens with a known lifetime, channel id as the stable
// external account identifier.
package youtube

import (
	"fmt"
	"net/url"
	"time"

	"github.com/goliatone/go-account-links/core"
	"github.com/goliatone/go-account-links/identity"
	"github.com/goliatone/go-account-links/providers"
)

const (
	ProviderID  = "youtube"
	AuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	TokenURL    = "https://oauth2.googleapis.com/token"
	ChannelsURL = "https://www.googleapis.com/youtube/v3/channels"
)

type Config struct {
	ClientID       string
	ClientSecret   string
	AuthURL        string
	TokenURL       string
	ChannelsURL    string
	DefaultScopes  []string
	TokenTTL       time.Duration
	HTTPClient     providers.HTTPDoer
	IdentityClient *identity.Client
}

func DefaultConfig() Config {
	return Config{
		AuthURL:     AuthURL,
		TokenURL:    TokenURL,
		ChannelsURL: ChannelsURL,
		DefaultScopes: []string{
			"https://www.googleapis.com/auth/youtube.readonly",
		},
		TokenTTL: time.Hour,
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
	if cfg.ChannelsURL == "" {
		cfg.ChannelsURL = defaults.ChannelsURL
	}
	if len(cfg.DefaultScopes) == 0 {
		cfg.DefaultScopes = defaults.DefaultScopes
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	identityClient := cfg.IdentityClient
	if identityClient == nil {
		identityClient = identity.NewClient(identity.Config{HTTPClient: cfg.HTTPClient})
	}

	return providers.NewOAuth2Adapter(providers.ProtocolConfig{
		ID:                      ProviderID,
		Platform:                core.PlatformVideo,
		AuthURL:                 cfg.AuthURL,
		TokenURL:                cfg.TokenURL,
		ClientID:                cfg.ClientID,
		ClientSecret:            cfg.ClientSecret,
		DefaultScopes:           cfg.DefaultScopes,
		UsesState:               true,
		IssuesRefreshToken:      true,
		LifetimeKnownAtIssuance: true,
		TokenTTL:                cfg.TokenTTL,
		// Offline access is what makes the token endpoint hand out a
		// refresh token at all.
		ExtraAuthParams: url.Values{
			"access_type": []string{"offline"},
			"prompt":      []string{"consent"},
		},
		HTTPClient: cfg.HTTPClient,
		Identity: identity.EndpointResolver{
			Client: identityClient,
			URL:    cfg.ChannelsURL,
			Query: url.Values{
				"part": []string{"id,snippet"},
				"mine": []string{"true"},
			},
			Normalize: normalizeChannelPayload,
		},
	})
}

// normalizeChannelPayload picks the authorized user's channel id. The
// channel id, not the email or the channel title, is the stable identity.
func normalizeChannelPayload(payload map[string]any) (core.ExternalIdentity, error) {
	item, ok := identity.FirstItem(payload, "items")
	if !ok {
		return core.ExternalIdentity{}, fmt.Errorf("youtube: account has no channel: %w", core.ErrIdentityUnresolvable)
	}
	channelID := identity.ReadString(item, "id")
	if channelID == "" {
		return core.ExternalIdentity{}, fmt.Errorf("youtube: channel payload has no id: %w", core.ErrIdentityUnresolvable)
	}
	return core.ExternalIdentity{
		AccountID:   channelID,
		DisplayName: identity.ReadString(item, "snippet", "title"),
		AccountType: "channel",
		Raw:         payload,
	}, nil
}
