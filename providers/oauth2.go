package providers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-account-links/core"
)

const (
	defaultTokenRequestTimeout = 30 * time.Second
	maxTokenResponseBodyBytes  = 1 << 20 // 1 MiB
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// IdentityResolver turns a fresh token grant into the platform-stable
// external account identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, grant core.TokenGrant) (core.ExternalIdentity, error)
}

// ProtocolConfig declares one platform's exact OAuth2 dialect. The shared
// adapter branches only on these flags, never on provider identity.
type ProtocolConfig struct {
	ID                      string
	Platform                core.Platform
	AuthURL                 string
	TokenURL                string
	ClientID                string
	ClientSecret            string
	ClientSecretInBody      bool
	DefaultScopes           []string
	UsesPKCE                bool
	UsesState               bool
	IssuesRefreshToken      bool
	LifetimeKnownAtIssuance bool
	TokenTTL                time.Duration
	TokenRequestTimeout     time.Duration
	// ExtraAuthParams carries platform oddities the authorization URL
	// needs beyond the standard parameters, e.g. access_type=offline.
	ExtraAuthParams url.Values
	Now             func() time.Time
	HTTPClient      HTTPDoer
	Identity        IdentityResolver
}

type OAuth2Adapter struct {
	cfg        ProtocolConfig
	httpClient HTTPDoer
}

type tokenEndpointPayload struct {
	AccessToken      string
	TokenType        string
	RefreshToken     string
	Scope            string
	ExpiresIn        int64
	ErrorCode        string
	ErrorDescription string
}

func NewOAuth2Adapter(cfg ProtocolConfig) (*OAuth2Adapter, error) {
	cfg.ID = strings.TrimSpace(strings.ToLower(cfg.ID))
	if cfg.ID == "" {
		return nil, fmt.Errorf("providers: provider id is required")
	}
	if err := cfg.Platform.Validate(); err != nil {
		return nil, fmt.Errorf("providers: provider %q: %w", cfg.ID, err)
	}
	if strings.TrimSpace(cfg.AuthURL) == "" {
		return nil, fmt.Errorf("providers: auth url is required for provider %q", cfg.ID)
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, fmt.Errorf("providers: token url is required for provider %q", cfg.ID)
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("providers: client id is required for provider %q", cfg.ID)
	}

	cfg.AuthURL = strings.TrimSpace(cfg.AuthURL)
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.DefaultScopes = normalizeScopes(cfg.DefaultScopes)
	if cfg.TokenRequestTimeout <= 0 {
		cfg.TokenRequestTimeout = defaultTokenRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time {
			return time.Now().UTC()
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.TokenRequestTimeout}
	}

	return &OAuth2Adapter{
		cfg:        cfg,
		httpClient: httpClient,
	}, nil
}

func (p *OAuth2Adapter) ID() string {
	if p == nil {
		return ""
	}
	return p.cfg.ID
}

func (p *OAuth2Adapter) Platform() core.Platform {
	if p == nil {
		return ""
	}
	return p.cfg.Platform
}

func (p *OAuth2Adapter) Capabilities() core.Capabilities {
	if p == nil {
		return core.Capabilities{}
	}
	return core.Capabilities{
		UsesPKCE:                p.cfg.UsesPKCE,
		UsesState:               p.cfg.UsesState,
		IssuesRefreshToken:      p.cfg.IssuesRefreshToken,
		LifetimeKnownAtIssuance: p.cfg.LifetimeKnownAtIssuance,
	}
}

func (p *OAuth2Adapter) BuildAuthorizationRequest(_ context.Context, in core.BuildAuthorizationInput) (core.AuthorizationRequest, error) {
	if p == nil {
		return core.AuthorizationRequest{}, fmt.Errorf("providers: oauth2 adapter is nil")
	}
	requested := normalizeScopes(in.Scopes)
	if len(requested) == 0 {
		requested = append([]string(nil), p.cfg.DefaultScopes...)
	}

	values := url.Values{}
	values.Set("response_type", "code")
	values.Set("client_id", p.cfg.ClientID)
	if redirectURI := strings.TrimSpace(in.RedirectURI); redirectURI != "" {
		values.Set("redirect_uri", redirectURI)
	}
	if len(requested) > 0 {
		values.Set("scope", strings.Join(requested, " "))
	}
	for key, items := range p.cfg.ExtraAuthParams {
		for _, item := range items {
			values.Add(key, item)
		}
	}

	pending := core.PendingLink{
		OwnerUserID: strings.TrimSpace(in.OwnerUserID),
		Platform:    p.cfg.Platform,
		RedirectURI: strings.TrimSpace(in.RedirectURI),
	}

	if p.cfg.UsesState {
		state, err := generateAuthorizationState()
		if err != nil {
			return core.AuthorizationRequest{}, err
		}
		pending.State = state
		values.Set("state", state)
	}
	if p.cfg.UsesPKCE {
		// Only the challenge travels; the raw verifier stays server-side
		// until the code exchange.
		verifier, challenge, err := GeneratePKCEPair()
		if err != nil {
			return core.AuthorizationRequest{}, err
		}
		pending.PKCEVerifier = verifier
		values.Set("code_challenge", challenge)
		values.Set("code_challenge_method", "S256")
	}

	authURL := p.cfg.AuthURL
	if strings.Contains(authURL, "?") {
		authURL += "&" + values.Encode()
	} else {
		authURL += "?" + values.Encode()
	}

	return core.AuthorizationRequest{
		URL:     authURL,
		Pending: pending,
	}, nil
}

func (p *OAuth2Adapter) ExchangeCode(ctx context.Context, code string, pending core.PendingLink) (core.TokenGrant, error) {
	if p == nil {
		return core.TokenGrant{}, fmt.Errorf("providers: oauth2 adapter is nil")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return core.TokenGrant{}, fmt.Errorf("providers: authorization code is required: %w", core.ErrExchangeFailed)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	if redirectURI := strings.TrimSpace(pending.RedirectURI); redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	if p.cfg.UsesPKCE {
		verifier := strings.TrimSpace(pending.PKCEVerifier)
		if verifier == "" {
			return core.TokenGrant{}, fmt.Errorf("providers: pkce verifier missing from link session: %w", core.ErrExchangeFailed)
		}
		form.Set("code_verifier", verifier)
	}

	token, err := p.fetchToken(ctx, form)
	if err != nil {
		return core.TokenGrant{}, fmt.Errorf("%w: %w", core.ErrExchangeFailed, err)
	}
	return p.grantFromPayload(token), nil
}

func (p *OAuth2Adapter) ResolveExternalAccountID(ctx context.Context, grant core.TokenGrant) (core.ExternalIdentity, error) {
	if p == nil {
		return core.ExternalIdentity{}, fmt.Errorf("providers: oauth2 adapter is nil")
	}
	if p.cfg.Identity == nil {
		return core.ExternalIdentity{}, fmt.Errorf("providers: identity resolver is not configured for %q: %w", p.cfg.ID, core.ErrIdentityUnresolvable)
	}
	identity, err := p.cfg.Identity.Resolve(ctx, grant)
	if err != nil {
		return core.ExternalIdentity{}, err
	}
	if strings.TrimSpace(identity.AccountID) == "" {
		return core.ExternalIdentity{}, fmt.Errorf("providers: identity endpoint returned no account id for %q: %w", p.cfg.ID, core.ErrIdentityUnresolvable)
	}
	return identity, nil
}

func (p *OAuth2Adapter) Refresh(ctx context.Context, refreshToken string) (core.TokenGrant, error) {
	if p == nil {
		return core.TokenGrant{}, fmt.Errorf("providers: oauth2 adapter is nil")
	}
	if !p.cfg.IssuesRefreshToken {
		// No network call; the platform simply has no refresh grant.
		return core.TokenGrant{}, fmt.Errorf("providers: %q does not issue refresh tokens: %w", p.cfg.ID, core.ErrRefreshUnsupported)
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return core.TokenGrant{}, fmt.Errorf("providers: refresh token is required")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	token, err := p.fetchToken(ctx, form)
	if err != nil {
		return core.TokenGrant{}, err
	}
	return p.grantFromPayload(token), nil
}

func (p *OAuth2Adapter) grantFromPayload(token tokenEndpointPayload) core.TokenGrant {
	now := p.cfg.Now().UTC()
	return core.TokenGrant{
		AccessToken:  strings.TrimSpace(token.AccessToken),
		RefreshToken: strings.TrimSpace(token.RefreshToken),
		TokenType:    normalizeTokenType(token.TokenType),
		Scopes:       parseScopeList(token.Scope),
		ExpiresAt:    p.resolveExpiresAt(now, token.ExpiresIn),
	}
}

func (p *OAuth2Adapter) fetchToken(ctx context.Context, form url.Values) (tokenEndpointPayload, error) {
	if p.httpClient == nil {
		return tokenEndpointPayload{}, fmt.Errorf("providers: oauth2 http client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	values := url.Values{}
	for key, items := range form {
		if strings.TrimSpace(key) == "" {
			continue
		}
		for _, item := range items {
			values.Add(key, strings.TrimSpace(item))
		}
	}
	values.Set("client_id", p.cfg.ClientID)
	if p.cfg.ClientSecretInBody && p.cfg.ClientSecret != "" {
		values.Set("client_secret", p.cfg.ClientSecret)
	}

	requestCtx := ctx
	cancel := func() {}
	if p.cfg.TokenRequestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, p.cfg.TokenRequestTimeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		p.cfg.TokenURL,
		strings.NewReader(values.Encode()),
	)
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if !p.cfg.ClientSecretInBody && p.cfg.ClientSecret != "" {
		httpReq.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	}

	response, err := p.httpClient.Do(httpReq)
	if err != nil {
		return tokenEndpointPayload{}, fmt.Errorf("providers: token request failed: %w", err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenResponseBodyBytes+1))
	if readErr != nil {
		return tokenEndpointPayload{}, fmt.Errorf("providers: read token response: %w", readErr)
	}
	if int64(len(body)) > maxTokenResponseBodyBytes {
		return tokenEndpointPayload{}, fmt.Errorf("providers: token response exceeds %d bytes", maxTokenResponseBodyBytes)
	}

	payload, parseErr := parseTokenPayload(body, response.Header.Get("Content-Type"))
	if parseErr != nil {
		return tokenEndpointPayload{}, fmt.Errorf("providers: decode token response: %w", parseErr)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return tokenEndpointPayload{}, fmt.Errorf(
			"providers: token endpoint error (%d): %s",
			response.StatusCode,
			describeTokenError(payload),
		)
	}
	if payload.ErrorCode != "" {
		return tokenEndpointPayload{}, fmt.Errorf("providers: token endpoint error: %s", describeTokenError(payload))
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("providers: token endpoint response missing access token")
	}
	return payload, nil
}

func describeTokenError(payload tokenEndpointPayload) string {
	if strings.TrimSpace(payload.ErrorDescription) != "" {
		return strings.TrimSpace(payload.ErrorDescription)
	}
	if strings.TrimSpace(payload.ErrorCode) != "" {
		return strings.TrimSpace(payload.ErrorCode)
	}
	return "unknown error"
}

func parseTokenPayload(body []byte, contentType string) (tokenEndpointPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenPayloadForm(body)
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseTokenPayloadForm(body)
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	return tokenEndpointPayload{
		AccessToken:      readAnyString(decoded["access_token"]),
		TokenType:        readAnyString(decoded["token_type"]),
		RefreshToken:     readAnyString(decoded["refresh_token"]),
		Scope:            readAnyString(decoded["scope"]),
		ExpiresIn:        readAnyInt64(decoded["expires_in"]),
		ErrorCode:        readAnyString(decoded["error"]),
		ErrorDescription: readAnyString(decoded["error_description"]),
	}, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	return tokenEndpointPayload{
		AccessToken:      strings.TrimSpace(values.Get("access_token")),
		TokenType:        strings.TrimSpace(values.Get("token_type")),
		RefreshToken:     strings.TrimSpace(values.Get("refresh_token")),
		Scope:            strings.TrimSpace(values.Get("scope")),
		ExpiresIn:        expiresIn,
		ErrorCode:        strings.TrimSpace(values.Get("error")),
		ErrorDescription: strings.TrimSpace(values.Get("error_description")),
	}, nil
}

// resolveExpiresAt leaves the expiry nil when the endpoint is silent and
// the platform declares no fixed token lifetime.
func (p *OAuth2Adapter) resolveExpiresAt(now time.Time, expiresIn int64) *time.Time {
	ttl := time.Duration(0)
	if expiresIn > 0 {
		ttl = time.Duration(expiresIn) * time.Second
	} else if p.cfg.LifetimeKnownAtIssuance && p.cfg.TokenTTL > 0 {
		ttl = p.cfg.TokenTTL
	}
	if ttl <= 0 {
		return nil
	}
	expiresAt := now.Add(ttl)
	return &expiresAt
}

func normalizeTokenType(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "bearer"
	}
	return normalized
}

func parseScopeList(value string) []string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return []string{}
	}
	return strings.Fields(strings.ReplaceAll(trimmed, ",", " "))
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int64:
		return typed
	case float64:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return parsed
		}
		floatParsed, floatErr := typed.Float64()
		if floatErr == nil {
			return int64(floatParsed)
		}
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}

func normalizeScopes(input []string) []string {
	if len(input) == 0 {
		return []string{}
	}
	values := make([]string, 0, len(input))
	seen := map[string]struct{}{}
	for _, value := range input {
		normalized := strings.TrimSpace(value)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		values = append(values, normalized)
	}
	sort.Strings(values)
	return values
}

func generateAuthorizationState() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("providers: generate authorization state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

var _ core.Provider = (*OAuth2Adapter)(nil)
