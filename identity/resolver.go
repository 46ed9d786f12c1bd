// Package identity fetches and normalizes external account identity
// payloads. Adapters plug a platform endpoint and a normalizer into the
// shared HTTP client; the stable account id never comes from anywhere else.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-account-links/core"
)

const (
	defaultRequestTimeout    = 10 * time.Second
	maxIdentityResponseBytes = 1 << 20 // 1 MiB
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Normalizer extracts the platform-stable identity from a raw endpoint
// payload. Returning an error wrapping core.ErrIdentityUnresolvable marks
// the payload as structurally valid but ineligible.
type Normalizer func(payload map[string]any) (core.ExternalIdentity, error)

type Config struct {
	HTTPClient     HTTPDoer
	RequestTimeout time.Duration
}

type Client struct {
	httpClient     HTTPDoer
	requestTimeout time.Duration
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &Client{
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
	}
}

func DefaultClient() *Client {
	return NewClient(Config{})
}

// Fetch performs a bearer-authenticated GET against an identity endpoint
// and decodes the JSON payload, capping the body read.
func (c *Client) Fetch(ctx context.Context, endpoint string, query url.Values, accessToken string) (map[string]any, error) {
	if c == nil {
		return nil, fmt.Errorf("identity: client is not configured")
	}
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("identity: endpoint is required")
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, fmt.Errorf("identity: access token is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target := strings.TrimSpace(endpoint)
	if len(query) > 0 {
		if strings.Contains(target, "?") {
			target += "&" + query.Encode()
		} else {
			target += "?" + query.Encode()
		}
	}

	requestCtx := ctx
	cancel := func() {}
	if c.requestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.requestTimeout)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(accessToken))

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: request failed: %w", err)
	}
	defer res.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(res.Body, maxIdentityResponseBytes+1))
	if readErr != nil {
		return nil, fmt.Errorf("identity: read response: %w", readErr)
	}
	if int64(len(body)) > maxIdentityResponseBytes {
		return nil, fmt.Errorf("identity: response exceeds %d bytes", maxIdentityResponseBytes)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("identity: endpoint returned status %d", res.StatusCode)
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("identity: decode response: %w", err)
	}
	return payload, nil
}

// EndpointResolver binds the shared client to one platform's identity
// endpoint and normalizer.
type EndpointResolver struct {
	Client    *Client
	URL       string
	Query     url.Values
	Normalize Normalizer
}

func (r EndpointResolver) Resolve(ctx context.Context, grant core.TokenGrant) (core.ExternalIdentity, error) {
	client := r.Client
	if client == nil {
		client = DefaultClient()
	}
	if r.Normalize == nil {
		return core.ExternalIdentity{}, fmt.Errorf("identity: normalizer is required: %w", core.ErrIdentityUnresolvable)
	}

	payload, err := client.Fetch(ctx, r.URL, r.Query, grant.AccessToken)
	if err != nil {
		return core.ExternalIdentity{}, fmt.Errorf("%w: %w", core.ErrIdentityUnresolvable, err)
	}
	identity, err := r.Normalize(payload)
	if err != nil {
		return core.ExternalIdentity{}, err
	}
	if strings.TrimSpace(identity.AccountID) == "" {
		return core.ExternalIdentity{}, fmt.Errorf("identity: payload carries no account id: %w", core.ErrIdentityUnresolvable)
	}
	if identity.Raw == nil {
		identity.Raw = payload
	}
	return identity, nil
}

// ReadString digs a dotted path out of a nested JSON payload.
func ReadString(payload map[string]any, path ...string) string {
	current := any(payload)
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current = node[key]
	}
	switch typed := current.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		if current == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(current))
	}
}

// FirstItem returns the first element of a JSON array field as an object.
func FirstItem(payload map[string]any, key string) (map[string]any, bool) {
	items, ok := payload[key].([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	first, ok := items[0].(map[string]any)
	return first, ok
}
