// Package rediscache backs the ephemeral link-session cache with redis so
// that CompleteLink can land on any instance behind a load balancer. GETDEL
// gives the same consume-once guarantee the in-memory store enforces with a
// mutex.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-account-links/core"
	"github.com/redis/go-redis/v9"
)

const pendingLinkKeyPrefix = "go-account-links::pending_link::v1::"

// RedisClient is the slice of the go-redis API the store needs.
// *redis.Client and redis.UniversalClient both satisfy it.
type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

type Config struct {
	Client RedisClient
	TTL    time.Duration
	Now    func() time.Time
}

type PendingLinkStore struct {
	client RedisClient
	ttl    time.Duration
	now    func() time.Time
}

type pendingLinkPayload struct {
	OwnerUserID  string    `json:"owner_user_id"`
	Platform     string    `json:"platform"`
	State        string    `json:"state"`
	PKCEVerifier string    `json:"pkce_verifier,omitempty"`
	RedirectURI  string    `json:"redirect_uri,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func NewPendingLinkStore(cfg Config) (*PendingLinkStore, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("rediscache: redis client is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = core.DefaultPendingLinkTTL
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time {
			return time.Now().UTC()
		}
	}
	return &PendingLinkStore{
		client: cfg.Client,
		ttl:    ttl,
		now:    now,
	}, nil
}

func (s *PendingLinkStore) Save(ctx context.Context, sessionRef string, link core.PendingLink) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("rediscache: pending link store is not configured")
	}
	trimmedRef := strings.TrimSpace(sessionRef)
	if trimmedRef == "" {
		return fmt.Errorf("rediscache: session reference is required")
	}
	if strings.TrimSpace(link.State) == "" && strings.TrimSpace(link.PKCEVerifier) == "" {
		return fmt.Errorf("rediscache: pending link carries neither state nor pkce verifier")
	}

	now := s.now().UTC()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	if link.ExpiresAt.IsZero() {
		link.ExpiresAt = now.Add(s.ttl)
	}

	payload, err := json.Marshal(pendingLinkPayload{
		OwnerUserID:  link.OwnerUserID,
		Platform:     string(link.Platform),
		State:        link.State,
		PKCEVerifier: link.PKCEVerifier,
		RedirectURI:  link.RedirectURI,
		CreatedAt:    link.CreatedAt.UTC(),
		ExpiresAt:    link.ExpiresAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("rediscache: encode pending link: %w", err)
	}

	ttl := link.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return fmt.Errorf("rediscache: pending link is already expired")
	}
	if err := s.client.Set(ctx, pendingLinkKeyPrefix+trimmedRef, payload, ttl).Err(); err != nil {
		return fmt.Errorf("rediscache: save pending link: %w", err)
	}
	return nil
}

// Consume removes the entry before any validity check; a session reference
// is spent by its first use no matter the outcome.
func (s *PendingLinkStore) Consume(ctx context.Context, sessionRef string) (core.PendingLink, error) {
	if s == nil || s.client == nil {
		return core.PendingLink{}, fmt.Errorf("rediscache: pending link store is not configured")
	}
	trimmedRef := strings.TrimSpace(sessionRef)
	if trimmedRef == "" {
		return core.PendingLink{}, fmt.Errorf("rediscache: session reference is required: %w", core.ErrSessionExpired)
	}

	raw, err := s.client.GetDel(ctx, pendingLinkKeyPrefix+trimmedRef).Result()
	if err != nil {
		if err == redis.Nil {
			return core.PendingLink{}, fmt.Errorf("rediscache: unknown or expired session reference: %w", core.ErrSessionExpired)
		}
		return core.PendingLink{}, fmt.Errorf("rediscache: consume pending link: %w", err)
	}

	var payload pendingLinkPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return core.PendingLink{}, fmt.Errorf("rediscache: decode pending link: %w: %w", err, core.ErrSessionExpired)
	}
	link := core.PendingLink{
		OwnerUserID:  payload.OwnerUserID,
		Platform:     core.Platform(payload.Platform),
		State:        payload.State,
		PKCEVerifier: payload.PKCEVerifier,
		RedirectURI:  payload.RedirectURI,
		CreatedAt:    payload.CreatedAt,
		ExpiresAt:    payload.ExpiresAt,
	}
	// Redis expiry usually beats this check; it guards against clock skew
	// between the writer and the redis server.
	if !link.ExpiresAt.IsZero() && s.now().UTC().After(link.ExpiresAt) {
		return core.PendingLink{}, fmt.Errorf("rediscache: session reference expired: %w", core.ErrSessionExpired)
	}
	return link, nil
}

var _ core.PendingLinkStore = (*PendingLinkStore)(nil)
