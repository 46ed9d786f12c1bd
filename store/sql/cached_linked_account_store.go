package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-account-links/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const linkedAccountCacheKeyPrefix = "go-account-links::linked_account::v1"

// CachedLinkedAccountStore layers a read-through cache over the hot read
// paths: Get by id and the (platform, externalAccountID) lookup every link
// completion runs. Ownership listings stay uncached; they change on every
// unlink and are not on the callback path.
type CachedLinkedAccountStore struct {
	base  core.LinkedAccountStore
	cache repositorycache.CacheService
}

type cachedLookup struct {
	Account core.LinkedAccount
	Found   bool
}

func NewCachedLinkedAccountStore(
	base core.LinkedAccountStore,
	cacheService repositorycache.CacheService,
) (*CachedLinkedAccountStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base linked account store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: linked account cache service is required")
	}
	return &CachedLinkedAccountStore{base: base, cache: cacheService}, nil
}

// LinkedAccountCacheKey returns the deterministic cache key for id reads:
// go-account-links::linked_account::v1::id::<id> with the id URL-path escaped.
func LinkedAccountCacheKey(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: linked account id is required")
	}
	return strings.Join([]string{linkedAccountCacheKeyPrefix, "id", url.PathEscape(trimmed)}, "::"), nil
}

// LinkedAccountLookupCacheKey returns the deterministic cache key for the
// (platform, externalAccountID) lookup.
func LinkedAccountLookupCacheKey(platform core.Platform, externalAccountID string) (string, error) {
	if err := platform.Validate(); err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(externalAccountID)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: external account id is required")
	}
	return strings.Join([]string{
		linkedAccountCacheKeyPrefix,
		"lookup",
		url.PathEscape(string(platform)),
		url.PathEscape(trimmed),
	}, "::"), nil
}

func (s *CachedLinkedAccountStore) Get(ctx context.Context, id string) (core.LinkedAccount, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: cached linked account store is not configured")
	}
	cacheKey, err := LinkedAccountCacheKey(id)
	if err != nil {
		return core.LinkedAccount{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.LinkedAccount, error) {
		return s.base.Get(ctx, id)
	})
}

func (s *CachedLinkedAccountStore) FindByPlatformAndExternalID(ctx context.Context, platform core.Platform, externalAccountID string) (core.LinkedAccount, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.LinkedAccount{}, false, fmt.Errorf("sqlstore: cached linked account store is not configured")
	}
	cacheKey, err := LinkedAccountLookupCacheKey(platform, externalAccountID)
	if err != nil {
		return core.LinkedAccount{}, false, err
	}
	lookup, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedLookup, error) {
		account, found, fetchErr := s.base.FindByPlatformAndExternalID(ctx, platform, externalAccountID)
		if fetchErr != nil {
			return cachedLookup{}, fetchErr
		}
		return cachedLookup{Account: account, Found: found}, nil
	})
	if err != nil {
		return core.LinkedAccount{}, false, err
	}
	return lookup.Account, lookup.Found, nil
}

func (s *CachedLinkedAccountStore) FindByPlatformAndOwner(ctx context.Context, platform core.Platform, ownerUserID string) (core.LinkedAccount, bool, error) {
	if s == nil || s.base == nil {
		return core.LinkedAccount{}, false, fmt.Errorf("sqlstore: cached linked account store is not configured")
	}
	return s.base.FindByPlatformAndOwner(ctx, platform, ownerUserID)
}

func (s *CachedLinkedAccountStore) ListByOwner(ctx context.Context, ownerUserID string) ([]core.LinkedAccount, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached linked account store is not configured")
	}
	return s.base.ListByOwner(ctx, ownerUserID)
}

func (s *CachedLinkedAccountStore) Insert(ctx context.Context, account core.LinkedAccount) (core.LinkedAccount, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: cached linked account store is not configured")
	}
	created, err := s.base.Insert(ctx, account)
	if err != nil {
		return core.LinkedAccount{}, err
	}
	if err := s.invalidate(ctx, created); err != nil {
		return core.LinkedAccount{}, err
	}
	return created, nil
}

func (s *CachedLinkedAccountStore) UpdateCredential(ctx context.Context, id string, in core.CredentialUpdate) (core.LinkedAccount, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: cached linked account store is not configured")
	}
	updated, err := s.base.UpdateCredential(ctx, id, in)
	if err != nil {
		return core.LinkedAccount{}, err
	}
	if err := s.invalidate(ctx, updated); err != nil {
		return core.LinkedAccount{}, err
	}
	return updated, nil
}

func (s *CachedLinkedAccountStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached linked account store is not configured")
	}
	// The lookup key needs the row's platform and external id; read them
	// before the row disappears.
	account, getErr := s.base.Get(ctx, id)

	if err := s.base.Delete(ctx, id); err != nil {
		return err
	}

	cacheKey, err := LinkedAccountCacheKey(id)
	if err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return err
	}
	if getErr == nil {
		lookupKey, err := LinkedAccountLookupCacheKey(account.Platform, account.ExternalAccountID)
		if err != nil {
			return err
		}
		if err := s.cache.Delete(ctx, lookupKey); err != nil {
			return err
		}
	}
	return nil
}

func (s *CachedLinkedAccountStore) invalidate(ctx context.Context, account core.LinkedAccount) error {
	cacheKey, err := LinkedAccountCacheKey(account.ID)
	if err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return err
	}
	lookupKey, err := LinkedAccountLookupCacheKey(account.Platform, account.ExternalAccountID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, lookupKey)
}

var _ core.LinkedAccountStore = (*CachedLinkedAccountStore)(nil)
