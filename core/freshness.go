package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const DefaultCredentialExpiringSoonWindow = 5 * time.Minute

// CredentialTokenState captures the access/refresh lifecycle state derived
// from a stored linked account.
type CredentialTokenState struct {
	ExpiresAt       *time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	IsExpired       bool
	IsExpiringSoon  bool
}

// ResolveCredentialTokenState evaluates expiry flags for a linked account.
// A nil ExpiresAt means the platform never told us a lifetime; the token is
// treated as valid until the platform rejects it.
func ResolveCredentialTokenState(now time.Time, account LinkedAccount, expiringSoonWindow time.Duration) CredentialTokenState {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if expiringSoonWindow <= 0 {
		expiringSoonWindow = DefaultCredentialExpiringSoonWindow
	}

	state := CredentialTokenState{
		HasAccessToken:  strings.TrimSpace(account.AccessToken) != "",
		HasRefreshToken: strings.TrimSpace(account.RefreshToken) != "",
	}
	if account.ExpiresAt == nil {
		return state
	}
	expiresAt := account.ExpiresAt.UTC()
	state.ExpiresAt = &expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = !expiresAt.After(now.Add(expiringSoonWindow))
	return state
}

// EnsureFreshCredential hands back a usable access token for a linked
// account, refreshing it first when it has expired. A failed or impossible
// refresh leaves the stored row untouched; the credential stays broken
// until the user re-links.
func (s *Service) EnsureFreshCredential(ctx context.Context, linkedAccountID string) (credential FreshCredential, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"linked_account_id": linkedAccountID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "ensure_fresh_credential", err, fields)
	}()

	if s == nil {
		return FreshCredential{}, fmt.Errorf("core: service is nil")
	}
	linkedAccountID = strings.TrimSpace(linkedAccountID)
	if linkedAccountID == "" {
		err = s.mapError(fmt.Errorf("core: linked account id is required"))
		return FreshCredential{}, err
	}
	if s.linkedAccountStore == nil {
		err = s.mapError(fmt.Errorf("core: linked account store is not configured"))
		return FreshCredential{}, err
	}

	account, err := s.linkedAccountStore.Get(ctx, linkedAccountID)
	if err != nil {
		err = s.mapError(err)
		return FreshCredential{}, err
	}
	fields["platform"] = account.Platform
	fields["owner_user_id"] = account.OwnerUserID

	state := ResolveCredentialTokenState(time.Now().UTC(), account, 0)
	if !state.IsExpired {
		return FreshCredential{
			LinkedAccountID: account.ID,
			AccessToken:     account.AccessToken,
			TokenType:       normalizeTokenType(account.TokenType),
			ExpiresAt:       cloneTimePointer(account.ExpiresAt),
		}, nil
	}

	if !state.HasRefreshToken {
		err = s.mapError(fmt.Errorf("core: no refresh token stored for account %s: %w", account.ID, ErrCredentialExpired))
		return FreshCredential{}, err
	}

	provider, err := s.resolveProvider(account.Platform)
	if err != nil {
		return FreshCredential{}, err
	}

	grant, refreshErr := provider.Refresh(ctx, account.RefreshToken)
	if refreshErr != nil {
		if isRefreshUnsupported(refreshErr) {
			err = s.mapError(fmt.Errorf("core: refresh unsupported for account %s: %w", account.ID, ErrCredentialExpired))
			return FreshCredential{}, err
		}
		err = s.mapError(fmt.Errorf("core: refresh failed for account %s: %w", account.ID, ErrCredentialExpired))
		return FreshCredential{}, err
	}

	updated, err := s.linkedAccountStore.UpdateCredential(ctx, account.ID, CredentialUpdate{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenType:    normalizeTokenType(grant.TokenType),
		ExpiresAt:    cloneTimePointer(grant.ExpiresAt),
	})
	if err != nil {
		err = s.mapError(err)
		return FreshCredential{}, err
	}

	return FreshCredential{
		LinkedAccountID: updated.ID,
		AccessToken:     updated.AccessToken,
		TokenType:       normalizeTokenType(updated.TokenType),
		ExpiresAt:       cloneTimePointer(updated.ExpiresAt),
		Refreshed:       true,
	}, nil
}

func isRefreshUnsupported(err error) bool {
	return errors.Is(err, ErrRefreshUnsupported)
}
