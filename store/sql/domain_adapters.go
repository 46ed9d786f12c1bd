package sqlstore

import (
	"time"

	"github.com/goliatone/go-account-links/core"
)

func newLinkedAccountRecord(account core.LinkedAccount, now time.Time) *linkedAccountRecord {
	record := &linkedAccountRecord{
		ID:                account.ID,
		Platform:          string(account.Platform),
		ExternalAccountID: account.ExternalAccountID,
		OwnerUserID:       account.OwnerUserID,
		AccessToken:       account.AccessToken,
		RefreshToken:      account.RefreshToken,
		TokenType:         account.TokenType,
		DisplayName:       account.DisplayName,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if account.ExpiresAt != nil {
		expiresAt := account.ExpiresAt.UTC()
		record.ExpiresAt = &expiresAt
	}
	return record
}

func (r *linkedAccountRecord) toDomain() core.LinkedAccount {
	if r == nil {
		return core.LinkedAccount{}
	}
	account := core.LinkedAccount{
		ID:                r.ID,
		Platform:          core.Platform(r.Platform),
		ExternalAccountID: r.ExternalAccountID,
		OwnerUserID:       r.OwnerUserID,
		AccessToken:       r.AccessToken,
		RefreshToken:      r.RefreshToken,
		TokenType:         r.TokenType,
		DisplayName:       r.DisplayName,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.ExpiresAt != nil {
		expiresAt := r.ExpiresAt.UTC()
		account.ExpiresAt = &expiresAt
	}
	return account
}
