package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type linkedAccountRecord struct {
	bun.BaseModel `bun:"table:linked_accounts,alias:la"`

	ID                string     `bun:"id,pk"`
	Platform          string     `bun:"platform,notnull"`
	ExternalAccountID string     `bun:"external_account_id,notnull"`
	OwnerUserID       string     `bun:"owner_user_id,notnull"`
	AccessToken       string     `bun:"access_token,notnull"`
	RefreshToken      string     `bun:"refresh_token"`
	TokenType         string     `bun:"token_type,notnull"`
	ExpiresAt         *time.Time `bun:"expires_at,nullzero"`
	DisplayName       string     `bun:"display_name"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
