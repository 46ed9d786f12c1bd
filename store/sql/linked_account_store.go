package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-account-links/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// LinkedAccountStore persists linked accounts over bun. The unique index on
// (platform, external_account_id) is the race-closing mechanism; Insert maps
// its violation to core.ErrUniquenessViolation so the orchestrator can
// re-resolve the surviving row.
type LinkedAccountStore struct {
	db   *bun.DB
	repo repository.Repository[*linkedAccountRecord]
}

func NewLinkedAccountStore(db *bun.DB) (*LinkedAccountStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*linkedAccountRecord](db, linkedAccountHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid linked account repository wiring: %w", err)
		}
	}
	return &LinkedAccountStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *LinkedAccountStore) Get(ctx context.Context, id string) (core.LinkedAccount, error) {
	if s == nil || s.db == nil {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: linked account store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: linked account id is required")
	}

	record := &linkedAccountRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", trimmedID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.LinkedAccount{}, fmt.Errorf("%w: id %q", core.ErrLinkedAccountMissing, trimmedID)
		}
		return core.LinkedAccount{}, err
	}
	return record.toDomain(), nil
}

func (s *LinkedAccountStore) FindByPlatformAndExternalID(ctx context.Context, platform core.Platform, externalAccountID string) (core.LinkedAccount, bool, error) {
	if s == nil || s.db == nil {
		return core.LinkedAccount{}, false, fmt.Errorf("sqlstore: linked account store is not configured")
	}
	if err := platform.Validate(); err != nil {
		return core.LinkedAccount{}, false, err
	}
	trimmedExternalID := strings.TrimSpace(externalAccountID)
	if trimmedExternalID == "" {
		return core.LinkedAccount{}, false, fmt.Errorf("sqlstore: external account id is required")
	}

	record := &linkedAccountRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.platform = ?", string(platform)).
		Where("?TableAlias.external_account_id = ?", trimmedExternalID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.LinkedAccount{}, false, nil
		}
		return core.LinkedAccount{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *LinkedAccountStore) FindByPlatformAndOwner(ctx context.Context, platform core.Platform, ownerUserID string) (core.LinkedAccount, bool, error) {
	if s == nil || s.db == nil {
		return core.LinkedAccount{}, false, fmt.Errorf("sqlstore: linked account store is not configured")
	}
	if err := platform.Validate(); err != nil {
		return core.LinkedAccount{}, false, err
	}
	trimmedOwner := strings.TrimSpace(ownerUserID)
	if trimmedOwner == "" {
		return core.LinkedAccount{}, false, fmt.Errorf("sqlstore: owner user id is required")
	}

	record := &linkedAccountRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.platform = ?", string(platform)).
		Where("?TableAlias.owner_user_id = ?", trimmedOwner).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.LinkedAccount{}, false, nil
		}
		return core.LinkedAccount{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *LinkedAccountStore) ListByOwner(ctx context.Context, ownerUserID string) ([]core.LinkedAccount, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: linked account store is not configured")
	}
	trimmedOwner := strings.TrimSpace(ownerUserID)
	if trimmedOwner == "" {
		return nil, fmt.Errorf("sqlstore: owner user id is required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("owner_user_id", "=", trimmedOwner),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}

	out := make([]core.LinkedAccount, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *LinkedAccountStore) Insert(ctx context.Context, account core.LinkedAccount) (core.LinkedAccount, error) {
	if s == nil || s.repo == nil {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: linked account store is not configured")
	}
	if err := account.Platform.Validate(); err != nil {
		return core.LinkedAccount{}, err
	}
	if strings.TrimSpace(account.ExternalAccountID) == "" {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: external account id is required")
	}
	if strings.TrimSpace(account.OwnerUserID) == "" {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: owner user id is required")
	}

	record := newLinkedAccountRecord(account, time.Now().UTC())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return core.LinkedAccount{}, fmt.Errorf(
				"sqlstore: linked account for %s/%s already exists: %w",
				account.Platform, account.ExternalAccountID, core.ErrUniquenessViolation,
			)
		}
		return core.LinkedAccount{}, err
	}
	return created.toDomain(), nil
}

func (s *LinkedAccountStore) UpdateCredential(ctx context.Context, id string, in core.CredentialUpdate) (core.LinkedAccount, error) {
	if s == nil || s.repo == nil {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: linked account store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return core.LinkedAccount{}, fmt.Errorf("sqlstore: linked account id is required")
	}

	current, err := s.repo.GetByID(ctx, trimmedID)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.LinkedAccount{}, fmt.Errorf("%w: id %q", core.ErrLinkedAccountMissing, trimmedID)
		}
		return core.LinkedAccount{}, err
	}

	current.AccessToken = strings.TrimSpace(in.AccessToken)
	if refreshToken := strings.TrimSpace(in.RefreshToken); refreshToken != "" {
		current.RefreshToken = refreshToken
	}
	if tokenType := strings.TrimSpace(in.TokenType); tokenType != "" {
		current.TokenType = tokenType
	}
	if displayName := strings.TrimSpace(in.DisplayName); displayName != "" {
		current.DisplayName = displayName
	}
	if in.ExpiresAt != nil {
		expiresAt := in.ExpiresAt.UTC()
		current.ExpiresAt = &expiresAt
	} else {
		current.ExpiresAt = nil
	}
	current.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, current, repository.UpdateByID(trimmedID))
	if err != nil {
		return core.LinkedAccount{}, err
	}
	return updated.toDomain(), nil
}

func (s *LinkedAccountStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: linked account store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return fmt.Errorf("sqlstore: linked account id is required")
	}

	res, err := s.db.NewDelete().
		Model((*linkedAccountRecord)(nil)).
		Where("id = ?", trimmedID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: id %q", core.ErrLinkedAccountMissing, trimmedID)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
