package core

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service orchestrates the account-linking lifecycle. It owns no protocol
// detail itself; every platform quirk lives behind a Provider adapter and
// every durable write behind the stores.
type Service struct {
	config             Config
	logger             Logger
	loggerProvider     LoggerProvider
	metricsRecorder    MetricsRecorder
	errorFactory       ErrorFactory
	errorMapper        ErrorMapper
	persistenceClient  any
	repositoryFactory  any
	configProvider     ConfigProvider
	optionsResolver    OptionsResolver
	registry           Registry
	pendingLinkStore   PendingLinkStore
	linkedAccountStore LinkedAccountStore
}

type ServiceDependencies struct {
	Logger             Logger
	LoggerProvider     LoggerProvider
	MetricsRecorder    MetricsRecorder
	ErrorFactory       ErrorFactory
	ErrorMapper        ErrorMapper
	PersistenceClient  any
	RepositoryFactory  any
	ConfigProvider     ConfigProvider
	OptionsResolver    OptionsResolver
	Registry           Registry
	PendingLinkStore   PendingLinkStore
	LinkedAccountStore LinkedAccountStore
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("account-links", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("account-links"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewProviderRegistry()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.pendingLinkStore == nil {
		builder.pendingLinkStore = NewMemoryPendingLinkStore(finalConfig.PendingLinkTTL)
	}

	if builder.linkedAccountStore == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				builder.linkedAccountStore = storeProvider.LinkedAccountStore()
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			builder.linkedAccountStore = storeProvider.LinkedAccountStore()
		}
	}

	return &Service{
		config:             finalConfig,
		logger:             logger,
		loggerProvider:     provider,
		metricsRecorder:    builder.metricsRecorder,
		errorFactory:       builder.errorFactory,
		errorMapper:        builder.errorMapper,
		persistenceClient:  builder.persistenceClient,
		repositoryFactory:  builder.repositoryFactory,
		configProvider:     builder.configProvider,
		optionsResolver:    builder.optionsResolver,
		registry:           builder.registry,
		pendingLinkStore:   builder.pendingLinkStore,
		linkedAccountStore: builder.linkedAccountStore,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:             s.logger,
		LoggerProvider:     s.loggerProvider,
		MetricsRecorder:    s.metricsRecorder,
		ErrorFactory:       s.errorFactory,
		ErrorMapper:        s.errorMapper,
		PersistenceClient:  s.persistenceClient,
		RepositoryFactory:  s.repositoryFactory,
		ConfigProvider:     s.configProvider,
		OptionsResolver:    s.optionsResolver,
		Registry:           s.registry,
		PendingLinkStore:   s.pendingLinkStore,
		LinkedAccountStore: s.linkedAccountStore,
	}
}

// BeginLink resolves the platform adapter, builds the provider-specific
// authorization URL, and parks the round-trip values under an opaque
// session reference. Nothing durable is written.
func (s *Service) BeginLink(ctx context.Context, req BeginLinkRequest) (result BeginLinkResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"platform":      req.Platform,
		"owner_user_id": req.OwnerUserID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "begin_link", err, fields)
	}()

	ownerUserID := strings.TrimSpace(req.OwnerUserID)
	if ownerUserID == "" {
		err = s.mapError(fmt.Errorf("core: owner user id is required"))
		return BeginLinkResult{}, err
	}
	provider, err := s.resolveProvider(req.Platform)
	if err != nil {
		return BeginLinkResult{}, err
	}
	fields["provider_id"] = provider.ID()

	authRequest, err := provider.BuildAuthorizationRequest(ctx, BuildAuthorizationInput{
		OwnerUserID: ownerUserID,
		RedirectURI: strings.TrimSpace(req.RedirectURI),
		Scopes:      append([]string(nil), req.Scopes...),
	})
	if err != nil {
		err = s.mapError(fmt.Errorf("core: build authorization request: %w: %w", ErrAdapterUnavailable, err))
		return BeginLinkResult{}, err
	}

	sessionRef, err := GenerateSessionRef()
	if err != nil {
		err = s.mapError(err)
		return BeginLinkResult{}, err
	}

	now := time.Now().UTC()
	pending := authRequest.Pending
	pending.OwnerUserID = ownerUserID
	pending.Platform = provider.Platform()
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = now
	}
	if pending.ExpiresAt.IsZero() {
		pending.ExpiresAt = pending.CreatedAt.Add(s.pendingLinkTTL())
	}

	if s.pendingLinkStore == nil {
		err = s.mapError(fmt.Errorf("core: pending link store is not configured: %w", ErrAdapterUnavailable))
		return BeginLinkResult{}, err
	}
	if err = s.pendingLinkStore.Save(ctx, sessionRef, pending); err != nil {
		err = s.mapError(err)
		return BeginLinkResult{}, err
	}

	return BeginLinkResult{
		RedirectURL: authRequest.URL,
		SessionRef:  sessionRef,
		ExpiresAt:   pending.ExpiresAt,
	}, nil
}

// CompleteLink finishes the round-trip: validates the callback against the
// consumed session, exchanges the code, resolves the stable external
// account id, and writes the link exactly once. The owning user always
// comes from the stored session, never from callback input.
func (s *Service) CompleteLink(ctx context.Context, req CompleteLinkRequest) (summary LinkedAccountSummary, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"platform": req.Platform,
	}
	defer func() {
		if summary.ID != "" {
			fields["linked_account_id"] = summary.ID
		}
		s.observeOperation(ctx, startedAt, "complete_link", err, fields)
	}()

	provider, err := s.resolveProvider(req.Platform)
	if err != nil {
		return LinkedAccountSummary{}, err
	}
	fields["provider_id"] = provider.ID()

	if strings.TrimSpace(req.Params.ErrorCode) != "" {
		// The session is spent even on denial; the reference is single use.
		if s.pendingLinkStore != nil && strings.TrimSpace(req.SessionRef) != "" {
			_, _ = s.pendingLinkStore.Consume(ctx, req.SessionRef)
		}
		err = s.mapError(fmt.Errorf("core: authorization denied by user (%s): %w", req.Params.ErrorCode, ErrAuthorizationDenied))
		return LinkedAccountSummary{}, err
	}

	if s.pendingLinkStore == nil {
		err = s.mapError(fmt.Errorf("core: pending link store is not configured: %w", ErrSessionExpired))
		return LinkedAccountSummary{}, err
	}
	pending, consumeErr := s.pendingLinkStore.Consume(ctx, req.SessionRef)
	if consumeErr != nil {
		if errors.Is(consumeErr, ErrSessionExpired) {
			err = s.mapError(consumeErr)
		} else {
			err = s.mapError(fmt.Errorf("core: link session unavailable: %w: %w", ErrSessionExpired, consumeErr))
		}
		return LinkedAccountSummary{}, err
	}
	if pending.Platform != provider.Platform() {
		err = s.mapError(fmt.Errorf("core: link session platform mismatch: %w", ErrSessionExpired))
		return LinkedAccountSummary{}, err
	}
	fields["owner_user_id"] = pending.OwnerUserID

	if provider.Capabilities().UsesState {
		if !stateMatches(pending.State, req.Params.State) {
			s.observeSecurityEvent(ctx, "state_mismatch", map[string]any{
				"platform":      pending.Platform,
				"owner_user_id": pending.OwnerUserID,
			})
			err = s.mapError(fmt.Errorf("core: callback state rejected: %w", ErrStateMismatch))
			return LinkedAccountSummary{}, err
		}
	}

	code := strings.TrimSpace(req.Params.Code)
	if code == "" {
		err = s.mapError(fmt.Errorf("core: authorization code missing from callback: %w", ErrExchangeFailed))
		return LinkedAccountSummary{}, err
	}
	grant, exchangeErr := provider.ExchangeCode(ctx, code, pending)
	if exchangeErr != nil {
		if errors.Is(exchangeErr, ErrExchangeFailed) {
			err = s.mapError(exchangeErr)
		} else {
			err = s.mapError(fmt.Errorf("core: code exchange: %w: %w", ErrExchangeFailed, exchangeErr))
		}
		return LinkedAccountSummary{}, err
	}

	identity, identityErr := provider.ResolveExternalAccountID(ctx, grant)
	if identityErr != nil {
		if errors.Is(identityErr, ErrIdentityUnresolvable) {
			err = s.mapError(identityErr)
		} else {
			err = s.mapError(fmt.Errorf("core: identity resolution: %w: %w", ErrIdentityUnresolvable, identityErr))
		}
		return LinkedAccountSummary{}, err
	}
	if strings.TrimSpace(identity.AccountID) == "" {
		err = s.mapError(fmt.Errorf("core: provider returned empty account id: %w", ErrIdentityUnresolvable))
		return LinkedAccountSummary{}, err
	}

	account, err := s.persistLink(ctx, provider.Platform(), pending.OwnerUserID, identity, grant)
	if err != nil {
		return LinkedAccountSummary{}, err
	}

	summary = account.Summary()
	return summary, nil
}

// persistLink writes the linked account with insert-time uniqueness as the
// only race close. A concurrent insert surfaces as ErrUniquenessViolation
// and is re-resolved against the row that won.
func (s *Service) persistLink(
	ctx context.Context,
	platform Platform,
	ownerUserID string,
	identity ExternalIdentity,
	grant TokenGrant,
) (LinkedAccount, error) {
	if s.linkedAccountStore == nil {
		return LinkedAccount{}, s.mapError(fmt.Errorf("core: linked account store is not configured"))
	}

	existing, found, err := s.linkedAccountStore.FindByPlatformAndExternalID(ctx, platform, identity.AccountID)
	if err != nil {
		return LinkedAccount{}, s.mapError(err)
	}
	if found {
		return s.resolveExistingLink(ctx, existing, ownerUserID, identity, grant)
	}

	// Two attempts cover the case where the race winner is unlinked between
	// the conflict and the re-read; beyond that the conflict is reported as
	// an internal error, never as the store-level sentinel.
	for attempt := 0; attempt < 2; attempt++ {
		inserted, insertErr := s.linkedAccountStore.Insert(ctx, LinkedAccount{
			Platform:          platform,
			ExternalAccountID: identity.AccountID,
			OwnerUserID:       ownerUserID,
			AccessToken:       grant.AccessToken,
			RefreshToken:      grant.RefreshToken,
			TokenType:         normalizeTokenType(grant.TokenType),
			ExpiresAt:         cloneTimePointer(grant.ExpiresAt),
			DisplayName:       identity.DisplayName,
		})
		if insertErr == nil {
			return inserted, nil
		}
		if !errors.Is(insertErr, ErrUniquenessViolation) {
			return LinkedAccount{}, s.mapError(insertErr)
		}

		// Lost the insert race; the winning row decides the outcome.
		winner, found, err := s.linkedAccountStore.FindByPlatformAndExternalID(ctx, platform, identity.AccountID)
		if err != nil {
			return LinkedAccount{}, s.mapError(err)
		}
		if found {
			return s.resolveExistingLink(ctx, winner, ownerUserID, identity, grant)
		}
	}
	return LinkedAccount{}, s.mapError(fmt.Errorf(
		"core: conflicting row for %s on %s vanished during insert race", identity.AccountID, platform,
	))
}

func (s *Service) resolveExistingLink(
	ctx context.Context,
	existing LinkedAccount,
	ownerUserID string,
	identity ExternalIdentity,
	grant TokenGrant,
) (LinkedAccount, error) {
	if existing.OwnerUserID != ownerUserID {
		return LinkedAccount{}, s.mapError(fmt.Errorf(
			"core: account %s on %s is owned by another user: %w",
			identity.AccountID, existing.Platform, ErrAccountAlreadyLinked,
		))
	}
	updated, err := s.linkedAccountStore.UpdateCredential(ctx, existing.ID, CredentialUpdate{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenType:    normalizeTokenType(grant.TokenType),
		ExpiresAt:    cloneTimePointer(grant.ExpiresAt),
		DisplayName:  identity.DisplayName,
	})
	if err != nil {
		return LinkedAccount{}, s.mapError(err)
	}
	return updated, nil
}

// Unlink removes the platform link for an owner entirely. Tokens are gone
// once the row is; re-linking starts a fresh round-trip.
func (s *Service) Unlink(ctx context.Context, platform Platform, ownerUserID string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"platform":      platform,
		"owner_user_id": ownerUserID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "unlink", err, fields)
	}()

	if err = platform.Validate(); err != nil {
		err = s.mapError(err)
		return err
	}
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		err = s.mapError(fmt.Errorf("core: owner user id is required"))
		return err
	}
	if s.linkedAccountStore == nil {
		err = s.mapError(fmt.Errorf("core: linked account store is not configured"))
		return err
	}

	account, found, err := s.linkedAccountStore.FindByPlatformAndOwner(ctx, platform, ownerUserID)
	if err != nil {
		err = s.mapError(err)
		return err
	}
	if !found {
		err = s.mapError(fmt.Errorf("core: no %s link for user %s: %w", platform, ownerUserID, ErrLinkedAccountMissing))
		return err
	}
	fields["linked_account_id"] = account.ID

	if err = s.linkedAccountStore.Delete(ctx, account.ID); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

// ListLinks returns credential-free summaries of every link an owner holds.
func (s *Service) ListLinks(ctx context.Context, ownerUserID string) (summaries []LinkedAccountSummary, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"owner_user_id": ownerUserID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "list_links", err, fields)
	}()

	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		err = s.mapError(fmt.Errorf("core: owner user id is required"))
		return nil, err
	}
	if s.linkedAccountStore == nil {
		err = s.mapError(fmt.Errorf("core: linked account store is not configured"))
		return nil, err
	}

	accounts, err := s.linkedAccountStore.ListByOwner(ctx, ownerUserID)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	summaries = make([]LinkedAccountSummary, 0, len(accounts))
	for _, account := range accounts {
		summaries = append(summaries, account.Summary())
	}
	return summaries, nil
}

func (s *Service) resolveProvider(platform Platform) (Provider, error) {
	if s == nil || s.registry == nil {
		return nil, s.mapError(fmt.Errorf("core: registry unavailable: %w", ErrAdapterUnavailable))
	}
	if err := platform.Validate(); err != nil {
		return nil, s.mapError(err)
	}
	provider, ok := s.registry.Get(platform)
	if !ok {
		return nil, s.mapError(fmt.Errorf("core: platform %s: %w", platform, ErrUnknownPlatform))
	}
	if provider == nil {
		return nil, s.mapError(fmt.Errorf("core: platform %s: %w", platform, ErrAdapterUnavailable))
	}
	return provider, nil
}

func (s *Service) pendingLinkTTL() time.Duration {
	if s == nil || s.config.PendingLinkTTL <= 0 {
		return DefaultPendingLinkTTL
	}
	return s.config.PendingLinkTTL
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

// stateMatches compares in constant time so the callback handler leaks no
// timing signal about the expected state value.
func stateMatches(expected, got string) bool {
	expected = strings.TrimSpace(expected)
	got = strings.TrimSpace(got)
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

var _ LinkService = (*Service)(nil)
