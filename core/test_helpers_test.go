package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type fakeProvider struct {
	id           string
	platform     Platform
	capabilities Capabilities

	buildAuthorization func(ctx context.Context, in BuildAuthorizationInput) (AuthorizationRequest, error)
	exchangeCode       func(ctx context.Context, code string, pending PendingLink) (TokenGrant, error)
	resolveIdentity    func(ctx context.Context, grant TokenGrant) (ExternalIdentity, error)
	refresh            func(ctx context.Context, refreshToken string) (TokenGrant, error)
}

func (p *fakeProvider) ID() string { return p.id }

func (p *fakeProvider) Platform() Platform { return p.platform }

func (p *fakeProvider) Capabilities() Capabilities { return p.capabilities }

func (p *fakeProvider) BuildAuthorizationRequest(ctx context.Context, in BuildAuthorizationInput) (AuthorizationRequest, error) {
	if p.buildAuthorization != nil {
		return p.buildAuthorization(ctx, in)
	}
	return AuthorizationRequest{
		URL: "https://auth.example.com/authorize?state=state-1",
		Pending: PendingLink{
			State:       "state-1",
			RedirectURI: in.RedirectURI,
		},
	}, nil
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, code string, pending PendingLink) (TokenGrant, error) {
	if p.exchangeCode != nil {
		return p.exchangeCode(ctx, code, pending)
	}
	expires := time.Now().UTC().Add(time.Hour)
	return TokenGrant{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		TokenType:    "bearer",
		ExpiresAt:    &expires,
	}, nil
}

func (p *fakeProvider) ResolveExternalAccountID(ctx context.Context, grant TokenGrant) (ExternalIdentity, error) {
	if p.resolveIdentity != nil {
		return p.resolveIdentity(ctx, grant)
	}
	return ExternalIdentity{AccountID: "ext-1", DisplayName: "Example Account"}, nil
}

func (p *fakeProvider) Refresh(ctx context.Context, refreshToken string) (TokenGrant, error) {
	if p.refresh != nil {
		return p.refresh(ctx, refreshToken)
	}
	expires := time.Now().UTC().Add(time.Hour)
	return TokenGrant{
		AccessToken: "refreshed-access",
		TokenType:   "bearer",
		ExpiresAt:   &expires,
	}, nil
}

type memoryLinkedAccountStore struct {
	mu   sync.Mutex
	next int
	byID map[string]LinkedAccount
}

func newMemoryLinkedAccountStore() *memoryLinkedAccountStore {
	return &memoryLinkedAccountStore{byID: map[string]LinkedAccount{}}
}

func (s *memoryLinkedAccountStore) Get(_ context.Context, id string) (LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.byID[id]
	if !ok {
		return LinkedAccount{}, fmt.Errorf("account %s: %w", id, ErrLinkedAccountMissing)
	}
	return account, nil
}

func (s *memoryLinkedAccountStore) FindByPlatformAndExternalID(_ context.Context, platform Platform, externalAccountID string) (LinkedAccount, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.byID {
		if account.Platform == platform && account.ExternalAccountID == externalAccountID {
			return account, true, nil
		}
	}
	return LinkedAccount{}, false, nil
}

func (s *memoryLinkedAccountStore) FindByPlatformAndOwner(_ context.Context, platform Platform, ownerUserID string) (LinkedAccount, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.byID {
		if account.Platform == platform && account.OwnerUserID == ownerUserID {
			return account, true, nil
		}
	}
	return LinkedAccount{}, false, nil
}

func (s *memoryLinkedAccountStore) ListByOwner(_ context.Context, ownerUserID string) ([]LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []LinkedAccount{}
	for _, account := range s.byID {
		if account.OwnerUserID == ownerUserID {
			out = append(out, account)
		}
	}
	return out, nil
}

func (s *memoryLinkedAccountStore) Insert(_ context.Context, account LinkedAccount) (LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(account.ExternalAccountID) == "" {
		return LinkedAccount{}, fmt.Errorf("external account id is required")
	}
	for _, existing := range s.byID {
		if existing.Platform == account.Platform && existing.ExternalAccountID == account.ExternalAccountID {
			return LinkedAccount{}, fmt.Errorf("duplicate (%s, %s): %w", account.Platform, account.ExternalAccountID, ErrUniquenessViolation)
		}
	}
	s.next++
	account.ID = fmt.Sprintf("link_%d", s.next)
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.byID[account.ID] = account
	return account, nil
}

func (s *memoryLinkedAccountStore) UpdateCredential(_ context.Context, id string, in CredentialUpdate) (LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.byID[id]
	if !ok {
		return LinkedAccount{}, fmt.Errorf("account %s: %w", id, ErrLinkedAccountMissing)
	}
	account.AccessToken = in.AccessToken
	if strings.TrimSpace(in.RefreshToken) != "" {
		account.RefreshToken = in.RefreshToken
	}
	if strings.TrimSpace(in.TokenType) != "" {
		account.TokenType = in.TokenType
	}
	account.ExpiresAt = cloneTimePointer(in.ExpiresAt)
	if strings.TrimSpace(in.DisplayName) != "" {
		account.DisplayName = in.DisplayName
	}
	account.UpdatedAt = time.Now().UTC()
	s.byID[id] = account
	return account, nil
}

func (s *memoryLinkedAccountStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("account %s: %w", id, ErrLinkedAccountMissing)
	}
	delete(s.byID, id)
	return nil
}

func (s *memoryLinkedAccountStore) put(account LinkedAccount) LinkedAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account.ID == "" {
		s.next++
		account.ID = fmt.Sprintf("link_%d", s.next)
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account.UpdatedAt = account.CreatedAt
	s.byID[account.ID] = account
	return account
}

type recordingMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counters: map[string]int64{}}
}

func (m *recordingMetrics) IncCounter(_ context.Context, name string, value int64, _ map[string]string) {
	m.mu.Lock()
	m.counters[name] += value
	m.mu.Unlock()
}

func (m *recordingMetrics) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func (m *recordingMetrics) counterTotal(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

func newTestService(t interface{ Fatalf(string, ...any) }, store LinkedAccountStore, providers ...Provider) *Service {
	registry := NewProviderRegistry()
	for _, provider := range providers {
		if err := registry.Register(provider); err != nil {
			t.Fatalf("register provider: %v", err)
		}
	}
	service, err := NewService(Config{},
		WithLogger(stubLogger{}),
		WithRegistry(registry),
		WithLinkedAccountStore(store),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}
