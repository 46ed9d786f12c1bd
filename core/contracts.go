package core

import (
	"context"
	"net/url"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type BuildAuthorizationInput struct {
	OwnerUserID string
	RedirectURI string
	Scopes      []string
}

// AuthorizationRequest pairs the external redirect URL with the PendingLink
// values the round-trip must survive. Persisting the PendingLink is the
// orchestrator's job, not the adapter's.
type AuthorizationRequest struct {
	URL     string
	Pending PendingLink
}

// Provider encapsulates one platform's exact OAuth2 protocol variant:
// which parameters the authorization URL needs, whether PKCE is required,
// how to exchange a code, how to resolve the stable external account id,
// and how to refresh.
type Provider interface {
	ID() string
	Platform() Platform
	Capabilities() Capabilities

	BuildAuthorizationRequest(ctx context.Context, in BuildAuthorizationInput) (AuthorizationRequest, error)
	ExchangeCode(ctx context.Context, code string, pending PendingLink) (TokenGrant, error)
	ResolveExternalAccountID(ctx context.Context, grant TokenGrant) (ExternalIdentity, error)
	Refresh(ctx context.Context, refreshToken string) (TokenGrant, error)
}

type Registry interface {
	Register(provider Provider) error
	Get(platform Platform) (Provider, bool)
	List() []Provider
}

// CallbackParams carries the attacker-influenced query parameters the
// authorization server appended to the callback redirect.
type CallbackParams struct {
	Code             string
	State            string
	ErrorCode        string
	ErrorDescription string
}

func ParseCallbackParams(values url.Values) CallbackParams {
	return CallbackParams{
		Code:             strings.TrimSpace(values.Get("code")),
		State:            strings.TrimSpace(values.Get("state")),
		ErrorCode:        strings.TrimSpace(values.Get("error")),
		ErrorDescription: strings.TrimSpace(values.Get("error_description")),
	}
}

// CredentialUpdate carries the credential fields UpdateCredential may touch.
// An empty RefreshToken keeps the stored one; some platforms rotate refresh
// tokens on every refresh, some never re-issue them.
type CredentialUpdate struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    *time.Time
	DisplayName  string
}

// LinkedAccountStore is the durable credential store. Insert must fail with
// ErrUniquenessViolation when the (platform, externalAccountID) pair already
// exists; that store-level check is the sole race-closing mechanism for
// concurrent link completions, not application-level pre-checking.
type LinkedAccountStore interface {
	Get(ctx context.Context, id string) (LinkedAccount, error)
	FindByPlatformAndExternalID(ctx context.Context, platform Platform, externalAccountID string) (LinkedAccount, bool, error)
	FindByPlatformAndOwner(ctx context.Context, platform Platform, ownerUserID string) (LinkedAccount, bool, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]LinkedAccount, error)
	Insert(ctx context.Context, account LinkedAccount) (LinkedAccount, error)
	UpdateCredential(ctx context.Context, id string, in CredentialUpdate) (LinkedAccount, error)
	Delete(ctx context.Context, id string) error
}

// PendingLinkStore is the ephemeral session cache. Consume returns the
// record at most once; a second Consume with the same reference, or a
// Consume after expiry, fails.
type PendingLinkStore interface {
	Save(ctx context.Context, sessionRef string, link PendingLink) error
	Consume(ctx context.Context, sessionRef string) (PendingLink, error)
}

type StoreProvider interface {
	LinkedAccountStore() LinkedAccountStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// LinkService is the orchestrator contract the routing layer consumes.
type LinkService interface {
	BeginLink(ctx context.Context, req BeginLinkRequest) (BeginLinkResult, error)
	CompleteLink(ctx context.Context, req CompleteLinkRequest) (LinkedAccountSummary, error)
	EnsureFreshCredential(ctx context.Context, linkedAccountID string) (FreshCredential, error)
	Unlink(ctx context.Context, platform Platform, ownerUserID string) error
	ListLinks(ctx context.Context, ownerUserID string) ([]LinkedAccountSummary, error)
}

type BeginLinkRequest struct {
	Platform    Platform
	OwnerUserID string
	RedirectURI string
	Scopes      []string
}

type BeginLinkResult struct {
	RedirectURL string
	SessionRef  string
	ExpiresAt   time.Time
}

type CompleteLinkRequest struct {
	Platform   Platform
	Params     CallbackParams
	SessionRef string
}
