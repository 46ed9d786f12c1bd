package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	LinkErrorUnknownPlatform      = "LINK_UNKNOWN_PLATFORM"
	LinkErrorAdapterUnavailable   = "LINK_ADAPTER_UNAVAILABLE"
	LinkErrorAuthorizationDenied  = "LINK_AUTHORIZATION_DENIED"
	LinkErrorSessionExpired       = "LINK_SESSION_EXPIRED"
	LinkErrorStateMismatch        = "LINK_STATE_MISMATCH"
	LinkErrorExchangeFailed       = "LINK_EXCHANGE_FAILED"
	LinkErrorIdentityUnresolvable = "LINK_IDENTITY_UNRESOLVABLE"
	LinkErrorAccountLinked        = "LINK_ACCOUNT_ALREADY_LINKED"
	LinkErrorCredentialExpired    = "LINK_CREDENTIAL_EXPIRED"
	LinkErrorRefreshUnsupported   = "LINK_REFRESH_UNSUPPORTED"
	LinkErrorStoreConflict        = "LINK_STORE_CONFLICT"
	LinkErrorBadInput             = "LINK_BAD_INPUT"
	LinkErrorInternal             = "LINK_INTERNAL_ERROR"
)

// Sentinel failures of the linking state machine. The orchestrator wraps
// each into a go-errors envelope before it reaches a caller; errors.Is
// keeps them matchable through the wrapping.
var (
	ErrUnknownPlatform      = errors.New("core: platform has no registered provider")
	ErrAdapterUnavailable   = errors.New("core: provider adapter is not configured")
	ErrAuthorizationDenied  = errors.New("core: user denied authorization")
	ErrSessionExpired       = errors.New("core: link session is missing or expired")
	ErrStateMismatch        = errors.New("core: callback state does not match link session")
	ErrExchangeFailed       = errors.New("core: authorization code exchange failed")
	ErrIdentityUnresolvable = errors.New("core: external account identity could not be resolved")
	ErrAccountAlreadyLinked = errors.New("core: external account is linked to another user")
	ErrCredentialExpired    = errors.New("core: credential expired and cannot be refreshed")
	ErrRefreshUnsupported   = errors.New("core: provider does not issue refresh tokens")

	// ErrUniquenessViolation is the store-internal signal for a duplicate
	// (platform, external account) insert. It is always translated before
	// reaching the caller.
	ErrUniquenessViolation = errors.New("core: linked account uniqueness violation")
)

func linkErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureLinkErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrUnknownPlatform), errors.Is(err, ErrInvalidPlatform):
		return newLinkError(err, goerrors.CategoryNotFound, LinkErrorUnknownPlatform)
	case errors.Is(err, ErrAdapterUnavailable):
		return newLinkError(err, goerrors.CategoryInternal, LinkErrorAdapterUnavailable)
	case errors.Is(err, ErrAuthorizationDenied):
		return newLinkError(err, goerrors.CategoryAuth, LinkErrorAuthorizationDenied)
	case errors.Is(err, ErrSessionExpired):
		return newLinkError(err, goerrors.CategoryAuth, LinkErrorSessionExpired)
	case errors.Is(err, ErrStateMismatch):
		return newLinkError(err, goerrors.CategoryAuth, LinkErrorStateMismatch)
	case errors.Is(err, ErrExchangeFailed):
		return newLinkError(err, goerrors.CategoryOperation, LinkErrorExchangeFailed)
	case errors.Is(err, ErrIdentityUnresolvable):
		return newLinkError(err, goerrors.CategoryOperation, LinkErrorIdentityUnresolvable)
	case errors.Is(err, ErrAccountAlreadyLinked):
		return newLinkError(err, goerrors.CategoryConflict, LinkErrorAccountLinked)
	case errors.Is(err, ErrCredentialExpired):
		return newLinkError(err, goerrors.CategoryAuth, LinkErrorCredentialExpired)
	case errors.Is(err, ErrRefreshUnsupported):
		return newLinkError(err, goerrors.CategoryOperation, LinkErrorRefreshUnsupported)
	case errors.Is(err, ErrUniquenessViolation):
		return newLinkError(err, goerrors.CategoryConflict, LinkErrorStoreConflict)
	case errors.Is(err, ErrLinkedAccountMissing):
		return newLinkError(err, goerrors.CategoryNotFound, LinkErrorBadInput)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newLinkError(err, goerrors.CategoryBadInput, LinkErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureLinkErrorEnvelope(mapped)
}

func newLinkError(source error, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureLinkErrorEnvelope(
		goerrors.Wrap(source, category, source.Error()).
			WithTextCode(textCode),
	)
}

func ensureLinkErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = linkHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultLinkTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultLinkTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return LinkErrorBadInput
	case goerrors.CategoryNotFound:
		return LinkErrorUnknownPlatform
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return LinkErrorCredentialExpired
	case goerrors.CategoryConflict:
		return LinkErrorAccountLinked
	case goerrors.CategoryOperation:
		return LinkErrorExchangeFailed
	default:
		return LinkErrorInternal
	}
}

func linkHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
