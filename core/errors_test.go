package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestLinkErrorMapperSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		textCode string
		code     int
	}{
		{"unknown platform", ErrUnknownPlatform, LinkErrorUnknownPlatform, http.StatusNotFound},
		{"adapter unavailable", ErrAdapterUnavailable, LinkErrorAdapterUnavailable, http.StatusInternalServerError},
		{"authorization denied", ErrAuthorizationDenied, LinkErrorAuthorizationDenied, http.StatusUnauthorized},
		{"session expired", ErrSessionExpired, LinkErrorSessionExpired, http.StatusUnauthorized},
		{"state mismatch", ErrStateMismatch, LinkErrorStateMismatch, http.StatusUnauthorized},
		{"exchange failed", ErrExchangeFailed, LinkErrorExchangeFailed, http.StatusInternalServerError},
		{"identity unresolvable", ErrIdentityUnresolvable, LinkErrorIdentityUnresolvable, http.StatusInternalServerError},
		{"already linked", ErrAccountAlreadyLinked, LinkErrorAccountLinked, http.StatusConflict},
		{"credential expired", ErrCredentialExpired, LinkErrorCredentialExpired, http.StatusUnauthorized},
		{"refresh unsupported", ErrRefreshUnsupported, LinkErrorRefreshUnsupported, http.StatusInternalServerError},
		{"uniqueness violation", ErrUniquenessViolation, LinkErrorStoreConflict, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := linkErrorMapper(fmt.Errorf("context: %w", tc.err))
			if mapped == nil {
				t.Fatalf("expected mapped error")
			}
			if mapped.TextCode != tc.textCode {
				t.Fatalf("expected text code %s, got %s", tc.textCode, mapped.TextCode)
			}
			if mapped.Code != tc.code {
				t.Fatalf("expected http code %d, got %d", tc.code, mapped.Code)
			}
			if !errors.Is(mapped, tc.err) {
				t.Fatalf("mapped error must keep sentinel chain")
			}
		})
	}
}

func TestLinkErrorMapperPassesThroughRichErrors(t *testing.T) {
	original := goerrors.New("already mapped", goerrors.CategoryConflict).WithTextCode(LinkErrorAccountLinked)
	mapped := linkErrorMapper(original)
	if mapped.TextCode != LinkErrorAccountLinked {
		t.Fatalf("expected preserved text code, got %s", mapped.TextCode)
	}
	if mapped.Code != http.StatusConflict {
		t.Fatalf("expected conflict http code, got %d", mapped.Code)
	}
}

func TestLinkErrorMapperValidationFallback(t *testing.T) {
	mapped := linkErrorMapper(fmt.Errorf("core: owner user id is required"))
	if mapped.TextCode != LinkErrorBadInput {
		t.Fatalf("expected bad input text code, got %s", mapped.TextCode)
	}
	if mapped.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", mapped.Code)
	}
}

func TestLinkErrorMapperNil(t *testing.T) {
	if mapped := linkErrorMapper(nil); mapped != nil {
		t.Fatalf("expected nil for nil input, got %v", mapped)
	}
}
