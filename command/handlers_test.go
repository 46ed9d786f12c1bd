package command

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-account-links/core"
	gocmd "github.com/goliatone/go-command"
)

type stubLinkService struct {
	beginFn    func(ctx context.Context, req core.BeginLinkRequest) (core.BeginLinkResult, error)
	completeFn func(ctx context.Context, req core.CompleteLinkRequest) (core.LinkedAccountSummary, error)
	ensureFn   func(ctx context.Context, linkedAccountID string) (core.FreshCredential, error)
	unlinkFn   func(ctx context.Context, platform core.Platform, ownerUserID string) error
	listFn     func(ctx context.Context, ownerUserID string) ([]core.LinkedAccountSummary, error)
}

func (s stubLinkService) BeginLink(ctx context.Context, req core.BeginLinkRequest) (core.BeginLinkResult, error) {
	if s.beginFn != nil {
		return s.beginFn(ctx, req)
	}
	return core.BeginLinkResult{}, nil
}

func (s stubLinkService) CompleteLink(ctx context.Context, req core.CompleteLinkRequest) (core.LinkedAccountSummary, error) {
	if s.completeFn != nil {
		return s.completeFn(ctx, req)
	}
	return core.LinkedAccountSummary{}, nil
}

func (s stubLinkService) EnsureFreshCredential(ctx context.Context, linkedAccountID string) (core.FreshCredential, error) {
	if s.ensureFn != nil {
		return s.ensureFn(ctx, linkedAccountID)
	}
	return core.FreshCredential{}, nil
}

func (s stubLinkService) Unlink(ctx context.Context, platform core.Platform, ownerUserID string) error {
	if s.unlinkFn != nil {
		return s.unlinkFn(ctx, platform, ownerUserID)
	}
	return nil
}

func (s stubLinkService) ListLinks(ctx context.Context, ownerUserID string) ([]core.LinkedAccountSummary, error) {
	if s.listFn != nil {
		return s.listFn(ctx, ownerUserID)
	}
	return nil, nil
}

func TestBeginLinkCommandDelegatesAndStoresResult(t *testing.T) {
	expected := core.BeginLinkResult{
		RedirectURL: "https://auth.example.com/authorize",
		SessionRef:  "ref-1",
		ExpiresAt:   time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC),
	}
	called := false

	svc := stubLinkService{
		beginFn: func(_ context.Context, req core.BeginLinkRequest) (core.BeginLinkResult, error) {
			called = true
			if req.Platform != core.PlatformVideo || req.OwnerUserID != "user-1" {
				t.Fatalf("unexpected request %+v", req)
			}
			return expected, nil
		},
	}

	cmd := NewBeginLinkCommand(svc)
	collector := gocmd.NewResult[core.BeginLinkResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, BeginLinkMessage{Request: core.BeginLinkRequest{
		Platform:    core.PlatformVideo,
		OwnerUserID: "user-1",
	}})
	if err != nil {
		t.Fatalf("execute begin link: %v", err)
	}
	if !called {
		t.Fatalf("expected service invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.SessionRef != expected.SessionRef || result.RedirectURL != expected.RedirectURL {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCompleteLinkCommandDelegates(t *testing.T) {
	expected := core.LinkedAccountSummary{ID: "link-1", Platform: core.PlatformMicroblog, ExternalAccountID: "ext-1"}
	svc := stubLinkService{
		completeFn: func(_ context.Context, req core.CompleteLinkRequest) (core.LinkedAccountSummary, error) {
			if req.SessionRef != "ref-1" {
				t.Fatalf("unexpected session ref %q", req.SessionRef)
			}
			return expected, nil
		},
	}

	cmd := NewCompleteLinkCommand(svc)
	collector := gocmd.NewResult[core.LinkedAccountSummary]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, CompleteLinkMessage{Request: core.CompleteLinkRequest{
		Platform:   core.PlatformMicroblog,
		SessionRef: "ref-1",
	}})
	if err != nil {
		t.Fatalf("execute complete link: %v", err)
	}
	stored, ok := collector.Load()
	if !ok || stored.ID != "link-1" {
		t.Fatalf("unexpected stored result %+v (%v)", stored, ok)
	}
}

func TestEnsureFreshCredentialCommandDelegates(t *testing.T) {
	svc := stubLinkService{
		ensureFn: func(_ context.Context, linkedAccountID string) (core.FreshCredential, error) {
			if linkedAccountID != "link-1" {
				t.Fatalf("unexpected id %q", linkedAccountID)
			}
			return core.FreshCredential{LinkedAccountID: "link-1", AccessToken: "token-1", Refreshed: true}, nil
		},
	}

	cmd := NewEnsureFreshCredentialCommand(svc)
	collector := gocmd.NewResult[core.FreshCredential]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, EnsureFreshCredentialMessage{LinkedAccountID: "link-1"}); err != nil {
		t.Fatalf("execute ensure fresh: %v", err)
	}
	stored, ok := collector.Load()
	if !ok || !stored.Refreshed {
		t.Fatalf("unexpected stored result %+v (%v)", stored, ok)
	}
}

func TestUnlinkCommandDelegates(t *testing.T) {
	called := false
	svc := stubLinkService{
		unlinkFn: func(_ context.Context, platform core.Platform, ownerUserID string) error {
			called = true
			if platform != core.PlatformPhoto || ownerUserID != "user-1" {
				t.Fatalf("unexpected unlink payload %q %q", platform, ownerUserID)
			}
			return nil
		},
	}

	cmd := NewUnlinkCommand(svc)
	if err := cmd.Execute(context.Background(), UnlinkMessage{Platform: core.PlatformPhoto, OwnerUserID: "user-1"}); err != nil {
		t.Fatalf("execute unlink: %v", err)
	}
	if !called {
		t.Fatalf("expected unlink invocation")
	}
}

func TestCommandsRequireService(t *testing.T) {
	if err := (&BeginLinkCommand{}).Execute(context.Background(), BeginLinkMessage{}); err == nil {
		t.Fatalf("expected dependency error")
	}
	if err := (&UnlinkCommand{}).Execute(context.Background(), UnlinkMessage{}); err == nil {
		t.Fatalf("expected dependency error")
	}
}

func TestMessageValidation(t *testing.T) {
	cases := []struct {
		name    string
		message interface{ Validate() error }
		wantErr bool
	}{
		{"begin valid", BeginLinkMessage{Request: core.BeginLinkRequest{Platform: core.PlatformVideo, OwnerUserID: "user-1"}}, false},
		{"begin missing owner", BeginLinkMessage{Request: core.BeginLinkRequest{Platform: core.PlatformVideo}}, true},
		{"begin bad platform", BeginLinkMessage{Request: core.BeginLinkRequest{Platform: "podcast", OwnerUserID: "user-1"}}, true},
		{"complete valid", CompleteLinkMessage{Request: core.CompleteLinkRequest{Platform: core.PlatformPhoto, SessionRef: "ref-1"}}, false},
		{"complete missing ref", CompleteLinkMessage{Request: core.CompleteLinkRequest{Platform: core.PlatformPhoto}}, true},
		{"ensure valid", EnsureFreshCredentialMessage{LinkedAccountID: "link-1"}, false},
		{"ensure missing id", EnsureFreshCredentialMessage{}, true},
		{"unlink valid", UnlinkMessage{Platform: core.PlatformMicroblog, OwnerUserID: "user-1"}, false},
		{"unlink missing owner", UnlinkMessage{Platform: core.PlatformMicroblog}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.message.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
