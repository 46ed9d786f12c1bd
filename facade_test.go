package accountlinks

import (
	"context"
	"testing"

	linkcmd "github.com/goliatone/go-account-links/command"
	"github.com/goliatone/go-account-links/core"
	gocmd "github.com/goliatone/go-command"
)

type stubLinkService struct {
	begins  int
	unlinks int
}

func (s *stubLinkService) BeginLink(context.Context, core.BeginLinkRequest) (core.BeginLinkResult, error) {
	s.begins++
	return core.BeginLinkResult{SessionRef: "ref-1"}, nil
}

func (s *stubLinkService) CompleteLink(context.Context, core.CompleteLinkRequest) (core.LinkedAccountSummary, error) {
	return core.LinkedAccountSummary{ID: "link-1"}, nil
}

func (s *stubLinkService) EnsureFreshCredential(context.Context, string) (core.FreshCredential, error) {
	return core.FreshCredential{}, nil
}

func (s *stubLinkService) Unlink(context.Context, core.Platform, string) error {
	s.unlinks++
	return nil
}

func (s *stubLinkService) ListLinks(context.Context, string) ([]core.LinkedAccountSummary, error) {
	return nil, nil
}

func TestNewFacadeRequiresService(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected error for nil service")
	}
}

func TestFacadeCommandsShareService(t *testing.T) {
	svc := &stubLinkService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()
	if commands.BeginLink == nil || commands.CompleteLink == nil ||
		commands.EnsureFreshCredential == nil || commands.Unlink == nil {
		t.Fatalf("expected all commands to be constructed")
	}
	if facade.Service() == nil {
		t.Fatalf("expected service accessor")
	}

	collector := gocmd.NewResult[core.BeginLinkResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err = commands.BeginLink.Execute(ctx, linkcmd.BeginLinkMessage{Request: core.BeginLinkRequest{
		Platform:    PlatformVideo,
		OwnerUserID: "user-1",
	}})
	if err != nil {
		t.Fatalf("execute begin link: %v", err)
	}
	if svc.begins != 1 {
		t.Fatalf("expected begin link to reach the service")
	}
	result, ok := collector.Load()
	if !ok || result.SessionRef != "ref-1" {
		t.Fatalf("unexpected stored result %+v (%v)", result, ok)
	}

	if err := commands.Unlink.Execute(context.Background(), linkcmd.UnlinkMessage{
		Platform:    PlatformPhoto,
		OwnerUserID: "user-1",
	}); err != nil {
		t.Fatalf("execute unlink: %v", err)
	}
	if svc.unlinks != 1 {
		t.Fatalf("expected unlink to reach the service")
	}
}
