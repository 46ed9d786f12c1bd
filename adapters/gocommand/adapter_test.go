package gocommand

import (
	"context"
	"testing"

	linkcmd "github.com/goliatone/go-account-links/command"
	"github.com/goliatone/go-account-links/core"
	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

type stubLinkService struct {
	beginCalls  int
	unlinkCalls int
}

func (s *stubLinkService) BeginLink(context.Context, core.BeginLinkRequest) (core.BeginLinkResult, error) {
	s.beginCalls++
	return core.BeginLinkResult{SessionRef: "ref-1"}, nil
}

func (s *stubLinkService) CompleteLink(context.Context, core.CompleteLinkRequest) (core.LinkedAccountSummary, error) {
	return core.LinkedAccountSummary{}, nil
}

func (s *stubLinkService) EnsureFreshCredential(context.Context, string) (core.FreshCredential, error) {
	return core.FreshCredential{}, nil
}

func (s *stubLinkService) Unlink(context.Context, core.Platform, string) error {
	s.unlinkCalls++
	return nil
}

func (s *stubLinkService) ListLinks(context.Context, string) ([]core.LinkedAccountSummary, error) {
	return nil, nil
}

func TestValidateMessageContract(t *testing.T) {
	valid := linkcmd.UnlinkMessage{Platform: core.PlatformVideo, OwnerUserID: "user-1"}
	if err := ValidateMessageContract(valid); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	invalid := linkcmd.UnlinkMessage{Platform: core.PlatformVideo}
	if err := ValidateMessageContract(invalid); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestRegisterLinkCommandsAndDispatch(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	svc := &stubLinkService{}

	subscriptions, err := RegisterLinkCommands(adapter, svc)
	if err != nil {
		t.Fatalf("register link commands: %v", err)
	}
	defer func() {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
	}()
	if len(subscriptions) != 4 {
		t.Fatalf("expected 4 subscriptions, got %d", len(subscriptions))
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if err := Dispatch(context.Background(), linkcmd.BeginLinkMessage{
		Request: core.BeginLinkRequest{Platform: core.PlatformVideo, OwnerUserID: "user-1"},
	}); err != nil {
		t.Fatalf("dispatch begin link: %v", err)
	}
	if svc.beginCalls != 1 {
		t.Fatalf("expected begin link execution count=1, got %d", svc.beginCalls)
	}

	if err := Dispatch(context.Background(), linkcmd.UnlinkMessage{
		Platform:    core.PlatformPhoto,
		OwnerUserID: "user-1",
	}); err != nil {
		t.Fatalf("dispatch unlink: %v", err)
	}
	if svc.unlinkCalls != 1 {
		t.Fatalf("expected unlink execution count=1, got %d", svc.unlinkCalls)
	}
}

func TestRegisterLinkCommandsRequiresService(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	if _, err := RegisterLinkCommands(adapter, nil); err == nil {
		t.Fatalf("expected error for missing service")
	}
	if _, err := RegisterLinkCommands(nil, &stubLinkService{}); err == nil {
		t.Fatalf("expected error for missing registry")
	}
}

func TestQueueResolverHookWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()
	svc := &stubLinkService{}

	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if !adapter.HasResolver("queue") {
		t.Fatalf("expected queue resolver to be registered")
	}

	subscriptions, err := RegisterLinkCommands(adapter, svc)
	if err != nil {
		t.Fatalf("register link commands: %v", err)
	}
	defer func() {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
	}()
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if _, ok := queueRegistry.Get(linkcmd.TypeEnsureFreshCredential); !ok {
		t.Fatalf("expected ensure fresh command to be mirrored into queue registry")
	}
}
