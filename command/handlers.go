package command

import (
	"context"

	"github.com/goliatone/go-account-links/core"
	gocmd "github.com/goliatone/go-command"
)

type BeginLinkCommand struct {
	service core.LinkService
}

func NewBeginLinkCommand(service core.LinkService) *BeginLinkCommand {
	return &BeginLinkCommand{service: service}
}

func (c *BeginLinkCommand) Execute(ctx context.Context, msg BeginLinkMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: link service is required")
	}
	out, err := c.service.BeginLink(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteLinkCommand struct {
	service core.LinkService
}

func NewCompleteLinkCommand(service core.LinkService) *CompleteLinkCommand {
	return &CompleteLinkCommand{service: service}
}

func (c *CompleteLinkCommand) Execute(ctx context.Context, msg CompleteLinkMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: link service is required")
	}
	out, err := c.service.CompleteLink(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type EnsureFreshCredentialCommand struct {
	service core.LinkService
}

func NewEnsureFreshCredentialCommand(service core.LinkService) *EnsureFreshCredentialCommand {
	return &EnsureFreshCredentialCommand{service: service}
}

func (c *EnsureFreshCredentialCommand) Execute(ctx context.Context, msg EnsureFreshCredentialMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: link service is required")
	}
	out, err := c.service.EnsureFreshCredential(ctx, msg.LinkedAccountID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UnlinkCommand struct {
	service core.LinkService
}

func NewUnlinkCommand(service core.LinkService) *UnlinkCommand {
	return &UnlinkCommand{service: service}
}

func (c *UnlinkCommand) Execute(ctx context.Context, msg UnlinkMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: link service is required")
	}
	return c.service.Unlink(ctx, msg.Platform, msg.OwnerUserID)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
