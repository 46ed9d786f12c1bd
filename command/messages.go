// Package command exposes the mutating link operations as go-command
// messages so host apps can dispatch them on their command bus.
package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-account-links/core"
)

const (
	TypeBeginLink             = "account_links.command.begin"
	TypeCompleteLink          = "account_links.command.complete"
	TypeEnsureFreshCredential = "account_links.command.ensure_fresh"
	TypeUnlink                = "account_links.command.unlink"
)

type BeginLinkMessage struct {
	Request core.BeginLinkRequest
}

func (BeginLinkMessage) Type() string { return TypeBeginLink }

func (m BeginLinkMessage) Validate() error {
	if err := validatePlatform(m.Request.Platform); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.OwnerUserID) == "" {
		return fmt.Errorf("command: owner user id is required")
	}
	return nil
}

type CompleteLinkMessage struct {
	Request core.CompleteLinkRequest
}

func (CompleteLinkMessage) Type() string { return TypeCompleteLink }

func (m CompleteLinkMessage) Validate() error {
	if err := validatePlatform(m.Request.Platform); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.SessionRef) == "" {
		return fmt.Errorf("command: session reference is required")
	}
	return nil
}

type EnsureFreshCredentialMessage struct {
	LinkedAccountID string
}

func (EnsureFreshCredentialMessage) Type() string { return TypeEnsureFreshCredential }

func (m EnsureFreshCredentialMessage) Validate() error {
	if strings.TrimSpace(m.LinkedAccountID) == "" {
		return fmt.Errorf("command: linked account id is required")
	}
	return nil
}

type UnlinkMessage struct {
	Platform    core.Platform
	OwnerUserID string
}

func (UnlinkMessage) Type() string { return TypeUnlink }

func (m UnlinkMessage) Validate() error {
	if err := validatePlatform(m.Platform); err != nil {
		return err
	}
	if strings.TrimSpace(m.OwnerUserID) == "" {
		return fmt.Errorf("command: owner user id is required")
	}
	return nil
}

func validatePlatform(platform core.Platform) error {
	if err := platform.Validate(); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}
