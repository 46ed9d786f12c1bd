package accountlinks

import (
	"fmt"

	linkcmd "github.com/goliatone/go-account-links/command"
	"github.com/goliatone/go-account-links/core"
)

// Commands bundles the command handlers for one link service so hosts can
// register them against a bus without constructing each one.
type Commands struct {
	BeginLink             *linkcmd.BeginLinkCommand
	CompleteLink          *linkcmd.CompleteLinkCommand
	EnsureFreshCredential *linkcmd.EnsureFreshCredentialCommand
	Unlink                *linkcmd.UnlinkCommand
}

type Facade struct {
	service  core.LinkService
	commands Commands
}

func NewFacade(service core.LinkService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("accountlinks: link service is required")
	}
	return &Facade{
		service: service,
		commands: Commands{
			BeginLink:             linkcmd.NewBeginLinkCommand(service),
			CompleteLink:          linkcmd.NewCompleteLinkCommand(service),
			EnsureFreshCredential: linkcmd.NewEnsureFreshCredentialCommand(service),
			Unlink:                linkcmd.NewUnlinkCommand(service),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Service() core.LinkService {
	if f == nil {
		return nil
	}
	return f.service
}
