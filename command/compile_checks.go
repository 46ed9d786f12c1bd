package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[BeginLinkMessage]             = (*BeginLinkCommand)(nil)
	_ gocmd.Commander[CompleteLinkMessage]          = (*CompleteLinkCommand)(nil)
	_ gocmd.Commander[EnsureFreshCredentialMessage] = (*EnsureFreshCredentialCommand)(nil)
	_ gocmd.Commander[UnlinkMessage]                = (*UnlinkCommand)(nil)
)
