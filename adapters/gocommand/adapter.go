// Package gocommand wires the link commands into a go-command registry and
// the in-process dispatcher, for hosts that drive account linking via the
// command bus.
package gocommand

import (
	"context"
	"fmt"
	"strings"

	linkcmd "github.com/goliatone/go-account-links/command"
	"github.com/goliatone/go-account-links/core"
	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver mirrors registered commands into a go-job queue registry
// so the refresh sweep can execute them from deliveries.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// RegisterLinkCommands registers and subscribes the begin, complete, ensure
// fresh, and unlink commands against a single link service. On failure it
// unsubscribes everything registered so far.
func RegisterLinkCommands(
	adapter *RegistryAdapter,
	service core.LinkService,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if service == nil {
		return nil, fmt.Errorf("gocommand: link service is required")
	}

	subscriptions := make([]commanddispatcher.Subscription, 0, 4)
	rollback := func() {
		for _, sub := range subscriptions {
			if sub != nil {
				sub.Unsubscribe()
			}
		}
	}

	beginSub, err := RegisterAndSubscribe[linkcmd.BeginLinkMessage](adapter, linkcmd.NewBeginLinkCommand(service), runnerOpts...)
	if err != nil {
		rollback()
		return nil, err
	}
	subscriptions = append(subscriptions, beginSub)

	completeSub, err := RegisterAndSubscribe[linkcmd.CompleteLinkMessage](adapter, linkcmd.NewCompleteLinkCommand(service), runnerOpts...)
	if err != nil {
		rollback()
		return nil, err
	}
	subscriptions = append(subscriptions, completeSub)

	ensureSub, err := RegisterAndSubscribe[linkcmd.EnsureFreshCredentialMessage](adapter, linkcmd.NewEnsureFreshCredentialCommand(service), runnerOpts...)
	if err != nil {
		rollback()
		return nil, err
	}
	subscriptions = append(subscriptions, ensureSub)

	unlinkSub, err := RegisterAndSubscribe[linkcmd.UnlinkMessage](adapter, linkcmd.NewUnlinkCommand(service), runnerOpts...)
	if err != nil {
		rollback()
		return nil, err
	}
	subscriptions = append(subscriptions, unlinkSub)

	return subscriptions, nil
}
