package accountlinks

import "github.com/goliatone/go-account-links/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type LinkService = core.LinkService
type Registry = core.Registry
type Provider = core.Provider
type PendingLinkStore = core.PendingLinkStore
type LinkedAccountStore = core.LinkedAccountStore

type Platform = core.Platform

type BeginLinkRequest = core.BeginLinkRequest
type BeginLinkResult = core.BeginLinkResult
type CompleteLinkRequest = core.CompleteLinkRequest
type LinkedAccountSummary = core.LinkedAccountSummary
type FreshCredential = core.FreshCredential

const (
	PlatformVideo     = core.PlatformVideo
	PlatformPhoto     = core.PlatformPhoto
	PlatformMicroblog = core.PlatformMicroblog
)

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorFactory       = core.WithErrorFactory
	WithErrorMapper        = core.WithErrorMapper
	WithPersistenceClient  = core.WithPersistenceClient
	WithRepositoryFactory  = core.WithRepositoryFactory
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithRegistry           = core.WithRegistry
	WithPendingLinkStore   = core.WithPendingLinkStore
	WithLinkedAccountStore = core.WithLinkedAccountStore
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
