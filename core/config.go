package core

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	ServiceName     string        `koanf:"service_name" mapstructure:"service_name"`
	CallbackBaseURL string        `koanf:"callback_base_url" mapstructure:"callback_base_url"`
	PendingLinkTTL  time.Duration `koanf:"pending_link_ttl" mapstructure:"pending_link_ttl"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:    "account-links",
		PendingLinkTTL: DefaultPendingLinkTTL,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.PendingLinkTTL < 0 {
		return fmt.Errorf("core: pending_link_ttl must not be negative")
	}
	return nil
}
