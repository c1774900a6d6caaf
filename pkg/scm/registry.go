package scm

import (
	"fmt"
	"sync"
)

// ProviderConfig carries the credentials of one provider.
type ProviderConfig struct {
	Kind       ProviderKind `mapstructure:"kind"`
	BaseUrl    string       `mapstructure:"baseUrl"`
	ApiBaseUrl string       `mapstructure:"apiBaseUrl"`
	Token      string       `mapstructure:"token"`
	// WebhookSecret verifies inbound webhooks from this provider.
	WebhookSecret string `mapstructure:"webhookSecret"`
}

type ProviderFactory func(cfg ProviderConfig) (Provider, error)

var (
	mu        sync.RWMutex
	factories = map[ProviderKind]ProviderFactory{}
)

// Register installs the factory for kind; a later call replaces it.
func Register(kind ProviderKind, factory ProviderFactory) {
	if kind == "" || factory == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = factory
}

// NewProvider builds a provider from the registered factory of cfg.Kind.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("provider kind is required")
	}
	mu.RLock()
	factory := factories[cfg.Kind]
	mu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("provider not registered: %s", cfg.Kind)
	}
	return factory(cfg)
}
