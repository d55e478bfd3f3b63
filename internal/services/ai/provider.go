package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Provider sends a system and a user prompt to a chat-completion backend
// and returns the raw reply text.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ProviderConfig carries the settings a factory may use
type ProviderConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Logger    *zap.Logger
	DebugMode bool
}

// ProviderFactory creates a provider from configuration
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// DefaultRegistry returns a registry with the built-in providers
func DefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()
	r.Register("openai", func(cfg ProviderConfig) (Provider, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIProvider(cfg), nil
	})
	return r
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, cfg ProviderConfig) (Provider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(cfg)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
