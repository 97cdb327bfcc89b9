package llm

import (
	"context"
	"fmt"
	"strings"
)

// NewClient creates a provider client based on the provided configuration.
func NewClient(ctx context.Context, cfg ProviderConfig) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "gemini":
		return newGeminiClient(ctx, cfg)
	case "grok":
		return newGrokClient(cfg)
	case "ollama":
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// NewClients builds the ordered provider chain from a configured priority
// list. Order is preserved; failures constructing any provider abort the
// whole chain so misconfiguration surfaces at startup rather than mid-run.
func NewClients(ctx context.Context, cfgs []ProviderConfig) ([]Client, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("at least one LLM provider must be configured")
	}

	clients := make([]Client, 0, len(cfgs))
	for _, cfg := range cfgs {
		client, err := NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
		}
		clients = append(clients, client)
	}
	return clients, nil
}

// visionProviders are the backends whose endpoints accept image parts.
// Ollama depends on which local model is loaded, so photo input rides a
// hosted provider.
var visionProviders = map[string]bool{
	"openai": true,
	"gemini": true,
	"grok":   true,
}

// FirstVisionCapable returns the first client in the ordered chain that
// accepts image input, or nil when none does.
func FirstVisionCapable(clients []Client) Client {
	for _, client := range clients {
		if visionProviders[strings.ToLower(client.Name())] {
			return client
		}
	}
	return nil
}
