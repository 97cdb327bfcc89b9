package llm

import (
	"context"
)

// Client defines the interface for structured-generation providers.
// Implementations return the raw model text; schema parsing and validation
// happen in one place in the extractor so every backend is held to the
// same contract.
type Client interface {
	// Name identifies the provider in logs and configuration.
	Name() string
	// GenerateStructured sends a prompt (and optional image) to the
	// provider and returns the raw completion text.
	GenerateStructured(ctx context.Context, req Request) (string, error)
}

// Request carries one structured-generation call.
type Request struct {
	Prompt      string
	System      string
	ImageMime   string
	Image       []byte
	Temperature float64
	MaxTokens   int
}

// ProviderConfig holds configuration for a single provider backend.
type ProviderConfig struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string // used by local/OpenAI-compatible backends
	Temperature float64
	MaxTokens   int
}
