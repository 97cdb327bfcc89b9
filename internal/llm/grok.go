package llm

import "fmt"

const grokBaseURL = "https://api.x.ai/v1"

// newGrokClient creates a client for xAI's Grok API, which is
// OpenAI-compatible on the wire.
func newGrokClient(cfg ProviderConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Grok API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "grok-beta"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = grokBaseURL
	}

	return newCompatibleClient("grok", baseURL, cfg.APIKey, model, cfg), nil
}
