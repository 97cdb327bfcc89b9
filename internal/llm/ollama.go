package llm

const ollamaBaseURL = "http://localhost:11434/v1"

// newOllamaClient creates a client for a local Ollama server via its
// OpenAI-compatible endpoint. No API key is needed.
func newOllamaClient(cfg ProviderConfig) (Client, error) {
	model := cfg.Model
	if model == "" {
		model = "llama3.2"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = ollamaBaseURL
	}

	return newCompatibleClient("ollama", baseURL, cfg.APIKey, model, cfg), nil
}
