package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerlens/ledgerlens/internal/llm"
)

// Settings is the application configuration materialized from viper.
type Settings struct {
	DatabasePath        string
	Providers           []llm.ProviderConfig
	Transcription       TranscriptionSettings
	FFmpegPath          string
	NormalizeTimeout    time.Duration
	ExtractCallTimeout  time.Duration
	ExtractMaxAttempts  int
	ExtractRetryDelay   time.Duration
	RateLimitPerMinute  int
	ConfidenceThreshold float64
	HomeCurrency        string
}

// TranscriptionSettings configures the speech-to-text backend.
type TranscriptionSettings struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Load reads Settings out of the global viper instance. Defaults are
// applied here so callers see a fully populated value.
func Load() (*Settings, error) {
	v := viper.GetViper()

	v.SetDefault("database.path", "$HOME/.local/share/ledgerlens/ledgerlens.db")
	v.SetDefault("extraction.call_timeout", "45s")
	v.SetDefault("extraction.max_attempts", 2)
	v.SetDefault("extraction.retry_delay", "1s")
	v.SetDefault("extraction.rate_limit", 60)
	v.SetDefault("normalize.timeout", "30s")
	v.SetDefault("resolve.confidence_threshold", 0.6)
	v.SetDefault("profile.home_currency", "USD")
	v.SetDefault("media.ffmpeg_path", "ffmpeg")

	providers, err := loadProviders(v)
	if err != nil {
		return nil, err
	}

	return &Settings{
		DatabasePath: ExpandPath(v.GetString("database.path")),
		Providers:    providers,
		Transcription: TranscriptionSettings{
			APIKey:  v.GetString("transcription.api_key"),
			Model:   v.GetString("transcription.model"),
			BaseURL: v.GetString("transcription.base_url"),
		},
		FFmpegPath:          v.GetString("media.ffmpeg_path"),
		NormalizeTimeout:    v.GetDuration("normalize.timeout"),
		ExtractCallTimeout:  v.GetDuration("extraction.call_timeout"),
		ExtractMaxAttempts:  v.GetInt("extraction.max_attempts"),
		ExtractRetryDelay:   v.GetDuration("extraction.retry_delay"),
		RateLimitPerMinute:  v.GetInt("extraction.rate_limit"),
		ConfidenceThreshold: v.GetFloat64("resolve.confidence_threshold"),
		HomeCurrency:        v.GetString("profile.home_currency"),
	}, nil
}

// loadProviders reads the ordered provider chain. The chain order in the
// config file is the fallback order at runtime.
func loadProviders(v *viper.Viper) ([]llm.ProviderConfig, error) {
	var raw []map[string]any
	if err := v.UnmarshalKey("providers", &raw); err != nil {
		return nil, fmt.Errorf("failed to parse providers config: %w", err)
	}

	if len(raw) == 0 {
		// A bare OpenAI key is enough to get started.
		if key := v.GetString("openai.api_key"); key != "" {
			return []llm.ProviderConfig{{Provider: "openai", APIKey: key}}, nil
		}
		return nil, fmt.Errorf("no providers configured")
	}

	providers := make([]llm.ProviderConfig, 0, len(raw))
	for i, entry := range raw {
		cfg := llm.ProviderConfig{
			Provider:    stringValue(entry, "name"),
			APIKey:      stringValue(entry, "api_key"),
			Model:       stringValue(entry, "model"),
			BaseURL:     stringValue(entry, "base_url"),
			Temperature: floatValue(entry, "temperature"),
			MaxTokens:   intValue(entry, "max_tokens"),
		}
		if cfg.Provider == "" {
			return nil, fmt.Errorf("provider %d is missing a name", i)
		}
		providers = append(providers, cfg)
	}
	return providers, nil
}

func stringValue(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func floatValue(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func intValue(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
