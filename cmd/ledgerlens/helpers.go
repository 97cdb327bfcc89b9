package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/ledgerlens/ledgerlens/internal/categorize"
	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/llm"
	"github.com/ledgerlens/ledgerlens/internal/media"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/normalize"
	"github.com/ledgerlens/ledgerlens/internal/pipeline"
	"github.com/ledgerlens/ledgerlens/internal/resolve"
	"github.com/ledgerlens/ledgerlens/internal/service"
	"github.com/ledgerlens/ledgerlens/internal/storage"
)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context, settings *config.Settings) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadProfile returns the stored profile for the configured user, creating
// a default one on first use.
func loadProfile(ctx context.Context, store service.Storage, settings *config.Settings) (model.UserProfile, error) {
	userID := viper.GetString("profile.user")
	if userID == "" {
		userID = "default"
	}

	existing, err := store.GetProfile(ctx, userID)
	if err != nil {
		return model.UserProfile{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	profile := model.UserProfile{
		UserID:              userID,
		HomeCurrency:        settings.HomeCurrency,
		ConfidenceThreshold: settings.ConfidenceThreshold,
	}
	if err := store.SaveProfile(ctx, &profile); err != nil {
		return model.UserProfile{}, fmt.Errorf("failed to create profile: %w", err)
	}

	slog.Info("created default profile", "user_id", userID, "home_currency", profile.HomeCurrency)
	return profile, nil
}

// buildPipeline wires the full processing pipeline from configuration.
// The returned cleanup function releases provider resources.
func buildPipeline(ctx context.Context, settings *config.Settings, store service.Storage) (*pipeline.Pipeline, func(), error) {
	clients, err := llm.NewClients(ctx, settings.Providers)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	extractor, err := llm.NewExtractor(clients, llm.ExtractorConfig{
		MaxAttempts: settings.ExtractMaxAttempts,
		RetryDelay:  settings.ExtractRetryDelay,
		CallTimeout: settings.ExtractCallTimeout,
		RateLimit:   settings.RateLimitPerMinute,
	}, slog.Default())
	if err != nil {
		return nil, nil, err
	}

	// Voice and video need a transcription backend; photos need a
	// vision-capable provider. Missing capabilities leave those
	// modalities unsupported rather than failing startup.
	var transcriber service.Transcriber
	if key := transcriptionKey(settings); key != "" {
		whisper, err := media.NewWhisperTranscriber(media.WhisperConfig{
			APIKey:  key,
			Model:   settings.Transcription.Model,
			BaseURL: settings.Transcription.BaseURL,
		})
		if err != nil {
			_ = extractor.Close()
			return nil, nil, err
		}
		transcriber = whisper
	} else {
		slog.Warn("no transcription key configured; voice and video inputs disabled")
	}

	var demuxer normalize.AudioDemuxer
	if transcriber != nil {
		demuxer = media.NewFFmpegDemuxer(settings.FFmpegPath)
	}

	var vision service.VisionReader
	if visionClient := llm.FirstVisionCapable(clients); visionClient != nil {
		vision = media.NewVisionReader(visionClient)
	} else {
		slog.Warn("no vision-capable provider configured; photo inputs disabled")
	}

	normalizer := normalize.New(transcriber, vision, demuxer, normalize.Config{
		Timeout: settings.NormalizeTimeout,
	}, slog.Default())

	pipe := pipeline.New(
		normalizer,
		extractor,
		resolve.New(settings.ConfidenceThreshold),
		categorize.New(categorize.DefaultGuessThreshold, categorize.DefaultMinSimilarity),
		store,
		slog.Default(),
	)

	cleanup := func() {
		_ = extractor.Close()
	}
	return pipe, cleanup, nil
}

// transcriptionKey picks the speech-to-text API key, falling back to the
// first OpenAI provider's key since both ride the same account.
func transcriptionKey(settings *config.Settings) string {
	if settings.Transcription.APIKey != "" {
		return settings.Transcription.APIKey
	}
	for _, provider := range settings.Providers {
		if provider.Provider == "openai" && provider.APIKey != "" {
			return provider.APIKey
		}
	}
	return ""
}
