// Package normalize converts raw multi-modal input into the single
// intermediate representation consumed by the extraction engine.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// AudioDemuxer extracts the audio track from a video container.
type AudioDemuxer interface {
	ExtractAudio(ctx context.Context, video []byte, mimeType string) ([]byte, string, error)
}

// converter turns one modality of raw input into normalized content.
type converter func(ctx context.Context, input model.RawInput) (model.NormalizedContent, error)

// Normalizer dispatches raw input to the converter registered for its
// modality. Converters are registered at construction based on which
// capabilities are available; an unregistered modality is a hard error.
type Normalizer struct {
	converters map[model.Modality]converter
	logger     *slog.Logger
	timeout    time.Duration
}

// Config holds normalizer options.
type Config struct {
	// Timeout bounds each external transcription or vision call.
	Timeout time.Duration
}

// New creates a normalizer. Nil capabilities leave their modalities
// unregistered: a nil transcriber disables voice and video, a nil vision
// reader disables photo. Text is always available.
func New(transcriber service.Transcriber, vision service.VisionReader, demuxer AudioDemuxer, cfg Config, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	n := &Normalizer{
		converters: make(map[model.Modality]converter),
		logger:     logger,
		timeout:    timeout,
	}

	n.converters[model.ModalityText] = n.convertText
	if transcriber != nil {
		n.converters[model.ModalityVoice] = n.voiceConverter(transcriber)
		if demuxer != nil {
			n.converters[model.ModalityVideo] = n.videoConverter(transcriber, demuxer)
		}
	}
	if vision != nil {
		n.converters[model.ModalityPhoto] = n.photoConverter(vision)
	}

	return n
}

// Normalize converts raw input into extractor-ready content.
func (n *Normalizer) Normalize(ctx context.Context, input model.RawInput) (model.NormalizedContent, error) {
	convert, ok := n.converters[input.Modality]
	if !ok {
		return model.NormalizedContent{}, fmt.Errorf("%w: %s", common.ErrUnsupportedModality, input.Modality)
	}
	return convert(ctx, input)
}

func (n *Normalizer) convertText(_ context.Context, input model.RawInput) (model.NormalizedContent, error) {
	return model.NormalizedContent{
		Transcript: strings.TrimSpace(input.Text),
		Source:     model.ModalityText,
	}, nil
}

func (n *Normalizer) voiceConverter(transcriber service.Transcriber) converter {
	return func(ctx context.Context, input model.RawInput) (model.NormalizedContent, error) {
		transcript, err := n.transcribe(ctx, transcriber, input.Data, input.MimeType)
		if err != nil {
			if isTimeout(err) {
				// Degrade instead of failing so the caller still gets a
				// terminal pipeline outcome rather than a raw error.
				n.logger.Warn("voice transcription timed out, degrading", "input_id", input.ID)
				return model.NormalizedContent{Source: model.ModalityVoice, Degraded: true}, nil
			}
			return model.NormalizedContent{}, fmt.Errorf("%w: %v", common.ErrTranscriptionFailure, err)
		}
		return model.NormalizedContent{
			Transcript: transcript,
			Source:     model.ModalityVoice,
		}, nil
	}
}

func (n *Normalizer) videoConverter(transcriber service.Transcriber, demuxer AudioDemuxer) converter {
	return func(ctx context.Context, input model.RawInput) (model.NormalizedContent, error) {
		audio, audioMime, err := demuxer.ExtractAudio(ctx, input.Data, input.MimeType)
		if err != nil {
			return model.NormalizedContent{}, fmt.Errorf("%w: audio demux: %v", common.ErrTranscriptionFailure, err)
		}

		transcript, err := n.transcribe(ctx, transcriber, audio, audioMime)
		if err != nil {
			if isTimeout(err) {
				n.logger.Warn("video transcription timed out, degrading", "input_id", input.ID)
				return model.NormalizedContent{Source: model.ModalityVideo, Degraded: true}, nil
			}
			return model.NormalizedContent{}, fmt.Errorf("%w: %v", common.ErrTranscriptionFailure, err)
		}
		return model.NormalizedContent{
			Transcript: transcript,
			Source:     model.ModalityVideo,
		}, nil
	}
}

func (n *Normalizer) photoConverter(vision service.VisionReader) converter {
	return func(ctx context.Context, input model.RawInput) (model.NormalizedContent, error) {
		callCtx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		content, err := vision.ExtractLineItems(callCtx, input.Data, input.MimeType)
		if err != nil {
			return model.NormalizedContent{}, fmt.Errorf("%w: %v", common.ErrTranscriptionFailure, err)
		}
		content.Source = model.ModalityPhoto
		return content, nil
	}
}

func (n *Normalizer) transcribe(ctx context.Context, transcriber service.Transcriber, audio []byte, mimeType string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	return transcriber.Transcribe(callCtx, audio, mimeType)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
