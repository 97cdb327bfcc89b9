package normalize

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

type fakeTranscriber struct {
	transcript string
	err        error
	delay      time.Duration
	gotMime    string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ []byte, mimeType string) (string, error) {
	f.gotMime = mimeType
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.transcript, f.err
}

type fakeVision struct {
	content model.NormalizedContent
	err     error
}

func (f *fakeVision) ExtractLineItems(_ context.Context, _ []byte, _ string) (model.NormalizedContent, error) {
	return f.content, f.err
}

type fakeDemuxer struct {
	audio []byte
	mime  string
	err   error
}

func (f *fakeDemuxer) ExtractAudio(_ context.Context, _ []byte, _ string) ([]byte, string, error) {
	return f.audio, f.mime, f.err
}

func TestNormalizeText(t *testing.T) {
	normalizer := New(nil, nil, nil, Config{}, nil)

	content, err := normalizer.Normalize(context.Background(), model.RawInput{
		Modality: model.ModalityText,
		Text:     "  $25 lunch  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "$25 lunch", content.Transcript)
	assert.Equal(t, model.ModalityText, content.Source)
}

func TestNormalizeUnsupportedModality(t *testing.T) {
	// No transcriber and no vision reader: only text is registered.
	normalizer := New(nil, nil, nil, Config{}, nil)

	for _, modality := range []model.Modality{model.ModalityVoice, model.ModalityPhoto, model.ModalityVideo} {
		_, err := normalizer.Normalize(context.Background(), model.RawInput{Modality: modality})
		assert.ErrorIs(t, err, common.ErrUnsupportedModality, string(modality))
	}
}

func TestNormalizeVoice(t *testing.T) {
	transcriber := &fakeTranscriber{transcript: "spent twelve euros on lunch"}
	normalizer := New(transcriber, nil, nil, Config{}, nil)

	content, err := normalizer.Normalize(context.Background(), model.RawInput{
		Modality: model.ModalityVoice,
		MimeType: "audio/ogg",
		Data:     []byte{1, 2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "spent twelve euros on lunch", content.Transcript)
	assert.Equal(t, model.ModalityVoice, content.Source)
	assert.Equal(t, "audio/ogg", transcriber.gotMime)
}

func TestNormalizeVoiceTimeoutDegrades(t *testing.T) {
	transcriber := &fakeTranscriber{delay: 200 * time.Millisecond}
	normalizer := New(transcriber, nil, nil, Config{Timeout: 10 * time.Millisecond}, nil)

	content, err := normalizer.Normalize(context.Background(), model.RawInput{
		Modality: model.ModalityVoice,
		Data:     []byte{1},
	})
	require.NoError(t, err, "timeout must degrade, not fail")
	assert.True(t, content.Degraded)
	assert.True(t, content.Empty())
}

func TestNormalizeVoiceHardFailure(t *testing.T) {
	transcriber := &fakeTranscriber{err: fmt.Errorf("bad audio format")}
	normalizer := New(transcriber, nil, nil, Config{}, nil)

	_, err := normalizer.Normalize(context.Background(), model.RawInput{
		Modality: model.ModalityVoice,
		Data:     []byte{1},
	})
	assert.ErrorIs(t, err, common.ErrTranscriptionFailure)
}

func TestNormalizePhoto(t *testing.T) {
	vision := &fakeVision{content: model.NormalizedContent{
		MerchantHint: "Corner Deli",
		LineItems: []model.LineItem{
			{Name: "sandwich", Quantity: decimal.NewFromInt(1), TotalPrice: decimal.NewFromFloat(9.5)},
		},
	}}
	normalizer := New(nil, vision, nil, Config{}, nil)

	content, err := normalizer.Normalize(context.Background(), model.RawInput{
		Modality: model.ModalityPhoto,
		MimeType: "image/jpeg",
		Data:     []byte{0xFF, 0xD8},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ModalityPhoto, content.Source)
	assert.Equal(t, "Corner Deli", content.MerchantHint)
	require.Len(t, content.LineItems, 1)
}

func TestNormalizePhotoFailure(t *testing.T) {
	vision := &fakeVision{err: fmt.Errorf("unreadable image")}
	normalizer := New(nil, vision, nil, Config{}, nil)

	_, err := normalizer.Normalize(context.Background(), model.RawInput{
		Modality: model.ModalityPhoto,
		Data:     []byte{1},
	})
	assert.ErrorIs(t, err, common.ErrTranscriptionFailure)
}

func TestNormalizeVideo(t *testing.T) {
	transcriber := &fakeTranscriber{transcript: "paid thirty dollars for a taxi"}
	demuxer := &fakeDemuxer{audio: []byte{1, 2}, mime: "audio/wav"}
	normalizer := New(transcriber, nil, demuxer, Config{}, nil)

	content, err := normalizer.Normalize(context.Background(), model.RawInput{
		Modality: model.ModalityVideo,
		MimeType: "video/mp4",
		Data:     []byte{1, 2, 3, 4},
	})
	require.NoError(t, err)
	assert.Equal(t, "paid thirty dollars for a taxi", content.Transcript)
	assert.Equal(t, model.ModalityVideo, content.Source)
	assert.Equal(t, "audio/wav", transcriber.gotMime)
}

func TestNormalizeVideoDemuxFailure(t *testing.T) {
	transcriber := &fakeTranscriber{transcript: "unused"}
	demuxer := &fakeDemuxer{err: fmt.Errorf("no audio track")}
	normalizer := New(transcriber, nil, demuxer, Config{}, nil)

	_, err := normalizer.Normalize(context.Background(), model.RawInput{
		Modality: model.ModalityVideo,
		Data:     []byte{1},
	})
	assert.ErrorIs(t, err, common.ErrTranscriptionFailure)
}

func TestNormalizeVideoWithoutDemuxerUnsupported(t *testing.T) {
	transcriber := &fakeTranscriber{transcript: "unused"}
	normalizer := New(transcriber, nil, nil, Config{}, nil)

	_, err := normalizer.Normalize(context.Background(), model.RawInput{Modality: model.ModalityVideo})
	assert.ErrorIs(t, err, common.ErrUnsupportedModality)
}
