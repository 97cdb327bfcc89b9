package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWhisperTranscriberRequiresKey(t *testing.T) {
	_, err := NewWhisperTranscriber(WhisperConfig{})
	assert.Error(t, err)
}

func TestTranscribe(t *testing.T) {
	var gotAuth, gotModel, gotFilename string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		if files := r.MultipartForm.File["file"]; len(files) > 0 {
			gotFilename = files[0].Filename
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "spent twelve euros on lunch"}`))
	}))
	defer server.Close()

	transcriber, err := NewWhisperTranscriber(WhisperConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	text, err := transcriber.Transcribe(context.Background(), []byte{1, 2, 3}, "audio/ogg")
	require.NoError(t, err)

	assert.Equal(t, "spent twelve euros on lunch", text)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, "audio.ogg", gotFilename)
}

func TestTranscribeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "invalid file"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	transcriber, err := NewWhisperTranscriber(WhisperConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = transcriber.Transcribe(context.Background(), []byte{1}, "audio/ogg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestTranscribeDeadlinePassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
		_, _ = w.Write([]byte(`{"text": "too late"}`))
	}))
	defer server.Close()

	transcriber, err := NewWhisperTranscriber(WhisperConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = transcriber.Transcribe(ctx, []byte{1}, "audio/ogg")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".mp3", extensionFor("audio/mpeg"))
	assert.Equal(t, ".wav", extensionFor("audio/wav"))
	assert.Equal(t, ".m4a", extensionFor("audio/mp4"))
	assert.Equal(t, ".ogg", extensionFor("application/octet-stream"))
}
