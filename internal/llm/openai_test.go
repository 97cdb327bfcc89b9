package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/common"
)

func completionBody(content string) string {
	return `{"choices": [{"message": {"role": "assistant", "content": ` + mustJSON(content) + `}}]}`
}

func mustJSON(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func newServerClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := newOpenAIClient(ProviderConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return client
}

func TestOpenAIRequiresKey(t *testing.T) {
	_, err := newOpenAIClient(ProviderConfig{})
	assert.Error(t, err)
}

func TestGenerateStructured(t *testing.T) {
	var gotBody map[string]any

	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody(`{"amount": 5}`)))
	})

	out, err := client.GenerateStructured(context.Background(), Request{
		Prompt: "extract",
		System: "json only",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"amount": 5}`, out)

	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	messages := gotBody["messages"].([]any)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
}

func TestGenerateStructuredImagePayload(t *testing.T) {
	var gotBody map[string]any

	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		_, _ = w.Write([]byte(completionBody("{}")))
	})

	_, err := client.GenerateStructured(context.Background(), Request{
		Prompt:    "read this receipt",
		Image:     []byte{0xFF, 0xD8, 0xFF},
		ImageMime: "image/jpeg",
	})
	require.NoError(t, err)

	messages := gotBody["messages"].([]any)
	user := messages[0].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)

	imagePart := parts[1].(map[string]any)
	assert.Equal(t, "image_url", imagePart["type"])
	url := imagePart["image_url"].(map[string]any)["url"].(string)
	assert.Contains(t, url, "data:image/jpeg;base64,")
}

func TestGenerateStructuredStatusMapping(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantRateLimit bool
		wantRetryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true, false},
		{"server error is transient", http.StatusBadGateway, false, true},
		{"client error is permanent", http.StatusBadRequest, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newServerClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": "nope"}`))
			})

			_, err := client.GenerateStructured(context.Background(), Request{Prompt: "x"})
			require.Error(t, err)

			if tt.wantRateLimit {
				assert.ErrorIs(t, err, common.ErrRateLimit)
				return
			}
			var retryable *common.RetryableError
			require.ErrorAs(t, err, &retryable)
			assert.Equal(t, tt.wantRetryable, retryable.Retryable)
		})
	}
}

func TestGenerateStructuredNoChoices(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.GenerateStructured(context.Background(), Request{Prompt: "x"})
	assert.Error(t, err)
}

func TestCompatibleClientDefaults(t *testing.T) {
	grok, err := newGrokClient(ProviderConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "grok", grok.Name())

	ollama, err := newOllamaClient(ProviderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "ollama", ollama.Name())
}

func TestNewClientFactory(t *testing.T) {
	_, err := NewClient(context.Background(), ProviderConfig{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)

	_, err = NewClient(context.Background(), ProviderConfig{Provider: "unknown"})
	assert.Error(t, err)

	_, err = NewClients(context.Background(), nil)
	assert.Error(t, err)
}
