package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Veraticus/scribe/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropicClient(t *testing.T) {
	_, err := newAnthropicClient(Config{})
	require.Error(t, err)

	client, err := newAnthropicClient(Config{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-sonnet-latest", client.model)
	assert.Equal(t, 2048, client.maxTokens)
}

func TestAnthropicClient_BuildRequestAlternatesRoles(t *testing.T) {
	client, err := newAnthropicClient(Config{APIKey: "test-key"})
	require.NoError(t, err)

	req := client.buildRequest(prompt{
		System: "system",
		Turns: []model.HistoryTurn{
			{Role: model.RoleModel, Text: "welcome"},
			{Role: model.RoleUser, Text: "a"},
			{Role: model.RoleUser, Text: "b"},
			{Role: model.RoleModel, Text: "c"},
			{Role: model.RoleUser, Text: "d"},
		},
		User: userMessage{Text: "now", ImageMIME: "image/jpeg", ImageData: []byte("jpg")},
	})

	assert.Equal(t, "system", req["system"])
	messages, ok := req["messages"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, messages, 3)
	assert.Equal(t, "user", messages[0]["role"])
	assert.Equal(t, "a\n\nb", messages[0]["content"])
	assert.Equal(t, "assistant", messages[1]["role"])
	assert.Equal(t, "user", messages[2]["role"])

	content, ok := messages[2]["content"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, content, 2)
	assert.Equal(t, "image", content[0]["type"])
	assert.Equal(t, "d\n\nnow", content[1]["text"])
}

func TestAnthropicClient_Complete(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantText   string
		statusCode int
		wantErr    bool
	}{
		{
			name:       "joins text blocks",
			statusCode: http.StatusOK,
			body:       `{"content":[{"type":"text","text":"{\"answer\":"},{"type":"text","text":"\"hi\"}"}]}`,
			wantText:   `{"answer":"hi"}`,
		},
		{
			name:       "API error",
			statusCode: http.StatusTooManyRequests,
			body:       `{"error":{"type":"rate_limit_error"}}`,
			wantErr:    true,
		},
		{
			name:       "empty content",
			statusCode: http.StatusOK,
			body:       `{"content":[]}`,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/messages", r.URL.Path)
				assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
				assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
				var body map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
			require.NoError(t, err)

			text, err := client.complete(context.Background(), prompt{User: userMessage{Text: "hi"}})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
		})
	}
}
