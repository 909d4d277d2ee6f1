package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Veraticus/scribe/internal/model"
)

const anthropicBaseURL = "https://api.anthropic.com"

// anthropicClient talks to the Anthropic messages API.
type anthropicClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (*anthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	cfg = withDefaults(cfg, "claude-3-5-sonnet-latest")
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}

	return &anthropicClient{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  newHTTPClient(cfg.Timeout),
	}, nil
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *anthropicClient) buildRequest(p prompt) map[string]any {
	// The API requires alternating roles starting with the user, so consecutive
	// turns from the same side are joined and a leading model turn is dropped.
	type message struct {
		role string
		text string
	}
	var history []message
	for _, t := range p.Turns {
		role := "user"
		if t.Role == model.RoleModel {
			role = "assistant"
		}
		if len(history) == 0 && role == "assistant" {
			continue
		}
		if n := len(history); n > 0 && history[n-1].role == role {
			history[n-1].text += "\n\n" + t.Text
			continue
		}
		history = append(history, message{role: role, text: t.Text})
	}

	userContent := []map[string]any{}
	if p.User.hasImage() {
		userContent = append(userContent, map[string]any{
			"type": "image",
			"source": map[string]string{
				"type":       "base64",
				"media_type": p.User.ImageMIME,
				"data":       base64.StdEncoding.EncodeToString(p.User.ImageData),
			},
		})
	}
	userText := p.User.Text
	if n := len(history); n > 0 && history[n-1].role == "user" {
		userText = history[n-1].text + "\n\n" + userText
		history = history[:n-1]
	}
	userContent = append(userContent, map[string]any{"type": "text", "text": userText})

	messages := make([]map[string]any, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, map[string]any{"role": m.role, "content": m.text})
	}
	messages = append(messages, map[string]any{"role": "user", "content": userContent})

	return map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"system":      p.System,
		"messages":    messages,
	}
}

func (c *anthropicClient) complete(ctx context.Context, p prompt) (string, error) {
	jsonBody, err := json.Marshal(c.buildRequest(p))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return text.String(), nil
}
