package llm

import (
	"context"
	"fmt"

	"github.com/Veraticus/scribe/internal/model"
	"google.golang.org/genai"
)

// geminiClient talks to the Gemini API through the genai SDK.
type geminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// newGeminiClient creates a new Gemini API client.
func newGeminiClient(cfg Config) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	cfg = withDefaults(cfg, "gemini-2.0-flash")

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiClient{
		client:      client,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

// geminiContents converts a prompt into the SDK's content list.
func geminiContents(p prompt) []*genai.Content {
	contents := make([]*genai.Content, 0, len(p.Turns)+1)
	for _, t := range p.Turns {
		role := genai.Role(genai.RoleUser)
		if t.Role == model.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}

	parts := []*genai.Part{genai.NewPartFromText(p.User.Text)}
	if p.User.hasImage() {
		parts = append(parts, genai.NewPartFromBytes(p.User.ImageData, p.User.ImageMIME))
	}
	return append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
}

func (c *geminiClient) generateConfig(p prompt) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		Temperature:       genai.Ptr(c.temperature),
		MaxOutputTokens:   c.maxTokens,
		ResponseMIMEType:  "application/json",
	}
}

func (c *geminiClient) complete(ctx context.Context, p prompt) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, geminiContents(p), c.generateConfig(p))
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no content in response")
	}
	return text, nil
}
