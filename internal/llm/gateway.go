package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/model"
)

// Gateway extracts structured records from one user turn.
type Gateway interface {
	Extract(ctx context.Context, req model.ExtractionRequest) (model.ExtractionResult, error)
}

// Config holds configuration for the extraction gateway.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	RateLimit   int // requests per minute; 0 uses the provider quota, negative disables
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// completer sends one prepared conversation to a provider and returns the raw reply text.
type completer interface {
	complete(ctx context.Context, p prompt) (string, error)
}

// Extractor implements Gateway on top of a provider client.
type Extractor struct {
	client   completer
	logger   *slog.Logger
	throttle *throttle
	provider string
}

func newExtractor(provider string, client completer, rateLimit int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		client:   client,
		logger:   logger,
		throttle: newThrottle(provider, rateLimit),
		provider: provider,
	}
}

// Extract builds the prompt, calls the provider once and parses its reply.
func (e *Extractor) Extract(ctx context.Context, req model.ExtractionRequest) (model.ExtractionResult, error) {
	if err := e.throttle.wait(ctx); err != nil {
		return model.ExtractionResult{}, fmt.Errorf("%w: %w", common.ErrGateway, err)
	}

	p, err := buildPrompt(req)
	if err != nil {
		return model.ExtractionResult{}, fmt.Errorf("%w: %w", common.ErrGateway, err)
	}

	start := time.Now()
	content, err := e.client.complete(ctx, p)
	if err != nil {
		return model.ExtractionResult{}, fmt.Errorf("%w: %s: %w", common.ErrGateway, e.provider, err)
	}

	result, err := parseExtraction(content)
	if err != nil {
		e.logger.Debug("unparseable model reply", "provider", e.provider, "content", content)
		return model.ExtractionResult{}, fmt.Errorf("%w: %w", common.ErrGateway, err)
	}

	e.logger.Info("extraction completed",
		"provider", e.provider,
		"duration", time.Since(start),
		"clarification", result.ClarificationNeeded,
		"records", result.Data.Count())
	return result, nil
}
