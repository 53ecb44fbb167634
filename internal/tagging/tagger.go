package tagging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/config"
	"github.com/spec-kit/ticket-intake/internal/domain"
	"github.com/spec-kit/ticket-intake/internal/model"
	"github.com/spec-kit/ticket-intake/internal/observability"
)

// Tagger turns a ticket into tags by prompting a text-generation model.
type Tagger struct {
	generator   model.Generator
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewTagger constructs a Tagger. A zero timeout leaves the model call bounded
// only by the caller's context.
func NewTagger(generator model.Generator, cfg config.ModelConfig, logger *zap.Logger, metrics *observability.Metrics) *Tagger {
	return &Tagger{
		generator:   generator,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout(),
		logger:      logger,
		metrics:     metrics,
	}
}

// Extract builds the prompt, invokes the model and parses its answer.
func (t *Tagger) Extract(ctx context.Context, subject, description, email string) (domain.Tags, error) {
	prompt := BuildPrompt(subject, description, email)

	raw, err := t.Invoke(ctx, prompt)
	if err != nil {
		return domain.Tags{}, err
	}

	result, err := ExtractTags(raw)
	if err != nil {
		t.metrics.RecordExtraction("none")
		t.logger.Warn("tag extraction failed", zap.String("model_output", raw), zap.Error(err))
		return domain.Tags{}, err
	}
	t.metrics.RecordExtraction(result.Strategy)
	t.logger.Debug("tags extracted", zap.String("strategy", result.Strategy))
	return result.Tags, nil
}

// Invoke runs one generation under the configured timeout and returns the
// model's continuation with any echoed prompt removed.
func (t *Tagger) Invoke(ctx context.Context, prompt string) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := t.generator.Generate(ctx, prompt, t.maxTokens, t.temperature)
	t.metrics.ObserveModelLatency(time.Since(start))
	if err != nil {
		return "", fmt.Errorf("invoke model: %w", err)
	}

	out = strings.TrimPrefix(out, prompt)
	return strings.TrimSpace(out), nil
}
