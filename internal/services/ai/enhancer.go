// Package ai turns free-text requests into structured todo suggestions,
// through a chat-completion provider when one is configured and through a
// keyword table otherwise.
package ai

import (
	"context"

	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/models"
	"go.uber.org/zap"
)

// Enhancer produces an Enhancement for any input and never fails
type Enhancer struct {
	provider Provider
	logger   *zap.Logger
}

// NewEnhancer creates an enhancer. A nil provider means AI is unavailable
// and every request is answered from the fallback table.
func NewEnhancer(provider Provider, log *zap.Logger) *Enhancer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Enhancer{provider: provider, logger: log}
}

// Available reports whether a provider is configured
func (e *Enhancer) Available() bool {
	return e != nil && e.provider != nil
}

// Enhance asks the provider once. Transport failures fall back on the
// input alone; unparseable replies fall back with the raw reply attached.
func (e *Enhancer) Enhance(ctx context.Context, input string) models.Enhancement {
	if !e.Available() {
		return Fallback(input, "")
	}

	raw, err := e.provider.Complete(ctx, enhanceSystemPrompt, buildEnhanceUserPrompt(input))
	if err != nil {
		fields := []zap.Field{
			zap.String("error", logger.SanitizeError(err)),
			zap.Bool("rate_limited", IsRateLimitError(err)),
			zap.Bool("quota_exceeded", IsQuotaError(err)),
		}
		e.logger.Warn("ai_enhancement_failed", fields...)
		return Fallback(input, "")
	}

	enhancement, err := ParseEnhancement(raw, input)
	if err != nil {
		e.logger.Warn("ai_enhancement_unparseable",
			zap.String("error", logger.SanitizeError(err)),
			zap.String("response_preview", SanitizeResponse(raw, false)))
		return Fallback(input, raw)
	}

	return enhancement
}
