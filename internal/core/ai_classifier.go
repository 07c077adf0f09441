package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AIClassifier asks an LLM for a decision and falls back to the rule
// cascade whenever the service fails or replies with something unusable.
type AIClassifier struct {
	llm      LLMClient
	fallback *RuleClassifier
	timeout  time.Duration
	logger   *zap.Logger
}

// NewAIClassifier creates an AI classifier. A zero timeout disables the deadline.
func NewAIClassifier(llm LLMClient, fallback *RuleClassifier, timeout time.Duration, logger *zap.Logger) *AIClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fallback == nil {
		fallback = NewRuleClassifier(logger)
	}
	return &AIClassifier{
		llm:      llm,
		fallback: fallback,
		timeout:  timeout,
		logger:   logger,
	}
}

// Classify implements Classifier
func (c *AIClassifier) Classify(ctx context.Context, msg *MessageSummary, prefs *Preferences) Decision {
	if msg == nil {
		return c.fallback.Classify(ctx, msg, prefs)
	}
	d, err := c.analyze(ctx, msg, prefs)
	if err != nil {
		c.logger.Warn("AI classification failed, using rules",
			zap.String("id", msg.ID),
			zap.Error(err))
		return c.fallback.Classify(ctx, msg, prefs)
	}

	c.logger.Debug("AI decision",
		zap.String("id", msg.ID),
		zap.String("model", d.Strategy),
		zap.String("category", d.Category),
		zap.Bool("delete", d.Delete),
		zap.Float64("confidence", d.Confidence))
	return *d
}

func (c *AIClassifier) analyze(ctx context.Context, msg *MessageSummary, prefs *Preferences) (d *Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("llm client panic: %v", r)
		}
	}()

	if c.llm == nil {
		return nil, fmt.Errorf("no llm client configured")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	d, err = c.llm.AnalyzeEmail(ctx, msg, prefs)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrInvalidDecision
	}
	return d, nil
}
