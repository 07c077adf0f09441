package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
	"github.com/mikey/inbox-sweeper/internal/credential"
)

// LLM provider names accepted in llm.provider
const (
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"

	// ProviderRules disables the assistant; classification uses rules only
	ProviderRules = "rules"
)

// KeySource looks up stored API keys
type KeySource interface {
	Get(key string) (string, error)
}

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg    *config.Config
	keys   KeySource
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory. keys may be nil.
func NewLLMFactory(cfg *config.Config, keys KeySource, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		keys:   keys,
		logger: logger,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration.
// It returns nil when the rules provider is configured.
func (f *LLMFactory) CreateLLMClient(ctx context.Context) (core.LLMClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case ProviderBedrock:
		return NewBedrockFactory(f.cfg, f.logger).CreateLLMClient(ctx)
	case ProviderGemini:
		return NewGeminiFactory(f.cfg, f.keys, f.logger).CreateLLMClient(ctx)
	case ProviderOpenAI:
		return NewOpenAIFactory(f.cfg, f.keys, f.logger).CreateLLMClient()
	case ProviderRules, "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}

// CreateClassifier returns the AI classifier backed by the configured
// provider, or the rule classifier when no provider can be built.
func (f *LLMFactory) CreateClassifier(ctx context.Context) core.Classifier {
	rules := core.NewRuleClassifier(f.logger)

	client, err := f.CreateLLMClient(ctx)
	if err != nil {
		f.logger.Warn("AI classification unavailable, using rules", zap.Error(err))
		return rules
	}
	if client == nil {
		f.logger.Info("Using rule-based classification")
		return rules
	}
	return core.NewAIClassifier(client, rules, f.cfg.GetLLM().Timeout, f.logger)
}

// apiKey prefers the configured key and falls back to the keyring
func apiKey(configured, provider string, keys KeySource) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if keys == nil {
		return "", fmt.Errorf("%s API key is required", provider)
	}
	key, err := keys.Get(credential.APIKeyName(provider))
	if err != nil {
		return "", fmt.Errorf("%s API key is required: %w", provider, err)
	}
	return key, nil
}
