package factory

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/adapters/gemini"
	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
)

// GeminiFactory creates Gemini LLM clients
type GeminiFactory struct {
	cfg    *config.Config
	keys   KeySource
	logger *zap.Logger
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, keys KeySource, logger *zap.Logger) *GeminiFactory {
	return &GeminiFactory{
		cfg:    cfg,
		keys:   keys,
		logger: logger,
	}
}

// CreateLLMClient creates a Gemini LLM client
func (f *GeminiFactory) CreateLLMClient(ctx context.Context) (core.LLMClient, error) {
	geminiCfg := f.cfg.GetGemini()

	key, err := apiKey(geminiCfg.APIKey, ProviderGemini, f.keys)
	if err != nil {
		return nil, err
	}
	geminiCfg.APIKey = key

	return gemini.NewFactory(geminiCfg, f.logger).CreateLLMClient(ctx)
}
