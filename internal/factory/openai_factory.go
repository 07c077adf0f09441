package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/adapters/openai"
	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
)

// OpenAIFactory creates OpenAI LLM clients
type OpenAIFactory struct {
	cfg    *config.Config
	keys   KeySource
	logger *zap.Logger
}

// NewOpenAIFactory creates a new OpenAI factory
func NewOpenAIFactory(cfg *config.Config, keys KeySource, logger *zap.Logger) *OpenAIFactory {
	return &OpenAIFactory{
		cfg:    cfg,
		keys:   keys,
		logger: logger,
	}
}

// CreateLLMClient creates an OpenAI LLM client
func (f *OpenAIFactory) CreateLLMClient() (core.LLMClient, error) {
	openaiCfg := f.cfg.GetOpenAI()

	key, err := apiKey(openaiCfg.APIKey, ProviderOpenAI, f.keys)
	if err != nil {
		return nil, err
	}
	openaiCfg.APIKey = key

	return openai.NewFactory(openaiCfg, f.logger).CreateLLMClient()
}
