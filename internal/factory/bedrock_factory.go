package factory

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/adapters/bedrock"
	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
)

// BedrockFactory creates Bedrock LLM clients. Credentials come from the
// default AWS chain, never from the keyring.
type BedrockFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewBedrockFactory creates a new Bedrock factory
func NewBedrockFactory(cfg *config.Config, logger *zap.Logger) *BedrockFactory {
	return &BedrockFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLLMClient creates a Bedrock LLM client
func (f *BedrockFactory) CreateLLMClient(ctx context.Context) (core.LLMClient, error) {
	return bedrock.NewFactory(f.cfg.GetBedrock(), f.logger).CreateLLMClient(ctx)
}
