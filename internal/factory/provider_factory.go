package factory

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/adapters/gmail"
	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
)

// ProviderFactory creates the Gmail mail provider
type ProviderFactory struct {
	cfg    *config.Config
	in     io.Reader
	out    io.Writer
	logger *zap.Logger
}

// NewProviderFactory creates a provider factory. in and out carry the
// authorization prompts.
func NewProviderFactory(cfg *config.Config, in io.Reader, out io.Writer, logger *zap.Logger) *ProviderFactory {
	return &ProviderFactory{cfg: cfg, in: in, out: out, logger: logger}
}

// CreateAuthenticator creates the OAuth authenticator
func (f *ProviderFactory) CreateAuthenticator() *gmail.Authenticator {
	return gmail.NewAuthenticator(f.cfg.GetGmail(), f.in, f.out, f.logger)
}

// CreateGmailClient authenticates and returns the raw Gmail client
func (f *ProviderFactory) CreateGmailClient(ctx context.Context) (*gmail.Client, error) {
	svc, err := f.CreateAuthenticator().Service(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with Gmail: %w", err)
	}
	return gmail.NewClient(svc, f.cfg.GetGmail(), f.logger), nil
}

// CreateMailProvider wraps client with the retry policy from configuration
func (f *ProviderFactory) CreateMailProvider(client *gmail.Client) core.MailProvider {
	rc := f.cfg.GetRetry()
	policy := core.RetryPolicy{MaxRetries: rc.MaxRetries, BaseDelay: rc.BaseDelay, MaxDelay: rc.MaxDelay}
	return core.NewRetryingProvider(client, policy, f.logger)
}
