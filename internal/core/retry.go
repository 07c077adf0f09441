package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy controls exponential backoff on transient provider errors
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries three times after 1s, 2s and 4s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// Delay returns the wait before retry number attempt (0-based)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	return d
}

// RetryingProvider decorates a MailProvider, retrying reads that fail
// with a transient ProviderError. Mutations pass straight through.
type RetryingProvider struct {
	MailProvider
	policy RetryPolicy
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryingProvider wraps next with policy
func NewRetryingProvider(next MailProvider, policy RetryPolicy, logger *zap.Logger) *RetryingProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingProvider{
		MailProvider: next,
		policy:       policy,
		logger:       logger,
		sleep:        sleepContext,
	}
}

// ListMessages implements MailProvider
func (r *RetryingProvider) ListMessages(ctx context.Context, query, pageToken string, maxPageSize int) (*MessagePage, error) {
	var page *MessagePage
	err := r.do(ctx, "list messages", func() error {
		var err error
		page, err = r.MailProvider.ListMessages(ctx, query, pageToken, maxPageSize)
		return err
	})
	return page, err
}

// GetMessage implements MailProvider
func (r *RetryingProvider) GetMessage(ctx context.Context, id string) (*RawMessage, error) {
	var msg *RawMessage
	err := r.do(ctx, "get message", func() error {
		var err error
		msg, err = r.MailProvider.GetMessage(ctx, id)
		return err
	})
	return msg, err
}

func (r *RetryingProvider) do(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt >= r.policy.MaxRetries {
			break
		}

		delay := r.policy.Delay(attempt)
		r.logger.Warn("Transient provider error, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		if serr := r.sleep(ctx, delay); serr != nil {
			return fmt.Errorf("%s: %w", op, serr)
		}
	}
	return fmt.Errorf("%s: retries exhausted after %d attempts: %w", op, r.policy.MaxRetries+1, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
