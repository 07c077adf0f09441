package gmail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
)

// Client implements core.MailProvider on top of the Gmail v1 API
type Client struct {
	svc     *gmailv1.Service
	user    string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient wraps an authenticated Gmail service
func NewClient(svc *gmailv1.Service, cfg config.GmailConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	user := cfg.User
	if user == "" {
		user = "me"
	}
	failures := cfg.Breaker.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// Only server side trouble should open the circuit
		IsSuccessful: func(err error) bool {
			return err == nil || !core.IsTransient(err)
		},
	})

	return &Client{
		svc:     svc,
		user:    user,
		timeout: cfg.RequestTimeout,
		cb:      cb,
		logger:  logger,
	}
}

// ListMessages implements core.MailProvider
func (c *Client) ListMessages(ctx context.Context, query, pageToken string, maxPageSize int) (*core.MessagePage, error) {
	var resp *gmailv1.ListMessagesResponse
	err := c.execute(ctx, "list messages", func(ctx context.Context) error {
		call := c.svc.Users.Messages.List(c.user).Q(query).MaxResults(int64(maxPageSize))
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		var err error
		resp, err = call.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &core.MessagePage{
		Messages:      make([]core.MessageRef, 0, len(resp.Messages)),
		NextPageToken: resp.NextPageToken,
	}
	for _, m := range resp.Messages {
		page.Messages = append(page.Messages, core.MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return page, nil
}

// GetMessage implements core.MailProvider
func (c *Client) GetMessage(ctx context.Context, id string) (*core.RawMessage, error) {
	var msg *gmailv1.Message
	err := c.execute(ctx, "get message", func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Users.Messages.Get(c.user, id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return toRawMessage(msg), nil
}

// TrashMessage implements core.MailProvider
func (c *Client) TrashMessage(ctx context.Context, id string) error {
	return c.execute(ctx, "trash message", func(ctx context.Context) error {
		_, err := c.svc.Users.Messages.Trash(c.user, id).Context(ctx).Do()
		return err
	})
}

// DeleteMessage implements core.MailProvider
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	return c.execute(ctx, "delete message", func(ctx context.Context) error {
		return c.svc.Users.Messages.Delete(c.user, id).Context(ctx).Do()
	})
}

// BatchDelete implements core.MailProvider
func (c *Client) BatchDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.execute(ctx, "batch delete", func(ctx context.Context) error {
		req := &gmailv1.BatchDeleteMessagesRequest{Ids: ids}
		return c.svc.Users.Messages.BatchDelete(c.user, req).Context(ctx).Do()
	})
}

// Profile returns the address of the authenticated mailbox
func (c *Client) Profile(ctx context.Context) (string, error) {
	var p *gmailv1.Profile
	err := c.execute(ctx, "get profile", func(ctx context.Context) error {
		var err error
		p, err = c.svc.Users.GetProfile(c.user).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	return p.EmailAddress, nil
}

// BreakerState reports the circuit breaker state
func (c *Client) BreakerState() string {
	return c.cb.State().String()
}

// execute runs fn under the per-request timeout and the circuit breaker
func (c *Client) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		return nil, classifyError(ctx, op, fn(callCtx))
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("Gmail call rejected by circuit breaker", zap.String("op", op))
		return &core.ProviderError{Op: op, Transient: true, Err: err}
	}
	return err
}

// classifyError maps Gmail and transport failures onto core.ProviderError
func classifyError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 404:
			return &core.ProviderError{Op: op, Code: 404, Err: fmt.Errorf("%w: %s", core.ErrNotFound, apiErr.Message)}
		case 429, 500, 502, 503, 504:
			return &core.ProviderError{Op: op, Code: apiErr.Code, Transient: true, Err: err}
		case 403:
			return &core.ProviderError{Op: op, Code: 403, Transient: isRateLimited(apiErr), Err: err}
		default:
			return &core.ProviderError{Op: op, Code: apiErr.Code, Err: err}
		}
	}

	// The caller gave up; nothing to retry.
	if ctx.Err() != nil {
		return &core.ProviderError{Op: op, Err: ctx.Err()}
	}

	// Transport failures and per-request timeouts are worth retrying.
	return &core.ProviderError{Op: op, Transient: true, Err: err}
}

func isRateLimited(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "rate limit")
}

func toRawMessage(m *gmailv1.Message) *core.RawMessage {
	if m == nil {
		return nil
	}
	return &core.RawMessage{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		LabelIDs: append([]string(nil), m.LabelIds...),
		Snippet:  m.Snippet,
		Payload:  toPart(m.Payload),
	}
}

func toPart(p *gmailv1.MessagePart) *core.MessagePart {
	if p == nil {
		return nil
	}
	part := &core.MessagePart{MimeType: p.MimeType}
	for _, h := range p.Headers {
		if h == nil {
			continue
		}
		part.Headers = append(part.Headers, core.Header{Name: h.Name, Value: h.Value})
	}
	if p.Body != nil {
		part.Data = p.Body.Data
	}
	for _, sub := range p.Parts {
		if sp := toPart(sub); sp != nil {
			part.Parts = append(part.Parts, sp)
		}
	}
	return part
}
