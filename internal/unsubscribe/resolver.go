package unsubscribe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
	"github.com/mikey/inbox-sweeper/internal/utils"
)

const mailtoDetail = "requires email send capability"

// MessageGetter fetches the message used as unsubscribe evidence
type MessageGetter interface {
	GetMessage(ctx context.Context, id string) (*core.RawMessage, error)
}

// Resolver implements core.Unsubscriber. It never returns an error: every
// failure becomes an outcome on the result.
type Resolver struct {
	messages  MessageGetter
	client    *http.Client
	maxBody   int64
	userAgent string
	tp        *utils.TextProcessor
	logger    *zap.Logger
}

// NewResolver creates a resolver that reads evidence through messages
func NewResolver(messages MessageGetter, cfg config.UnsubscribeConfig, tp *utils.TextProcessor, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tp == nil {
		tp = utils.NewTextProcessor(logger)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &Resolver{
		messages:  messages,
		client:    &http.Client{Timeout: timeout},
		maxBody:   maxBody,
		userAgent: cfg.UserAgent,
		tp:        tp,
		logger:    logger,
	}
}

// Unsubscribe tries the List-Unsubscribe header first and the message body second
func (r *Resolver) Unsubscribe(ctx context.Context, sender, messageID string) core.UnsubscribeResult {
	msg, err := r.messages.GetMessage(ctx, messageID)
	if err != nil {
		r.logger.Debug("Failed to fetch unsubscribe evidence", zap.String("message_id", messageID), zap.Error(err))
		return core.UnsubscribeResult{Sender: sender, Outcome: core.UnsubscribeFetchFailed, Detail: err.Error()}
	}

	targets := ParseListUnsubscribe(core.HeaderValue(msg, "List-Unsubscribe"))

	var mailto string
	var failed *core.UnsubscribeResult
	for _, t := range targets {
		if isMailto(t) {
			if mailto == "" {
				mailto = t
			}
			continue
		}
		res := r.invoke(ctx, sender, t)
		if res.Outcome.Succeeded() {
			return res
		}
		r.logger.Debug("Header unsubscribe attempt failed", zap.String("target", t), zap.String("outcome", string(res.Outcome)))
		if failed == nil {
			failed = &res
		}
	}

	// a header with only mailto needs no body scan
	if mailto != "" && failed == nil {
		return core.UnsubscribeResult{Sender: sender, Target: mailto, Outcome: core.UnsubscribeMailtoOnly, Detail: mailtoDetail}
	}

	plain, html, err := core.MessageBodies(msg, r.tp)
	if err != nil {
		r.logger.Debug("Failed to read message body for unsubscribe link", zap.String("message_id", messageID), zap.Error(err))
	}
	if link := FindBodyLink(html, plain); link != "" {
		if isMailto(link) {
			return core.UnsubscribeResult{Sender: sender, Target: link, Outcome: core.UnsubscribeMailtoOnly, Detail: mailtoDetail}
		}
		return r.invoke(ctx, sender, link)
	}

	if mailto != "" {
		detail := mailtoDetail
		if failed != nil {
			detail = fmt.Sprintf("%s; http attempt: %s", mailtoDetail, failed.Detail)
		}
		return core.UnsubscribeResult{Sender: sender, Target: mailto, Outcome: core.UnsubscribeMailtoOnly, Detail: detail}
	}
	if failed != nil {
		return *failed
	}
	return core.UnsubscribeResult{Sender: sender, Outcome: core.UnsubscribeNoMechanism, Detail: "no unsubscribe header or link found"}
}

// ParseListUnsubscribe returns the bracketed URIs of a List-Unsubscribe value
// ordered https, http, mailto. Unknown schemes are dropped.
func ParseListUnsubscribe(header string) []string {
	var secure, plain, mailto []string
	for {
		start := strings.Index(header, "<")
		if start < 0 {
			break
		}
		end := strings.Index(header[start:], ">")
		if end < 0 {
			break
		}
		uri := strings.TrimSpace(header[start+1 : start+end])
		header = header[start+end+1:]

		lower := strings.ToLower(uri)
		switch {
		case strings.HasPrefix(lower, "https://"):
			secure = append(secure, uri)
		case strings.HasPrefix(lower, "http://"):
			plain = append(plain, uri)
		case strings.HasPrefix(lower, "mailto:"):
			mailto = append(mailto, uri)
		}
	}
	out := append(secure, plain...)
	return append(out, mailto...)
}

func isMailto(uri string) bool {
	return strings.HasPrefix(strings.ToLower(uri), "mailto:")
}
