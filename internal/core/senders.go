package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// RecentSenders returns up to limit distinct sender addresses from the
// newest scan inbox messages, sorted alphabetically. It is used to
// suggest entries for the sender lists.
func RecentSenders(ctx context.Context, provider MailProvider, scan, limit int, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	page, err := provider.ListMessages(ctx, "in:inbox", "", scan)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}

	seen := make(map[string]bool)
	var senders []string
	for _, ref := range page.Messages {
		msg, err := provider.GetMessage(ctx, ref.ID)
		if err != nil {
			logger.Debug("Skipping message", zap.String("id", ref.ID), zap.Error(err))
			continue
		}
		if msg == nil || msg.Payload == nil {
			continue
		}
		s := strings.ToLower(CleanSender(firstHeader(msg.Payload.Headers, "From")))
		if !strings.Contains(s, "@") || len(s) >= 100 || seen[s] {
			continue
		}
		seen[s] = true
		senders = append(senders, s)
	}

	sort.Strings(senders)
	if limit > 0 && len(senders) > limit {
		senders = senders[:limit]
	}
	return senders, nil
}
