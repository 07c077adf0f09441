package whitelist

import (
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/core"
)

// Checker protects senders on listed domains from cleanup. A listed domain
// also covers its subdomains.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "@")
		if d != "" {
			normalized = append(normalized, d)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized protected domains", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsWhitelisted implements core.ProtectedSenders. from may be a bare address
// or a display-name form.
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	addr := strings.ToLower(core.CleanSender(from))
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return false
	}
	domain := addr[at+1:]

	for _, protected := range c.domains {
		if domain == protected || strings.HasSuffix(domain, "."+protected) {
			if c.logger != nil {
				c.logger.Debug("Sender is protected",
					zap.String("domain", domain),
					zap.String("email", addr))
			}
			return true
		}
	}

	return false
}
