package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/adapters/journal"
	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
)

// Journal is a run journal with a background cleanup task
type Journal interface {
	core.RunJournal
	Stop()
}

// JournalFactory creates run journals based on configuration
type JournalFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewJournalFactory creates a new journal factory
func NewJournalFactory(cfg *config.Config, logger *zap.Logger) *JournalFactory {
	return &JournalFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateJournal creates a journal based on the configuration. It returns
// nil when the journal is disabled.
func (f *JournalFactory) CreateJournal() (Journal, error) {
	jc := f.cfg.GetJournal()
	if !jc.Enabled {
		return nil, nil
	}

	switch jc.Type {
	case "memory":
		return journal.NewMemoryJournal(f.logger, jc.Retention, jc.CleanupFrequency), nil
	case "sqlite":
		if dir := filepath.Dir(jc.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
			}
		}
		return journal.NewSQLiteJournal(jc.SQLitePath, f.logger, jc.Retention, jc.CleanupFrequency)
	case "mysql":
		return journal.NewMySQLJournal(jc.MySQLDSN, f.logger, jc.Retention, jc.CleanupFrequency)
	default:
		return nil, fmt.Errorf("unsupported journal type: %s", jc.Type)
	}
}
