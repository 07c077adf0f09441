package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/core"
)

// SQLiteJournal is a SQLite implementation of core.RunJournal
type SQLiteJournal struct {
	db          *sqlx.DB
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteJournal opens (or creates) the journal database at dbPath
func NewSQLiteJournal(dbPath string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*SQLiteJournal, error) {
	db, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cleanup_runs (
			run_id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			state TEXT NOT NULL,
			deleted INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			report TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON cleanup_runs(finished_at)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	j := &SQLiteJournal{
		db:          db,
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go j.startCleanupTask()
	}

	return j, nil
}

// Record implements core.RunJournal
func (j *SQLiteJournal) Record(ctx context.Context, report *core.RunReport) error {
	row, err := toRow(report)
	if err != nil {
		return err
	}
	_, err = j.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO cleanup_runs (run_id, mode, state, deleted, failed, started_at, finished_at, report)
		VALUES (:run_id, :mode, :state, :deleted, :failed, :started_at, :finished_at, :report)
	`, row)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	j.logger.Debug("Recorded cleanup run", zap.String("run_id", row.RunID), zap.String("state", row.State))
	return nil
}

// Recent implements core.RunJournal
func (j *SQLiteJournal) Recent(ctx context.Context, n int) ([]core.RunReport, error) {
	if n <= 0 {
		return nil, nil
	}
	var rows []runRow
	err := j.db.SelectContext(ctx, &rows, `
		SELECT run_id, mode, state, deleted, failed, started_at, finished_at, report
		FROM cleanup_runs
		ORDER BY finished_at DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	return fromRows(rows)
}

// Cleanup removes runs older than the retention window
func (j *SQLiteJournal) Cleanup(ctx context.Context) error {
	if j.retention <= 0 {
		return nil
	}
	result, err := j.db.ExecContext(ctx, `
		DELETE FROM cleanup_runs
		WHERE finished_at < ?
	`, time.Now().Add(-j.retention).UTC())
	if err != nil {
		return fmt.Errorf("failed to clean up old runs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		j.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		j.logger.Debug("Cleaned up old cleanup runs", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

func (j *SQLiteJournal) startCleanupTask() {
	ticker := time.NewTicker(j.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.Cleanup(context.Background()); err != nil {
				j.logger.Error("Failed to clean up journal", zap.Error(err))
			}
		case <-j.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (j *SQLiteJournal) Stop() {
	close(j.stopCh)
	if err := j.db.Close(); err != nil {
		j.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
