package journal

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/core"
)

// MySQLJournal is a MySQL implementation of core.RunJournal
type MySQLJournal struct {
	db          *sqlx.DB
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLJournal connects to dsn and prepares the runs table. parseTime=true
// is required in the DSN.
func NewMySQLJournal(dsn string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*MySQLJournal, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cleanup_runs (
			run_id VARCHAR(64) PRIMARY KEY,
			mode VARCHAR(16) NOT NULL,
			state VARCHAR(32) NOT NULL,
			deleted INT NOT NULL,
			failed INT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			report MEDIUMTEXT NOT NULL,
			INDEX idx_runs_finished_at (finished_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	j := &MySQLJournal{
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
func (j *MySQLJournal) Record(ctx context.Context, report *core.RunReport) error {
	row, err := toRow(report)
	if err != nil {
		return err
	}
	_, err = j.db.NamedExecContext(ctx, `
		REPLACE INTO cleanup_runs (run_id, mode, state, deleted, failed, started_at, finished_at, report)
		VALUES (:run_id, :mode, :state, :deleted, :failed, :started_at, :finished_at, :report)
	`, row)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Recent implements core.RunJournal
func (j *MySQLJournal) Recent(ctx context.Context, n int) ([]core.RunReport, error) {
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
func (j *MySQLJournal) Cleanup(ctx context.Context) error {
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

func (j *MySQLJournal) startCleanupTask() {
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
func (j *MySQLJournal) Stop() {
	close(j.stopCh)
	if err := j.db.Close(); err != nil {
		j.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
