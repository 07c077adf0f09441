package journal

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/core"
)

// MemoryJournal keeps runs for the lifetime of the process
type MemoryJournal struct {
	runs        map[string]core.RunReport
	mu          sync.RWMutex
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	now         func() time.Time
}

// NewMemoryJournal creates an in-memory journal
func NewMemoryJournal(logger *zap.Logger, retention, cleanupFreq time.Duration) *MemoryJournal {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &MemoryJournal{
		runs:        make(map[string]core.RunReport),
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	if cleanupFreq > 0 {
		go j.startCleanupTask()
	}

	return j
}

// Record implements core.RunJournal
func (j *MemoryJournal) Record(_ context.Context, report *core.RunReport) error {
	if _, err := toRow(report); err != nil {
		return err
	}
	r := *report
	if r.FinishedAt.IsZero() {
		r.FinishedAt = j.now()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs[r.RunID] = r
	return nil
}

// Recent implements core.RunJournal
func (j *MemoryJournal) Recent(_ context.Context, n int) ([]core.RunReport, error) {
	if n <= 0 {
		return nil, nil
	}
	j.mu.RLock()
	out := make([]core.RunReport, 0, len(j.runs))
	for _, r := range j.runs {
		out = append(out, r)
	}
	j.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		return out[a].FinishedAt.After(out[b].FinishedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Cleanup removes runs older than the retention window
func (j *MemoryJournal) Cleanup(_ context.Context) error {
	if j.retention <= 0 {
		return nil
	}
	cutoff := j.now().Add(-j.retention)

	j.mu.Lock()
	defer j.mu.Unlock()

	removed := 0
	for id, r := range j.runs {
		if r.FinishedAt.Before(cutoff) {
			delete(j.runs, id)
			removed++
		}
	}
	if removed > 0 {
		j.logger.Debug("Cleaned up old cleanup runs", zap.Int("expired_count", removed))
	}
	return nil
}

func (j *MemoryJournal) startCleanupTask() {
	ticker := time.NewTicker(j.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = j.Cleanup(context.Background())
		case <-j.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (j *MemoryJournal) Stop() {
	close(j.stopCh)
}
