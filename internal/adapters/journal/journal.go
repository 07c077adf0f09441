package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mikey/inbox-sweeper/internal/core"
)

// runRow is the stored shape of a run. The full report travels as JSON so
// new report fields never need a schema change.
type runRow struct {
	RunID      string    `db:"run_id"`
	Mode       string    `db:"mode"`
	State      string    `db:"state"`
	Deleted    int       `db:"deleted"`
	Failed     int       `db:"failed"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Report     string    `db:"report"`
}

func toRow(report *core.RunReport) (*runRow, error) {
	if report == nil {
		return nil, fmt.Errorf("nil run report")
	}
	if report.RunID == "" {
		return nil, fmt.Errorf("run report has no id")
	}
	b, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run report: %w", err)
	}
	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	return &runRow{
		RunID:      report.RunID,
		Mode:       report.Mode,
		State:      string(report.State),
		Deleted:    report.Deleted,
		Failed:     report.Failed,
		StartedAt:  report.StartedAt.UTC(),
		FinishedAt: finished.UTC(),
		Report:     string(b),
	}, nil
}

func fromRows(rows []runRow) ([]core.RunReport, error) {
	reports := make([]core.RunReport, 0, len(rows))
	for _, r := range rows {
		var report core.RunReport
		if err := json.Unmarshal([]byte(r.Report), &report); err != nil {
			return nil, fmt.Errorf("failed to decode run %s: %w", r.RunID, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}
