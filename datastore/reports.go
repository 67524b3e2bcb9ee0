package datastore

import (
	"context"
	"database/sql"

	errors "github.com/pkg/errors"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/json"
)

// Reports are immutable snapshots - a new analysis appends, it never
// rewrites an earlier report.
func (self *Store) SaveReport(ctx context.Context,
	report *artifacts.AnomalyReport) error {

	serialized, err := json.Marshal(report)
	if err != nil {
		return err
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	_, err = self.db.ExecContext(ctx, `
                INSERT INTO reports (case_id, generated_at, report)
                VALUES (?, ?, ?)`,
		report.CaseId, timeToInt(report.GeneratedAt), string(serialized))
	return errors.Wrap(err, "saving report")
}

// The most recent report for a case, or nil when the case was never
// analyzed.
func (self *Store) LatestReport(ctx context.Context, case_id string) (
	*artifacts.AnomalyReport, error) {

	var serialized string
	err := self.db.QueryRowContext(ctx, `
                SELECT report FROM reports
                WHERE case_id = ?
                ORDER BY generated_at DESC, rowid DESC
                LIMIT 1`, case_id).Scan(&serialized)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading report")
	}

	report := &artifacts.AnomalyReport{}
	err = json.Unmarshal([]byte(serialized), report)
	if err != nil {
		return nil, err
	}
	return report, nil
}
