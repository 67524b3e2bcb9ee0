// Case scoped artifact store on sqlite. Artifacts are deduplicated on
// (case_id, type, natural_key) by the unique index, which is what
// makes re-extraction idempotent - replaying the same image only ever
// updates the seen window of existing rows.

package datastore

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/Velocidex/ordereddict"
	_ "github.com/mattn/go-sqlite3"
	errors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	config "github.com/Dhanushkumar2/computer-forensic/config"
	"github.com/Dhanushkumar2/computer-forensic/json"
)

var (
	artifactsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datastore_artifacts_stored_total",
		Help: "New artifact rows inserted into the store.",
	})
	artifactsDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datastore_artifacts_deduped_total",
		Help: "Upserts that merged into an existing row.",
	})
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
    case_id     TEXT NOT NULL,
    type        TEXT NOT NULL,
    natural_key TEXT NOT NULL,
    source      TEXT NOT NULL DEFAULT '',
    timestamp   INTEGER NOT NULL DEFAULT 0,
    first_seen  INTEGER NOT NULL DEFAULT 0,
    last_seen   INTEGER NOT NULL DEFAULT 0,
    payload     TEXT NOT NULL DEFAULT '{}',
    UNIQUE (case_id, type, natural_key)
);

CREATE INDEX IF NOT EXISTS artifacts_by_time
    ON artifacts (case_id, timestamp);

CREATE TABLE IF NOT EXISTS reports (
    case_id      TEXT NOT NULL,
    generated_at INTEGER NOT NULL,
    report       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS reports_by_case
    ON reports (case_id, generated_at);
`

type Store struct {
	// sqlite likes a single writer. All mutating statements go
	// through this lock, reads go straight to the pool.
	mu sync.Mutex
	db *sql.DB
}

func OpenStore(config_obj *config.Config) (*Store, error) {
	location := ":memory:"
	if config_obj.Datastore != nil && config_obj.Datastore.Location != "" {
		location = config_obj.Datastore.Location
	}

	db, err := sql.Open("sqlite3",
		"file:"+location+"?cache=shared&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "opening artifact store")
	}

	// A shared cache in-memory db disappears when the last connection
	// closes, so keep exactly one around.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing artifact store")
	}

	return &Store{db: db}, nil
}

func (self *Store) Close() error {
	return self.db.Close()
}

// Insert or merge one artifact. Returns true when a new row was
// created, false when the natural key already existed and the seen
// window was widened instead.
func (self *Store) Upsert(ctx context.Context,
	artifact *artifacts.Artifact) (bool, error) {

	if artifact.CaseId == "" || artifact.NaturalKey == "" {
		return false, errors.New("artifact without case id or natural key")
	}

	payload, err := json.Marshal(artifact.Payload)
	if err != nil {
		return false, err
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	// The mutex makes us the only writer so the existence check and
	// the upsert are effectively atomic.
	var exists bool
	err = self.db.QueryRowContext(ctx, `
                SELECT EXISTS (
                        SELECT 1 FROM artifacts
                        WHERE case_id = ? AND type = ? AND natural_key = ?)`,
		artifact.CaseId, string(artifact.Type),
		artifact.NaturalKey).Scan(&exists)
	if err != nil {
		return false, err
	}

	_, err = self.db.ExecContext(ctx, `
                INSERT INTO artifacts (case_id, type, natural_key,
                        source, timestamp, first_seen, last_seen, payload)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?)
                ON CONFLICT (case_id, type, natural_key) DO UPDATE SET
                    source = excluded.source,
                    payload = excluded.payload,
                    timestamp = excluded.timestamp,
                    first_seen = CASE
                        WHEN artifacts.first_seen = 0 THEN excluded.first_seen
                        WHEN excluded.first_seen = 0 THEN artifacts.first_seen
                        WHEN excluded.first_seen < artifacts.first_seen
                             THEN excluded.first_seen
                        ELSE artifacts.first_seen END,
                    last_seen = CASE
                        WHEN excluded.last_seen > artifacts.last_seen
                             THEN excluded.last_seen
                        ELSE artifacts.last_seen END`,
		artifact.CaseId, string(artifact.Type), artifact.NaturalKey,
		artifact.Source, timeToInt(artifact.Timestamp),
		timeToInt(artifact.FirstSeen), timeToInt(artifact.LastSeen),
		string(payload))
	if err != nil {
		return false, errors.Wrap(err, "upserting artifact")
	}

	created := !exists
	if created {
		artifactsStored.Inc()
	} else {
		artifactsDeduped.Inc()
	}
	return created, nil
}

type QueryOptions struct {
	// Zero limit means no limit.
	Offset int64
	Limit  int64

	// Substring match against the natural key or payload.
	Match string
}

// Fetch artifacts of one type for a case in deterministic (timestamp,
// natural key) order.
func (self *Store) Query(ctx context.Context, case_id string,
	artifact_type artifacts.Type, options QueryOptions) (
	[]*artifacts.Artifact, error) {

	query := `
                SELECT case_id, type, natural_key, source,
                       timestamp, first_seen, last_seen, payload
                FROM artifacts
                WHERE case_id = ? AND type = ?`
	args := []interface{}{case_id, string(artifact_type)}

	if options.Match != "" {
		query += ` AND (natural_key LIKE ? OR payload LIKE ?)`
		match := "%" + options.Match + "%"
		args = append(args, match, match)
	}

	query += ` ORDER BY timestamp, natural_key`
	if options.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, options.Limit, options.Offset)
	}

	rows, err := self.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying artifacts")
	}
	defer rows.Close()

	return scanArtifacts(rows)
}

// All timestamped artifacts of a case ordered by timestamp, then type,
// then natural key. This is the input order for the timeline
// projection and the anomaly graph.
func (self *Store) TimestampedArtifacts(ctx context.Context,
	case_id string) ([]*artifacts.Artifact, error) {

	rows, err := self.db.QueryContext(ctx, `
                SELECT case_id, type, natural_key, source,
                       timestamp, first_seen, last_seen, payload
                FROM artifacts
                WHERE case_id = ? AND timestamp > 0
                ORDER BY timestamp, type, natural_key`, case_id)
	if err != nil {
		return nil, errors.Wrap(err, "querying artifacts")
	}
	defer rows.Close()

	return scanArtifacts(rows)
}

func (self *Store) CountByType(ctx context.Context, case_id string) (
	map[artifacts.Type]int64, error) {

	rows, err := self.db.QueryContext(ctx, `
                SELECT type, COUNT(*) FROM artifacts
                WHERE case_id = ? GROUP BY type`, case_id)
	if err != nil {
		return nil, errors.Wrap(err, "counting artifacts")
	}
	defer rows.Close()

	result := make(map[artifacts.Type]int64)
	for rows.Next() {
		var artifact_type string
		var count int64
		if err := rows.Scan(&artifact_type, &count); err != nil {
			return nil, err
		}
		result[artifacts.Type(artifact_type)] = count
	}
	return result, rows.Err()
}

func (self *Store) TotalArtifacts(ctx context.Context, case_id string) (
	int64, error) {

	var count int64
	err := self.db.QueryRowContext(ctx, `
                SELECT COUNT(*) FROM artifacts WHERE case_id = ?`,
		case_id).Scan(&count)
	return count, err
}

// Remove everything the case owns - artifacts, derived projections
// and analysis reports.
func (self *Store) DeleteCase(ctx context.Context, case_id string) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	_, err := self.db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE case_id = ?`, case_id)
	if err != nil {
		return errors.Wrap(err, "deleting case artifacts")
	}

	_, err = self.db.ExecContext(ctx,
		`DELETE FROM reports WHERE case_id = ?`, case_id)
	return errors.Wrap(err, "deleting case reports")
}

func scanArtifacts(rows *sql.Rows) ([]*artifacts.Artifact, error) {
	result := []*artifacts.Artifact{}
	for rows.Next() {
		var artifact_type, payload string
		var timestamp, first_seen, last_seen int64

		artifact := &artifacts.Artifact{}
		err := rows.Scan(&artifact.CaseId, &artifact_type,
			&artifact.NaturalKey, &artifact.Source,
			&timestamp, &first_seen, &last_seen, &payload)
		if err != nil {
			return nil, err
		}

		artifact.Type = artifacts.Type(artifact_type)
		artifact.Timestamp = intToTime(timestamp)
		artifact.FirstSeen = intToTime(first_seen)
		artifact.LastSeen = intToTime(last_seen)

		dict := ordereddict.NewDict()
		err = dict.UnmarshalJSON([]byte(payload))
		if err == nil {
			artifact.Payload = dict
		}

		result = append(result, artifact)
	}
	return result, rows.Err()
}

func timeToInt(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func intToTime(nsec int64) time.Time {
	if nsec == 0 {
		return time.Time{}
	}
	return time.Unix(0, nsec).UTC()
}
