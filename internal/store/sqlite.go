package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/viability-cli/internal/model"
)

// SQLite implements ReportStore using modernc.org/sqlite.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, configures WAL mode
// and creates the schema.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	s := &SQLite{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reports (
	request_id      TEXT PRIMARY KEY,
	verdict         TEXT NOT NULL,
	viability_score INTEGER NOT NULL,
	payload         TEXT NOT NULL,
	generated_at    DATETIME NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reports_generated_at ON reports(generated_at);
`

// Migrate creates the reports table.
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Save inserts resp unless its request id is already stored.
func (s *SQLite) Save(ctx context.Context, resp *model.AnalysisResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reports (request_id, verdict, viability_score, payload, generated_at) VALUES (?, ?, ?, ?, ?)`,
		resp.RequestID, string(resp.Verdict), resp.ViabilityScore, string(payload), resp.GeneratedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert report %s", resp.RequestID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

// Get loads a report by request id.
func (s *SQLite) Get(ctx context.Context, requestID string) (*model.AnalysisResponse, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM reports WHERE request_id = ?`, requestID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", requestID)
	}

	var resp model.AnalysisResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal report")
	}
	return &resp, nil
}
