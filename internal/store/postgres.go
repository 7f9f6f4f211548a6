package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/viability-cli/internal/db"
	"github.com/sells-group/viability-cli/internal/model"
)

// Postgres implements ReportStore over a pgx pool.
type Postgres struct {
	pool db.Pool
}

// NewPostgres connects to connString and creates the schema.
func NewPostgres(ctx context.Context, connString string, cfg *db.PoolConfig) (*Postgres, error) {
	pool, err := db.Connect(ctx, connString, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	s := &Postgres{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresWithPool wraps an existing pool. The schema is not touched.
func NewPostgresWithPool(pool db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS viability_reports (
	request_id      TEXT PRIMARY KEY,
	verdict         TEXT NOT NULL,
	viability_score INTEGER NOT NULL,
	payload         JSONB NOT NULL,
	generated_at    TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_viability_reports_generated_at ON viability_reports(generated_at);
`

// Migrate creates the reports table.
func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// Save inserts resp unless its request id is already stored.
func (s *Postgres) Save(ctx context.Context, resp *model.AnalysisResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO viability_reports (request_id, verdict, viability_score, payload, generated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (request_id) DO NOTHING`,
		resp.RequestID, string(resp.Verdict), resp.ViabilityScore, payload, resp.GeneratedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert report %s", resp.RequestID)
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

// Get loads a report by request id.
func (s *Postgres) Get(ctx context.Context, requestID string) (*model.AnalysisResponse, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM viability_reports WHERE request_id = $1`, requestID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", requestID)
	}

	var resp model.AnalysisResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal report")
	}
	return &resp, nil
}
