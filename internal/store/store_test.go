package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/viability-cli/internal/model"
)

func sampleReport(id string) *model.AnalysisResponse {
	rating := 4.4
	return &model.AnalysisResponse{
		RequestID: id,
		Input: model.InputEcho{
			Address:          "Av. Santa Fe 3200",
			BusinessCategory: model.CategoryGym,
			CountryBias:      "AR",
		},
		Location:       model.ResolvedLocation{Lat: -34.588, Lng: -58.41, FormattedAddress: "Av. Santa Fe 3200, CABA", PlaceID: "ChIJ123"},
		ViabilityScore: 58,
		Verdict:        model.VerdictOpenWithConditions,
		Metrics:        model.Metrics{CompetitionScore: 40, DemandScore: 80, DifferentiationScore: 30},
		HardMetrics: model.HardMetrics{
			CountSame800m:          6,
			PriceLevelDistribution: map[string]int{"1": 0, "2": 3, "3": 1, "4": 0},
		},
		CompetitorsTop: []model.Competitor{{PlaceID: "g1", Name: "Gym Uno", Rating: &rating, Types: []string{"gym"}, DistanceM: 310}},
		Insights:       []string{"1", "2", "3", "4", "5"},
		Diagnosis:      "resumen",
		Report:         model.ReportLinks{ReportURL: model.ReportURL(id)},
		GeneratedAt:    time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC),
	}
}

// contract runs the behavior every ReportStore shares.
func contract(t *testing.T, s ReportStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "req_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, sampleReport("req_1")))
	got, err := s.Get(ctx, "req_1")
	require.NoError(t, err)
	assert.Equal(t, sampleReport("req_1"), got)

	second := sampleReport("req_1")
	second.ViabilityScore = 10
	assert.ErrorIs(t, s.Save(ctx, second), ErrExists)

	got, err = s.Get(ctx, "req_1")
	require.NoError(t, err)
	assert.Equal(t, 58, got.ViabilityScore, "first write wins")
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	contract(t, s)
	assert.NoError(t, s.Close())
}

func TestMemory_IsolatesCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	r := sampleReport("req_2")
	require.NoError(t, s.Save(ctx, r))
	r.Insights[0] = "changed"

	got, err := s.Get(ctx, "req_2")
	require.NoError(t, err)
	got.CompetitorsTop[0].Name = "changed"

	again, err := s.Get(ctx, "req_2")
	require.NoError(t, err)
	assert.Equal(t, "1", again.Insights[0])
	assert.Equal(t, "Gym Uno", again.CompetitorsTop[0].Name)
}

func TestMemory_RejectsMissingID(t *testing.T) {
	assert.Error(t, NewMemory().Save(context.Background(), &model.AnalysisResponse{}))
	assert.Error(t, NewMemory().Save(context.Background(), nil))
}

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func TestSQLite(t *testing.T) {
	contract(t, newTestSQLite(t))
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_Save(t *testing.T) {
	s, mock := newMockPostgres(t)
	r := sampleReport("req_pg")

	mock.ExpectExec(`INSERT INTO viability_reports .* ON CONFLICT \(request_id\) DO NOTHING`).
		WithArgs("req_pg", "OPEN_WITH_CONDITIONS", 58, pgxmock.AnyArg(), r.GeneratedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Save(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveConflict(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO viability_reports`).
		WithArgs("req_pg", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := s.Save(context.Background(), sampleReport("req_pg"))
	assert.ErrorIs(t, err, ErrExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO viability_reports`).
		WithArgs("req_pg", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := s.Save(context.Background(), sampleReport("req_pg"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExists)
	assert.Contains(t, err.Error(), "postgres: insert report req_pg")
}

func TestPostgres_Get(t *testing.T) {
	s, mock := newMockPostgres(t)
	payload, err := json.Marshal(sampleReport("req_pg"))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM viability_reports WHERE request_id = \$1`).
		WithArgs("req_pg").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := s.Get(context.Background(), "req_pg")
	require.NoError(t, err)
	assert.Equal(t, sampleReport("req_pg"), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT payload FROM viability_reports`).
		WithArgs("req_none").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "req_none")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS viability_reports`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
