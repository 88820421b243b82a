package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

// newMockPostgresStore creates a PostgresSessions backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresSessions, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresSessions{pool: mock}
	return s, mock
}

var sessionColumns = []string{
	"id", "company_name", "goal", "target_count", "status", "stage", "progress",
	"prospects_found", "profile_ids", "error", "started_at", "completed_at",
}

func TestPostgresSessions_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS discovery_sessions`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessions_CreateSession(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	sess := newSession("s1")
	sess.StartedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO discovery_sessions`).
		WithArgs("s1", "Sells", "find clients", 10, "initializing", "", 0, 0, "[]", "", sess.StartedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateSession(context.Background(), sess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessions_UpdateSession_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	sess := newSession("ghost")

	mock.ExpectExec(`UPDATE discovery_sessions`).
		WithArgs("initializing", "", 0, 0, "[]", "", pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateSession(context.Background(), sess)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessions_GetSession_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM discovery_sessions WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetSession(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessions_GetSession_WithActivity(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM discovery_sessions WHERE id = \$1`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow("s1", "Sells", "find clients", 10, "running", "search", 40, 3, `["p1"]`, "", started, nil))
	mock.ExpectQuery(`SELECT ts, level, message FROM session_activity`).
		WithArgs("s1", MaxActivity).
		WillReturnRows(pgxmock.NewRows([]string{"ts", "level", "message"}).
			AddRow(started.Add(2*time.Second), "info", "second").
			AddRow(started.Add(time.Second), "info", "first"))

	got, err := s.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.SessionRunning, got.Status)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, []string{"p1"}, got.ProfileIDs)
	assert.Nil(t, got.CompletedAt)
	require.Len(t, got.Activity, 2)
	assert.Equal(t, "first", got.Activity[0].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessions_ListSessions_StatusFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM discovery_sessions WHERE true AND status = \$1 ORDER BY started_at DESC LIMIT \$2`).
		WithArgs("completed", 100).
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow("s9", "Sells", "g", 5, "completed", "done", 100, 5, `[]`, "", started, nil))

	got, err := s.ListSessions(context.Background(), SessionFilter{Status: model.SessionCompleted})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s9", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessions_AppendActivity_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO session_activity`).
		WithArgs("s1", ts, "warn", "query failed").
		WillReturnError(errors.New("connection reset"))

	err := s.AppendActivity(context.Background(), "s1", model.Activity{Timestamp: ts, Level: "warn", Message: "query failed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append activity")
	assert.NoError(t, mock.ExpectationsWereMet())
}
