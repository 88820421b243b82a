package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the session store uses. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSessions implements SessionStore using pgxpool.
type PostgresSessions struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresSessions with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresSessions, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresSessions{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS discovery_sessions (
	id              TEXT PRIMARY KEY,
	company_name    TEXT NOT NULL,
	goal            TEXT NOT NULL,
	target_count    INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT 'initializing',
	stage           TEXT NOT NULL DEFAULT '',
	progress        INTEGER NOT NULL DEFAULT 0,
	prospects_found INTEGER NOT NULL DEFAULT 0,
	profile_ids     TEXT NOT NULL DEFAULT '[]',
	error           TEXT NOT NULL DEFAULT '',
	started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS session_activity (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES discovery_sessions(id) ON DELETE CASCADE,
	ts         TIMESTAMPTZ NOT NULL,
	level      TEXT NOT NULL,
	message    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON discovery_sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON discovery_sessions(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_session_activity_session ON session_activity(session_id, id DESC);
`

func (s *PostgresSessions) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresSessions) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresSessions) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresSessions) CreateSession(ctx context.Context, sess *model.Session) error {
	ids, err := json.Marshal(nonNil(sess.ProfileIDs))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile ids")
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO discovery_sessions (id, company_name, goal, target_count, status, stage, progress, prospects_found, profile_ids, error, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sess.ID, sess.CompanyName, sess.Goal, sess.TargetCount, string(sess.Status), sess.Stage,
		sess.Progress, sess.ProspectsFound, string(ids), sess.Error, sess.StartedAt,
	)
	return eris.Wrapf(err, "postgres: insert session %s", sess.ID)
}

func (s *PostgresSessions) UpdateSession(ctx context.Context, sess *model.Session) error {
	ids, err := json.Marshal(nonNil(sess.ProfileIDs))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile ids")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE discovery_sessions
		 SET status = $1, stage = $2, progress = $3, prospects_found = $4, profile_ids = $5, error = $6, completed_at = $7
		 WHERE id = $8`,
		string(sess.Status), sess.Stage, sess.Progress, sess.ProspectsFound, string(ids), sess.Error, sess.CompletedAt, sess.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update session %s", sess.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("session not found: %s", sess.ID)
	}
	return nil
}

const postgresSessionColumns = `id, company_name, goal, target_count, status, stage, progress, prospects_found, profile_ids, error, started_at, completed_at`

func (s *PostgresSessions) GetSession(ctx context.Context, id string) (*model.Session, error) {
	sess, err := scanPostgresSession(s.pool.QueryRow(ctx,
		`SELECT `+postgresSessionColumns+` FROM discovery_sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get session %s", id)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT ts, level, message FROM session_activity WHERE session_id = $1 ORDER BY id DESC LIMIT $2`,
		id, MaxActivity,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get activity %s", id)
	}
	defer rows.Close()

	var entries []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.Timestamp, &a.Level, &a.Message); err != nil {
			return nil, eris.Wrap(err, "postgres: scan activity")
		}
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: activity iterate")
	}
	sess.Activity = chronological(entries)
	return sess, nil
}

func (s *PostgresSessions) ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	query := `SELECT ` + postgresSessionColumns + ` FROM discovery_sessions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		sess, err := scanPostgresSession(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		out = append(out, *sess)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}

func (s *PostgresSessions) AppendActivity(ctx context.Context, sessionID string, a model.Activity) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_activity (session_id, ts, level, message) VALUES ($1, $2, $3, $4)`,
		sessionID, a.Timestamp, a.Level, a.Message,
	)
	return eris.Wrapf(err, "postgres: append activity %s", sessionID)
}

func scanPostgresSession(row pgx.Row) (*model.Session, error) {
	var sess model.Session
	var status, ids string
	var completed *time.Time
	if err := row.Scan(&sess.ID, &sess.CompanyName, &sess.Goal, &sess.TargetCount, &status, &sess.Stage,
		&sess.Progress, &sess.ProspectsFound, &ids, &sess.Error, &sess.StartedAt, &completed); err != nil {
		return nil, err
	}
	sess.Status = model.SessionStatus(status)
	sess.CompletedAt = completed
	if err := json.Unmarshal([]byte(ids), &sess.ProfileIDs); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile ids")
	}
	return &sess, nil
}
