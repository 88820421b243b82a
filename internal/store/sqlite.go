package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-cli/internal/model"
)

// SQLiteSessions implements SessionStore using modernc.org/sqlite.
type SQLiteSessions struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteSessions, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteSessions{db: db}, nil
}

const sqliteMigration = `
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
	started_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at    DATETIME
);

CREATE TABLE IF NOT EXISTS session_activity (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES discovery_sessions(id),
	ts         DATETIME NOT NULL,
	level      TEXT NOT NULL,
	message    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON discovery_sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON discovery_sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_session_activity_session ON session_activity(session_id);
`

func (s *SQLiteSessions) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteSessions) Close() error {
	return s.db.Close()
}

func (s *SQLiteSessions) CreateSession(ctx context.Context, sess *model.Session) error {
	ids, err := json.Marshal(nonNil(sess.ProfileIDs))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile ids")
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO discovery_sessions (id, company_name, goal, target_count, status, stage, progress, prospects_found, profile_ids, error, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.CompanyName, sess.Goal, sess.TargetCount, string(sess.Status), sess.Stage,
		sess.Progress, sess.ProspectsFound, string(ids), sess.Error, sess.StartedAt,
	)
	return eris.Wrapf(err, "sqlite: insert session %s", sess.ID)
}

func (s *SQLiteSessions) UpdateSession(ctx context.Context, sess *model.Session) error {
	ids, err := json.Marshal(nonNil(sess.ProfileIDs))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile ids")
	}

	var completed sql.NullTime
	if sess.CompletedAt != nil {
		completed = sql.NullTime{Time: *sess.CompletedAt, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE discovery_sessions
		 SET status = ?, stage = ?, progress = ?, prospects_found = ?, profile_ids = ?, error = ?, completed_at = ?
		 WHERE id = ?`,
		string(sess.Status), sess.Stage, sess.Progress, sess.ProspectsFound, string(ids), sess.Error, completed, sess.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update session %s", sess.ID)
	}
	return checkRowsAffected(res, "session", sess.ID)
}

const sqliteSessionColumns = `id, company_name, goal, target_count, status, stage, progress, prospects_found, profile_ids, error, started_at, completed_at`

func (s *SQLiteSessions) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSessionColumns+` FROM discovery_sessions WHERE id = ?`, id)
	sess, err := scanSQLiteSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get session %s", id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, level, message FROM session_activity WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		id, MaxActivity,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get activity %s", id)
	}
	defer rows.Close()

	var entries []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.Timestamp, &a.Level, &a.Message); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan activity")
		}
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: activity iterate")
	}
	sess.Activity = chronological(entries)
	return sess, nil
}

func (s *SQLiteSessions) ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	query := `SELECT ` + sqliteSessionColumns + ` FROM discovery_sessions WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		sess, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session")
		}
		out = append(out, *sess)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteSessions) AppendActivity(ctx context.Context, sessionID string, a model.Activity) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_activity (session_id, ts, level, message) VALUES (?, ?, ?, ?)`,
		sessionID, a.Timestamp, a.Level, a.Message,
	)
	return eris.Wrapf(err, "sqlite: append activity %s", sessionID)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteSession(row scannable) (*model.Session, error) {
	var sess model.Session
	var status, ids string
	var completed sql.NullTime
	if err := row.Scan(&sess.ID, &sess.CompanyName, &sess.Goal, &sess.TargetCount, &status, &sess.Stage,
		&sess.Progress, &sess.ProspectsFound, &ids, &sess.Error, &sess.StartedAt, &completed); err != nil {
		return nil, err
	}
	sess.Status = model.SessionStatus(status)
	if completed.Valid {
		t := completed.Time
		sess.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(ids), &sess.ProfileIDs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal profile ids")
	}
	return &sess, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
