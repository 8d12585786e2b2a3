package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ecosketch/ecosketch/pkg/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_prompt TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'prompt',
    ai_description TEXT,
    user_feedback TEXT,
    final_description TEXT,
    generated_image_url TEXT,
    energy_saved INTEGER,
    time_saved INTEGER,
    created_at TEXT NOT NULL,
    created_at_epoch INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_created_at_epoch ON sessions(created_at_epoch);
`

// SQLiteConfig configures the durable session store.
type SQLiteConfig struct {
	Path string
}

// SQLiteStore persists sessions in a SQLite database. AUTOINCREMENT keeps
// ids monotonic so deleted-by-hand rows can never cause id reuse.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at cfg.Path and
// bootstraps the schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, in NewSession) (*models.Session, error) {
	status := in.Status
	if status == "" {
		status = models.StatusPrompt
	}
	now := s.now()

	const query = `
		INSERT INTO sessions (user_prompt, status, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		in.UserPrompt, string(status), now.Format(time.RFC3339Nano), now.UnixMilli())
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*models.Session, error) {
	const query = `
		SELECT id, user_prompt, status, ai_description, user_feedback,
		       final_description, generated_image_url, energy_saved, time_saved, created_at
		FROM sessions
		WHERE id = ?
		LIMIT 1
	`
	return scanSession(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStore) Update(ctx context.Context, id int64, upd SessionUpdate) (*models.Session, error) {
	// Read-merge-write keeps the shallow-merge contract identical to the
	// in-memory backend; the orchestrator serializes writers per id.
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	upd.apply(sess)

	const query = `
		UPDATE sessions
		SET status = ?, ai_description = ?, user_feedback = ?, final_description = ?,
		    generated_image_url = ?, energy_saved = ?, time_saved = ?
		WHERE id = ?
	`
	_, err = s.db.ExecContext(ctx, query,
		string(sess.Status), nullString(sess.AIDescription), nullString(sess.UserFeedback),
		nullString(sess.FinalDescription), nullString(sess.GeneratedImageURL),
		nullInt(sess.EnergySaved), nullInt(sess.TimeSaved), id)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*models.Session, error) {
	const query = `
		SELECT id, user_prompt, status, ai_description, user_feedback,
		       final_description, generated_image_url, energy_saved, time_saved, created_at
		FROM sessions
		ORDER BY created_at_epoch DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func scanSession(scanner interface{ Scan(...any) error }) (*models.Session, error) {
	var (
		sess      models.Session
		status    string
		desc      sql.NullString
		feedback  sql.NullString
		finalDesc sql.NullString
		imageURL  sql.NullString
		energy    sql.NullInt64
		saved     sql.NullInt64
		createdAt string
	)
	err := scanner.Scan(&sess.ID, &sess.UserPrompt, &status, &desc, &feedback,
		&finalDesc, &imageURL, &energy, &saved, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	sess.Status = models.SessionStatus(status)
	sess.AIDescription = desc.String
	sess.UserFeedback = feedback.String
	sess.FinalDescription = finalDesc.String
	sess.GeneratedImageURL = imageURL.String
	sess.EnergySaved = int(energy.Int64)
	sess.TimeSaved = int(saved.Int64)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		sess.CreatedAt = t
	}
	return &sess, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i > 0}
}
