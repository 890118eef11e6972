package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"sacco/internal/session"

	_ "modernc.org/sqlite"
)

// SQLiteSessionStore persists the session under fixed keys in a small
// key-value table, so tokens survive restarts and are shared between the
// portal server and saccoctl.
type SQLiteSessionStore struct {
	db *sql.DB
}

var _ session.Store = (*SQLiteSessionStore)(nil)

func NewSQLiteSessionStore(dbPath string) (*SQLiteSessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and keeps Set/Clear atomic
	// with respect to each other.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteSessionStore{db: db}, nil
}

func (s *SQLiteSessionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get implements session.Store
func (s *SQLiteSessionStore) Get(ctx context.Context) (session.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM session_kv WHERE key IN (?, ?)`,
		session.KeyAccessToken, session.KeyRefreshToken)
	if err != nil {
		return session.Session{}, fmt.Errorf("read session: %w", err)
	}
	defer rows.Close()

	var out session.Session
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return session.Session{}, fmt.Errorf("scan session row: %w", err)
		}
		switch key {
		case session.KeyAccessToken:
			out.AccessToken = value
		case session.KeyRefreshToken:
			out.RefreshToken = value
		}
	}
	if err := rows.Err(); err != nil {
		return session.Session{}, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

// Set implements session.Store. Both keys are written in one transaction;
// an empty token removes its key.
func (s *SQLiteSessionStore) Set(ctx context.Context, sess session.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	defer tx.Rollback()

	for key, value := range map[string]string{
		session.KeyAccessToken:  sess.AccessToken,
		session.KeyRefreshToken: sess.RefreshToken,
	} {
		if value == "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM session_kv WHERE key = ?`, key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO session_kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			key, value)
		if err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session tx: %w", err)
	}
	slog.DebugContext(ctx, "Session stored in SQLite", "has_refresh_token", sess.RefreshToken != "")
	return nil
}

// Clear implements session.Store
func (s *SQLiteSessionStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_kv WHERE key IN (?, ?)`,
		session.KeyAccessToken, session.KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	slog.InfoContext(ctx, "Session cleared from SQLite")
	return nil
}
