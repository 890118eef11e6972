// Package backend opens the session store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"sacco/internal/config"
	applog "sacco/internal/log"
	"sacco/internal/session"
	"sacco/internal/storage"
)

// Type is a session storage backend.
type Type string

const (
	MemoryBackend Type = "memory"
	SQLiteBackend Type = "sqlite"
)

func (t Type) IsValid() bool {
	return t == MemoryBackend || t == SQLiteBackend
}

func (t Type) String() string {
	return string(t)
}

// Config selects and seeds the session store.
type Config struct {
	Type         Type
	SQLiteDBPath string
	// Seed is written into an empty store on open.
	Seed session.Session
}

// FromAppConfig converts the application config to a backend config.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := Type(cfg.SessionBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid session backend: %s", cfg.SessionBackend)
	}
	return Config{
		Type:         t,
		SQLiteDBPath: cfg.SQLiteDBPath,
		Seed:         session.Session{AccessToken: cfg.AccessToken, RefreshToken: cfg.RefreshToken},
	}, nil
}

// Result is an opened store and the function that releases it.
type Result struct {
	Store   session.Store
	Cleanup func() error
}

// Open creates the store described by cfg and seeds it.
func Open(ctx context.Context, cfg Config, logger *applog.Logger) (*Result, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentSession)

	var res *Result
	switch cfg.Type {
	case MemoryBackend:
		res = &Result{Store: session.NewMemoryStore(session.Session{}), Cleanup: func() error { return nil }}
	case SQLiteBackend:
		if cfg.SQLiteDBPath == "" {
			return nil, fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		st, err := storage.NewSQLiteSessionStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		res = &Result{Store: st, Cleanup: st.Close}
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Type)
	}

	seeded, err := session.Seed(ctx, res.Store, cfg.Seed)
	if err != nil {
		_ = res.Cleanup()
		return nil, fmt.Errorf("seed session: %w", err)
	}
	logger.InfoContext(ctx, "Session store ready", "backend", cfg.Type.String(), "seeded", seeded)
	return res, nil
}
