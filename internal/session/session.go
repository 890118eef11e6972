// Package session holds the bearer-token pair used by the transport client.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Fixed keys under which the token pair is persisted.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

var ErrNoSession = errors.New("no session")

// Session is the AuthSession: an access token plus the refresh token used
// to renew it.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether neither token is present.
func (s Session) Empty() bool {
	return strings.TrimSpace(s.AccessToken) == "" && strings.TrimSpace(s.RefreshToken) == ""
}

// Store is the injected, process-wide session storage. Implementations
// must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context) (Session, error)
	Set(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu  sync.RWMutex
	cur Session
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(initial Session) *MemoryStore {
	return &MemoryStore{cur: initial}
}

func (m *MemoryStore) Get(_ context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur, nil
}

func (m *MemoryStore) Set(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = s
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = Session{}
	return nil
}

// Seed writes initial tokens into an empty store. A store that already
// holds a session is left untouched.
func Seed(ctx context.Context, st Store, s Session) (bool, error) {
	if s.Empty() {
		return false, nil
	}
	cur, err := st.Get(ctx)
	if err != nil {
		return false, err
	}
	if !cur.Empty() {
		return false, nil
	}
	if err := st.Set(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}
