package storage

import (
	"context"
	"path/filepath"
	"testing"

	"sacco/internal/session"
)

func newTestStore(t *testing.T) *SQLiteSessionStore {
	t.Helper()
	st, err := NewSQLiteSessionStore(filepath.Join(t.TempDir(), "sacco.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	got, err := st.Get(ctx)
	if err != nil || !got.Empty() {
		t.Fatalf("expected empty session, got %+v (err=%v)", got, err)
	}

	want := session.Session{AccessToken: "acc", RefreshToken: "ref"}
	if err := st.Set(ctx, want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = st.Get(ctx)
	if err != nil || got != want {
		t.Fatalf("got %+v, want %+v (err=%v)", got, want, err)
	}

	// Rewriting only the access token keeps the refresh token.
	want.AccessToken = "acc2"
	if err := st.Set(ctx, want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ = st.Get(ctx)
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if err := st.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ = st.Get(ctx)
	if !got.Empty() {
		t.Fatalf("expected cleared session, got %+v", got)
	}
}

func TestSQLiteSessionStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sacco.db")

	st, err := NewSQLiteSessionStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.Set(ctx, session.Session{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	st.Close()

	st, err = NewSQLiteSessionStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	got, err := st.Get(ctx)
	if err != nil || got.RefreshToken != "r" {
		t.Fatalf("unexpected session after reopen %+v (err=%v)", got, err)
	}
}
