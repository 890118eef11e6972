package session

import (
	"context"
	"testing"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(Session{})

	s, err := st.Get(ctx)
	if err != nil || !s.Empty() {
		t.Fatalf("expected empty session, got %+v (err=%v)", s, err)
	}

	if err := st.Set(ctx, Session{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	s, _ = st.Get(ctx)
	if s.AccessToken != "a" || s.RefreshToken != "r" {
		t.Fatalf("unexpected session %+v", s)
	}

	if err := st.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	s, _ = st.Get(ctx)
	if !s.Empty() {
		t.Fatalf("expected cleared session, got %+v", s)
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(Session{})

	seeded, err := Seed(ctx, st, Session{AccessToken: "a", RefreshToken: "r"})
	if err != nil || !seeded {
		t.Fatalf("expected seed, got %v (err=%v)", seeded, err)
	}

	seeded, err = Seed(ctx, st, Session{AccessToken: "other"})
	if err != nil || seeded {
		t.Fatalf("expected existing session to be kept, got %v (err=%v)", seeded, err)
	}
	s, _ := st.Get(ctx)
	if s.AccessToken != "a" {
		t.Fatalf("session overwritten: %+v", s)
	}

	seeded, _ = Seed(ctx, NewMemoryStore(Session{}), Session{})
	if seeded {
		t.Fatalf("empty seed must be a no-op")
	}
}
