package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client, ""), mr
}

func newSession(sid, accountID string, lifetime time.Duration) *Session {
	now := time.Now()
	return &Session{
		SessionID: sid,
		AccountID: accountID,
		Email:     "user@example.com",
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(lifetime).Unix(),
	}
}

func TestStoreSaveGet(t *testing.T) {
	store, _ := newTestStore(t)
	sess := newSession("sid-1", "acct-1", time.Hour)

	if err := store.Save(context.Background(), sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccountID != "acct-1" || got.SessionID != "sid-1" {
		t.Fatalf("got = %+v", got)
	}
}

func TestStoreGetUnknownSession(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, redis.Nil) {
		t.Fatalf("err = %v, want redis.Nil", err)
	}
}

func TestStoreGetExpiredRecord(t *testing.T) {
	store, _ := newTestStore(t)

	// Embedded expiry already past while the key is still alive.
	sess := newSession("sid-1", "acct-1", -time.Minute)
	if err := store.Save(context.Background(), sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := store.Get(context.Background(), "sid-1")
	if !errors.Is(err, redis.Nil) {
		t.Fatalf("err = %v, want redis.Nil", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store, _ := newTestStore(t)
	sess := newSession("sid-1", "acct-1", time.Hour)

	if err := store.Save(context.Background(), sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(context.Background(), "sid-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(context.Background(), "sid-1"); !errors.Is(err, redis.Nil) {
		t.Fatalf("err = %v, want redis.Nil", err)
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Delete(context.Background(), "never-existed"); err != nil {
		t.Fatalf("delete missing session: %v", err)
	}
}

func TestStoreDeleteAllForAccount(t *testing.T) {
	store, _ := newTestStore(t)

	for _, sid := range []string{"sid-1", "sid-2", "sid-3"} {
		if err := store.Save(context.Background(), newSession(sid, "acct-1", time.Hour), time.Hour); err != nil {
			t.Fatalf("save %s: %v", sid, err)
		}
	}
	if err := store.Save(context.Background(), newSession("sid-other", "acct-2", time.Hour), time.Hour); err != nil {
		t.Fatalf("save other: %v", err)
	}

	if err := store.DeleteAllForAccount(context.Background(), "acct-1"); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	for _, sid := range []string{"sid-1", "sid-2", "sid-3"} {
		if _, err := store.Get(context.Background(), sid); !errors.Is(err, redis.Nil) {
			t.Fatalf("session %s survived delete-all", sid)
		}
	}

	// Other accounts are untouched.
	if _, err := store.Get(context.Background(), "sid-other"); err != nil {
		t.Fatalf("unrelated session: %v", err)
	}
}

func TestStoreActiveSessionIDs(t *testing.T) {
	store, _ := newTestStore(t)

	for _, sid := range []string{"sid-1", "sid-2"} {
		if err := store.Save(context.Background(), newSession(sid, "acct-1", time.Hour), time.Hour); err != nil {
			t.Fatalf("save %s: %v", sid, err)
		}
	}

	ids, err := store.ActiveSessionIDs(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("active sessions: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want 2 entries", ids)
	}
}

func TestStoreTTLApplied(t *testing.T) {
	store, mr := newTestStore(t)

	if err := store.Save(context.Background(), newSession("sid-1", "acct-1", time.Hour), time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	ttl := mr.TTL("ise:sid-1")
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("ttl = %v, want within (0, 1h]", ttl)
	}
}
