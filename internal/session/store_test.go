package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yungbote/jenny-backend/internal/logger"
)

type fakeKV struct {
	data map[string]string
	ttls map[string]time.Duration
	sets int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.data[key] = value
	f.ttls[key] = ttl
	f.sets++
	return nil
}

func (f *fakeKV) Del(ctx context.Context, key string) error {
	delete(f.data, key)
	delete(f.ttls, key)
	return nil
}

func newTestStore(t *testing.T, kv KV) Store {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store, err := NewStore(log, kv)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestGetOrCreateReturnsEmptySession(t *testing.T) {
	store := newTestStore(t, newFakeKV())

	sess, err := store.GetOrCreate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if sess.UserID != "u1" {
		t.Fatalf("expected user u1, got %q", sess.UserID)
	}
	if len(sess.History) != 0 {
		t.Fatalf("expected empty history, got %d turns", len(sess.History))
	}
}

func TestAppendPersistsAndCapsHistory(t *testing.T) {
	kv := newFakeKV()
	store := newTestStore(t, kv)
	ctx := context.Background()

	for i := 0; i < MaxTurns+5; i++ {
		_, err := store.Append(ctx, "u1", []Turn{
			{Role: "user", Content: fmt.Sprintf("msg-%d", i)},
		}, "")
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	sess, err := store.GetOrCreate(ctx, "u1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(sess.History) != MaxTurns {
		t.Fatalf("expected history capped at %d, got %d", MaxTurns, len(sess.History))
	}
	// Oldest turns are evicted first.
	if sess.History[0].Content != "msg-5" {
		t.Fatalf("expected oldest surviving turn msg-5, got %q", sess.History[0].Content)
	}
	if sess.History[MaxTurns-1].Content != fmt.Sprintf("msg-%d", MaxTurns+4) {
		t.Fatalf("expected newest turn last, got %q", sess.History[MaxTurns-1].Content)
	}
}

func TestAppendRecordsLastIntent(t *testing.T) {
	store := newTestStore(t, newFakeKV())
	ctx := context.Background()

	if _, err := store.Append(ctx, "u1", []Turn{{Role: "user", Content: "remind me"}}, "task"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	sess, err := store.GetOrCreate(ctx, "u1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if sess.LastIntent != "task" {
		t.Fatalf("expected last intent task, got %q", sess.LastIntent)
	}

	// Empty intent leaves the previous one in place.
	if _, err := store.Append(ctx, "u1", []Turn{{Role: "user", Content: "ok"}}, ""); err != nil {
		t.Fatalf("Append: %v", err)
	}
	sess, _ = store.GetOrCreate(ctx, "u1")
	if sess.LastIntent != "task" {
		t.Fatalf("expected intent preserved, got %q", sess.LastIntent)
	}
}

func TestWritesRefreshTTL(t *testing.T) {
	kv := newFakeKV()
	store := newTestStore(t, kv)
	ctx := context.Background()

	if _, err := store.Append(ctx, "u1", []Turn{{Role: "user", Content: "hi"}}, ""); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if kv.ttls[keyPrefix+"u1"] != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %v", kv.ttls[keyPrefix+"u1"])
	}

	setsBefore := kv.sets
	if err := store.Touch(ctx, "u1"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if kv.sets != setsBefore+1 {
		t.Fatalf("expected touch to rewrite the key")
	}
}

func TestTouchMissingSessionIsNoop(t *testing.T) {
	store := newTestStore(t, newFakeKV())
	if err := store.Touch(context.Background(), "ghost"); err != nil {
		t.Fatalf("Touch on missing session: %v", err)
	}
}

func TestCorruptBlobDropsSession(t *testing.T) {
	kv := newFakeKV()
	store := newTestStore(t, kv)
	ctx := context.Background()

	kv.data[keyPrefix+"u1"] = "{not json"
	sess, err := store.GetOrCreate(ctx, "u1")
	if err != nil {
		t.Fatalf("GetOrCreate on corrupt blob: %v", err)
	}
	if len(sess.History) != 0 {
		t.Fatalf("expected fresh session after corrupt blob")
	}
	if _, still := kv.data[keyPrefix+"u1"]; still {
		t.Fatalf("expected corrupt blob to be deleted")
	}
}

func TestClear(t *testing.T) {
	kv := newFakeKV()
	store := newTestStore(t, kv)
	ctx := context.Background()

	if _, err := store.Append(ctx, "u1", []Turn{{Role: "user", Content: "hi"}}, ""); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	sess, _ := store.GetOrCreate(ctx, "u1")
	if len(sess.History) != 0 {
		t.Fatalf("expected cleared session")
	}
}
