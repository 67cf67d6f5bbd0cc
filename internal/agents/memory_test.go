package agents

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/memory"
	"github.com/yungbote/jenny-backend/internal/types"
)

type fakeMemoryService struct {
	stored []string
}

func (f *fakeMemoryService) Remember(ctx context.Context, userID, text string) (*types.Memory, error) {
	f.stored = append(f.stored, text)
	return &types.Memory{ID: uuid.New(), UserID: userID, Text: text}, nil
}

func (f *fakeMemoryService) Search(ctx context.Context, userID, query string, topK int) ([]memory.Hit, error) {
	return nil, nil
}

func (f *fakeMemoryService) Forget(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	return false, nil
}

func TestMemoryRememberWithoutGraphStore(t *testing.T) {
	// A relation-shaped fact with no graph configured must store the memory
	// and skip enrichment instead of touching the absent store.
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	ai := &extractorAI{decoded: map[string]any{
		"action":    "remember",
		"content":   "Alice is the user's sister",
		"subject":   "Alice",
		"predicate": "is sister of",
		"object":    "the user",
	}}
	store := &fakeMemoryService{}
	a := NewMemoryAgent(log, ai, store, nil)

	reply, err := a.Execute(context.Background(), Request{UserID: "u1", Message: "remember that Alice is my sister"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if reply.Text == "" || reply.Delegate != "" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if len(store.stored) != 1 {
		t.Fatalf("expected one stored memory, got %d", len(store.stored))
	}
	// Give a mistakenly spawned enrichment goroutine time to blow up.
	time.Sleep(20 * time.Millisecond)
}
