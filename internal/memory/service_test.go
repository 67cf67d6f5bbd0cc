package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/jenny-backend/internal/clients/pinecone"
	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/types"
)

type fakeMemoryRepo struct {
	rows map[uuid.UUID]*types.Memory
}

func newFakeMemoryRepo() *fakeMemoryRepo {
	return &fakeMemoryRepo{rows: map[uuid.UUID]*types.Memory{}}
}

func (f *fakeMemoryRepo) Create(ctx context.Context, tx *gorm.DB, m *types.Memory) (*types.Memory, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	f.rows[m.ID] = m
	return m, nil
}

func (f *fakeMemoryRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Memory, error) {
	var out []*types.Memory
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeMemoryRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]*types.Memory, error) {
	var out []*types.Memory
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeMemoryRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID string) (bool, error) {
	row, ok := f.rows[id]
	if !ok || row.UserID != userID {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

type fakeAI struct {
	embedErr error
}

func (f *fakeAI) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *fakeAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeAI) GenerateJSON(ctx context.Context, system, user, name string, schema map[string]any) (map[string]any, error) {
	return nil, errors.New("not implemented")
}

type fakeVectorStore struct {
	upserts []pinecone.Vector
	matches []pinecone.Match
	deleted []string
}

func (f *fakeVectorStore) Upsert(ctx context.Context, ns string, vectors []pinecone.Vector) error {
	f.upserts = append(f.upserts, vectors...)
	return nil
}

func (f *fakeVectorStore) QueryMatches(ctx context.Context, ns string, q []float32, topK int, filter map[string]any) ([]pinecone.Match, error) {
	return f.matches, nil
}

func (f *fakeVectorStore) Delete(ctx context.Context, ns string, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

func newTestService(t *testing.T, repo *fakeMemoryRepo, ai *fakeAI, vs *fakeVectorStore) Service {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	svc, err := NewService(log, repo, ai, vs)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRememberStoresRowAndVector(t *testing.T) {
	repo := newFakeMemoryRepo()
	vs := &fakeVectorStore{}
	svc := newTestService(t, repo, &fakeAI{}, vs)

	row, err := svc.Remember(context.Background(), "u1", "Anna's birthday is June 4")
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if repo.rows[row.ID] == nil {
		t.Fatalf("expected row persisted")
	}
	if len(vs.upserts) != 1 || vs.upserts[0].ID != row.ID.String() {
		t.Fatalf("expected vector keyed by row id, got %+v", vs.upserts)
	}
	if vs.upserts[0].Metadata["user_id"] != "u1" {
		t.Fatalf("expected user_id metadata on vector")
	}
}

func TestRememberKeepsRowWhenEmbeddingFails(t *testing.T) {
	repo := newFakeMemoryRepo()
	vs := &fakeVectorStore{}
	svc := newTestService(t, repo, &fakeAI{embedErr: errors.New("quota")}, vs)

	row, err := svc.Remember(context.Background(), "u1", "fact")
	if err != nil {
		t.Fatalf("Remember should not fail on embed error: %v", err)
	}
	if repo.rows[row.ID] == nil {
		t.Fatalf("expected row kept")
	}
	if len(vs.upserts) != 0 {
		t.Fatalf("expected no vector written")
	}
}

func TestRememberRejectsEmptyText(t *testing.T) {
	svc := newTestService(t, newFakeMemoryRepo(), &fakeAI{}, &fakeVectorStore{})
	if _, err := svc.Remember(context.Background(), "u1", "   "); err == nil {
		t.Fatalf("expected error for empty text")
	}
}

func TestSearchRanksByScoreThenRecency(t *testing.T) {
	repo := newFakeMemoryRepo()
	vs := &fakeVectorStore{}
	svc := newTestService(t, repo, &fakeAI{}, vs)
	ctx := context.Background()

	old := &types.Memory{ID: uuid.New(), UserID: "u1", Text: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &types.Memory{ID: uuid.New(), UserID: "u1", Text: "fresh", CreatedAt: time.Now()}
	top := &types.Memory{ID: uuid.New(), UserID: "u1", Text: "top", CreatedAt: time.Now().Add(-24 * time.Hour)}
	for _, row := range []*types.Memory{old, fresh, top} {
		if _, err := repo.Create(ctx, nil, row); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	vs.matches = []pinecone.Match{
		{ID: old.ID.String(), Score: 0.8},
		{ID: fresh.ID.String(), Score: 0.8},
		{ID: top.ID.String(), Score: 0.95},
	}

	hits, err := svc.Search(ctx, "u1", "anything", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].Memory.Text != "top" {
		t.Fatalf("expected highest score first, got %q", hits[0].Memory.Text)
	}
	// Equal scores break toward the newer memory.
	if hits[1].Memory.Text != "fresh" || hits[2].Memory.Text != "old" {
		t.Fatalf("expected recency tie-break, got %q then %q", hits[1].Memory.Text, hits[2].Memory.Text)
	}
}

func TestSearchFiltersForeignRows(t *testing.T) {
	repo := newFakeMemoryRepo()
	vs := &fakeVectorStore{}
	svc := newTestService(t, repo, &fakeAI{}, vs)
	ctx := context.Background()

	mine := &types.Memory{ID: uuid.New(), UserID: "u1", Text: "mine", CreatedAt: time.Now()}
	theirs := &types.Memory{ID: uuid.New(), UserID: "u2", Text: "theirs", CreatedAt: time.Now()}
	repo.Create(ctx, nil, mine)
	repo.Create(ctx, nil, theirs)
	vs.matches = []pinecone.Match{
		{ID: mine.ID.String(), Score: 0.9},
		{ID: theirs.ID.String(), Score: 0.99},
	}

	hits, err := svc.Search(ctx, "u1", "anything", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Memory.Text != "mine" {
		t.Fatalf("expected only own rows, got %+v", hits)
	}
}

func TestForgetRemovesRowAndVector(t *testing.T) {
	repo := newFakeMemoryRepo()
	vs := &fakeVectorStore{}
	svc := newTestService(t, repo, &fakeAI{}, vs)
	ctx := context.Background()

	row, err := svc.Remember(ctx, "u1", "temp fact")
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}
	removed, err := svc.Forget(ctx, "u1", row.ID)
	if err != nil || !removed {
		t.Fatalf("Forget: removed=%v err=%v", removed, err)
	}
	if len(vs.deleted) != 1 || vs.deleted[0] != row.ID.String() {
		t.Fatalf("expected vector delete, got %v", vs.deleted)
	}

	removed, err = svc.Forget(ctx, "u1", uuid.New())
	if err != nil || removed {
		t.Fatalf("expected no-op for unknown id, removed=%v err=%v", removed, err)
	}
}
