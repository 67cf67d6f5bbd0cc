package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/jenny-backend/internal/clients/openai"
	"github.com/yungbote/jenny-backend/internal/clients/pinecone"
	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/repos"
	"github.com/yungbote/jenny-backend/internal/types"
)

const defaultTopK = 5

// Hit is one search result: the stored row plus its similarity score.
type Hit struct {
	Memory *types.Memory `json:"memory"`
	Score  float64       `json:"score"`
}

// Service owns the write-then-index path for durable facts. A memory row is
// immutable once written; corrections are stored as new memories.
type Service interface {
	Remember(ctx context.Context, userID, text string) (*types.Memory, error)
	Search(ctx context.Context, userID, query string, topK int) ([]Hit, error)
	Forget(ctx context.Context, userID string, id uuid.UUID) (bool, error)
}

type service struct {
	log     *logger.Logger
	repo    repos.MemoryRepo
	ai      openai.Client
	vectors pinecone.VectorStore
}

func NewService(log *logger.Logger, repo repos.MemoryRepo, ai openai.Client, vectors pinecone.VectorStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("memory repo required")
	}
	if ai == nil {
		return nil, fmt.Errorf("openai client required")
	}
	if vectors == nil {
		return nil, fmt.Errorf("vector store required")
	}
	return &service{
		log:     log.With("service", "MemoryService"),
		repo:    repo,
		ai:      ai,
		vectors: vectors,
	}, nil
}

// Remember persists the row first, then indexes the vector under the row ID.
// If indexing fails the row is kept: the text source of truth survives and
// the vector can be rebuilt.
func (s *service) Remember(ctx context.Context, userID, text string) (*types.Memory, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("memory text required")
	}

	row, err := s.repo.Create(ctx, nil, &types.Memory{
		ID:     uuid.New(),
		UserID: userID,
		Text:   text,
	})
	if err != nil {
		return nil, fmt.Errorf("store memory: %w", err)
	}

	embeddings, err := s.ai.Embed(ctx, []string{text})
	if err != nil {
		s.log.Error("memory embed failed; row kept without vector", "memory_id", row.ID, "error", err)
		return row, nil
	}

	err = s.vectors.Upsert(ctx, "memories", []pinecone.Vector{{
		ID:     row.ID.String(),
		Values: embeddings[0],
		Metadata: map[string]any{
			"user_id":    userID,
			"created_at": row.CreatedAt.UTC().Format(time.RFC3339),
		},
	}})
	if err != nil {
		s.log.Error("memory vector upsert failed; row kept without vector", "memory_id", row.ID, "error", err)
	}
	return row, nil
}

// Search embeds the query, asks the index for nearest neighbors filtered to
// this user, then hydrates rows from Postgres. Results come back score
// descending with newer memories winning ties.
func (s *service) Search(ctx context.Context, userID, query string, topK int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query required")
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	embeddings, err := s.ai.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.vectors.QueryMatches(ctx, "memories", embeddings[0], topK, map[string]any{
		"user_id": map[string]any{"$eq": userID},
	})
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(matches))
	scores := make(map[uuid.UUID]float64, len(matches))
	for _, m := range matches {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			s.log.Warn("vector match with non-uuid id skipped", "id", m.ID)
			continue
		}
		ids = append(ids, id)
		scores[id] = m.Score
	}

	rows, err := s.repo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate memories: %w", err)
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		// Rows for other users never match thanks to the index filter, but
		// the ownership check is cheap and the filter is remote input.
		if row.UserID != userID {
			continue
		}
		hits = append(hits, Hit{Memory: row, Score: scores[row.ID]})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Memory.CreatedAt.After(hits[j].Memory.CreatedAt)
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *service) Forget(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	removed, err := s.repo.Delete(ctx, nil, id, userID)
	if err != nil {
		return false, err
	}
	if removed {
		if derr := s.vectors.Delete(ctx, "memories", []string{id.String()}); derr != nil {
			s.log.Warn("memory vector delete failed", "memory_id", id, "error", derr)
		}
	}
	return removed, nil
}
