package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/jenny-backend/internal/clients/openai"
	"github.com/yungbote/jenny-backend/internal/graph"
	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/memory"
)

const memoryExtractionPrompt = `You manage a user's long-term memory.
Decide whether the message is storing a new fact or recalling stored facts.
For "remember", rewrite the fact as a short third-person statement.
For "recall", produce the search query that best matches what the user wants.
If the fact expresses a relation between two things, also fill subject,
predicate and object; otherwise leave them empty.`

var memoryActionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"action":    map[string]any{"type": "string", "enum": []string{"remember", "recall"}},
		"content":   map[string]any{"type": "string"},
		"subject":   map[string]any{"type": "string"},
		"predicate": map[string]any{"type": "string"},
		"object":    map[string]any{"type": "string"},
	},
	"required":             []string{"action", "content", "subject", "predicate", "object"},
	"additionalProperties": false,
}

type memoryAgent struct {
	log   *logger.Logger
	ai    openai.Client
	store memory.Service
	graph graph.Store
}

func NewMemoryAgent(log *logger.Logger, ai openai.Client, store memory.Service, g graph.Store) Agent {
	return &memoryAgent{
		log:   log.With("agent", NameMemory),
		ai:    ai,
		store: store,
		graph: g,
	}
}

func (a *memoryAgent) Name() string { return NameMemory }

func (a *memoryAgent) Description() string {
	return "Stores personal facts the user wants remembered and answers questions about previously stored facts."
}

func (a *memoryAgent) Execute(ctx context.Context, req Request) (Reply, error) {
	decoded, err := a.ai.GenerateJSON(ctx, memoryExtractionPrompt, req.Message, "memory_action", memoryActionSchema)
	if err != nil {
		return Reply{}, fmt.Errorf("memory extraction: %w", err)
	}

	action, _ := decoded["action"].(string)
	content, _ := decoded["content"].(string)
	content = strings.TrimSpace(content)
	if content == "" {
		content = req.Message
	}

	switch action {
	case "remember":
		row, err := a.store.Remember(ctx, req.UserID, content)
		if err != nil {
			return Reply{}, err
		}

		subject, _ := decoded["subject"].(string)
		predicate, _ := decoded["predicate"].(string)
		object, _ := decoded["object"].(string)
		if subject != "" && predicate != "" && object != "" && a.graph != nil && a.graph.Enabled() {
			// Graph enrichment is best effort and off the reply path.
			go func() {
				gctx, cancel := context.WithTimeout(context.Background(), graphWriteTimeout)
				defer cancel()
				_ = a.graph.AddRelation(gctx, req.UserID, subject, predicate, object)
			}()
		}

		a.log.Info("memory stored", "user_id", req.UserID, "memory_id", row.ID)
		return Reply{Text: "Got it, I'll remember that."}, nil

	case "recall":
		hits, err := a.store.Search(ctx, req.UserID, content, 0)
		if err != nil {
			return Reply{}, err
		}
		if len(hits) == 0 {
			return Reply{Text: "I don't have anything stored about that yet."}, nil
		}
		var b strings.Builder
		b.WriteString("Here's what I remember:\n")
		for _, h := range hits {
			b.WriteString("- ")
			b.WriteString(h.Memory.Text)
			b.WriteString("\n")
		}
		if a.graph != nil && a.graph.Enabled() {
			if rels, err := a.graph.RelatedEntities(ctx, req.UserID, content, 3); err == nil {
				for _, rel := range rels {
					b.WriteString(fmt.Sprintf("- %s %s %s\n", rel.Subject, rel.Predicate, rel.Object))
				}
			}
		}
		return Reply{Text: strings.TrimRight(b.String(), "\n")}, nil
	}

	// The classifier was confident this was memory work but the extractor
	// wasn't; let the general agent answer instead.
	return Reply{Delegate: NameGeneral}, nil
}
