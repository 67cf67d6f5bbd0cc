package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/jenny-backend/internal/clients/openai"
	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/memory"
)

const generalSystemPrompt = `You are Jenny, a warm and concise personal
assistant. Answer the user's message directly. Use the provided stored facts
and recent conversation when relevant; never invent facts about the user.`

const generalIntentPrompt = `Decide which specialist should handle the user's
message. Pick "memory" for storing or recalling facts, "task" for reminders
and to-dos, "calendar" for events and availability, "profile" for account
details. If none clearly applies, pick "general".`

var generalIntentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"agent": map[string]any{
			"type": "string",
			"enum": []string{NameMemory, NameTask, NameCalendar, NameProfile, NameGeneral},
		},
	},
	"required":             []string{"agent"},
	"additionalProperties": false,
}

type generalAgent struct {
	log      *logger.Logger
	ai       openai.Client
	memories memory.Service
}

// NewGeneralAgent accepts a nil memory service; context enrichment is then
// skipped.
func NewGeneralAgent(log *logger.Logger, ai openai.Client, memories memory.Service) Agent {
	return &generalAgent{
		log:      log.With("agent", NameGeneral),
		ai:       ai,
		memories: memories,
	}
}

func (a *generalAgent) Name() string { return NameGeneral }

func (a *generalAgent) Description() string {
	return "Handles greetings, small talk, general questions, and anything that fits no other agent."
}

func (a *generalAgent) Execute(ctx context.Context, req Request) (Reply, error) {
	// A misroute can land a specialist's message here; hand it back once.
	// Skipped for messages another agent already delegated, so two confused
	// agents cannot bounce one message back and forth.
	if !req.Delegated {
		if name := a.detectIntent(ctx, req.Message); name != "" && name != NameGeneral {
			return Reply{Delegate: name}, nil
		}
	}

	var b strings.Builder

	if a.memories != nil {
		hits, err := a.memories.Search(ctx, req.UserID, req.Message, 3)
		if err != nil {
			a.log.Warn("memory lookup for context failed", "user_id", req.UserID, "error", err)
		} else if len(hits) > 0 {
			b.WriteString("Stored facts about the user:\n")
			for _, h := range hits {
				b.WriteString("- ")
				b.WriteString(h.Memory.Text)
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}

	if req.Session != nil && len(req.Session.History) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range req.Session.History {
			b.WriteString(turn.Role)
			b.WriteString(": ")
			b.WriteString(turn.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("User message: ")
	b.WriteString(req.Message)

	text, err := a.ai.GenerateText(ctx, generalSystemPrompt, b.String())
	if err != nil {
		return Reply{}, fmt.Errorf("general reply: %w", err)
	}
	return Reply{Text: text}, nil
}

// detectIntent asks the model whether the message really belongs to a
// specialist. The answer is untrusted; anything unexpected means "answer it
// here", never an error, since the general agent is the roster's last resort.
func (a *generalAgent) detectIntent(ctx context.Context, message string) string {
	decoded, err := a.ai.GenerateJSON(ctx, generalIntentPrompt, message, "intent", generalIntentSchema)
	if err != nil {
		a.log.Warn("intent detection failed; answering directly", "error", err)
		return ""
	}
	name, _ := decoded["agent"].(string)
	switch name {
	case NameMemory, NameTask, NameCalendar, NameProfile, NameGeneral:
		return name
	}
	return ""
}
