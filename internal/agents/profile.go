package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/jenny-backend/internal/clients/openai"
	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/memory"
	"github.com/yungbote/jenny-backend/internal/repos"
)

const profileExtractionPrompt = `You manage a user's profile of preferences.
Classify the message:
- "set": the user states a preference about themselves. Fill label with a
  short lowercase category (for example "dietary preference", "home city",
  "wake-up time") and value with the preference itself.
- "get": the user asks what you know about a preference. Fill label.
- "list": the user asks what preferences you have on file.`

var profileActionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"action": map[string]any{"type": "string", "enum": []string{"set", "get", "list"}},
		"label":  map[string]any{"type": "string"},
		"value":  map[string]any{"type": "string"},
	},
	"required":             []string{"action", "label", "value"},
	"additionalProperties": false,
}

type profileAgent struct {
	log      *logger.Logger
	ai       openai.Client
	profiles repos.ProfileRepo
	memories memory.Service
}

// NewProfileAgent takes an optional memory service; when present, stored
// preferences are mirrored into memory so the general agent can recall them.
func NewProfileAgent(log *logger.Logger, ai openai.Client, profiles repos.ProfileRepo, memories memory.Service) Agent {
	return &profileAgent{
		log:      log.With("agent", NameProfile),
		ai:       ai,
		profiles: profiles,
		memories: memories,
	}
}

func (a *profileAgent) Name() string { return NameProfile }

func (a *profileAgent) Description() string {
	return "Records and recalls the user's stated preferences (diet, schedule, places, likes and dislikes)."
}

func (a *profileAgent) Execute(ctx context.Context, req Request) (Reply, error) {
	decoded, err := a.ai.GenerateJSON(ctx, profileExtractionPrompt, req.Message, "profile_action", profileActionSchema)
	if err != nil {
		return Reply{}, fmt.Errorf("profile extraction: %w", err)
	}

	action, _ := decoded["action"].(string)
	label := strings.ToLower(strings.TrimSpace(stringField(decoded, "label")))
	value := strings.TrimSpace(stringField(decoded, "value"))

	switch action {
	case "set":
		if label == "" || value == "" {
			return Reply{Delegate: NameGeneral}, nil
		}
		if _, err := a.profiles.Upsert(ctx, nil, req.UserID, label, value); err != nil {
			return Reply{}, fmt.Errorf("profile upsert: %w", err)
		}
		if a.memories != nil {
			if _, err := a.memories.Remember(ctx, req.UserID, fmt.Sprintf("The user's %s is %s.", label, value)); err != nil {
				a.log.Warn("profile memory mirror failed", "label", label, "error", err)
			}
		}
		return Reply{Text: fmt.Sprintf("Noted: %s is %s.", label, value)}, nil

	case "get":
		if label == "" {
			return Reply{Delegate: NameGeneral}, nil
		}
		entry, err := a.profiles.Get(ctx, nil, req.UserID, label)
		if err != nil {
			return Reply{Text: fmt.Sprintf("I don't have anything on file for %s.", label)}, nil
		}
		return Reply{Text: fmt.Sprintf("Your %s is %s.", entry.Label, entry.Value)}, nil

	case "list":
		entries, err := a.profiles.List(ctx, nil, req.UserID, 20)
		if err != nil {
			return Reply{}, fmt.Errorf("profile list: %w", err)
		}
		if len(entries) == 0 {
			return Reply{Text: "I don't have any preferences on file for you yet."}, nil
		}
		var b strings.Builder
		b.WriteString("Here's what I have on file:\n")
		for _, e := range entries {
			b.WriteString("- ")
			b.WriteString(e.Label)
			b.WriteString(": ")
			b.WriteString(e.Value)
			b.WriteString("\n")
		}
		return Reply{Text: strings.TrimRight(b.String(), "\n")}, nil
	}
	return Reply{Delegate: NameGeneral}, nil
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
