package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/jenny-backend/internal/agents"
	"github.com/yungbote/jenny-backend/internal/clients/openai"
	"github.com/yungbote/jenny-backend/internal/graph"
	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/session"
)

// FallbackReply is returned whenever classification or the chosen agent
// fails; the user always gets an answer.
const FallbackReply = "Sorry, I had trouble with that one. Could you rephrase it?"

// Result is what the front end renders: the reply text plus which agent
// produced it.
type Result struct {
	Agent string `json:"agent"`
	Reply string `json:"reply"`
}

// Router classifies each message onto the fixed agent roster with one LLM
// call, dispatches, and records the exchange in the session cache.
type Router struct {
	log      *logger.Logger
	ai       openai.Client
	sessions session.Store
	graph    graph.Store
	roster   map[string]agents.Agent
	order    []string
}

func New(log *logger.Logger, ai openai.Client, sessions session.Store, g graph.Store, roster ...agents.Agent) (*Router, error) {
	if ai == nil {
		return nil, fmt.Errorf("openai client required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	byName := make(map[string]agents.Agent, len(roster))
	order := make([]string, 0, len(roster))
	for _, a := range roster {
		if _, dup := byName[a.Name()]; dup {
			return nil, fmt.Errorf("duplicate agent %q", a.Name())
		}
		byName[a.Name()] = a
		order = append(order, a.Name())
	}
	if _, ok := byName[agents.NameGeneral]; !ok {
		return nil, fmt.Errorf("roster must include the %q agent", agents.NameGeneral)
	}
	return &Router{
		log:      log.With("service", "Router"),
		ai:       ai,
		sessions: sessions,
		graph:    g,
		roster:   byName,
		order:    order,
	}, nil
}

// Handle routes one message end to end. It never returns a user-facing
// error: failures inside classification or an agent collapse to the general
// fallback reply.
func (r *Router) Handle(ctx context.Context, userID, message string) (*Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("message required")
	}

	sess, err := r.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		r.log.Warn("session load failed; continuing without history", "user_id", userID, "error", err)
		sess = &session.Session{UserID: userID}
	}

	agentName := r.classify(ctx, message, sess)
	result := r.dispatch(ctx, agentName, agents.Request{
		UserID:  userID,
		Message: message,
		Session: sess,
	})

	if _, err := r.sessions.Append(ctx, userID, []session.Turn{
		{Role: "user", Content: message},
		{Role: "assistant", Content: result.Reply},
	}, result.Agent); err != nil {
		r.log.Warn("session append failed", "user_id", userID, "error", err)
	}

	// Interaction audit is off the reply path.
	if r.graph != nil && r.graph.Enabled() {
		go func() {
			gctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = r.graph.LogInteraction(gctx, userID, message, result.Agent, result.Reply)
		}()
	}

	return result, nil
}

var classifySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"agent": map[string]any{
			"type": "string",
			"enum": []string{agents.NameMemory, agents.NameTask, agents.NameCalendar, agents.NameProfile, agents.NameGeneral},
		},
	},
	"required":             []string{"agent"},
	"additionalProperties": false,
}

// classify picks an agent with a single structured-output call. The model's
// answer is untrusted: anything outside the roster becomes "general".
func (r *Router) classify(ctx context.Context, message string, sess *session.Session) string {
	var prompt strings.Builder
	prompt.WriteString("Route the user's message to exactly one agent:\n")
	for _, name := range r.order {
		prompt.WriteString("- ")
		prompt.WriteString(name)
		prompt.WriteString(": ")
		prompt.WriteString(r.roster[name].Description())
		prompt.WriteString("\n")
	}
	prompt.WriteString("When the message is ambiguous, pick \"general\".")
	if sess != nil && sess.LastIntent != "" {
		prompt.WriteString("\nThe previous message went to the ")
		prompt.WriteString(sess.LastIntent)
		prompt.WriteString(" agent; short follow-ups usually belong to the same agent.")
	}

	decoded, err := r.ai.GenerateJSON(ctx, prompt.String(), message, "route", classifySchema)
	if err != nil {
		r.log.Warn("classification failed; routing to general", "error", err)
		return agents.NameGeneral
	}
	name, _ := decoded["agent"].(string)
	if _, ok := r.roster[name]; !ok {
		r.log.Warn("classifier returned unknown agent; routing to general", "agent", name)
		return agents.NameGeneral
	}
	return name
}

// dispatch runs the chosen agent, honoring at most one delegation hop so two
// confused agents cannot bounce a message forever.
func (r *Router) dispatch(ctx context.Context, agentName string, req agents.Request) *Result {
	for hop := 0; hop < 2; hop++ {
		agent, ok := r.roster[agentName]
		if !ok {
			break
		}
		reply, err := agent.Execute(ctx, req)
		if err != nil {
			r.log.Error("agent execution failed", "agent", agentName, "user_id", req.UserID, "error", err)
			return &Result{Agent: agents.NameGeneral, Reply: FallbackReply}
		}
		if reply.Delegate != "" && reply.Delegate != agentName {
			agentName = reply.Delegate
			req.Delegated = true
			continue
		}
		return &Result{Agent: agentName, Reply: reply.Text}
	}
	return &Result{Agent: agents.NameGeneral, Reply: FallbackReply}
}
