package agents

import (
	"context"
	"time"

	"github.com/yungbote/jenny-backend/internal/session"
)

// graphWriteTimeout bounds fire-and-forget graph writes spawned off the
// reply path.
const graphWriteTimeout = 5 * time.Second

// Canonical agent names. The router only ever dispatches to these.
const (
	NameMemory   = "memory"
	NameTask     = "task"
	NameCalendar = "calendar"
	NameProfile  = "profile"
	NameGeneral  = "general"
)

// Request carries one user message plus the conversation context the agent
// may use. Delegated marks a message another agent already handed off, so
// the receiver must answer rather than delegate again.
type Request struct {
	UserID    string
	Message   string
	Session   *session.Session
	Delegated bool
}

// Reply is an agent's answer. A non-empty Delegate asks the router to hand
// the message to another agent; the router honors at most one hand-off.
type Reply struct {
	Text     string
	Delegate string
}

// Agent handles messages of one intent class. Descriptions feed the router's
// classification prompt.
type Agent interface {
	Name() string
	Description() string
	Execute(ctx context.Context, req Request) (Reply, error)
}
