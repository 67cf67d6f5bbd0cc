package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/jenny-backend/internal/calendar"
	"github.com/yungbote/jenny-backend/internal/clients/openai"
	"github.com/yungbote/jenny-backend/internal/logger"
)

const calendarExtractionPrompt = `You manage a user's calendar.
Classify the message into one action:
- "list": the user wants to see events. Fill "when" with the day or range
  expression as the user said it (empty means the coming week).
- "create": a new event. Fill title, "when" with the start time expression,
  and duration_minutes (0 means use a one hour default).
- "search": the user is looking for a specific event. Fill query.`

var calendarActionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"action":           map[string]any{"type": "string", "enum": []string{"list", "create", "search"}},
		"title":            map[string]any{"type": "string"},
		"when":             map[string]any{"type": "string"},
		"duration_minutes": map[string]any{"type": "integer"},
		"query":            map[string]any{"type": "string"},
	},
	"required":             []string{"action", "title", "when", "duration_minutes", "query"},
	"additionalProperties": false,
}

type calendarAgent struct {
	log     *logger.Logger
	ai      openai.Client
	gateway *calendar.Gateway
	oauth   *calendar.OAuthManager
	now     func() time.Time
}

func NewCalendarAgent(log *logger.Logger, ai openai.Client, gateway *calendar.Gateway, oauth *calendar.OAuthManager) Agent {
	return &calendarAgent{
		log:     log.With("agent", NameCalendar),
		ai:      ai,
		gateway: gateway,
		oauth:   oauth,
		now:     func() time.Time { return time.Now() },
	}
}

func (a *calendarAgent) Name() string { return NameCalendar }

func (a *calendarAgent) Description() string {
	return "Reads and writes the user's connected calendars: upcoming events, new events, event lookups."
}

func (a *calendarAgent) Execute(ctx context.Context, req Request) (Reply, error) {
	decoded, err := a.ai.GenerateJSON(ctx, calendarExtractionPrompt, req.Message, "calendar_action", calendarActionSchema)
	if err != nil {
		return Reply{}, fmt.Errorf("calendar extraction: %w", err)
	}

	action, _ := decoded["action"].(string)
	title, _ := decoded["title"].(string)
	when, _ := decoded["when"].(string)
	query, _ := decoded["query"].(string)
	durationMin := 0
	if v, ok := decoded["duration_minutes"].(float64); ok {
		durationMin = int(v)
	}

	var reply Reply
	switch action {
	case "list":
		reply, err = a.list(ctx, req.UserID, when)
	case "create":
		reply, err = a.create(ctx, req.UserID, title, when, durationMin)
	case "search":
		reply, err = a.search(ctx, req.UserID, query)
	default:
		return Reply{Delegate: NameGeneral}, nil
	}

	var notConnected *calendar.ErrNotConnected
	if errors.As(err, &notConnected) {
		return a.connectReply(req.UserID, notConnected), nil
	}
	return reply, err
}

func (a *calendarAgent) connectReply(userID string, e *calendar.ErrNotConnected) Reply {
	if a.oauth != nil {
		for _, p := range e.Providers {
			if url, err := a.oauth.ConnectURL(p, userID); err == nil {
				return Reply{Text: fmt.Sprintf("You haven't connected a calendar yet. Connect %s here: %s", p, url)}
			}
		}
	}
	return Reply{Text: "You haven't connected a calendar yet, and calendar connections aren't configured on this server."}
}

func (a *calendarAgent) list(ctx context.Context, userID, when string) (Reply, error) {
	now := a.now()
	start := now
	end := now.AddDate(0, 0, 7)
	if strings.TrimSpace(when) != "" {
		if day, err := ParseWhen(when, now); err == nil {
			start = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
			end = start.AddDate(0, 0, 1)
		}
	}

	events, err := a.gateway.CachedEvents(ctx, userID, start, end)
	if err != nil {
		return Reply{}, err
	}
	if len(events) == 0 {
		return Reply{Text: "Nothing on your calendar for that period."}, nil
	}
	return Reply{Text: formatEvents("Here's what you have coming up:", events)}, nil
}

func (a *calendarAgent) create(ctx context.Context, userID, title, when string, durationMin int) (Reply, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Reply{Text: "What should the event be called?"}, nil
	}
	start, err := ParseWhen(when, a.now())
	if err != nil {
		return Reply{Text: fmt.Sprintf("I couldn't work out when %q is. When should I schedule it?", when)}, nil
	}
	if durationMin <= 0 {
		durationMin = 60
	}

	ev, err := a.gateway.CreateEvent(ctx, userID, calendar.CreateEventInput{
		Title: title,
		Start: start,
		End:   start.Add(time.Duration(durationMin) * time.Minute),
	})
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: fmt.Sprintf("Scheduled %q on %s for %s.", ev.Title, ev.Start.Format("Mon Jan 2 at 3:04 PM"), ev.Provider)}, nil
}

func (a *calendarAgent) search(ctx context.Context, userID, query string) (Reply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Reply{Text: "What event are you looking for?"}, nil
	}
	now := a.now()
	events, err := a.gateway.SearchEvents(ctx, userID, query, now.AddDate(0, -1, 0), now.AddDate(0, 3, 0))
	if err != nil {
		return Reply{}, err
	}
	if len(events) == 0 {
		return Reply{Text: fmt.Sprintf("I couldn't find any event matching %q.", query)}, nil
	}
	return Reply{Text: formatEvents("Found these events:", events)}, nil
}

func formatEvents(header string, events []calendar.Event) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for _, ev := range events {
		b.WriteString("- ")
		b.WriteString(ev.Title)
		b.WriteString(" on ")
		b.WriteString(ev.Start.Format("Mon Jan 2 at 3:04 PM"))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
