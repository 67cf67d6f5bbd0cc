package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/jenny-backend/internal/clients/openai"
	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/repos"
	"github.com/yungbote/jenny-backend/internal/scheduler"
	"github.com/yungbote/jenny-backend/internal/types"
)

const taskExtractionPrompt = `You manage a user's tasks and reminders.
Classify the message into one action:
- "create": a new task or reminder. Fill title with a short imperative
  phrase, "when" with the time expression exactly as the user said it (empty
  if none), and recurrence with daily/weekly/monthly if the user asked for a
  repeating reminder (empty otherwise).
- "list": the user wants to see their open tasks.
- "complete": the user finished a task. Fill title with the words
  identifying which task.
- "delete": the user wants a task dropped without doing it. Fill title with
  the words identifying which task.`

var taskActionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"action":     map[string]any{"type": "string", "enum": []string{"create", "list", "complete", "delete"}},
		"title":      map[string]any{"type": "string"},
		"when":       map[string]any{"type": "string"},
		"recurrence": map[string]any{"type": "string", "enum": []string{"", "daily", "weekly", "monthly"}},
	},
	"required":             []string{"action", "title", "when", "recurrence"},
	"additionalProperties": false,
}

type taskAgent struct {
	log   *logger.Logger
	ai    openai.Client
	tasks repos.TaskRepo
	sched scheduler.Scheduler
	now   func() time.Time
}

func NewTaskAgent(log *logger.Logger, ai openai.Client, tasks repos.TaskRepo, sched scheduler.Scheduler) Agent {
	return &taskAgent{
		log:   log.With("agent", NameTask),
		ai:    ai,
		tasks: tasks,
		sched: sched,
		now:   func() time.Time { return time.Now() },
	}
}

func (a *taskAgent) Name() string { return NameTask }

func (a *taskAgent) Description() string {
	return "Creates tasks and reminders, lists open tasks, and marks tasks done."
}

func (a *taskAgent) Execute(ctx context.Context, req Request) (Reply, error) {
	decoded, err := a.ai.GenerateJSON(ctx, taskExtractionPrompt, req.Message, "task_action", taskActionSchema)
	if err != nil {
		return Reply{}, fmt.Errorf("task extraction: %w", err)
	}

	action, _ := decoded["action"].(string)
	title, _ := decoded["title"].(string)
	when, _ := decoded["when"].(string)
	recurrence, _ := decoded["recurrence"].(string)

	switch action {
	case "create":
		return a.create(ctx, req.UserID, title, when, recurrence)
	case "list":
		return a.list(ctx, req.UserID)
	case "complete":
		return a.complete(ctx, req.UserID, title)
	case "delete":
		return a.remove(ctx, req.UserID, title)
	}
	return Reply{Delegate: NameGeneral}, nil
}

func (a *taskAgent) create(ctx context.Context, userID, title, when, recurrence string) (Reply, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Reply{Text: "What should I call that task?"}, nil
	}

	var dueAt *time.Time
	if strings.TrimSpace(when) != "" {
		t, err := ParseWhen(when, a.now())
		if err != nil {
			return Reply{Text: fmt.Sprintf("I couldn't work out when %q is. Could you give me a time like \"tomorrow\" or \"in 2 hours\"?", when)}, nil
		}
		dueAt = &t
	}
	if recurrence != "" && dueAt == nil {
		// A repeating reminder needs an anchor time.
		t := atHour(a.now().AddDate(0, 0, 1), 9, a.now())
		dueAt = &t
	}

	task, err := a.tasks.Create(ctx, nil, &types.Task{
		UserID:     userID,
		Title:      title,
		DueAt:      dueAt,
		Recurrence: recurrence,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("create task: %w", err)
	}

	if dueAt != nil {
		job, err := a.sched.Schedule(ctx, &scheduler.Job{
			UserID:     userID,
			TaskID:     task.ID.String(),
			Message:    title,
			FireAt:     *dueAt,
			Recurrence: recurrence,
		})
		if err != nil {
			// The row exists; startup reconciliation will recreate the job.
			a.log.Error("task saved but reminder scheduling failed", "task_id", task.ID, "error", err)
			return Reply{Text: fmt.Sprintf("I saved %q but couldn't set the reminder. I'll retry shortly.", title)}, nil
		}
		if err := a.tasks.SetJobID(ctx, nil, task.ID, job.ID); err != nil {
			a.log.Warn("could not record job id on task", "task_id", task.ID, "error", err)
		}
		if recurrence != "" {
			return Reply{Text: fmt.Sprintf("Done. I'll remind you about %q %s starting %s.", title, recurrence, dueAt.Format("Mon Jan 2 at 3:04 PM"))}, nil
		}
		return Reply{Text: fmt.Sprintf("Done. I'll remind you about %q on %s.", title, dueAt.Format("Mon Jan 2 at 3:04 PM"))}, nil
	}
	return Reply{Text: fmt.Sprintf("Added %q to your tasks.", title)}, nil
}

func (a *taskAgent) list(ctx context.Context, userID string) (Reply, error) {
	tasks, err := a.tasks.ListPending(ctx, nil, userID, 10)
	if err != nil {
		return Reply{}, fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		return Reply{Text: "You have no open tasks."}, nil
	}
	var b strings.Builder
	b.WriteString("Your open tasks:\n")
	for _, t := range tasks {
		b.WriteString("- ")
		b.WriteString(t.Title)
		if t.DueAt != nil {
			b.WriteString(" (due ")
			b.WriteString(t.DueAt.Format("Mon Jan 2 at 3:04 PM"))
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n")}, nil
}

func (a *taskAgent) complete(ctx context.Context, userID, title string) (Reply, error) {
	title = strings.TrimSpace(strings.ToLower(title))
	if title == "" {
		return Reply{Text: "Which task did you finish?"}, nil
	}
	t, err := a.matchPending(ctx, userID, title)
	if err != nil {
		return Reply{}, err
	}
	if t == nil {
		return Reply{Text: fmt.Sprintf("I couldn't find an open task matching %q.", title)}, nil
	}
	if _, err := a.tasks.SetStatus(ctx, nil, t.ID, userID, types.TaskStatusDone); err != nil {
		return Reply{}, fmt.Errorf("complete task: %w", err)
	}
	a.cancelReminder(ctx, userID, t)
	return Reply{Text: fmt.Sprintf("Nice, marked %q as done.", t.Title)}, nil
}

func (a *taskAgent) remove(ctx context.Context, userID, title string) (Reply, error) {
	title = strings.TrimSpace(strings.ToLower(title))
	if title == "" {
		return Reply{Text: "Which task should I drop?"}, nil
	}
	t, err := a.matchPending(ctx, userID, title)
	if err != nil {
		return Reply{}, err
	}
	if t == nil {
		return Reply{Text: fmt.Sprintf("I couldn't find an open task matching %q.", title)}, nil
	}
	if _, err := a.tasks.SetStatus(ctx, nil, t.ID, userID, types.TaskStatusDeleted); err != nil {
		return Reply{}, fmt.Errorf("delete task: %w", err)
	}
	a.cancelReminder(ctx, userID, t)
	return Reply{Text: fmt.Sprintf("Dropped %q from your tasks.", t.Title)}, nil
}

// matchPending fuzzy-matches the user's words against open task titles.
func (a *taskAgent) matchPending(ctx context.Context, userID, lowered string) (*types.Task, error) {
	tasks, err := a.tasks.ListPending(ctx, nil, userID, 50)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for _, t := range tasks {
		candidate := strings.ToLower(t.Title)
		if candidate == lowered || strings.Contains(candidate, lowered) || strings.Contains(lowered, candidate) {
			return t, nil
		}
	}
	return nil, nil
}

func (a *taskAgent) cancelReminder(ctx context.Context, userID string, t *types.Task) {
	if t.JobID == "" {
		return
	}
	if err := a.sched.Cancel(ctx, userID, t.JobID); err != nil && err != scheduler.ErrJobNotFound {
		a.log.Warn("could not cancel reminder for closed task", "task_id", t.ID, "job_id", t.JobID, "error", err)
	}
}
