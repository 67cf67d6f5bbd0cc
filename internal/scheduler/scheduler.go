package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/repos"
	"github.com/yungbote/jenny-backend/internal/utils"
)

// DeliverFunc pushes a fired reminder to the user. Delivery is at-least-once:
// a crash after delivery but before cleanup means the job fires again.
type DeliverFunc func(ctx context.Context, job *Job) error

// Scheduler owns durable reminders. Jobs live in the store (Redis in
// production); the poll loop claims due jobs and delivers them. Jobs whose
// fire time passed while the process was down are delivered on the first
// poll after restart.
type Scheduler interface {
	Schedule(ctx context.Context, job *Job) (*Job, error)
	Cancel(ctx context.Context, userID, jobID string) error
	ListUserJobs(ctx context.Context, userID string) ([]*Job, error)
	ReconcilePending(ctx context.Context) error
	Start(ctx context.Context)
	Stop()
}

type scheduler struct {
	log         *logger.Logger
	store       JobStore
	taskRepo    repos.TaskRepo
	deliver     DeliverFunc
	pollEvery   time.Duration
	maxAttempts int

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func New(log *logger.Logger, store JobStore, taskRepo repos.TaskRepo, deliver DeliverFunc) (Scheduler, error) {
	if store == nil {
		return nil, fmt.Errorf("job store required")
	}
	if deliver == nil {
		return nil, fmt.Errorf("deliver func required")
	}
	pollSec := utils.GetEnvAsInt("SCHEDULER_POLL_SECONDS", 15, log)
	maxAttempts := utils.GetEnvAsInt("SCHEDULER_MAX_ATTEMPTS", 5, log)

	return &scheduler{
		log:         log.With("service", "Scheduler"),
		store:       store,
		taskRepo:    taskRepo,
		deliver:     deliver,
		pollEvery:   time.Duration(pollSec) * time.Second,
		maxAttempts: maxAttempts,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

func (s *scheduler) Schedule(ctx context.Context, job *Job) (*Job, error) {
	if job == nil {
		return nil, fmt.Errorf("job required")
	}
	if strings.TrimSpace(job.UserID) == "" {
		return nil, fmt.Errorf("job user_id required")
	}
	if job.FireAt.IsZero() {
		return nil, fmt.Errorf("job fire_at required")
	}
	if job.Recurrence != "" && !ValidRecurrence(job.Recurrence) {
		return nil, fmt.Errorf("unknown recurrence %q", job.Recurrence)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.Status = StatusScheduled
	if err := s.store.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}
	s.log.Info("job scheduled", "job_id", job.ID, "user_id", job.UserID, "fire_at", job.FireAt, "recurrence", job.Recurrence)
	return job, nil
}

func (s *scheduler) Cancel(ctx context.Context, userID, jobID string) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.UserID != userID {
		return ErrJobNotFound
	}
	return s.store.Remove(ctx, jobID)
}

func (s *scheduler) ListUserJobs(ctx context.Context, userID string) ([]*Job, error) {
	ids, err := s.store.ListUserJobIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.store.Get(ctx, id)
		if errors.Is(err, ErrJobNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// ReconcilePending re-creates jobs for pending tasks whose job vanished, for
// example after a Redis flush. Runs once at startup.
func (s *scheduler) ReconcilePending(ctx context.Context) error {
	if s.taskRepo == nil {
		return nil
	}
	tasks, err := s.taskRepo.ListPendingWithDue(ctx, nil)
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}
	restored := 0
	for _, task := range tasks {
		if task.DueAt == nil {
			continue
		}
		if task.JobID != "" {
			if _, err := s.store.Get(ctx, task.JobID); err == nil {
				continue
			} else if !errors.Is(err, ErrJobNotFound) {
				return err
			}
		}
		job, err := s.Schedule(ctx, &Job{
			UserID:     task.UserID,
			TaskID:     task.ID.String(),
			Message:    task.Title,
			FireAt:     *task.DueAt,
			Recurrence: task.Recurrence,
		})
		if err != nil {
			return err
		}
		if err := s.taskRepo.SetJobID(ctx, nil, task.ID, job.ID); err != nil {
			s.log.Warn("reconcile could not backfill job_id", "task_id", task.ID, "error", err)
		}
		restored++
	}
	if restored > 0 {
		s.log.Info("reconciled missing reminder jobs", "restored", restored)
	}
	return nil
}

func (s *scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.pollEvery)
		defer ticker.Stop()

		// First poll immediately so overdue jobs fire on restart without
		// waiting a full interval.
		s.pollOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.pollOnce(ctx)
			}
		}
	}()
}

func (s *scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
}

func (s *scheduler) pollOnce(ctx context.Context) {
	now := time.Now().UTC()
	ids, err := s.store.DueJobIDs(ctx, now, 100)
	if err != nil {
		s.log.Error("poll due jobs failed", "error", err)
		return
	}
	for _, id := range ids {
		s.fire(ctx, id, now)
	}
}

func (s *scheduler) fire(ctx context.Context, jobID string, now time.Time) {
	claimed, err := s.store.Claim(ctx, jobID)
	if err != nil {
		s.log.Error("job claim failed", "job_id", jobID, "error", err)
		return
	}
	if !claimed {
		// Another worker won the claim.
		return
	}

	job, err := s.store.Get(ctx, jobID)
	if errors.Is(err, ErrJobNotFound) {
		return
	}
	if err != nil {
		s.log.Error("claimed job unreadable", "job_id", jobID, "error", err)
		return
	}

	if err := s.deliver(ctx, job); err != nil {
		job.Attempts++
		if job.Attempts >= s.maxAttempts {
			s.log.Error("job dropped after max delivery attempts",
				"job_id", job.ID, "user_id", job.UserID, "attempts", job.Attempts, "error", err)
			job.Status = StatusFailed
			_ = s.store.MarkDone(ctx, job)
			return
		}
		// Requeue with backoff proportional to the attempt count.
		job.FireAt = now.Add(time.Duration(job.Attempts) * time.Minute)
		if perr := s.store.Put(ctx, job); perr != nil {
			s.log.Error("job requeue failed", "job_id", job.ID, "error", perr)
		} else {
			s.log.Warn("job delivery failed; requeued",
				"job_id", job.ID, "attempt", job.Attempts, "next_fire_at", job.FireAt, "error", err)
		}
		return
	}

	if job.Recurrence != "" {
		next := NextOccurrence(job.FireAt, job.Recurrence, now)
		job.FireAt = next
		job.Attempts = 0
		if err := s.store.Put(ctx, job); err != nil {
			s.log.Error("recurring job reschedule failed", "job_id", job.ID, "error", err)
		} else {
			s.log.Info("recurring job rescheduled", "job_id", job.ID, "next_fire_at", next)
		}
		s.advanceTaskDue(ctx, job, next)
		return
	}

	job.Status = StatusCompleted
	if err := s.store.MarkDone(ctx, job); err != nil {
		s.log.Warn("job done marker failed", "job_id", job.ID, "error", err)
	}
	s.log.Info("job delivered", "job_id", job.ID, "user_id", job.UserID)
}

// advanceTaskDue keeps the owning task row's due time in step with a
// recurring job, so task listings and reconciliation see the next occurrence
// rather than the one that just fired.
func (s *scheduler) advanceTaskDue(ctx context.Context, job *Job, next time.Time) {
	if s.taskRepo == nil || job.TaskID == "" {
		return
	}
	taskID, err := uuid.Parse(job.TaskID)
	if err != nil {
		s.log.Warn("recurring job carries a non-uuid task id", "job_id", job.ID, "task_id", job.TaskID)
		return
	}
	if err := s.taskRepo.SetDueAt(ctx, nil, taskID, next); err != nil {
		s.log.Warn("could not advance task due time", "job_id", job.ID, "task_id", job.TaskID, "error", err)
	}
}

// ValidRecurrence reports whether the rule is one the scheduler understands.
func ValidRecurrence(rule string) bool {
	switch strings.ToLower(strings.TrimSpace(rule)) {
	case "daily", "weekly", "monthly":
		return true
	}
	return false
}

// NextOccurrence advances fireAt by the recurrence rule until it lands in
// the future relative to now, so a reminder overdue by several periods fires
// once and then resumes its normal cadence.
func NextOccurrence(fireAt time.Time, rule string, now time.Time) time.Time {
	next := fireAt
	for !next.After(now) {
		switch strings.ToLower(strings.TrimSpace(rule)) {
		case "daily":
			next = next.AddDate(0, 0, 1)
		case "weekly":
			next = next.AddDate(0, 0, 7)
		case "monthly":
			next = next.AddDate(0, 1, 0)
		default:
			return next
		}
	}
	return next
}
