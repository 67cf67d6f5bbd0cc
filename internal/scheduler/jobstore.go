package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/jenny-backend/internal/logger"
)

const (
	jobKeyPrefix = "jenny:job:"
	dueSetKey    = "jenny:jobs:due"

	// Fired jobs are retained briefly for auditability before Redis
	// expires them.
	doneRetention = 24 * time.Hour
)

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is the durable unit of scheduled work. It survives process restarts in
// Redis; the ZSET score is the fire time.
type Job struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TaskID     string    `json:"task_id,omitempty"`
	Message    string    `json:"message"`
	FireAt     time.Time `json:"fire_at"`
	Recurrence string    `json:"recurrence,omitempty"`
	Status     string    `json:"status"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
}

var ErrJobNotFound = errors.New("job not found")

// JobStore is the persistence seam for the scheduler. The Redis
// implementation is the production one; tests use an in-memory fake.
type JobStore interface {
	Put(ctx context.Context, job *Job) error
	Get(ctx context.Context, jobID string) (*Job, error)
	Remove(ctx context.Context, jobID string) error
	// Claim atomically removes the job from the due set. Exactly one caller
	// wins; losers see false and must not deliver.
	Claim(ctx context.Context, jobID string) (bool, error)
	DueJobIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
	ListUserJobIDs(ctx context.Context, userID string) ([]string, error)
	MarkDone(ctx context.Context, job *Job) error
}

type redisJobStore struct {
	log    *logger.Logger
	client *goredis.Client
}

func NewRedisJobStore(log *logger.Logger, client *goredis.Client) (JobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisJobStore{
		log:    log.With("service", "RedisJobStore"),
		client: client,
	}, nil
}

func (s *redisJobStore) Put(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, jobKeyPrefix+job.ID, raw, 0)
	pipe.ZAdd(ctx, dueSetKey, goredis.Z{
		Score:  float64(job.FireAt.Unix()),
		Member: job.ID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisJobStore) Get(ctx context.Context, jobID string) (*Job, error) {
	raw, err := s.client.Get(ctx, jobKeyPrefix+jobID).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return &job, nil
}

func (s *redisJobStore) Remove(ctx context.Context, jobID string) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, dueSetKey, jobID)
	pipe.Del(ctx, jobKeyPrefix+jobID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisJobStore) Claim(ctx context.Context, jobID string) (bool, error) {
	removed, err := s.client.ZRem(ctx, dueSetKey, jobID).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (s *redisJobStore) DueJobIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.client.ZRangeByScore(ctx, dueSetKey, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
}

func (s *redisJobStore) ListUserJobIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.ZRange(ctx, dueSetKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if errors.Is(err, ErrJobNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if job.UserID == userID {
			out = append(out, id)
		}
	}
	return out, nil
}

// MarkDone keeps the job payload around under a TTL after it leaves the due
// set, so a fired reminder can still be inspected.
func (s *redisJobStore) MarkDone(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, jobKeyPrefix+job.ID, raw, doneRetention).Err()
}
