package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/utils"
)

const (
	// History is a FIFO window: appending past this cap evicts the oldest turn.
	MaxTurns = 20

	keyPrefix = "jenny:session:"
)

// Turn is one user message and the assistant's reply to it.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type Session struct {
	UserID     string    `json:"user_id"`
	History    []Turn    `json:"history"`
	LastIntent string    `json:"last_intent,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// KV is the slice of Redis the session store needs. Tests swap in an
// in-memory map.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// ErrNotFound marks a missing or expired session.
var ErrNotFound = errors.New("session not found")

type redisKV struct {
	client *goredis.Client
}

func NewRedisKV(client *goredis.Client) KV {
	return &redisKV{client: client}
}

func (r *redisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (r *redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisKV) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Store keeps short-lived conversation context in Redis. Sessions expire
// lazily via TTL; every write refreshes the clock. Concurrent writers are
// last-write-wins, acceptable for a single user's chat context.
type Store interface {
	GetOrCreate(ctx context.Context, userID string) (*Session, error)
	Append(ctx context.Context, userID string, turns []Turn, lastIntent string) (*Session, error)
	Touch(ctx context.Context, userID string) error
	Clear(ctx context.Context, userID string) error
}

type store struct {
	log *logger.Logger
	kv  KV
	ttl time.Duration
}

func NewStore(log *logger.Logger, kv KV) (Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv required")
	}
	ttlMin := utils.GetEnvAsInt("SESSION_TTL_MINUTES", 30, log)
	return &store{
		log: log.With("service", "SessionStore"),
		kv:  kv,
		ttl: time.Duration(ttlMin) * time.Minute,
	}, nil
}

func (s *store) GetOrCreate(ctx context.Context, userID string) (*Session, error) {
	sess, err := s.load(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &Session{UserID: userID, History: []Turn{}, UpdatedAt: time.Now().UTC()}, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *store) Append(ctx context.Context, userID string, turns []Turn, lastIntent string) (*Session, error) {
	sess, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range turns {
		if turns[i].At.IsZero() {
			turns[i].At = now
		}
	}
	sess.History = append(sess.History, turns...)
	if len(sess.History) > MaxTurns {
		sess.History = sess.History[len(sess.History)-MaxTurns:]
	}
	if lastIntent != "" {
		sess.LastIntent = lastIntent
	}
	sess.UpdatedAt = now

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Touch refreshes the TTL without mutating history. A missing session is not
// an error; there is simply nothing to keep alive.
func (s *store) Touch(ctx context.Context, userID string) error {
	sess, err := s.load(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.save(ctx, sess)
}

func (s *store) Clear(ctx context.Context, userID string) error {
	return s.kv.Del(ctx, key(userID))
}

func (s *store) load(ctx context.Context, userID string) (*Session, error) {
	raw, err := s.kv.Get(ctx, key(userID))
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// A corrupt blob is unrecoverable; drop it and start fresh.
		s.log.Warn("corrupt session blob dropped", "user_id", userID, "error", err)
		_ = s.kv.Del(ctx, key(userID))
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *store) save(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key(sess.UserID), string(raw), s.ttl)
}

func key(userID string) string {
	return keyPrefix + userID
}
