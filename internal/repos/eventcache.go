package repos

import (
  "context"
  "time"
  "gorm.io/gorm"
  "github.com/yungbote/jenny-backend/internal/logger"
  "github.com/yungbote/jenny-backend/internal/types"
)

type EventCacheRepo interface {
  Replace(ctx context.Context, tx *gorm.DB, userID, provider string, events []*types.CalendarEventCache) error
  ListFresh(ctx context.Context, tx *gorm.DB, userID string, start, end time.Time, maxAge time.Duration) ([]*types.CalendarEventCache, error)
}

type eventCacheRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewEventCacheRepo(db *gorm.DB, baseLog *logger.Logger) EventCacheRepo {
  return &eventCacheRepo{db: db, log: baseLog.With("repo", "EventCacheRepo")}
}

// Replace swaps the cached window for one (user, provider) pair in a single
// transaction so readers never see a half-written window.
func (er *eventCacheRepo) Replace(ctx context.Context, tx *gorm.DB, userID, provider string, events []*types.CalendarEventCache) error {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }
  now := time.Now().UTC()
  return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
    if err := inner.
      Where("user_id = ? AND provider = ?", userID, provider).
      Delete(&types.CalendarEventCache{}).Error; err != nil {
      return err
    }
    if len(events) == 0 {
      return nil
    }
    for _, ev := range events {
      ev.UserID = userID
      ev.Provider = provider
      ev.FetchedAt = now
    }
    return inner.Create(&events).Error
  })
}

func (er *eventCacheRepo) ListFresh(ctx context.Context, tx *gorm.DB, userID string, start, end time.Time, maxAge time.Duration) ([]*types.CalendarEventCache, error) {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }
  cutoff := time.Now().UTC().Add(-maxAge)
  var results []*types.CalendarEventCache
  err := transaction.WithContext(ctx).
    Where("user_id = ? AND fetched_at >= ? AND start_at >= ? AND start_at < ?", userID, cutoff, start, end).
    Order("start_at ASC").
    Find(&results).Error
  if err != nil {
    return nil, err
  }
  return results, nil
}
