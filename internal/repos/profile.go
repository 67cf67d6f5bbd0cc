package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/yungbote/jenny-backend/internal/logger"
  "github.com/yungbote/jenny-backend/internal/types"
)

type ProfileRepo interface {
  Upsert(ctx context.Context, tx *gorm.DB, userID, label, value string) (*types.ProfileEntry, error)
  List(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]*types.ProfileEntry, error)
  Get(ctx context.Context, tx *gorm.DB, userID, label string) (*types.ProfileEntry, error)
}

type profileRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
  return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

// Upsert is idempotent: a repeated identical upsert leaves the row unchanged
// apart from updated_at.
func (pr *profileRepo) Upsert(ctx context.Context, tx *gorm.DB, userID, label, value string) (*types.ProfileEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = pr.db
  }
  entry := &types.ProfileEntry{
    ID:     uuid.New(),
    UserID: userID,
    Label:  label,
    Value:  value,
  }
  err := transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "user_id"}, {Name: "label"}},
      DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
    }).
    Create(entry).Error
  if err != nil {
    return nil, err
  }
  return entry, nil
}

func (pr *profileRepo) List(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]*types.ProfileEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = pr.db
  }
  if limit <= 0 {
    limit = 20
  }
  var results []*types.ProfileEntry
  err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("updated_at DESC").
    Limit(limit).
    Find(&results).Error
  if err != nil {
    return nil, err
  }
  return results, nil
}

func (pr *profileRepo) Get(ctx context.Context, tx *gorm.DB, userID, label string) (*types.ProfileEntry, error) {
  transaction := tx
  if transaction == nil {
    transaction = pr.db
  }
  var result types.ProfileEntry
  err := transaction.WithContext(ctx).
    Where("user_id = ? AND label = ?", userID, label).
    First(&result).Error
  if err != nil {
    return nil, err
  }
  return &result, nil
}
