package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/jenny-backend/internal/logger"
  "github.com/yungbote/jenny-backend/internal/types"
)

type MemoryRepo interface {
  Create(ctx context.Context, tx *gorm.DB, memory *types.Memory) (*types.Memory, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Memory, error)
  ListByUser(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]*types.Memory, error)
  Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID string) (bool, error)
}

type memoryRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewMemoryRepo(db *gorm.DB, baseLog *logger.Logger) MemoryRepo {
  return &memoryRepo{db: db, log: baseLog.With("repo", "MemoryRepo")}
}

func (mr *memoryRepo) Create(ctx context.Context, tx *gorm.DB, memory *types.Memory) (*types.Memory, error) {
  transaction := tx
  if transaction == nil {
    transaction = mr.db
  }
  if memory.ID == uuid.Nil {
    memory.ID = uuid.New()
  }
  if err := transaction.WithContext(ctx).Create(memory).Error; err != nil {
    return nil, err
  }
  return memory, nil
}

func (mr *memoryRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Memory, error) {
  transaction := tx
  if transaction == nil {
    transaction = mr.db
  }
  var results []*types.Memory
  if len(ids) == 0 {
    return results, nil
  }
  err := transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Find(&results).Error
  if err != nil {
    return nil, err
  }
  return results, nil
}

func (mr *memoryRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]*types.Memory, error) {
  transaction := tx
  if transaction == nil {
    transaction = mr.db
  }
  if limit <= 0 {
    limit = 100
  }
  var results []*types.Memory
  err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC").
    Limit(limit).
    Find(&results).Error
  if err != nil {
    return nil, err
  }
  return results, nil
}

func (mr *memoryRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = mr.db
  }
  res := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", id, userID).
    Delete(&types.Memory{})
  if res.Error != nil {
    return false, res.Error
  }
  return res.RowsAffected > 0, nil
}
