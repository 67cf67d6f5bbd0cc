package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/jenny-backend/internal/logger"
  "github.com/yungbote/jenny-backend/internal/types"
)

type TaskRepo interface {
  Create(ctx context.Context, tx *gorm.DB, task *types.Task) (*types.Task, error)
  GetByID(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, userID string) (*types.Task, error)
  ListPending(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]*types.Task, error)
  ListPendingWithDue(ctx context.Context, tx *gorm.DB) ([]*types.Task, error)
  SetStatus(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, userID string, status types.TaskStatus) (*types.Task, error)
  SetDueAt(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, dueAt time.Time) error
  SetJobID(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, jobID string) error
}

type taskRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
  return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (tr *taskRepo) Create(ctx context.Context, tx *gorm.DB, task *types.Task) (*types.Task, error) {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }
  if task.ID == uuid.Nil {
    task.ID = uuid.New()
  }
  if task.Status == "" {
    task.Status = types.TaskStatusPending
  }
  if err := transaction.WithContext(ctx).Create(task).Error; err != nil {
    return nil, err
  }
  return task, nil
}

func (tr *taskRepo) GetByID(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, userID string) (*types.Task, error) {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }
  var result types.Task
  err := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", taskID, userID).
    First(&result).Error
  if err != nil {
    return nil, err
  }
  return &result, nil
}

func (tr *taskRepo) ListPending(ctx context.Context, tx *gorm.DB, userID string, limit int) ([]*types.Task, error) {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }
  if limit <= 0 {
    limit = 10
  }
  var results []*types.Task
  err := transaction.WithContext(ctx).
    Where("user_id = ? AND status = ?", userID, types.TaskStatusPending).
    Order("due_at ASC NULLS LAST, created_at ASC").
    Limit(limit).
    Find(&results).Error
  if err != nil {
    return nil, err
  }
  return results, nil
}

// ListPendingWithDue returns every pending task that carries a due time,
// across users. Used by scheduler reconciliation.
func (tr *taskRepo) ListPendingWithDue(ctx context.Context, tx *gorm.DB) ([]*types.Task, error) {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }
  var results []*types.Task
  err := transaction.WithContext(ctx).
    Where("status = ? AND due_at IS NOT NULL", types.TaskStatusPending).
    Find(&results).Error
  if err != nil {
    return nil, err
  }
  return results, nil
}

func (tr *taskRepo) SetStatus(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, userID string, status types.TaskStatus) (*types.Task, error) {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }
  var task types.Task
  err := transaction.WithContext(ctx).
    Where("id = ? AND user_id = ?", taskID, userID).
    First(&task).Error
  if err != nil {
    return nil, err
  }
  if err := transaction.WithContext(ctx).
    Model(&task).
    Update("status", status).Error; err != nil {
    return nil, err
  }
  task.Status = status
  return &task, nil
}

func (tr *taskRepo) SetDueAt(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, dueAt time.Time) error {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }
  return transaction.WithContext(ctx).
    Model(&types.Task{}).
    Where("id = ?", taskID).
    Update("due_at", dueAt).Error
}

func (tr *taskRepo) SetJobID(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, jobID string) error {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }
  return transaction.WithContext(ctx).
    Model(&types.Task{}).
    Where("id = ?", taskID).
    Update("job_id", jobID).Error
}
