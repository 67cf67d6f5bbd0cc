package repos

import (
  "context"
  "errors"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/yungbote/jenny-backend/internal/logger"
  "github.com/yungbote/jenny-backend/internal/types"
)

type CalendarAccountRepo interface {
  Upsert(ctx context.Context, tx *gorm.DB, account *types.CalendarAccount) (*types.CalendarAccount, error)
  Get(ctx context.Context, tx *gorm.DB, userID, provider string) (*types.CalendarAccount, error)
  ListProviders(ctx context.Context, tx *gorm.DB, userID string) ([]string, error)
  Delete(ctx context.Context, tx *gorm.DB, userID, provider string) error
}

type calendarAccountRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCalendarAccountRepo(db *gorm.DB, baseLog *logger.Logger) CalendarAccountRepo {
  return &calendarAccountRepo{db: db, log: baseLog.With("repo", "CalendarAccountRepo")}
}

func (cr *calendarAccountRepo) Upsert(ctx context.Context, tx *gorm.DB, account *types.CalendarAccount) (*types.CalendarAccount, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }
  if account.ID == uuid.Nil {
    account.ID = uuid.New()
  }
  err := transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
      DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "token_type", "expiry", "updated_at"}),
    }).
    Create(account).Error
  if err != nil {
    return nil, err
  }
  return account, nil
}

func (cr *calendarAccountRepo) Get(ctx context.Context, tx *gorm.DB, userID, provider string) (*types.CalendarAccount, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }
  var result types.CalendarAccount
  err := transaction.WithContext(ctx).
    Where("user_id = ? AND provider = ?", userID, provider).
    First(&result).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &result, nil
}

func (cr *calendarAccountRepo) ListProviders(ctx context.Context, tx *gorm.DB, userID string) ([]string, error) {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }
  var providers []string
  err := transaction.WithContext(ctx).
    Model(&types.CalendarAccount{}).
    Where("user_id = ?", userID).
    Pluck("provider", &providers).Error
  if err != nil {
    return nil, err
  }
  return providers, nil
}

func (cr *calendarAccountRepo) Delete(ctx context.Context, tx *gorm.DB, userID, provider string) error {
  transaction := tx
  if transaction == nil {
    transaction = cr.db
  }
  return transaction.WithContext(ctx).
    Where("user_id = ? AND provider = ?", userID, provider).
    Delete(&types.CalendarAccount{}).Error
}
