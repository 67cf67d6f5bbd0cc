package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

type TaskStatus string

const (
  TaskStatusPending TaskStatus = "pending"
  TaskStatusDone    TaskStatus = "done"
  TaskStatusDeleted TaskStatus = "deleted"
)

// Task is a reminder/todo row. Recurring tasks keep their recurrence rule and
// get a fresh due_at each time the attached reminder fires.
type Task struct {
  ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
  UserID     string         `gorm:"index:idx_task_user;not null" json:"user_id"`
  Title      string         `gorm:"not null" json:"title"`
  Details    string         `json:"details,omitempty"`
  DueAt      *time.Time     `gorm:"index" json:"due_at,omitempty"`
  Recurrence string         `json:"recurrence,omitempty"`
  Status     TaskStatus     `gorm:"index:idx_task_user;not null;default:pending" json:"status"`
  JobID      string         `json:"job_id,omitempty"`
  Metadata   datatypes.JSON `json:"metadata,omitempty"`
  CreatedAt  time.Time      `json:"created_at"`
  UpdatedAt  time.Time      `json:"updated_at"`
}

// ProfileEntry is one keyed preference (category -> value) per user.
// (user_id, label) is unique so repeated upserts are idempotent.
type ProfileEntry struct {
  ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
  UserID    string    `gorm:"uniqueIndex:idx_profile_user_label;not null" json:"user_id"`
  Label     string    `gorm:"uniqueIndex:idx_profile_user_label;not null" json:"label"`
  Value     string    `gorm:"not null" json:"value"`
  CreatedAt time.Time `json:"created_at"`
  UpdatedAt time.Time `json:"updated_at"`
}

// Memory is an immutable stored fact. The embedding itself lives in the
// vector index under the same ID; this row is the text source of truth.
type Memory struct {
  ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
  UserID    string         `gorm:"index;not null" json:"user_id"`
  Text      string         `gorm:"not null" json:"text"`
  Metadata  datatypes.JSON `json:"metadata,omitempty"`
  CreatedAt time.Time      `json:"created_at"`
}

// CalendarAccount stores the OAuth token material for one connected provider.
type CalendarAccount struct {
  ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
  UserID       string    `gorm:"uniqueIndex:idx_calacct_user_provider;not null" json:"user_id"`
  Provider     string    `gorm:"uniqueIndex:idx_calacct_user_provider;not null" json:"provider"`
  AccessToken  string    `gorm:"not null" json:"-"`
  RefreshToken string    `json:"-"`
  TokenType    string    `json:"-"`
  Expiry       time.Time `json:"expiry"`
  CreatedAt    time.Time `json:"created_at"`
  UpdatedAt    time.Time `json:"updated_at"`
}

// CalendarEventCache is a freshness-windowed local copy of a provider event.
// The provider remains the source of truth.
type CalendarEventCache struct {
  ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
  UserID      string    `gorm:"index:idx_evcache_user;not null" json:"user_id"`
  Provider    string    `gorm:"index:idx_evcache_user;not null" json:"provider"`
  ExternalID  string    `gorm:"not null" json:"external_id"`
  Title       string    `json:"title"`
  Description string    `json:"description,omitempty"`
  StartAt     time.Time `gorm:"index" json:"start"`
  EndAt       time.Time `json:"end"`
  FetchedAt   time.Time `gorm:"not null" json:"fetched_at"`
}

func (Task) TableName() string               { return "jenny_tasks" }
func (ProfileEntry) TableName() string       { return "jenny_profiles" }
func (Memory) TableName() string             { return "jenny_memories" }
func (CalendarAccount) TableName() string    { return "jenny_calendar_accounts" }
func (CalendarEventCache) TableName() string { return "jenny_calendar_event_cache" }
