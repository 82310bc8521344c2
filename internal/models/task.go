package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Task priorities: lower value means more urgent.
const (
	PriorityHigh    = 1
	PriorityMedium  = 2
	PriorityLow     = 3
	DefaultPriority = PriorityLow
)

// Task belongs to exactly one user. (UserID, Title) pairs are unique:
// a user cannot hold two tasks with the same title, but two users may.
type Task struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_tasks_owner_title"`
	Title     string     `json:"title" gorm:"not null;uniqueIndex:idx_tasks_owner_title"`
	Details   string     `json:"details"`
	Priority  int        `json:"priority" gorm:"not null;default:3"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}
