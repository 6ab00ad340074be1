package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment lifecycle statuses
const (
	StatusRegistered = "REGISTERED"
	StatusConfirmed  = "CONFIRMED"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// Enrollment tracks a learner's registration in a training.
// At most one row exists per (user, training).
type Enrollment struct {
	gorm.Model
	UserID        uint       `json:"user_id" gorm:"uniqueIndex:idx_enrollment_user_training;not null"`
	TrainingID    uint       `json:"training_id" gorm:"uniqueIndex:idx_enrollment_user_training;not null"`
	Status        string     `json:"status" gorm:"default:'REGISTERED'"` // REGISTERED, CONFIRMED, COMPLETED, CANCELLED
	Attended      bool       `json:"attended" gorm:"default:false"`      // presentiel/distanciel only
	Score         *int       `json:"score"`                              // last quiz score percentage
	CompletedAt   *time.Time `json:"completed_at"`
	RemindersSent int        `json:"reminders_sent" gorm:"default:0"` // pre-session reminder counter
	LastNudgeAt   *time.Time `json:"last_nudge_at"`                   // inactivity nudge dedup
}
