package models

import (
	"time"

	"gorm.io/gorm"
)

// ChapterProgress records that a learner has started a chapter.
// The row's existence is the completion signal; it is unique per
// (user, chapter) and immutable once created.
type ChapterProgress struct {
	gorm.Model
	UserID      uint      `json:"user_id" gorm:"uniqueIndex:idx_progress_user_chapter;not null"`
	ChapterID   uint      `json:"chapter_id" gorm:"uniqueIndex:idx_progress_user_chapter;not null"`
	TrainingID  uint      `json:"training_id" gorm:"index;not null"`
	CompletedAt time.Time `json:"completed_at"`
}
