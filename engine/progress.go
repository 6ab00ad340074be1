package engine

import (
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"forma/models"
)

// ProgressTracker records chapter-level completion and computes the
// completion counts the state machine and reminder scheduler read.
type ProgressTracker struct {
	db    *gorm.DB
	clock Clock
}

// NewProgressTracker creates a progress tracker.
func NewProgressTracker(db *gorm.DB, clock Clock) *ProgressTracker {
	return &ProgressTracker{db: db, clock: clock}
}

// ProgressCounts is the canonical completed/total chapter count of a
// (learner, training) pair.
type ProgressCounts struct {
	CompletedCount int `json:"completed_count"`
	TotalCount     int `json:"total_count"`
}

// Percent returns the rounded completion percentage, 0 when the
// training has no chapters.
func (p ProgressCounts) Percent() int {
	if p.TotalCount == 0 {
		return 0
	}
	return int(math.Round(float64(p.CompletedCount) / float64(p.TotalCount) * 100))
}

// Complete reports whether every chapter has been started.
func (p ProgressCounts) Complete() bool {
	return p.TotalCount > 0 && p.CompletedCount == p.TotalCount
}

// RecordChapterStart idempotently marks a chapter as engaged by the
// learner and returns the recomputed counts. Re-triggering an already
// recorded chapter is a no-op; the original CompletedAt is never
// overwritten. Fails with ErrNotFound if the chapter does not belong
// to the training.
func (t *ProgressTracker) RecordChapterStart(userID, trainingID, chapterID uint) (ProgressCounts, error) {
	var chapter models.Chapter
	if err := t.db.Where("id = ? AND training_id = ? AND is_deleted = ?", chapterID, trainingID, false).
		First(&chapter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProgressCounts{}, fmt.Errorf("chapter %d in training %d: %w", chapterID, trainingID, ErrNotFound)
		}
		return ProgressCounts{}, err
	}

	progress := models.ChapterProgress{
		UserID:      userID,
		ChapterID:   chapterID,
		TrainingID:  trainingID,
		CompletedAt: t.clock.Now(),
	}
	if err := t.db.Create(&progress).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		// Concurrent duplicate starts converge on the unique
		// (user, chapter) index; anything else is a real failure.
		return ProgressCounts{}, err
	}

	return t.Counts(userID, trainingID)
}

// Counts recomputes completed/total from the ChapterProgress rows and
// the training's chapter list.
func (t *ProgressTracker) Counts(userID, trainingID uint) (ProgressCounts, error) {
	var total, completed int64
	if err := t.db.Model(&models.Chapter{}).
		Where("training_id = ? AND is_deleted = ?", trainingID, false).
		Count(&total).Error; err != nil {
		return ProgressCounts{}, err
	}
	if err := t.db.Model(&models.ChapterProgress{}).
		Joins("JOIN chapters ON chapters.id = chapter_progresses.chapter_id").
		Where("chapter_progresses.user_id = ? AND chapter_progresses.training_id = ? AND chapters.is_deleted = ?", userID, trainingID, false).
		Count(&completed).Error; err != nil {
		return ProgressCounts{}, err
	}
	return ProgressCounts{CompletedCount: int(completed), TotalCount: int(total)}, nil
}
