package engine

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"forma/models"
)

// EnrollmentService owns the enrollment lifecycle:
//
//	REGISTERED -> CONFIRMED -> COMPLETED, CANCELLED from any state.
//
// Progress and grading results feed into it; a completing transition
// invokes the certificate issuer synchronously.
type EnrollmentService struct {
	db       *gorm.DB
	tracker  *ProgressTracker
	issuer   *CertificateIssuer
	notifier Notifier
	clock    Clock
}

// NewEnrollmentService creates the enrollment state machine.
func NewEnrollmentService(db *gorm.DB, tracker *ProgressTracker, issuer *CertificateIssuer, notifier Notifier, clock Clock) *EnrollmentService {
	return &EnrollmentService{db: db, tracker: tracker, issuer: issuer, notifier: notifier, clock: clock}
}

// Enroll registers a learner in a training. Re-enrolling an already
// enrolled learner is idempotent and returns the existing enrollment.
// A full training rejects new learners with ErrCapacityExceeded.
func (s *EnrollmentService) Enroll(userID, trainingID uint) (models.Enrollment, bool, error) {
	var user models.User
	if err := s.db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Enrollment{}, false, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return models.Enrollment{}, false, err
	}
	var training models.Training
	if err := s.db.Where("id = ? AND is_deleted = ? AND is_published = ?", trainingID, false, true).First(&training).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Enrollment{}, false, fmt.Errorf("training %d: %w", trainingID, ErrNotFound)
		}
		return models.Enrollment{}, false, err
	}

	var existing models.Enrollment
	if err := s.db.Where("user_id = ? AND training_id = ?", userID, trainingID).First(&existing).Error; err == nil {
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Enrollment{}, false, err
	}

	if training.MaxParticipants > 0 {
		var count int64
		if err := s.db.Model(&models.Enrollment{}).
			Where("training_id = ? AND status <> ?", trainingID, models.StatusCancelled).
			Count(&count).Error; err != nil {
			return models.Enrollment{}, false, err
		}
		if count >= int64(training.MaxParticipants) {
			return models.Enrollment{}, false, fmt.Errorf("training %d: %w", trainingID, ErrCapacityExceeded)
		}
	}

	enrollment := models.Enrollment{
		UserID:     userID,
		TrainingID: trainingID,
		Status:     models.StatusRegistered,
	}
	if err := s.db.Create(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race against a concurrent enroll of the
			// same learner; return that row.
			if err := s.db.Where("user_id = ? AND training_id = ?", userID, trainingID).First(&existing).Error; err != nil {
				return models.Enrollment{}, false, err
			}
			return existing, false, nil
		}
		return models.Enrollment{}, false, err
	}

	if err := s.notifier.Send(TemplateEnrollmentConfirmed, user.Email, map[string]string{
		"name":     user.Name,
		"training": training.Title,
	}); err != nil {
		log.Printf("[ENROLLMENT] Failed to send confirmation email to %s for training %d: %v", user.Email, trainingID, err)
	}
	return enrollment, true, nil
}

// RecordChapterStart forwards to the progress tracker and advances the
// enrollment to CONFIRMED once every chapter of a self-paced training
// has been started.
func (s *EnrollmentService) RecordChapterStart(userID, trainingID, chapterID uint) (ProgressCounts, error) {
	enrollment, err := s.enrollmentOf(userID, trainingID)
	if err != nil {
		return ProgressCounts{}, err
	}
	if enrollment.Status == models.StatusCancelled {
		return ProgressCounts{}, ErrCancelled
	}

	counts, err := s.tracker.RecordChapterStart(userID, trainingID, chapterID)
	if err != nil {
		return ProgressCounts{}, err
	}

	if counts.Complete() && enrollment.Status == models.StatusRegistered {
		if err := s.db.Model(&enrollment).Update("status", models.StatusConfirmed).Error; err != nil {
			return ProgressCounts{}, err
		}
	} else {
		// Keep the activity timestamp fresh for the inactivity rule.
		if err := s.db.Model(&enrollment).Update("updated_at", s.clock.Now()).Error; err != nil {
			return ProgressCounts{}, err
		}
	}
	return counts, nil
}

// SubmitQuiz grades a submission against the training's quiz and
// applies the resulting transition. A pass completes the enrollment
// and issues the certificate synchronously; a fail regresses the
// status back to REGISTERED with the new score, except that an
// already COMPLETED enrollment is never regressed by a failed retry.
// Failure is a graded outcome, not an error: the result is returned
// either way.
func (s *EnrollmentService) SubmitQuiz(userID, trainingID uint, submission []QuestionAnswer) (GradeResult, error) {
	enrollment, err := s.enrollmentOf(userID, trainingID)
	if err != nil {
		return GradeResult{}, err
	}
	if enrollment.Status == models.StatusCancelled {
		return GradeResult{}, ErrCancelled
	}

	var quiz models.Quiz
	err = s.db.Where("training_id = ? AND is_deleted = ?", trainingID, false).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_deleted = ?", false).Order("order_index asc")
		}).
		Preload("Questions.Answers", "is_deleted = ?", false).
		First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return GradeResult{}, fmt.Errorf("quiz for training %d: %w", trainingID, ErrNotFound)
		}
		return GradeResult{}, err
	}

	result := Grade(&quiz, submission)

	switch {
	case result.Passed:
		now := s.clock.Now()
		score := result.Percent
		updates := map[string]interface{}{
			"status":       models.StatusCompleted,
			"score":        score,
			"completed_at": now,
		}
		if err := s.db.Model(&enrollment).Updates(updates).Error; err != nil {
			return result, err
		}
		if _, err := s.issuer.FindOrCreate(userID, trainingID, &enrollment.ID, &score); err != nil {
			return result, err
		}
	case enrollment.Status == models.StatusCompleted:
		// Failed retry after completion: the earlier pass stands.
	default:
		score := result.Percent
		updates := map[string]interface{}{
			"status":       models.StatusRegistered,
			"score":        score,
			"completed_at": nil,
		}
		if err := s.db.Model(&enrollment).Updates(updates).Error; err != nil {
			return result, err
		}
	}
	return result, nil
}

// SetAttendance records attendance for a session training. Marking a
// learner present is the completion signal for presentiel/distanciel
// trainings: the enrollment completes and the certificate is issued.
// Marking absent only clears the flag; status is untouched and an
// already issued certificate is not revoked.
func (s *EnrollmentService) SetAttendance(userID, trainingID uint, attended bool) (models.Enrollment, error) {
	enrollment, err := s.enrollmentOf(userID, trainingID)
	if err != nil {
		return models.Enrollment{}, err
	}
	if enrollment.Status == models.StatusCancelled {
		return enrollment, ErrCancelled
	}

	if !attended {
		if err := s.db.Model(&enrollment).Update("attended", false).Error; err != nil {
			return enrollment, err
		}
		enrollment.Attended = false
		return enrollment, nil
	}

	now := s.clock.Now()
	updates := map[string]interface{}{
		"attended":     true,
		"status":       models.StatusCompleted,
		"completed_at": now,
	}
	if err := s.db.Model(&enrollment).Updates(updates).Error; err != nil {
		return enrollment, err
	}
	if _, err := s.issuer.FindOrCreate(userID, trainingID, &enrollment.ID, enrollment.Score); err != nil {
		return enrollment, err
	}

	enrollment.Attended = true
	enrollment.Status = models.StatusCompleted
	enrollment.CompletedAt = &now
	return enrollment, nil
}

// BulkImportAttendance marks a list of learners present for a session
// training in one pass, issuing certificates as it goes. Learners with
// no enrollment row still get a certificate (issued outside the
// enrollment flow). Per-learner failures are logged and skipped so one
// bad row cannot abort the import.
func (s *EnrollmentService) BulkImportAttendance(trainingID uint, userIDs []uint) (processed int, failed []uint) {
	for _, userID := range userIDs {
		var err error
		if _, lookupErr := s.enrollmentOf(userID, trainingID); lookupErr == nil {
			_, err = s.SetAttendance(userID, trainingID, true)
		} else if errors.Is(lookupErr, ErrNotEnrolled) {
			_, err = s.issuer.FindOrCreate(userID, trainingID, nil, nil)
		} else {
			err = lookupErr
		}
		if err != nil {
			log.Printf("[ATTENDANCE-IMPORT] Training %d user %d: %v", trainingID, userID, err)
			failed = append(failed, userID)
			continue
		}
		processed++
	}
	return processed, failed
}

// Cancel moves an enrollment to CANCELLED from any state. It has no
// certificate side effect; a certificate already issued stays issued.
func (s *EnrollmentService) Cancel(userID, trainingID uint) (models.Enrollment, error) {
	enrollment, err := s.enrollmentOf(userID, trainingID)
	if err != nil {
		return models.Enrollment{}, err
	}
	if enrollment.Status == models.StatusCancelled {
		return enrollment, nil
	}
	if err := s.db.Model(&enrollment).Update("status", models.StatusCancelled).Error; err != nil {
		return enrollment, err
	}
	enrollment.Status = models.StatusCancelled
	return enrollment, nil
}

func (s *EnrollmentService) enrollmentOf(userID, trainingID uint) (models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := s.db.Where("user_id = ? AND training_id = ?", userID, trainingID).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Enrollment{}, fmt.Errorf("user %d training %d: %w", userID, trainingID, ErrNotEnrolled)
		}
		return models.Enrollment{}, err
	}
	return enrollment, nil
}
