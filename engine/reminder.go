package engine

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"forma/models"
)

// ReminderScheduler runs a recurring tick that evaluates three
// independent reminder rules:
//
//	R1: 7-day pre-session reminder (session trainings, remindersSent 0 -> 1)
//	R2: 1-day pre-session reminder (remindersSent 1 -> 2)
//	R3: inactivity nudge (self-paced trainings, deduped via last_nudge_at)
//
// Each rule is idempotent across ticks; a gateway failure for one
// enrollment never aborts the rest of the tick.
type ReminderScheduler struct {
	db       *gorm.DB
	tracker  *ProgressTracker
	notifier Notifier
	clock    Clock
	cron     *cron.Cron
}

// NewReminderScheduler creates a reminder scheduler.
func NewReminderScheduler(db *gorm.DB, tracker *ProgressTracker, notifier Notifier, clock Clock) *ReminderScheduler {
	return &ReminderScheduler{db: db, tracker: tracker, notifier: notifier, clock: clock}
}

// Start schedules an hourly tick. It is safe to call once.
func (s *ReminderScheduler) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("0 * * * *", s.Tick); err != nil {
		return err
	}
	s.cron.Start()
	log.Println("[REMINDER-SCHEDULER] Started, ticking hourly")
	return nil
}

// Stop stops future ticks and waits for a tick already in progress to
// finish, so no enrollment is left with a half-applied reminder.
func (s *ReminderScheduler) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[REMINDER-SCHEDULER] Stopped")
}

// Tick evaluates every reminder rule against the current time.
func (s *ReminderScheduler) Tick() {
	now := s.clock.Now()
	s.sendPreSessionReminders(0, now.Add(6*24*time.Hour), now.Add(7*24*time.Hour), TemplateReminder7Days)
	s.sendPreSessionReminders(1, now, now.Add(24*time.Hour), TemplateReminder1Day)
	s.sendInactivityNudges(now)
}

// sendPreSessionReminders handles R1 and R2: enrollments in session
// trainings whose start date falls inside [windowStart, windowEnd] and
// whose reminder counter is exactly at the rule's stage. The counter
// increment is what makes the rule idempotent across ticks.
func (s *ReminderScheduler) sendPreSessionReminders(stage int, windowStart, windowEnd time.Time, templateKey string) {
	var enrollments []models.Enrollment
	err := s.db.
		Joins("JOIN trainings ON trainings.id = enrollments.training_id").
		Where("trainings.kind IN ? AND trainings.is_deleted = ?", []string{models.KindPresentiel, models.KindDistanciel}, false).
		Where("trainings.start_date BETWEEN ? AND ?", windowStart, windowEnd).
		Where("enrollments.reminders_sent = ?", stage).
		Where("enrollments.status NOT IN ?", []string{models.StatusCancelled, models.StatusCompleted}).
		Find(&enrollments).Error
	if err != nil {
		log.Printf("[REMINDER-SCHEDULER] Error fetching %s candidates: %v", templateKey, err)
		return
	}
	if len(enrollments) > 0 {
		log.Printf("[REMINDER-SCHEDULER] %d enrollments eligible for %s", len(enrollments), templateKey)
	}

	for _, enrollment := range enrollments {
		user, training, err := s.recipient(&enrollment)
		if err != nil {
			log.Printf("[REMINDER-SCHEDULER] Skipping enrollment %d: %v", enrollment.ID, err)
			continue
		}
		if err := s.notifier.Send(templateKey, user.Email, map[string]string{
			"name":     user.Name,
			"training": training.Title,
			"date":     startDateLabel(training),
		}); err != nil {
			log.Printf("[REMINDER-SCHEDULER] Failed to send %s to %s for training %d: %v", templateKey, user.Email, training.ID, err)
			continue
		}
		if err := s.db.Model(&enrollment).Update("reminders_sent", stage+1).Error; err != nil {
			log.Printf("[REMINDER-SCHEDULER] Failed to bump reminder counter on enrollment %d: %v", enrollment.ID, err)
		}
	}
}

// sendInactivityNudges handles R3: self-paced enrollments idle for more
// than 7 days with under 50% completion. Dedup uses the dedicated
// last_nudge_at column, not updated_at, so unrelated writes to the
// enrollment neither suppress nor re-arm the nudge.
func (s *ReminderScheduler) sendInactivityNudges(now time.Time) {
	cutoff := now.Add(-7 * 24 * time.Hour)

	var enrollments []models.Enrollment
	err := s.db.
		Joins("JOIN trainings ON trainings.id = enrollments.training_id").
		Where("trainings.kind = ? AND trainings.is_deleted = ?", models.KindVideo, false).
		Where("enrollments.status IN ?", []string{models.StatusRegistered, models.StatusConfirmed}).
		Where("enrollments.updated_at < ?", cutoff).
		Where("(enrollments.last_nudge_at IS NULL OR enrollments.last_nudge_at < ?)", cutoff).
		Find(&enrollments).Error
	if err != nil {
		log.Printf("[REMINDER-SCHEDULER] Error fetching inactivity candidates: %v", err)
		return
	}

	for _, enrollment := range enrollments {
		counts, err := s.tracker.Counts(enrollment.UserID, enrollment.TrainingID)
		if err != nil {
			log.Printf("[REMINDER-SCHEDULER] Skipping enrollment %d: %v", enrollment.ID, err)
			continue
		}
		if counts.Percent() >= 50 {
			continue
		}

		user, training, err := s.recipient(&enrollment)
		if err != nil {
			log.Printf("[REMINDER-SCHEDULER] Skipping enrollment %d: %v", enrollment.ID, err)
			continue
		}
		if err := s.notifier.Send(TemplateInactivityNudge, user.Email, map[string]string{
			"name":     user.Name,
			"training": training.Title,
		}); err != nil {
			log.Printf("[REMINDER-SCHEDULER] Failed to send nudge to %s for training %d: %v", user.Email, training.ID, err)
			continue
		}
		if err := s.db.Model(&enrollment).Update("last_nudge_at", now).Error; err != nil {
			log.Printf("[REMINDER-SCHEDULER] Failed to stamp nudge on enrollment %d: %v", enrollment.ID, err)
		}
	}
}

func (s *ReminderScheduler) recipient(enrollment *models.Enrollment) (models.User, models.Training, error) {
	var user models.User
	if err := s.db.First(&user, enrollment.UserID).Error; err != nil {
		return user, models.Training{}, err
	}
	var training models.Training
	if err := s.db.First(&training, enrollment.TrainingID).Error; err != nil {
		return user, training, err
	}
	return user, training, nil
}

func startDateLabel(training models.Training) string {
	if training.StartDate == nil {
		return ""
	}
	return training.StartDate.Format("January 2, 2006")
}
