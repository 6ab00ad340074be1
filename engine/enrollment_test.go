package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"forma/models"
)

func TestEnrollCapacity(t *testing.T) {
	db := newTestDB(t)
	notifier := newRecordingNotifier()
	_, _, service := newTestEngine(t, db, newFakeClock(time.Now()), notifier)

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	training := createTraining(t, db, models.KindPresentiel, 0)
	require.NoError(t, db.Model(&training).Update("max_participants", 1).Error)

	enrollment, created, err := service.Enroll(alice.ID, training.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.StatusRegistered, enrollment.Status)
	assert.Len(t, notifier.sent(TemplateEnrollmentConfirmed), 1)

	// A second distinct learner is rejected.
	_, _, err = service.Enroll(bob.ID, training.ID)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// The already enrolled learner re-enrolling gets the existing row.
	again, created, err := service.Enroll(alice.ID, training.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, enrollment.ID, again.ID)
	assert.Len(t, notifier.sent(TemplateEnrollmentConfirmed), 1, "idempotent re-enroll does not re-notify")
}

func TestEnrollUnknownTraining(t *testing.T) {
	db := newTestDB(t)
	_, _, service := newTestEngine(t, db, newFakeClock(time.Now()), newRecordingNotifier())
	alice := createUser(t, db, "alice")

	_, _, err := service.Enroll(alice.ID, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChapterCompletionConfirmsEnrollment(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	_, _, service := newTestEngine(t, db, clock, newRecordingNotifier())

	alice := createUser(t, db, "alice")
	training := createTraining(t, db, models.KindVideo, 2)
	chapters := chaptersOf(t, db, training.ID)
	_, _, err := service.Enroll(alice.ID, training.ID)
	require.NoError(t, err)

	counts, err := service.RecordChapterStart(alice.ID, training.ID, chapters[0].ID)
	require.NoError(t, err)
	assert.False(t, counts.Complete())
	assert.Equal(t, models.StatusRegistered, statusOf(t, db, alice.ID, training.ID))

	counts, err = service.RecordChapterStart(alice.ID, training.ID, chapters[1].ID)
	require.NoError(t, err)
	assert.True(t, counts.Complete())
	assert.Equal(t, models.StatusConfirmed, statusOf(t, db, alice.ID, training.ID))
}

func TestSubmitQuizPassCompletesAndIssuesCertificate(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC))
	_, _, service := newTestEngine(t, db, clock, newRecordingNotifier())

	alice := createUser(t, db, "alice")
	training := createTraining(t, db, models.KindVideo, 0)
	quiz := createQuiz(t, db, training.ID, 70, 2)
	_, _, err := service.Enroll(alice.ID, training.ID)
	require.NoError(t, err)

	result, err := service.SubmitQuiz(alice.ID, training.ID, correctSubmission(quiz))
	require.NoError(t, err)
	assert.Equal(t, 100, result.Percent)
	assert.True(t, result.Passed)

	var enrollment models.Enrollment
	require.NoError(t, db.Where("user_id = ? AND training_id = ?", alice.ID, training.ID).First(&enrollment).Error)
	assert.Equal(t, models.StatusCompleted, enrollment.Status)
	require.NotNil(t, enrollment.Score)
	assert.Equal(t, 100, *enrollment.Score)
	require.NotNil(t, enrollment.CompletedAt)

	var certCount int64
	require.NoError(t, db.Model(&models.Certificate{}).Where("user_id = ? AND training_id = ?", alice.ID, training.ID).Count(&certCount).Error)
	assert.EqualValues(t, 1, certCount, "exactly one certificate after the pass")
}

func TestSubmitQuizFailRegressesConfirmed(t *testing.T) {
	db := newTestDB(t)
	_, _, service := newTestEngine(t, db, newFakeClock(time.Now()), newRecordingNotifier())

	alice := createUser(t, db, "alice")
	training := createTraining(t, db, models.KindVideo, 1)
	quiz := createQuiz(t, db, training.ID, 70, 2)
	_, _, err := service.Enroll(alice.ID, training.ID)
	require.NoError(t, err)

	// Watch everything, reach CONFIRMED.
	chapter := chaptersOf(t, db, training.ID)[0]
	_, err = service.RecordChapterStart(alice.ID, training.ID, chapter.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusConfirmed, statusOf(t, db, alice.ID, training.ID))

	result, err := service.SubmitQuiz(alice.ID, training.ID, wrongSubmission(quiz))
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, 0, result.Percent)

	var enrollment models.Enrollment
	require.NoError(t, db.Where("user_id = ? AND training_id = ?", alice.ID, training.ID).First(&enrollment).Error)
	assert.Equal(t, models.StatusRegistered, enrollment.Status, "a failed attempt regresses CONFIRMED")
	require.NotNil(t, enrollment.Score)
	assert.Equal(t, 0, *enrollment.Score)
	assert.Nil(t, enrollment.CompletedAt)

	var certCount int64
	require.NoError(t, db.Model(&models.Certificate{}).Count(&certCount).Error)
	assert.EqualValues(t, 0, certCount)
}

func TestSubmitQuizFailedRetryKeepsCompletion(t *testing.T) {
	db := newTestDB(t)
	_, _, service := newTestEngine(t, db, newFakeClock(time.Now()), newRecordingNotifier())

	alice := createUser(t, db, "alice")
	training := createTraining(t, db, models.KindVideo, 0)
	quiz := createQuiz(t, db, training.ID, 50, 2)
	_, _, err := service.Enroll(alice.ID, training.ID)
	require.NoError(t, err)

	_, err = service.SubmitQuiz(alice.ID, training.ID, correctSubmission(quiz))
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, statusOf(t, db, alice.ID, training.ID))

	result, err := service.SubmitQuiz(alice.ID, training.ID, wrongSubmission(quiz))
	require.NoError(t, err)
	assert.False(t, result.Passed)

	var enrollment models.Enrollment
	require.NoError(t, db.Where("user_id = ? AND training_id = ?", alice.ID, training.ID).First(&enrollment).Error)
	assert.Equal(t, models.StatusCompleted, enrollment.Status, "completion never regresses on a failed retry")
	require.NotNil(t, enrollment.Score)
	assert.Equal(t, 100, *enrollment.Score)
	assert.NotNil(t, enrollment.CompletedAt)
}

func TestSubmitQuizWithoutQuiz(t *testing.T) {
	db := newTestDB(t)
	_, _, service := newTestEngine(t, db, newFakeClock(time.Now()), newRecordingNotifier())

	alice := createUser(t, db, "alice")
	training := createTraining(t, db, models.KindVideo, 0)
	_, _, err := service.Enroll(alice.ID, training.ID)
	require.NoError(t, err)

	_, err = service.SubmitQuiz(alice.ID, training.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetAttendanceCompletesSessionTraining(t *testing.T) {
	db := newTestDB(t)
	notifier := newRecordingNotifier()
	_, _, service := newTestEngine(t, db, newFakeClock(time.Now()), notifier)

	alice := createUser(t, db, "alice")
	training := createTraining(t, db, models.KindPresentiel, 0)
	_, _, err := service.Enroll(alice.ID, training.ID)
	require.NoError(t, err)

	enrollment, err := service.SetAttendance(alice.ID, training.ID, true)
	require.NoError(t, err)
	assert.True(t, enrollment.Attended)
	assert.Equal(t, models.StatusCompleted, enrollment.Status)

	var certCount int64
	require.NoError(t, db.Model(&models.Certificate{}).Count(&certCount).Error)
	assert.EqualValues(t, 1, certCount)

	// Marking present twice funnels through the idempotent issuer.
	_, err = service.SetAttendance(alice.ID, training.ID, true)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Certificate{}).Count(&certCount).Error)
	assert.EqualValues(t, 1, certCount)
}

func TestSetAttendanceAbsentHasNoCertificateEffect(t *testing.T) {
	db := newTestDB(t)
	_, _, service := newTestEngine(t, db, newFakeClock(time.Now()), newRecordingNotifier())

	alice := createUser(t, db, "alice")
	training := createTraining(t, db, models.KindDistanciel, 0)
	_, _, err := service.Enroll(alice.ID, training.ID)
	require.NoError(t, err)

	enrollment, err := service.SetAttendance(alice.ID, training.ID, false)
	require.NoError(t, err)
	assert.False(t, enrollment.Attended)
	assert.Equal(t, models.StatusRegistered, statusOf(t, db, alice.ID, training.ID))

	var certCount int64
	require.NoError(t, db.Model(&models.Certificate{}).Count(&certCount).Error)
	assert.EqualValues(t, 0, certCount)
}

func TestBulkImportAttendance(t *testing.T) {
	db := newTestDB(t)
	_, _, service := newTestEngine(t, db, newFakeClock(time.Now()), newRecordingNotifier())

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	training := createTraining(t, db, models.KindPresentiel, 0)
	_, _, err := service.Enroll(alice.ID, training.ID)
	require.NoError(t, err)

	// Bob has no enrollment; he still gets a certificate. The unknown
	// ID fails in isolation without aborting the import.
	processed, failed := service.BulkImportAttendance(training.ID, []uint{alice.ID, bob.ID, 9999})
	assert.Equal(t, 2, processed)
	assert.Equal(t, []uint{9999}, failed)

	assert.Equal(t, models.StatusCompleted, statusOf(t, db, alice.ID, training.ID))

	var bobCert models.Certificate
	require.NoError(t, db.Where("user_id = ? AND training_id = ?", bob.ID, training.ID).First(&bobCert).Error)
	assert.Nil(t, bobCert.EnrollmentID, "certificate issued outside an enrollment flow")

	var certCount int64
	require.NoError(t, db.Model(&models.Certificate{}).Count(&certCount).Error)
	assert.EqualValues(t, 2, certCount)
}

func TestCancelFromAnyState(t *testing.T) {
	db := newTestDB(t)
	_, _, service := newTestEngine(t, db, newFakeClock(time.Now()), newRecordingNotifier())

	alice := createUser(t, db, "alice")
	training := createTraining(t, db, models.KindVideo, 0)
	quiz := createQuiz(t, db, training.ID, 50, 1)
	_, _, err := service.Enroll(alice.ID, training.ID)
	require.NoError(t, err)

	_, err = service.SubmitQuiz(alice.ID, training.ID, correctSubmission(quiz))
	require.NoError(t, err)

	enrollment, err := service.Cancel(alice.ID, training.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, enrollment.Status)

	// The already-issued certificate is not revoked.
	var certCount int64
	require.NoError(t, db.Model(&models.Certificate{}).Count(&certCount).Error)
	assert.EqualValues(t, 1, certCount)

	// Cancelling twice stays put.
	enrollment, err = service.Cancel(alice.ID, training.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, enrollment.Status)

	// A cancelled enrollment rejects further lifecycle operations.
	_, err = service.SubmitQuiz(alice.ID, training.ID, nil)
	assert.ErrorIs(t, err, ErrCancelled)
}

func statusOf(t *testing.T, db *gorm.DB, userID, trainingID uint) string {
	t.Helper()
	var enrollment models.Enrollment
	require.NoError(t, db.Where("user_id = ? AND training_id = ?", userID, trainingID).First(&enrollment).Error)
	return enrollment.Status
}
