package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"forma/engine"
	"forma/middleware"
	"forma/models"
)

// EnrollmentController exposes the lifecycle engine over HTTP
type EnrollmentController struct {
	DB          *gorm.DB
	Enrollments *engine.EnrollmentService
	Issuer      *engine.CertificateIssuer
}

func NewEnrollmentController(db *gorm.DB, enrollments *engine.EnrollmentService, issuer *engine.CertificateIssuer) *EnrollmentController {
	return &EnrollmentController{DB: db, Enrollments: enrollments, Issuer: issuer}
}

// Enroll registers the caller in a training
func (ec *EnrollmentController) Enroll(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	trainingID := c.Locals("trainingID").(uint)

	enrollment, created, err := ec.Enrollments.Enroll(userID, trainingID)
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Training not found!", nil)
	case errors.Is(err, engine.ErrCapacityExceeded):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "This training is full!", nil)
	case err != nil:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to enroll in training!", nil)
	}

	if !created {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Already enrolled in this training!", enrollment)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Enrolled in training successfully!", enrollment)
}

// StartChapter records that the caller started a chapter and returns
// the updated completion counts
func (ec *EnrollmentController) StartChapter(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	trainingID := c.Locals("trainingID").(uint)
	chapterID := c.Locals("chapterID").(uint)

	counts, err := ec.Enrollments.RecordChapterStart(userID, trainingID, chapterID)
	switch {
	case errors.Is(err, engine.ErrNotEnrolled):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Please enroll in this training first!", nil)
	case errors.Is(err, engine.ErrCancelled):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "This enrollment has been cancelled!", nil)
	case errors.Is(err, engine.ErrNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Chapter not found!", nil)
	case err != nil:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to record progress!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress recorded!", fiber.Map{
		"completed_count": counts.CompletedCount,
		"total_count":     counts.TotalCount,
		"percent":         counts.Percent(),
	})
}

// SubmitQuiz grades the caller's submission. A failed attempt is a
// graded outcome, not an error: the verdict is returned either way.
func (ec *EnrollmentController) SubmitQuiz(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	trainingID := c.Locals("trainingID").(uint)
	submission := c.Locals("validatedSubmission").([]engine.QuestionAnswer)

	result, err := ec.Enrollments.SubmitQuiz(userID, trainingID, submission)
	switch {
	case errors.Is(err, engine.ErrNotEnrolled):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Please enroll in this training first!", nil)
	case errors.Is(err, engine.ErrCancelled):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "This enrollment has been cancelled!", nil)
	case errors.Is(err, engine.ErrNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "This training has no quiz!", nil)
	case err != nil:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to grade submission!", nil)
	}

	message := "Quiz passed, congratulations!"
	if !result.Passed {
		message = "Quiz not passed. You can try again."
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, result)
}

// SetAttendance marks a learner present or absent for a session
// training (admin/trainer)
func (ec *EnrollmentController) SetAttendance(c *fiber.Ctx) error {
	trainingID := c.Locals("trainingID").(uint)
	userID := c.Locals("attendanceUserID").(uint)
	attended := c.Locals("attendanceFlag").(bool)

	var training models.Training
	if err := ec.DB.Where("id = ? AND is_deleted = ?", trainingID, false).First(&training).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Training not found!", nil)
	}
	if !training.IsSessionBased() {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Attendance only applies to session trainings!", nil)
	}

	enrollment, err := ec.Enrollments.SetAttendance(userID, trainingID, attended)
	switch {
	case errors.Is(err, engine.ErrNotEnrolled):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Learner is not enrolled in this training!", nil)
	case errors.Is(err, engine.ErrCancelled):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "This enrollment has been cancelled!", nil)
	case err != nil:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update attendance!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Attendance updated successfully!", enrollment)
}

// BulkAttendance marks a list of learners present in one pass
// (admin/trainer). Certificates are issued as part of the import;
// learners without an enrollment still get one.
func (ec *EnrollmentController) BulkAttendance(c *fiber.Ctx) error {
	trainingID := c.Locals("trainingID").(uint)
	userIDs := c.Locals("attendanceUserIDs").([]uint)

	var training models.Training
	if err := ec.DB.Where("id = ? AND is_deleted = ?", trainingID, false).First(&training).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Training not found!", nil)
	}
	if !training.IsSessionBased() {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Attendance only applies to session trainings!", nil)
	}

	processed, failed := ec.Enrollments.BulkImportAttendance(trainingID, userIDs)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Attendance import finished!", fiber.Map{
		"processed": processed,
		"failed":    failed,
	})
}

// Cancel cancels a learner's enrollment (admin)
func (ec *EnrollmentController) Cancel(c *fiber.Ctx) error {
	trainingID := c.Locals("trainingID").(uint)
	userID := c.Locals("cancelUserID").(uint)

	enrollment, err := ec.Enrollments.Cancel(userID, trainingID)
	switch {
	case errors.Is(err, engine.ErrNotEnrolled):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Learner is not enrolled in this training!", nil)
	case err != nil:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to cancel enrollment!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment cancelled!", enrollment)
}

// IssueCertificate manually issues (or returns) the certificate of a
// learner for a training (admin). Repeated calls return the same
// certificate.
func (ec *EnrollmentController) IssueCertificate(c *fiber.Ctx) error {
	trainingID := c.Locals("trainingID").(uint)
	userID := c.Locals("issueUserID").(uint)

	result, err := ec.Issuer.FindOrCreate(userID, trainingID, nil, nil)
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Learner or training not found!", nil)
	case err != nil:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to issue certificate!", nil)
	}

	message := "Certificate already issued!"
	if result.Created {
		message = "Certificate issued successfully!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, result.Certificate)
}

// MyEnrollments lists the caller's enrollments with training details
func (ec *EnrollmentController) MyEnrollments(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	type EnrollmentWithTraining struct {
		models.Enrollment
		TrainingTitle string `json:"training_title"`
		TrainingKind  string `json:"training_kind"`
	}

	var enrollments []models.Enrollment
	if err := ec.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&enrollments).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch enrollments!", nil)
	}

	result := make([]EnrollmentWithTraining, len(enrollments))
	for i, e := range enrollments {
		var training models.Training
		ec.DB.Where("id = ?", e.TrainingID).First(&training)
		result[i] = EnrollmentWithTraining{
			Enrollment:    e,
			TrainingTitle: training.Title,
			TrainingKind:  training.Kind,
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", fiber.Map{
		"enrollments": result,
		"total":       len(result),
	})
}

// MyCertificates lists the caller's certificates
func (ec *EnrollmentController) MyCertificates(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	type CertificateWithTraining struct {
		models.Certificate
		TrainingTitle string `json:"training_title"`
	}

	var certificates []models.Certificate
	if err := ec.DB.Where("user_id = ?", userID).Order("issued_at desc").Find(&certificates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	result := make([]CertificateWithTraining, len(certificates))
	for i, cert := range certificates {
		var training models.Training
		ec.DB.Where("id = ?", cert.TrainingID).First(&training)
		result[i] = CertificateWithTraining{Certificate: cert, TrainingTitle: training.Title}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", fiber.Map{
		"certificates": result,
		"total":        len(result),
	})
}
