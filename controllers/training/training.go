package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"forma/middleware"
	"forma/models"
	trainingValidator "forma/validators/training"
)

// TrainingController handles admin training content management and
// learner-facing catalogue reads
type TrainingController struct {
	DB *gorm.DB
}

func NewTrainingController(db *gorm.DB) *TrainingController {
	return &TrainingController{DB: db}
}

// CreateTraining creates a new training (admin)
func (tc *TrainingController) CreateTraining(c *fiber.Ctx) error {
	reqData := c.Locals("validatedTraining").(*trainingValidator.TrainingBody)

	training := models.Training{
		Title:           reqData.Title,
		Description:     reqData.Description,
		Kind:            reqData.Kind,
		Duration:        reqData.Duration,
		MaxParticipants: reqData.MaxParticipants,
		Accredited:      reqData.Accredited,
	}
	if reqData.StartDate != nil {
		startDate, err := time.Parse(time.RFC3339, *reqData.StartDate)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid start date!", nil)
		}
		training.StartDate = &startDate
	}

	if err := tc.DB.Create(&training).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create training!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Training created successfully!", training)
}

// UpdateTraining updates an existing training (admin)
func (tc *TrainingController) UpdateTraining(c *fiber.Ctx) error {
	trainingID := c.Locals("trainingID").(uint)
	reqData := c.Locals("validatedTraining").(*trainingValidator.TrainingBody)

	var training models.Training
	if err := tc.DB.Where("id = ? AND is_deleted = ?", trainingID, false).First(&training).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Training not found!", nil)
	}

	training.Title = reqData.Title
	training.Description = reqData.Description
	training.Kind = reqData.Kind
	training.Duration = reqData.Duration
	training.MaxParticipants = reqData.MaxParticipants
	training.Accredited = reqData.Accredited
	if reqData.StartDate != nil {
		startDate, err := time.Parse(time.RFC3339, *reqData.StartDate)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid start date!", nil)
		}
		training.StartDate = &startDate
	}

	if err := tc.DB.Save(&training).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update training!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Training updated successfully!", training)
}

// PublishTraining toggles a training's published flag (admin)
func (tc *TrainingController) PublishTraining(c *fiber.Ctx) error {
	trainingID := c.Locals("trainingID").(uint)

	var training models.Training
	if err := tc.DB.Where("id = ? AND is_deleted = ?", trainingID, false).First(&training).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Training not found!", nil)
	}

	if err := tc.DB.Model(&training).Update("is_published", !training.IsPublished).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update training!", nil)
	}
	training.IsPublished = !training.IsPublished
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Training updated successfully!", training)
}

// DeleteTraining deletes a training and everything attached to it
// (admin). This is the only path that removes enrollments,
// progress rows and certificates.
func (tc *TrainingController) DeleteTraining(c *fiber.Ctx) error {
	trainingID := c.Locals("trainingID").(uint)

	var training models.Training
	if err := tc.DB.Where("id = ? AND is_deleted = ?", trainingID, false).First(&training).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Training not found!", nil)
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Training{}).Where("id = ?", trainingID).Update("is_deleted", true).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Chapter{}).Where("training_id = ?", trainingID).Update("is_deleted", true).Error; err != nil {
			return err
		}
		var quiz models.Quiz
		if err := tx.Where("training_id = ?", trainingID).First(&quiz).Error; err == nil {
			if err := tx.Model(&models.Quiz{}).Where("id = ?", quiz.ID).Update("is_deleted", true).Error; err != nil {
				return err
			}
		}
		// Cascade: lifecycle rows are hard-deleted with the training.
		if err := tx.Unscoped().Where("training_id = ?", trainingID).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("training_id = ?", trainingID).Delete(&models.ChapterProgress{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("training_id = ?", trainingID).Delete(&models.Certificate{}).Error
	})
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete training!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Training deleted successfully!", nil)
}

// CreateChapter adds a chapter to a training (admin)
func (tc *TrainingController) CreateChapter(c *fiber.Ctx) error {
	trainingID := c.Locals("trainingID").(uint)
	reqData := c.Locals("validatedChapter").(*trainingValidator.ChapterBody)

	var training models.Training
	if err := tc.DB.Where("id = ? AND is_deleted = ?", trainingID, false).First(&training).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Training not found!", nil)
	}

	chapter := models.Chapter{
		TrainingID: trainingID,
		Title:      reqData.Title,
		VideoURL:   reqData.VideoURL,
		OrderIndex: reqData.OrderIndex,
	}
	if err := tc.DB.Create(&chapter).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create chapter!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Chapter created successfully!", chapter)
}

// CreateQuiz creates (or replaces) the quiz of a training with its
// questions and answers (admin)
func (tc *TrainingController) CreateQuiz(c *fiber.Ctx) error {
	trainingID := c.Locals("trainingID").(uint)
	reqData := c.Locals("validatedQuiz").(*trainingValidator.QuizBody)

	var training models.Training
	if err := tc.DB.Where("id = ? AND is_deleted = ?", trainingID, false).First(&training).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Training not found!", nil)
	}

	quiz := models.Quiz{
		TrainingID:   trainingID,
		Title:        reqData.Title,
		PassingScore: reqData.PassingScore,
	}
	for i, q := range reqData.Questions {
		question := models.Question{Text: q.Text, Multiple: q.Multiple, OrderIndex: i}
		for _, a := range q.Answers {
			question.Answers = append(question.Answers, models.Answer{Text: a.Text, Correct: a.Correct})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		// Replace any previous quiz outright; the unique training_id
		// index allows a single quiz per training.
		var existing models.Quiz
		if err := tx.Where("training_id = ?", trainingID).First(&existing).Error; err == nil {
			var questionIDs []uint
			if err := tx.Model(&models.Question{}).Where("quiz_id = ?", existing.ID).Pluck("id", &questionIDs).Error; err != nil {
				return err
			}
			if len(questionIDs) > 0 {
				if err := tx.Unscoped().Where("question_id IN ?", questionIDs).Delete(&models.Answer{}).Error; err != nil {
					return err
				}
				if err := tx.Unscoped().Where("quiz_id = ?", existing.ID).Delete(&models.Question{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Unscoped().Delete(&existing).Error; err != nil {
				return err
			}
		}
		return tx.Create(&quiz).Error
	})
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create quiz!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Quiz created successfully!", quiz)
}

// ListTrainings lists published trainings for learners
func (tc *TrainingController) ListTrainings(c *fiber.Ctx) error {
	var trainings []models.Training
	if err := tc.DB.Where("is_deleted = ? AND is_published = ?", false, true).
		Order("created_at desc").Find(&trainings).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch trainings!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Trainings fetched successfully!", fiber.Map{
		"trainings": trainings,
		"total":     len(trainings),
	})
}

// GetTraining returns training details with chapters, remaining seats
// and the caller's enrollment when present
func (tc *TrainingController) GetTraining(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	trainingID := c.Locals("trainingID").(uint)

	var training models.Training
	if err := tc.DB.Where("id = ? AND is_deleted = ? AND is_published = ?", trainingID, false, true).First(&training).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Training not found!", nil)
	}

	var chapters []models.Chapter
	tc.DB.Where("training_id = ? AND is_deleted = ?", trainingID, false).Order("order_index asc").Find(&chapters)

	var enrolled int64
	tc.DB.Model(&models.Enrollment{}).
		Where("training_id = ? AND status <> ?", trainingID, models.StatusCancelled).
		Count(&enrolled)

	remainingSeats := -1 // unlimited
	if training.MaxParticipants > 0 {
		remainingSeats = training.MaxParticipants - int(enrolled)
		if remainingSeats < 0 {
			remainingSeats = 0
		}
	}

	var enrollment models.Enrollment
	isEnrolled := tc.DB.Where("user_id = ? AND training_id = ?", userID, trainingID).First(&enrollment).Error == nil

	data := fiber.Map{
		"training":        training,
		"chapters":        chapters,
		"remaining_seats": remainingSeats,
		"is_enrolled":     isEnrolled,
	}
	if isEnrolled {
		data["enrollment"] = enrollment
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Training details fetched successfully!", data)
}
