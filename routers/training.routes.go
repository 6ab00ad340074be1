package routers

import (
	"github.com/gofiber/fiber/v2"

	enrollmentControllers "forma/controllers/enrollment"
	trainingControllers "forma/controllers/training"
	"forma/middleware"
	"forma/models"
	enrollmentValidator "forma/validators/enrollment"
	trainingValidator "forma/validators/training"
)

// SetupTrainingRoutes sets up all training, enrollment and certificate routes
func SetupTrainingRoutes(app *fiber.App, jwtKey string, tc *trainingControllers.TrainingController, ec *enrollmentControllers.EnrollmentController) {
	auth := middleware.JWT(jwtKey)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	staffOnly := middleware.RequireRole(models.RoleAdmin, models.RoleTrainer)

	// Admin content management
	adminGroup := app.Group("/admin/training", auth, adminOnly)
	adminGroup.Post("/", trainingValidator.CreateTraining(), tc.CreateTraining)
	adminGroup.Put("/:id", trainingValidator.TrainingID(), trainingValidator.CreateTraining(), tc.UpdateTraining)
	adminGroup.Post("/:id/publish", trainingValidator.TrainingID(), tc.PublishTraining)
	adminGroup.Delete("/:id", trainingValidator.TrainingID(), tc.DeleteTraining)
	adminGroup.Post("/:id/chapter", trainingValidator.TrainingID(), trainingValidator.CreateChapter(), tc.CreateChapter)
	adminGroup.Post("/:id/quiz", trainingValidator.TrainingID(), trainingValidator.CreateQuiz(), tc.CreateQuiz)
	adminGroup.Post("/:id/cancel", trainingValidator.TrainingID(), enrollmentValidator.CancelEnrollment(), ec.Cancel)
	adminGroup.Post("/:id/certificate", trainingValidator.TrainingID(), enrollmentValidator.IssueCertificate(), ec.IssueCertificate)

	// Attendance (admins and trainers)
	staffGroup := app.Group("/staff/training", auth, staffOnly)
	staffGroup.Post("/:id/attendance", trainingValidator.TrainingID(), enrollmentValidator.SetAttendance(), ec.SetAttendance)
	staffGroup.Post("/:id/attendance/bulk", trainingValidator.TrainingID(), enrollmentValidator.BulkAttendance(), ec.BulkAttendance)

	// Learner-facing catalogue and lifecycle
	trainingGroup := app.Group("/training", auth)
	trainingGroup.Get("/list", tc.ListTrainings)
	trainingGroup.Get("/:id", trainingValidator.TrainingID(), tc.GetTraining)
	trainingGroup.Post("/:id/enroll", trainingValidator.TrainingID(), ec.Enroll)
	trainingGroup.Post("/:id/chapter/:chapterId/start", trainingValidator.TrainingID(), trainingValidator.ChapterID(), ec.StartChapter)
	trainingGroup.Post("/:id/quiz/submit", trainingValidator.TrainingID(), enrollmentValidator.SubmitQuiz(), ec.SubmitQuiz)

	userGroup := app.Group("/user", auth)
	userGroup.Get("/enrollments", ec.MyEnrollments)
	userGroup.Get("/certificates", ec.MyCertificates)
}
