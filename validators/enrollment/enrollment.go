package enrollmentValidator

import (
	"github.com/gofiber/fiber/v2"

	"forma/engine"
	"forma/middleware"
)

// SubmitQuiz validates a quiz submission body
func SubmitQuiz() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Answers []engine.QuestionAnswer `json:"answers"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		// An empty answer list is a valid submission: every question
		// scores zero, the attempt is still graded.
		c.Locals("validatedSubmission", reqData.Answers)
		return c.Next()
	}
}

// SetAttendance validates an attendance update body
func SetAttendance() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			UserID   uint  `json:"user_id"`
			Attended *bool `json:"attended"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if reqData.UserID == 0 {
			errors["user_id"] = "User ID is required!"
		}
		if reqData.Attended == nil {
			errors["attended"] = "Attended flag is required!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("attendanceUserID", reqData.UserID)
		c.Locals("attendanceFlag", *reqData.Attended)
		return c.Next()
	}
}

// BulkAttendance validates a bulk attendance import body
func BulkAttendance() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			UserIDs []uint `json:"user_ids"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if len(reqData.UserIDs) == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{"user_ids": "At least one user ID is required!"})
		}

		c.Locals("attendanceUserIDs", reqData.UserIDs)
		return c.Next()
	}
}

// IssueCertificate validates a manual certificate issuance body
func IssueCertificate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			UserID uint `json:"user_id"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if reqData.UserID == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{"user_id": "User ID is required!"})
		}

		c.Locals("issueUserID", reqData.UserID)
		return c.Next()
	}
}

// CancelEnrollment validates an admin cancel body
func CancelEnrollment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			UserID uint `json:"user_id"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if reqData.UserID == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{"user_id": "User ID is required!"})
		}

		c.Locals("cancelUserID", reqData.UserID)
		return c.Next()
	}
}
