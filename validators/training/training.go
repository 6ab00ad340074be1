package trainingValidator

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"forma/middleware"
	"forma/models"
)

// idParam parses a positive integer route parameter into c.Locals.
func idParam(param, localKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Params(param))
		if raw == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Missing "+param+" parameter!", nil)
		}
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid "+param+" parameter!", nil)
		}
		c.Locals(localKey, uint(id))
		return c.Next()
	}
}

// TrainingID validates the :id route parameter
func TrainingID() fiber.Handler {
	return idParam("id", "trainingID")
}

// ChapterID validates the :chapterId route parameter
func ChapterID() fiber.Handler {
	return idParam("chapterId", "chapterID")
}

// TrainingBody holds a validated create/update training request
type TrainingBody struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Kind            string  `json:"kind"`
	Duration        int     `json:"duration"`
	StartDate       *string `json:"start_date"` // RFC 3339
	MaxParticipants int     `json:"max_participants"`
	Accredited      bool    `json:"accredited"`
}

// CreateTraining validates a create/update training request
func CreateTraining() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(TrainingBody)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if len(strings.TrimSpace(reqData.Title)) < 3 {
			errors["title"] = "Title must be at least 3 characters long!"
		}
		switch reqData.Kind {
		case models.KindVideo, models.KindPresentiel, models.KindDistanciel:
		default:
			errors["kind"] = "Kind must be VIDEO, PRESENTIEL or DISTANCIEL!"
		}
		if reqData.Duration < 0 {
			errors["duration"] = "Duration cannot be negative!"
		}
		if reqData.MaxParticipants < 0 {
			errors["max_participants"] = "Max participants cannot be negative!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedTraining", reqData)
		return c.Next()
	}
}

// ChapterBody holds a validated create chapter request
type ChapterBody struct {
	Title      string `json:"title"`
	VideoURL   string `json:"video_url"`
	OrderIndex int    `json:"order_index"`
}

// CreateChapter validates a create chapter request
func CreateChapter() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ChapterBody)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if strings.TrimSpace(reqData.Title) == "" {
			errors["title"] = "Title is required!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedChapter", reqData)
		return c.Next()
	}
}

// QuizBody holds a validated create quiz request with nested questions
type QuizBody struct {
	Title        string `json:"title"`
	PassingScore int    `json:"passing_score"`
	Questions    []struct {
		Text     string `json:"text"`
		Multiple bool   `json:"multiple"`
		Answers  []struct {
			Text    string `json:"text"`
			Correct bool   `json:"correct"`
		} `json:"answers"`
	} `json:"questions"`
}

// CreateQuiz validates a create quiz request
func CreateQuiz() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(QuizBody)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.PassingScore < 0 || reqData.PassingScore > 100 {
			errors["passing_score"] = "Passing score must be between 0 and 100!"
		}
		for i, q := range reqData.Questions {
			if strings.TrimSpace(q.Text) == "" {
				errors["questions"] = "Question text is required!"
				break
			}
			hasCorrect := false
			for _, a := range q.Answers {
				if a.Correct {
					hasCorrect = true
					break
				}
			}
			if !hasCorrect {
				errors["questions"] = "Question " + strconv.Itoa(i+1) + " has no correct answer!"
				break
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedQuiz", reqData)
		return c.Next()
	}
}
