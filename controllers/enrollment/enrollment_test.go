package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	enrollmentControllers "forma/controllers/enrollment"
	trainingControllers "forma/controllers/training"
	"forma/database"
	"forma/engine"
	"forma/middleware"
	"forma/models"
	"forma/routers"
)

const testJWTKey = "test-secret"

type testApp struct {
	app *fiber.App
	db  *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	clock := engine.SystemClock{}
	notifier := engine.NoopNotifier{}
	tracker := engine.NewProgressTracker(db, clock)
	issuer := engine.NewCertificateIssuer(db, testRenderer{}, testStore{}, notifier, clock)
	enrollments := engine.NewEnrollmentService(db, tracker, issuer, notifier, clock)

	app := fiber.New()
	routers.SetupTrainingRoutes(app, testJWTKey,
		trainingControllers.NewTrainingController(db),
		enrollmentControllers.NewEnrollmentController(db, enrollments, issuer),
	)
	return &testApp{app: app, db: db}
}

type testRenderer struct{}

func (testRenderer) Render(engine.CertificateFields) ([]byte, error) { return []byte("doc"), nil }

type testStore struct{}

func (testStore) SaveCertificate(number string, _ []byte) (string, error) {
	return "/certificates/" + number + ".html", nil
}

func (ta *testApp) createUser(t *testing.T, name, role string) (models.User, string) {
	t.Helper()
	user := models.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, ta.db.Create(&user).Error)
	token, err := middleware.GenerateJWT(testJWTKey, user.ID, user.Name, user.Role, user.Email)
	require.NoError(t, err)
	return user, token
}

func (ta *testApp) request(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func TestEnrollEndpointCapacity(t *testing.T) {
	ta := newTestApp(t)
	_, aliceToken := ta.createUser(t, "alice", models.RoleLearner)
	_, bobToken := ta.createUser(t, "bob", models.RoleLearner)

	training := models.Training{Title: "First Aid", Kind: models.KindPresentiel, MaxParticipants: 1, IsPublished: true}
	require.NoError(t, ta.db.Create(&training).Error)
	path := fmt.Sprintf("/training/%d/enroll", training.ID)

	status, result := ta.request(t, "POST", path, aliceToken, nil)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "Enrolled in training successfully!", result["message"])

	// The training is now full for other learners.
	status, result = ta.request(t, "POST", path, bobToken, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "This training is full!", result["message"])

	// Re-enrolling is idempotent, not an error.
	status, result = ta.request(t, "POST", path, aliceToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Already enrolled in this training!", result["message"])
}

func TestQuizSubmitEndpoint(t *testing.T) {
	ta := newTestApp(t)
	alice, aliceToken := ta.createUser(t, "alice", models.RoleLearner)

	training := models.Training{Title: "Hygiene", Kind: models.KindVideo, IsPublished: true}
	require.NoError(t, ta.db.Create(&training).Error)
	quiz := models.Quiz{
		TrainingID:   training.ID,
		PassingScore: 70,
		Questions: []models.Question{
			{Text: "Q1", Answers: []models.Answer{{Text: "A", Correct: true}, {Text: "B", Correct: false}}},
			{Text: "Q2", Answers: []models.Answer{{Text: "A", Correct: true}, {Text: "B", Correct: false}}},
		},
	}
	require.NoError(t, ta.db.Create(&quiz).Error)

	status, _ := ta.request(t, "POST", fmt.Sprintf("/training/%d/enroll", training.ID), aliceToken, nil)
	require.Equal(t, fiber.StatusCreated, status)

	var answers []map[string]interface{}
	for _, q := range quiz.Questions {
		answers = append(answers, map[string]interface{}{
			"question_id": q.ID,
			"answer_ids":  []uint{q.Answers[0].ID},
		})
	}
	status, result := ta.request(t, "POST", fmt.Sprintf("/training/%d/quiz/submit", training.ID), aliceToken,
		map[string]interface{}{"answers": answers})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Quiz passed, congratulations!", result["message"])

	data := result["data"].(map[string]interface{})
	assert.Equal(t, float64(100), data["percent"])
	assert.Equal(t, true, data["passed"])

	var enrollment models.Enrollment
	require.NoError(t, ta.db.Where("user_id = ? AND training_id = ?", alice.ID, training.ID).First(&enrollment).Error)
	assert.Equal(t, models.StatusCompleted, enrollment.Status)

	var certCount int64
	require.NoError(t, ta.db.Model(&models.Certificate{}).Count(&certCount).Error)
	assert.EqualValues(t, 1, certCount)
}

func TestAttendanceEndpointRequiresStaffRole(t *testing.T) {
	ta := newTestApp(t)
	alice, aliceToken := ta.createUser(t, "alice", models.RoleLearner)
	_, trainerToken := ta.createUser(t, "tina", models.RoleTrainer)

	training := models.Training{Title: "Safety", Kind: models.KindPresentiel, IsPublished: true}
	require.NoError(t, ta.db.Create(&training).Error)

	status, _ := ta.request(t, "POST", fmt.Sprintf("/training/%d/enroll", training.ID), aliceToken, nil)
	require.Equal(t, fiber.StatusCreated, status)

	body := map[string]interface{}{"user_id": alice.ID, "attended": true}
	path := fmt.Sprintf("/staff/training/%d/attendance", training.ID)

	status, _ = ta.request(t, "POST", path, aliceToken, body)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, result := ta.request(t, "POST", path, trainerToken, body)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Attendance updated successfully!", result["message"])

	var enrollment models.Enrollment
	require.NoError(t, ta.db.Where("user_id = ? AND training_id = ?", alice.ID, training.ID).First(&enrollment).Error)
	assert.Equal(t, models.StatusCompleted, enrollment.Status)
	assert.True(t, enrollment.Attended)
}
