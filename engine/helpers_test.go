package engine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"forma/models"
)

// newTestDB opens a fresh in-memory database with the full schema.
// A single connection keeps SQLite happy under concurrent tests.
func newTestDB(t *testing.T) *gorm.DB {
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

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Training{},
		&models.Chapter{},
		&models.Quiz{},
		&models.Question{},
		&models.Answer{},
		&models.Enrollment{},
		&models.ChapterProgress{},
		&models.Certificate{},
	))
	return db
}

// fakeClock is an adjustable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordedSend is one Send call seen by the recording notifier.
type recordedSend struct {
	Template string
	To       string
	Params   map[string]string
}

// recordingNotifier captures notifications and can simulate gateway
// failures for specific recipients.
type recordingNotifier struct {
	mu      sync.Mutex
	Sends   []recordedSend
	FailFor map[string]bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{FailFor: map[string]bool{}}
}

func (n *recordingNotifier) Send(templateKey string, to string, params map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.FailFor[to] {
		return fmt.Errorf("gateway refused mail to %s", to)
	}
	n.Sends = append(n.Sends, recordedSend{Template: templateKey, To: to, Params: params})
	return nil
}

func (n *recordingNotifier) sent(templateKey string) []recordedSend {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recordedSend
	for _, s := range n.Sends {
		if s.Template == templateKey {
			out = append(out, s)
		}
	}
	return out
}

// stubRenderer renders a marker document.
type stubRenderer struct{}

func (stubRenderer) Render(fields CertificateFields) ([]byte, error) {
	return []byte("certificate " + fields.CertificateNumber + " for " + fields.ParticipantName), nil
}

// memoryStore keeps documents in memory.
type memoryStore struct {
	mu   sync.Mutex
	Docs map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{Docs: map[string][]byte{}}
}

func (s *memoryStore) SaveCertificate(certificateNumber string, document []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Docs[certificateNumber] = document
	return "/certificates/" + certificateNumber + ".html", nil
}

func gormModel(id uint) gorm.Model {
	return gorm.Model{ID: id}
}

func createUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: name + "@example.com", Role: models.RoleLearner}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTraining(t *testing.T, db *gorm.DB, kind string, chapters int) models.Training {
	t.Helper()
	training := models.Training{
		Title:       "Test Training",
		Kind:        kind,
		Duration:    7,
		IsPublished: true,
	}
	require.NoError(t, db.Create(&training).Error)
	for i := 0; i < chapters; i++ {
		chapter := models.Chapter{TrainingID: training.ID, Title: fmt.Sprintf("Chapter %d", i+1), OrderIndex: i}
		require.NoError(t, db.Create(&chapter).Error)
	}
	return training
}

func chaptersOf(t *testing.T, db *gorm.DB, trainingID uint) []models.Chapter {
	t.Helper()
	var chapters []models.Chapter
	require.NoError(t, db.Where("training_id = ?", trainingID).Order("order_index asc").Find(&chapters).Error)
	return chapters
}

// createQuiz builds a quiz where each question has one correct answer
// and one wrong answer.
func createQuiz(t *testing.T, db *gorm.DB, trainingID uint, passingScore, questions int) models.Quiz {
	t.Helper()
	quiz := models.Quiz{TrainingID: trainingID, Title: "Final Quiz", PassingScore: passingScore}
	for i := 0; i < questions; i++ {
		quiz.Questions = append(quiz.Questions, models.Question{
			Text:       fmt.Sprintf("Question %d", i+1),
			OrderIndex: i,
			Answers: []models.Answer{
				{Text: "Right", Correct: true},
				{Text: "Wrong", Correct: false},
			},
		})
	}
	require.NoError(t, db.Create(&quiz).Error)
	return quiz
}

// correctSubmission answers every question with its correct answer set.
func correctSubmission(quiz models.Quiz) []QuestionAnswer {
	var submission []QuestionAnswer
	for _, q := range quiz.Questions {
		var ids []uint
		for _, a := range q.Answers {
			if a.Correct {
				ids = append(ids, a.ID)
			}
		}
		submission = append(submission, QuestionAnswer{QuestionID: q.ID, AnswerIDs: ids})
	}
	return submission
}

// wrongSubmission answers every question with a wrong answer.
func wrongSubmission(quiz models.Quiz) []QuestionAnswer {
	var submission []QuestionAnswer
	for _, q := range quiz.Questions {
		for _, a := range q.Answers {
			if !a.Correct {
				submission = append(submission, QuestionAnswer{QuestionID: q.ID, AnswerIDs: []uint{a.ID}})
				break
			}
		}
	}
	return submission
}

func newTestEngine(t *testing.T, db *gorm.DB, clock Clock, notifier Notifier) (*ProgressTracker, *CertificateIssuer, *EnrollmentService) {
	t.Helper()
	tracker := NewProgressTracker(db, clock)
	issuer := NewCertificateIssuer(db, stubRenderer{}, newMemoryStore(), notifier, clock)
	service := NewEnrollmentService(db, tracker, issuer, notifier, clock)
	return tracker, issuer, service
}
