package engine

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"forma/models"
)

// DocumentStore persists a rendered certificate document and returns
// its stable location.
type DocumentStore interface {
	SaveCertificate(certificateNumber string, document []byte) (url string, err error)
}

// CertificateIssuer guarantees at-most-one certificate per
// (learner, training) pair no matter how many trigger paths invoke it.
type CertificateIssuer struct {
	db       *gorm.DB
	renderer Renderer
	store    DocumentStore
	notifier Notifier
	clock    Clock
}

// NewCertificateIssuer creates a certificate issuer.
func NewCertificateIssuer(db *gorm.DB, renderer Renderer, store DocumentStore, notifier Notifier, clock Clock) *CertificateIssuer {
	return &CertificateIssuer{db: db, renderer: renderer, store: store, notifier: notifier, clock: clock}
}

// IssueResult carries the stored certificate and a freshly rendered
// document, also populated when the certificate already existed.
type IssueResult struct {
	Certificate models.Certificate
	Document    []byte
	Created     bool
}

// FindOrCreate returns the certificate for (userID, trainingID),
// creating it if none exists.
//
// Concurrency contract: the lookup-then-insert race is resolved by the
// unique (user, training) index. A duplicate-key failure on insert
// means another trigger path just issued the certificate; it is
// re-fetched and returned, never surfaced as an error.
func (i *CertificateIssuer) FindOrCreate(userID, trainingID uint, enrollmentID *uint, score *int) (IssueResult, error) {
	var user models.User
	if err := i.db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return IssueResult{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return IssueResult{}, err
	}
	var training models.Training
	if err := i.db.Where("id = ? AND is_deleted = ?", trainingID, false).First(&training).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return IssueResult{}, fmt.Errorf("training %d: %w", trainingID, ErrNotFound)
		}
		return IssueResult{}, err
	}

	var existing models.Certificate
	err := i.db.Where("user_id = ? AND training_id = ?", userID, trainingID).First(&existing).Error
	if err == nil {
		return IssueResult{Certificate: existing, Document: i.render(&user, &training, &existing)}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return IssueResult{}, err
	}

	certificate := models.Certificate{
		UserID:            userID,
		TrainingID:        trainingID,
		EnrollmentID:      enrollmentID,
		CertificateNumber: uuid.NewString(),
		Score:             score,
		IssuedAt:          i.clock.Now(),
	}
	document := i.render(&user, &training, &certificate)
	if len(document) > 0 {
		url, err := i.store.SaveCertificate(certificate.CertificateNumber, document)
		if err != nil {
			log.Printf("[CERTIFICATE] Failed to store document for user %d training %d: %v", userID, trainingID, err)
		} else {
			certificate.DocumentURL = url
		}
	}

	if err := i.db.Create(&certificate).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Someone else just issued it; theirs wins.
			if err := i.db.Where("user_id = ? AND training_id = ?", userID, trainingID).First(&existing).Error; err != nil {
				return IssueResult{}, err
			}
			return IssueResult{Certificate: existing, Document: i.render(&user, &training, &existing)}, nil
		}
		return IssueResult{}, err
	}

	if err := i.notifier.Send(TemplateCertificateIssued, user.Email, map[string]string{
		"name":               user.Name,
		"training":           training.Title,
		"certificate_number": certificate.CertificateNumber,
	}); err != nil {
		log.Printf("[CERTIFICATE] Failed to send issuance email to %s for training %d: %v", user.Email, trainingID, err)
	}

	return IssueResult{Certificate: certificate, Document: document, Created: true}, nil
}

// render produces the document bytes. A renderer failure is a
// dependency failure: logged, and issuance proceeds without the
// document rather than failing the business operation.
func (i *CertificateIssuer) render(user *models.User, training *models.Training, certificate *models.Certificate) []byte {
	document, err := i.renderer.Render(CertificateFields{
		ParticipantName:   user.Name,
		TrainingTitle:     training.Title,
		DurationHours:     training.Duration,
		SessionDate:       training.StartDate,
		Score:             certificate.Score,
		Accredited:        training.Accredited,
		CertificateNumber: certificate.CertificateNumber,
		IssuedAt:          certificate.IssuedAt,
	})
	if err != nil {
		log.Printf("[CERTIFICATE] Failed to render document for user %d training %d: %v", user.ID, training.ID, err)
		return nil
	}
	return document
}
