package models

import (
	"time"

	"gorm.io/gorm"
)

// Certificate is the issued proof of completion for a training.
// The (user, training) unique index is what guarantees at-most-once
// issuance under concurrent triggers; the issuer relies on the insert
// failing with a duplicate key rather than on a check-then-act.
type Certificate struct {
	gorm.Model
	UserID            uint       `json:"user_id" gorm:"uniqueIndex:idx_certificate_user_training;not null"`
	TrainingID        uint       `json:"training_id" gorm:"uniqueIndex:idx_certificate_user_training;not null"`
	EnrollmentID      *uint      `json:"enrollment_id" gorm:"index"` // nil when issued outside an enrollment flow
	CertificateNumber string     `json:"certificate_number" gorm:"uniqueIndex"`
	DocumentURL       string     `json:"document_url"`
	Score             *int       `json:"score"`
	IssuedAt          time.Time  `json:"issued_at"`
}
