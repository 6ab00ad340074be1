package models

import (
	"time"

	"gorm.io/gorm"
)

// Training kinds
const (
	KindVideo      = "VIDEO"      // self-paced, chapter + quiz based
	KindPresentiel = "PRESENTIEL" // in-person session, attendance based
	KindDistanciel = "DISTANCIEL" // remote live session, attendance based
)

// Training represents a continuing-education training
type Training struct {
	gorm.Model
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Kind            string     `json:"kind" gorm:"default:'VIDEO'"` // VIDEO, PRESENTIEL, DISTANCIEL
	Duration        int        `json:"duration" gorm:"default:0"`   // duration in hours
	StartDate       *time.Time `json:"start_date"`                  // session date, nil for self-paced
	MaxParticipants int        `json:"max_participants" gorm:"default:0"` // 0 = unlimited
	Accredited      bool       `json:"accredited" gorm:"default:false"`
	IsPublished     bool       `json:"is_published" gorm:"default:false"`
	IsDeleted       bool       `gorm:"default:false"`
}

// IsSessionBased reports whether the training completes through attendance
// validation rather than chapters and a quiz.
func (t *Training) IsSessionBased() bool {
	return t.Kind == KindPresentiel || t.Kind == KindDistanciel
}

// Chapter represents an ordered video unit within a training
type Chapter struct {
	gorm.Model
	TrainingID uint   `json:"training_id" gorm:"index;not null"`
	Title      string `json:"title"`
	VideoURL   string `json:"video_url"`
	OrderIndex int    `json:"order_index" gorm:"default:0"` // chapter order in training
	IsDeleted  bool   `gorm:"default:false"`
}
