package models

import "gorm.io/gorm"

// User roles
const (
	RoleAdmin   = "ADMIN"
	RoleTrainer = "TRAINER"
	RoleLearner = "LEARNER"
)

// User represents a platform account (learner, trainer or admin)
type User struct {
	gorm.Model
	Name      string `json:"name"`
	Email     string `json:"email" gorm:"uniqueIndex;not null"`
	Password  string `json:"-"`
	Role      string `json:"role" gorm:"default:'LEARNER'"` // ADMIN, TRAINER, LEARNER
	IsDeleted bool   `gorm:"default:false"`
}
