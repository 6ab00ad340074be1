package models

import "gorm.io/gorm"

// Quiz is the qualifying assessment of a training
type Quiz struct {
	gorm.Model
	TrainingID   uint       `json:"training_id" gorm:"uniqueIndex;not null"`
	Title        string     `json:"title"`
	PassingScore int        `json:"passing_score" gorm:"default:70"` // percentage 0-100
	Questions    []Question `json:"questions"`
	IsDeleted    bool       `gorm:"default:false"`
}

// Question belongs to a quiz; Multiple allows more than one correct answer
type Question struct {
	gorm.Model
	QuizID     uint     `json:"quiz_id" gorm:"index;not null"`
	Text       string   `json:"text"`
	Multiple   bool     `json:"multiple" gorm:"default:false"`
	OrderIndex int      `json:"order_index" gorm:"default:0"`
	Answers    []Answer `json:"answers"`
	IsDeleted  bool     `gorm:"default:false"`
}

// Answer is one selectable option of a question
type Answer struct {
	gorm.Model
	QuestionID uint   `json:"question_id" gorm:"index;not null"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct" gorm:"default:false"`
	IsDeleted  bool   `gorm:"default:false"`
}
