package models

import (
	"time"

	"gorm.io/datatypes"
)

type Quiz struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Name             string     `json:"name" gorm:"not null"`
	AuthorID         uint       `json:"author_id" gorm:"index;not null"`
	Author           User       `json:"author" gorm:"foreignKey:AuthorID"`
	Questions        []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
	AttemptCount     int64      `json:"attempt_count" gorm:"not null;default:0"`
	BestAttemptScore *float64   `json:"best_attempt_score"`
}

type Question struct {
	ID            uint                        `json:"id" gorm:"primaryKey"`
	QuizID        uint                        `json:"quiz_id" gorm:"index;not null"`
	Position      int                         `json:"position" gorm:"not null"` // presentation order
	QuestionText  string                      `json:"question_text" gorm:"not null"`
	Answers       datatypes.JSONSlice[string] `json:"answers" gorm:"not null"`
	CorrectAnswer uint                        `json:"correct_answer"`
	ImageURL      *string                     `json:"image_url"`
}

// QuizAttempt is the best submission a user has made for a quiz.
// There is at most one row per (user, quiz).
type QuizAttempt struct {
	ID               uint `gorm:"primaryKey"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	UserID           uint    `gorm:"index:idx_attempt_user_quiz;not null"`
	QuizID           uint    `gorm:"index:idx_attempt_user_quiz;not null"`
	CorrectCount     uint    `gorm:"not null"`
	TimeMilliseconds float64 `gorm:"not null"`
}

// LeaderboardEntry is one ranked row of a quoin leaderboard.
type LeaderboardEntry struct {
	Rank     int64  `json:"rank"`
	Username string `json:"username"`
	Quoins   int64  `json:"quoins"`
}
