package models

import (
	"time"
)

// DailyQuota is how many daily quizzes a user may be assigned per calendar day.
const DailyQuota = 3

// NoDailyQuiz marks a user with no outstanding daily quiz.
const NoDailyQuiz uint = 0

type User struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Username      string    `json:"username" gorm:"uniqueIndex;size:24;not null"`
	Password      string    `json:"-" gorm:"not null"`
	DailyQuoins   int64     `json:"daily_quoins" gorm:"not null;default:0"`
	WeeklyQuoins  int64     `json:"weekly_quoins" gorm:"not null;default:0"`
	MonthlyQuoins int64     `json:"monthly_quoins" gorm:"not null;default:0"`

	// Daily quiz state. DailyCount is only reset when the date rolls over.
	DailyQuizDate time.Time `json:"daily_quiz_date" gorm:"type:date"`
	DailyCount    int64     `json:"daily_count" gorm:"not null;default:3"`
	DailyQuizID   uint      `json:"daily_quiz_id" gorm:"not null;default:0"`
}

// AddQuoins credits all three reward counters.
func (u *User) AddQuoins(quoins int64) {
	u.DailyQuoins += quoins
	u.WeeklyQuoins += quoins
	u.MonthlyQuoins += quoins
}

// Session binds an opaque key (session key or refresh token) to a user.
type Session struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	Key       string `gorm:"uniqueIndex;not null"`
	UserID    uint   `gorm:"index;not null"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
}
