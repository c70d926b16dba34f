package quiz

import (
	"context"
	"log/slog"
	"time"

	"quizonomy/internal/apperr"
	"quizonomy/internal/models"
)

// DailyAllocator hands each user up to models.DailyQuota random quizzes per
// calendar day of the server clock.
type DailyAllocator struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewDailyAllocator(store Store, logger *slog.Logger) *DailyAllocator {
	return &DailyAllocator{store: store, logger: logger, now: time.Now}
}

// Allocate assigns a random quiz as the user's daily quiz and returns its id.
// The quota resets to models.DailyQuota on the first call of a new day.
func (a *DailyAllocator) Allocate(ctx context.Context, userID uint) (uint, error) {
	today := calendarDate(a.now())

	var picked uint
	err := a.store.Transaction(ctx, func(tx Store) error {
		user, err := tx.FindUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		if !sameDate(user.DailyQuizDate, today) {
			user.DailyCount = models.DailyQuota
			user.DailyQuizDate = today
		}
		if user.DailyCount <= 0 {
			return apperr.ErrQuotaExhausted
		}

		quiz, err := tx.RandomQuiz(ctx)
		if err != nil {
			return err
		}

		user.DailyQuizID = quiz.ID
		user.DailyCount--
		picked = quiz.ID
		return tx.SaveUser(ctx, user)
	})
	if err != nil {
		return 0, err
	}

	a.logger.Info("daily quiz assigned", "user_id", userID, "quiz_id", picked)
	return picked, nil
}

// calendarDate truncates t to its date in t's own location, stored as UTC
// midnight so it round-trips through a date column unchanged.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDate(stored, today time.Time) bool {
	y1, m1, d1 := stored.UTC().Date()
	y2, m2, d2 := today.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
