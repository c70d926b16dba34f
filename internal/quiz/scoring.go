package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"quizonomy/internal/apperr"
	"quizonomy/internal/models"
)

// Submission is one completed run through a quiz.
type Submission struct {
	QuizID           uint    `json:"quizId" validate:"required"`
	CorrectCount     uint    `json:"correctCount"`
	TimeMilliseconds float64 `json:"timeMilliseconds" validate:"gte=0"`
}

type Result struct {
	Quoins int64 `json:"quoins"`
	// Improved is true when the submission became the user's best attempt.
	Improved bool `json:"improved"`
	// Record is true when the submission set the quiz-wide best score.
	Record bool `json:"record"`
}

// Quoins is the reward for a daily quiz:
// floor(correct / questions * 100 * sqrt(questions)). A quiz without
// questions is worth nothing.
func Quoins(correctCount uint, questionCount int) int64 {
	if questionCount <= 0 {
		return 0
	}
	q := float64(questionCount)
	return int64(math.Floor(float64(correctCount) * 100 * math.Sqrt(q) / q))
}

// Ratio ranks attempts by correct answers per second. ok is false when the
// time is not positive; such a ratio loses to every defined one.
func Ratio(correctCount uint, timeMilliseconds float64) (ratio float64, ok bool) {
	if timeMilliseconds <= 0 || math.IsNaN(timeMilliseconds) || math.IsInf(timeMilliseconds, 0) {
		return math.Inf(-1), false
	}
	return 1000 * float64(correctCount) / timeMilliseconds, true
}

// ScoringEngine records submissions: the daily reward, the user's best
// attempt and the quiz's popularity counters.
//
// The user row and then the quiz row are locked for the length of the
// transaction, so concurrent submissions serialize instead of losing
// increments.
type ScoringEngine struct {
	store    Store
	cache    Cache
	notifier Notifier
	logger   *slog.Logger
}

func NewScoringEngine(store Store, cache Cache, notifier Notifier, logger *slog.Logger) *ScoringEngine {
	return &ScoringEngine{store: store, cache: cache, notifier: notifier, logger: logger}
}

func (e *ScoringEngine) Submit(ctx context.Context, userID uint, sub Submission) (Result, error) {
	if math.IsNaN(sub.TimeMilliseconds) || sub.TimeMilliseconds < 0 {
		return Result{}, fmt.Errorf("%w: timeMilliseconds must not be negative", apperr.ErrInvalidInput)
	}

	var (
		res      Result
		username string
		ratio    float64
	)
	err := e.store.Transaction(ctx, func(tx Store) error {
		res = Result{}

		user, err := tx.FindUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		username = user.Username

		quiz, err := tx.FindQuizForUpdate(ctx, sub.QuizID)
		if err != nil {
			return err
		}
		if int(sub.CorrectCount) > len(quiz.Questions) {
			return fmt.Errorf("%w: correctCount %d exceeds %d questions",
				apperr.ErrInvalidInput, sub.CorrectCount, len(quiz.Questions))
		}

		if user.DailyQuizID != models.NoDailyQuiz && user.DailyQuizID == quiz.ID {
			res.Quoins = Quoins(sub.CorrectCount, len(quiz.Questions))
			user.AddQuoins(res.Quoins)
			user.DailyQuizID = models.NoDailyQuiz
			if err := tx.SaveUser(ctx, user); err != nil {
				return err
			}
		}

		var defined bool
		ratio, defined = Ratio(sub.CorrectCount, sub.TimeMilliseconds)

		res.Improved, err = upsertBestAttempt(ctx, tx, user.ID, quiz.ID, sub, ratio)
		if err != nil {
			return err
		}

		quiz.AttemptCount++
		if defined && (quiz.BestAttemptScore == nil || ratio > *quiz.BestAttemptScore) {
			best := ratio
			quiz.BestAttemptScore = &best
			res.Record = true
		}
		return tx.SaveQuiz(ctx, quiz)
	})
	if err != nil {
		return Result{}, err
	}

	e.afterCommit(ctx, username, sub.QuizID, ratio, res)
	return res, nil
}

func upsertBestAttempt(ctx context.Context, tx Store, userID, quizID uint, sub Submission, ratio float64) (bool, error) {
	attempt, err := tx.FindAttempt(ctx, userID, quizID)
	if errors.Is(err, apperr.ErrNotFound) {
		return true, tx.InsertAttempt(ctx, &models.QuizAttempt{
			UserID:           userID,
			QuizID:           quizID,
			CorrectCount:     sub.CorrectCount,
			TimeMilliseconds: sub.TimeMilliseconds,
		})
	}
	if err != nil {
		return false, err
	}

	stored, _ := Ratio(attempt.CorrectCount, attempt.TimeMilliseconds)
	if !(ratio > stored) {
		return false, nil
	}
	attempt.CorrectCount = sub.CorrectCount
	attempt.TimeMilliseconds = sub.TimeMilliseconds
	return true, tx.SaveAttempt(ctx, attempt)
}

// afterCommit refreshes caches and pushes live events. Failures here are
// logged and never undo the submission.
func (e *ScoringEngine) afterCommit(ctx context.Context, username string, quizID uint, ratio float64, res Result) {
	if err := e.cache.DeleteQuiz(ctx, quizID); err != nil {
		e.logger.Warn("quiz cache invalidation failed", "quiz_id", quizID, "error", err)
	}

	if res.Quoins > 0 {
		if err := e.cache.InvalidateLeaderboards(ctx); err != nil {
			e.logger.Warn("leaderboard invalidation failed", "error", err)
		}
		e.notifier.BroadcastMessage("quoins_awarded", map[string]interface{}{
			"username": username,
			"quoins":   res.Quoins,
		})
	}
	if res.Record {
		e.notifier.BroadcastMessage("quiz_record", map[string]interface{}{
			"quizId":   quizID,
			"username": username,
			"ratio":    ratio,
		})
	}

	e.logger.Info("attempt recorded",
		"quiz_id", quizID,
		"username", username,
		"quoins", res.Quoins,
		"improved", res.Improved,
		"record", res.Record,
	)
}
