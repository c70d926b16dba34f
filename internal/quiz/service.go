package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"quizonomy/internal/apperr"
	"quizonomy/internal/models"
)

const (
	defaultTake = 10
	maxTake     = 50

	// leaderboardDepth is how many ranks are cached per period.
	leaderboardDepth = 100
)

// Cache holds read-through copies of quizzes and ranked leaderboards.
type Cache interface {
	GetQuiz(ctx context.Context, id uint) (*models.Quiz, error)
	SetQuiz(ctx context.Context, quiz *models.Quiz) error
	DeleteQuiz(ctx context.Context, id uint) error

	// Leaderboard returns the cached ranking; ok is false on a cache miss.
	Leaderboard(ctx context.Context, period string, limit int64) (entries []models.LeaderboardEntry, ok bool, err error)
	SetLeaderboard(ctx context.Context, period string, entries []models.LeaderboardEntry) error
	InvalidateLeaderboards(ctx context.Context) error
}

// Notifier pushes events to connected clients.
type Notifier interface {
	BroadcastMessage(messageType string, data interface{})
}

// Period selects which quoin counter a leaderboard ranks by.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

var Periods = []Period{Daily, Weekly, Monthly}

func (p Period) column() (string, bool) {
	switch p {
	case Daily:
		return "daily_quoins", true
	case Weekly:
		return "weekly_quoins", true
	case Monthly:
		return "monthly_quoins", true
	}
	return "", false
}

func (p Period) quoins(u models.User) int64 {
	switch p {
	case Weekly:
		return u.WeeklyQuoins
	case Monthly:
		return u.MonthlyQuoins
	default:
		return u.DailyQuoins
	}
}

type Service struct {
	store  Store
	cache  Cache
	logger *slog.Logger
}

func NewService(store Store, cache Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// NewQuestion is the input shape for one question of a new quiz.
type NewQuestion struct {
	QuestionText  string   `json:"questionText" validate:"required"`
	Answers       []string `json:"answers" validate:"required,min=2,max=4,dive,required"`
	CorrectAnswer uint     `json:"correctAnswer" validate:"lte=3"`
	ImageURL      *string  `json:"imageUrl" validate:"omitempty,url"`
}

type NewQuiz struct {
	Name      string        `json:"name" validate:"required,max=120"`
	Questions []NewQuestion `json:"questions" validate:"dive"`
}

// CreateQuiz stores a quiz owned by authorID. Question order is kept.
func (s *Service) CreateQuiz(ctx context.Context, authorID uint, in NewQuiz) (*models.Quiz, error) {
	quiz := &models.Quiz{
		Name:      strings.TrimSpace(in.Name),
		AuthorID:  authorID,
		Questions: make([]models.Question, len(in.Questions)),
	}
	for i, q := range in.Questions {
		if int(q.CorrectAnswer) >= len(q.Answers) {
			return nil, fmt.Errorf("%w: question %d has no answer %d", apperr.ErrInvalidInput, i, q.CorrectAnswer)
		}
		quiz.Questions[i] = models.Question{
			Position:      i,
			QuestionText:  q.QuestionText,
			Answers:       append([]string(nil), q.Answers...),
			CorrectAnswer: q.CorrectAnswer,
			ImageURL:      q.ImageURL,
		}
	}

	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	s.logger.Info("quiz created", "quiz_id", quiz.ID, "author_id", authorID, "questions", len(quiz.Questions))
	return quiz, nil
}

// GetQuiz reads through the cache.
func (s *Service) GetQuiz(ctx context.Context, id uint) (*models.Quiz, error) {
	if quiz, err := s.cache.GetQuiz(ctx, id); err == nil {
		return quiz, nil
	}

	quiz, err := s.store.FindQuizByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetQuiz(ctx, quiz); err != nil {
		s.logger.Warn("quiz cache write failed", "quiz_id", id, "error", err)
	}
	return quiz, nil
}

func (s *Service) SearchQuizzes(ctx context.Context, query string, skip, take int) ([]models.Quiz, error) {
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative", apperr.ErrInvalidInput)
	}
	if take <= 0 {
		take = defaultTake
	}
	if take > maxTake {
		take = maxTake
	}
	return s.store.SearchQuizzes(ctx, strings.TrimSpace(query), skip, take)
}

// RandomQuiz returns zero or one quizzes.
func (s *Service) RandomQuiz(ctx context.Context) ([]models.Quiz, error) {
	quiz, err := s.store.RandomQuiz(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		return []models.Quiz{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []models.Quiz{*quiz}, nil
}

func (s *Service) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.store.FindUserByUsername(ctx, username)
}

// Leaderboard ranks users by the period's quoin counter. The cached ranking
// is used when present; otherwise it is rebuilt from the store.
func (s *Service) Leaderboard(ctx context.Context, period Period, take int) ([]models.LeaderboardEntry, error) {
	if _, ok := period.column(); !ok {
		return nil, fmt.Errorf("%w: unknown leaderboard period %q", apperr.ErrInvalidInput, period)
	}
	if take <= 0 {
		take = defaultTake
	}
	if take > leaderboardDepth {
		take = leaderboardDepth
	}

	entries, ok, err := s.cache.Leaderboard(ctx, string(period), int64(take))
	if err != nil {
		s.logger.Warn("leaderboard cache read failed", "period", period, "error", err)
	}
	if err == nil && ok {
		return entries, nil
	}

	users, err := s.store.TopUsers(ctx, period, leaderboardDepth)
	if err != nil {
		return nil, err
	}
	entries = make([]models.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = models.LeaderboardEntry{
			Rank:     int64(i + 1),
			Username: u.Username,
			Quoins:   period.quoins(u),
		}
	}
	if err := s.cache.SetLeaderboard(ctx, string(period), entries); err != nil {
		s.logger.Warn("leaderboard cache write failed", "period", period, "error", err)
	}

	if len(entries) > take {
		entries = entries[:take]
	}
	return entries, nil
}
