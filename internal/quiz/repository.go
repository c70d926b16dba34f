package quiz

import (
	"context"
	"errors"
	"fmt"

	"quizonomy/internal/apperr"
	"quizonomy/internal/models"
	"quizonomy/pkg/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence the quiz services run against. Every method may
// fail with apperr.ErrStoreUnavailable; lookups fail with apperr.ErrNotFound.
type Store interface {
	// Transaction runs fn against a Store bound to one database transaction.
	// fn's error rolls the transaction back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	// FindUserForUpdate loads the user and, inside a transaction, locks its row.
	FindUserForUpdate(ctx context.Context, id uint) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	TopUsers(ctx context.Context, period Period, limit int) ([]models.User, error)

	CreateQuiz(ctx context.Context, quiz *models.Quiz) error
	// FindQuizByID returns the quiz with its author and ordered questions.
	FindQuizByID(ctx context.Context, id uint) (*models.Quiz, error)
	// FindQuizForUpdate is FindQuizByID plus a row lock inside a transaction.
	FindQuizForUpdate(ctx context.Context, id uint) (*models.Quiz, error)
	// SaveQuiz persists the quiz's attempt count and best score.
	SaveQuiz(ctx context.Context, quiz *models.Quiz) error
	RandomQuiz(ctx context.Context) (*models.Quiz, error)
	SearchQuizzes(ctx context.Context, query string, skip, take int) ([]models.Quiz, error)

	FindAttempt(ctx context.Context, userID, quizID uint) (*models.QuizAttempt, error)
	InsertAttempt(ctx context.Context, attempt *models.QuizAttempt) error
	SaveAttempt(ctx context.Context, attempt *models.QuizAttempt) error
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Transaction(ctx context.Context, fn func(tx Store) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
	if err != nil && !isAppErr(err) {
		return database.StoreErr("transaction", err)
	}
	return err
}

func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, database.StoreErr("find user "+username, err)
	}
	return &user, nil
}

func (r *Repository) FindUserForUpdate(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, id).Error
	if err != nil {
		return nil, database.StoreErr(fmt.Sprintf("lock user %d", id), err)
	}
	return &user, nil
}

func (r *Repository) SaveUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return database.StoreErr(fmt.Sprintf("save user %d", user.ID), err)
	}
	return nil
}

func (r *Repository) TopUsers(ctx context.Context, period Period, limit int) ([]models.User, error) {
	column, ok := period.column()
	if !ok {
		return nil, fmt.Errorf("%w: period %q", apperr.ErrInvalidInput, period)
	}
	var users []models.User
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: true}).
		Order("id asc").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, database.StoreErr("top users", err)
	}
	return users, nil
}

func (r *Repository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(quiz).Error; err != nil {
		return database.StoreErr("create quiz", err)
	}
	return nil
}

func (r *Repository) FindQuizByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := withAuthorAndQuestions(r.db.WithContext(ctx)).First(&quiz, id).Error; err != nil {
		return nil, database.StoreErr(fmt.Sprintf("find quiz %d", id), err)
	}
	return &quiz, nil
}

func (r *Repository) FindQuizForUpdate(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := withAuthorAndQuestions(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&quiz, id).Error
	if err != nil {
		return nil, database.StoreErr(fmt.Sprintf("lock quiz %d", id), err)
	}
	return &quiz, nil
}

func (r *Repository) SaveQuiz(ctx context.Context, quiz *models.Quiz) error {
	err := r.db.WithContext(ctx).Model(&models.Quiz{ID: quiz.ID}).Updates(map[string]interface{}{
		"attempt_count":      quiz.AttemptCount,
		"best_attempt_score": quiz.BestAttemptScore,
	}).Error
	if err != nil {
		return database.StoreErr(fmt.Sprintf("save quiz %d", quiz.ID), err)
	}
	return nil
}

func (r *Repository) RandomQuiz(ctx context.Context) (*models.Quiz, error) {
	var quiz models.Quiz
	err := withAuthorAndQuestions(r.db.WithContext(ctx)).
		Order("RANDOM()").
		Take(&quiz).Error
	if err != nil {
		return nil, database.StoreErr("random quiz", err)
	}
	return &quiz, nil
}

// SearchQuizzes ranks quizzes by trigram similarity of their name to query.
func (r *Repository) SearchQuizzes(ctx context.Context, query string, skip, take int) ([]models.Quiz, error) {
	db := withAuthorAndQuestions(r.db.WithContext(ctx))
	// One ORDER BY clause: gorm replaces an expression order when columns are merged into it.
	if query != "" {
		db = db.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "similarity(name, ?) DESC, id ASC",
			Vars:               []interface{}{query},
			WithoutParentheses: true,
		}})
	} else {
		db = db.Order("id asc")
	}
	var quizzes []models.Quiz
	if err := db.Offset(skip).Limit(take).Find(&quizzes).Error; err != nil {
		return nil, database.StoreErr("search quizzes", err)
	}
	return quizzes, nil
}

func (r *Repository) FindAttempt(ctx context.Context, userID, quizID uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		First(&attempt).Error
	if err != nil {
		return nil, database.StoreErr(fmt.Sprintf("find attempt user %d quiz %d", userID, quizID), err)
	}
	return &attempt, nil
}

func (r *Repository) InsertAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return database.StoreErr("insert attempt", err)
	}
	return nil
}

func (r *Repository) SaveAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	if err := r.db.WithContext(ctx).Save(attempt).Error; err != nil {
		return database.StoreErr(fmt.Sprintf("save attempt %d", attempt.ID), err)
	}
	return nil
}

func withAuthorAndQuestions(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Questions", questionsInOrder)
}

func questionsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

func isAppErr(err error) bool {
	for _, target := range []error{
		apperr.ErrNotFound, apperr.ErrQuotaExhausted, apperr.ErrInvalidInput,
		apperr.ErrConflict, apperr.ErrStoreUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
