package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"quizonomy/internal/apperr"
	"quizonomy/internal/models"

	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Register hashes the password and creates the user with a full daily quota.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:    username,
		Password:    string(hashed),
		DailyCount:  models.DailyQuota,
		DailyQuizID: models.NoDailyQuiz,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "username", username)
	return user, nil
}

// Login checks the password. An unknown username is ErrNotFound, a wrong
// password ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	return user, nil
}

func (s *Service) CurrentUser(ctx context.Context, p Principal) (*models.User, error) {
	return s.store.FindUserByUsername(ctx, p.Username)
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}
