package auth

import (
	"context"
	"fmt"

	"quizonomy/internal/models"
	"quizonomy/pkg/database"

	"gorm.io/gorm"
)

// Store is the persistence the auth package needs: user credentials and
// the session registry.
type Store interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)

	// FindSessionByKey returns the session with its User populated.
	FindSessionByKey(ctx context.Context, key string) (*models.Session, error)
	InsertSession(ctx context.Context, session *models.Session) error
	// DeleteSessionsByKey removes every session with the key. Zero matches is not an error.
	DeleteSessionsByKey(ctx context.Context, key string) error
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, database.StoreErr("find user "+username, err)
	}
	return &user, nil
}

func (r *Repository) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, database.StoreErr(fmt.Sprintf("find user %d", id), err)
	}
	return &user, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return database.StoreErr("create user "+user.Username, err)
	}
	return nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id asc").Find(&users).Error; err != nil {
		return nil, database.StoreErr("list users", err)
	}
	return users, nil
}

func (r *Repository) FindSessionByKey(ctx context.Context, key string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).Preload("User").Where("key = ?", key).First(&session).Error
	if err != nil {
		return nil, database.StoreErr("find session", err)
	}
	return &session, nil
}

func (r *Repository) InsertSession(ctx context.Context, session *models.Session) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(session).Error; err != nil {
		return database.StoreErr("insert session", err)
	}
	return nil
}

func (r *Repository) DeleteSessionsByKey(ctx context.Context, key string) error {
	err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.Session{}).Error
	if err != nil {
		return database.StoreErr("delete sessions", err)
	}
	return nil
}
