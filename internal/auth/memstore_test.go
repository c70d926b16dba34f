package auth

import (
	"context"
	"fmt"
	"sync"

	"quizonomy/internal/apperr"
	"quizonomy/internal/models"
)

// memStore is an in-memory Store for tests. Setting failWith makes every
// call fail with that error.
type memStore struct {
	mu       sync.Mutex
	users    map[uint]*models.User
	sessions []models.Session
	nextID   uint
	failWith error
}

func newMemStore() *memStore {
	return &memStore{users: map[uint]*models.User{}}
}

func (m *memStore) addUser(username string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u := &models.User{ID: m.nextID, Username: username, DailyCount: models.DailyQuota}
	m.users[u.ID] = u
	return u
}

func (m *memStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("find user %s: %w", username, apperr.ErrNotFound)
}

func (m *memStore) FindUserByID(_ context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for _, u := range m.users {
		if u.Username == user.Username {
			return apperr.ErrConflict
		}
	}
	m.nextID++
	user.ID = m.nextID
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *memStore) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	users := make([]models.User, 0, len(m.users))
	for id := uint(1); id <= m.nextID; id++ {
		if u, ok := m.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (m *memStore) FindSessionByKey(_ context.Context, key string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, s := range m.sessions {
		if s.Key == key {
			c := s
			c.User = *m.users[s.UserID]
			return &c, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memStore) InsertSession(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	session.ID = uint(len(m.sessions) + 1)
	m.sessions = append(m.sessions, *session)
	return nil
}

func (m *memStore) DeleteSessionsByKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.Key != key {
			kept = append(kept, s)
		}
	}
	m.sessions = kept
	return nil
}

func (m *memStore) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
