package quiz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"quizonomy/internal/apperr"
	"quizonomy/internal/models"
)

type attemptKey struct{ userID, quizID uint }

// memStore is an in-memory Store. Transaction snapshots the state and
// restores it when fn fails, mimicking a rollback.
type memStore struct {
	mu       sync.Mutex
	users    map[uint]models.User
	quizzes  map[uint]models.Quiz
	attempts map[attemptKey]models.QuizAttempt
	nextID   uint
	failWith error

	// randomPick chooses among quiz ids in ascending order; defaults to the first.
	randomPick func(ids []uint) uint
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uint]models.User{},
		quizzes:  map[uint]models.Quiz{},
		attempts: map[attemptKey]models.QuizAttempt{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(username string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := models.User{ID: m.id(), Username: username, DailyCount: models.DailyQuota}
	m.users[u.ID] = u
	return &u
}

func (m *memStore) addQuiz(name string, questions int) *models.Quiz {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := models.Quiz{ID: m.id(), Name: name}
	for i := 0; i < questions; i++ {
		q.Questions = append(q.Questions, models.Question{
			ID: m.id(), QuizID: q.ID, Position: i,
			QuestionText: fmt.Sprintf("Q%d", i+1),
			Answers:      []string{"a", "b"},
		})
	}
	m.quizzes[q.ID] = q
	return &q
}

func (m *memStore) user(id uint) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memStore) quiz(id uint) models.Quiz {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quizzes[id]
}

func (m *memStore) attempt(userID, quizID uint) (models.QuizAttempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptKey{userID, quizID}]
	return a, ok
}

func (m *memStore) setUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	if m.failWith != nil {
		m.mu.Unlock()
		return m.failWith
	}
	users := make(map[uint]models.User, len(m.users))
	for k, v := range m.users {
		users[k] = v
	}
	quizzes := make(map[uint]models.Quiz, len(m.quizzes))
	for k, v := range m.quizzes {
		quizzes[k] = v
	}
	attempts := make(map[attemptKey]models.QuizAttempt, len(m.attempts))
	for k, v := range m.attempts {
		attempts[k] = v
	}
	nextID := m.nextID
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.users, m.quizzes, m.attempts, m.nextID = users, quizzes, attempts, nextID
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memStore) FindUserForUpdate(_ context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("lock user %d: %w", id, apperr.ErrNotFound)
	}
	return &u, nil
}

func (m *memStore) SaveUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
	return nil
}

func (m *memStore) TopUsers(_ context.Context, period Period, limit int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		a, b := period.quoins(users[i]), period.quoins(users[j])
		if a != b {
			return a > b
		}
		return users[i].ID < users[j].ID
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (m *memStore) CreateQuiz(_ context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	quiz.ID = m.id()
	for i := range quiz.Questions {
		quiz.Questions[i].ID = m.id()
		quiz.Questions[i].QuizID = quiz.ID
	}
	stored := *quiz
	stored.Author = m.users[quiz.AuthorID]
	m.quizzes[quiz.ID] = stored
	return nil
}

func (m *memStore) FindQuizByID(_ context.Context, id uint) (*models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	q, ok := m.quizzes[id]
	if !ok {
		return nil, fmt.Errorf("find quiz %d: %w", id, apperr.ErrNotFound)
	}
	return &q, nil
}

func (m *memStore) FindQuizForUpdate(ctx context.Context, id uint) (*models.Quiz, error) {
	return m.FindQuizByID(ctx, id)
}

func (m *memStore) SaveQuiz(_ context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.quizzes[quiz.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	stored.AttemptCount = quiz.AttemptCount
	stored.BestAttemptScore = quiz.BestAttemptScore
	m.quizzes[quiz.ID] = stored
	return nil
}

func (m *memStore) quizIDs() []uint {
	ids := make([]uint, 0, len(m.quizzes))
	for id := range m.quizzes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *memStore) RandomQuiz(_ context.Context) (*models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	ids := m.quizIDs()
	if len(ids) == 0 {
		return nil, fmt.Errorf("random quiz: %w", apperr.ErrNotFound)
	}
	id := ids[0]
	if m.randomPick != nil {
		id = m.randomPick(ids)
	}
	q := m.quizzes[id]
	return &q, nil
}

func (m *memStore) SearchQuizzes(_ context.Context, query string, skip, take int) ([]models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []models.Quiz
	for _, id := range m.quizIDs() {
		out = append(out, m.quizzes[id])
	}
	if skip >= len(out) {
		return []models.Quiz{}, nil
	}
	out = out[skip:]
	if len(out) > take {
		out = out[:take]
	}
	return out, nil
}

func (m *memStore) FindAttempt(_ context.Context, userID, quizID uint) (*models.QuizAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptKey{userID, quizID}]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &a, nil
}

func (m *memStore) InsertAttempt(_ context.Context, attempt *models.QuizAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := attemptKey{attempt.UserID, attempt.QuizID}
	if _, exists := m.attempts[key]; exists {
		return errors.New("duplicate attempt row")
	}
	attempt.ID = m.id()
	m.attempts[key] = *attempt
	return nil
}

func (m *memStore) SaveAttempt(_ context.Context, attempt *models.QuizAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[attemptKey{attempt.UserID, attempt.QuizID}] = *attempt
	return nil
}

// memCache is an in-memory Cache.
type memCache struct {
	mu           sync.Mutex
	quizzes      map[uint]models.Quiz
	boards       map[string][]models.LeaderboardEntry
	failWith     error
	invalidated  int
	quizDeletes  []uint
	leaderboardN int
}

func newMemCache() *memCache {
	return &memCache{quizzes: map[uint]models.Quiz{}, boards: map[string][]models.LeaderboardEntry{}}
}

func (c *memCache) GetQuiz(_ context.Context, id uint) (*models.Quiz, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return nil, c.failWith
	}
	q, ok := c.quizzes[id]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return &q, nil
}

func (c *memCache) SetQuiz(_ context.Context, quiz *models.Quiz) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.quizzes[quiz.ID] = *quiz
	return nil
}

func (c *memCache) DeleteQuiz(_ context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quizDeletes = append(c.quizDeletes, id)
	if c.failWith != nil {
		return c.failWith
	}
	delete(c.quizzes, id)
	return nil
}

func (c *memCache) Leaderboard(_ context.Context, period string, limit int64) ([]models.LeaderboardEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaderboardN++
	if c.failWith != nil {
		return nil, false, c.failWith
	}
	entries, ok := c.boards[period]
	if !ok {
		return nil, false, nil
	}
	if int64(len(entries)) > limit {
		entries = entries[:limit]
	}
	return entries, true, nil
}

func (c *memCache) SetLeaderboard(_ context.Context, period string, entries []models.LeaderboardEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.boards[period] = append([]models.LeaderboardEntry(nil), entries...)
	return nil
}

func (c *memCache) InvalidateLeaderboards(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	if c.failWith != nil {
		return c.failWith
	}
	c.boards = map[string][]models.LeaderboardEntry{}
	return nil
}

type sentMessage struct {
	Type string
	Data interface{}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []sentMessage
}

func (n *recordingNotifier) BroadcastMessage(messageType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, sentMessage{Type: messageType, Data: data})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	for i, m := range n.messages {
		out[i] = m.Type
	}
	return out
}
