package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"quizonomy/internal/models"

	"github.com/go-redis/redis/v8"
)

// Entries are deleted on every write, but a read that raced a write can
// put back a stale copy; the TTLs bound how long it survives.
const (
	quizTTL        = time.Minute
	leaderboardTTL = 5 * time.Minute
)

var leaderboardPeriods = []string{"daily", "weekly", "monthly"}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	return New(redis.NewClient(&redis.Options{Addr: addr}))
}

func New(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func quizKey(id uint) string {
	return "quiz:" + strconv.FormatUint(uint64(id), 10)
}

func leaderboardKey(period string) string {
	return "leaderboard:" + period
}

func (c *RedisCache) SetQuiz(ctx context.Context, quiz *models.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quizKey(quiz.ID), data, quizTTL).Err()
}

func (c *RedisCache) GetQuiz(ctx context.Context, id uint) (*models.Quiz, error) {
	data, err := c.client.Get(ctx, quizKey(id)).Bytes()
	if err != nil {
		return nil, err
	}

	var quiz models.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (c *RedisCache) DeleteQuiz(ctx context.Context, id uint) error {
	return c.client.Del(ctx, quizKey(id)).Err()
}

// SetLeaderboard replaces the period's ranking with entries.
func (c *RedisCache) SetLeaderboard(ctx context.Context, period string, entries []models.LeaderboardEntry) error {
	key := leaderboardKey(period)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(entries) > 0 {
		members := make([]*redis.Z, len(entries))
		for i, entry := range entries {
			members[i] = &redis.Z{Score: float64(entry.Quoins), Member: entry.Username}
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.Expire(ctx, key, leaderboardTTL)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Leaderboard returns the top limit entries, highest first. ok is false
// when nothing is cached for the period.
func (c *RedisCache) Leaderboard(ctx context.Context, period string, limit int64) ([]models.LeaderboardEntry, bool, error) {
	key := leaderboardKey(period)

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, false, err
	}
	if exists == 0 {
		return nil, false, nil
	}

	results, err := c.client.ZRevRangeWithScores(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, false, err
	}

	entries := make([]models.LeaderboardEntry, len(results))
	for i, z := range results {
		username, ok := z.Member.(string)
		if !ok {
			return nil, false, fmt.Errorf("leaderboard %s: unexpected member %v", period, z.Member)
		}
		entries[i] = models.LeaderboardEntry{
			Rank:     int64(i) + 1,
			Username: username,
			Quoins:   int64(z.Score),
		}
	}
	return entries, true, nil
}

// InvalidateLeaderboards drops every cached ranking so the next read
// rebuilds it from the database.
func (c *RedisCache) InvalidateLeaderboards(ctx context.Context) error {
	keys := make([]string, len(leaderboardPeriods))
	for i, p := range leaderboardPeriods {
		keys[i] = leaderboardKey(p)
	}
	return c.client.Del(ctx, keys...).Err()
}
