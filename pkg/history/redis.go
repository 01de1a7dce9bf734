package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "chat_history:"

// RedisStore keeps each session as a Redis list of JSON-encoded turns.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore parses a redis:// URL and checks connectivity.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID, role, text string) error {
	if err := checkRole(role); err != nil {
		return err
	}
	data, err := json.Marshal(Turn{Role: role, Text: text, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, redisKey(sessionID), data).Err()
}

func (s *RedisStore) Recent(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	raw, err := s.rdb.LRange(ctx, redisKey(sessionID), -int64(normalizeLimit(limit)), -1).Result()
	if err != nil {
		return nil, err
	}
	return decodeRedisTurns(raw)
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

func redisKey(sessionID string) string { return redisKeyPrefix + sessionID }

func decodeRedisTurns(raw []string) ([]Turn, error) {
	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}
