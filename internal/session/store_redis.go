package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"example.com/bc-solo/internal/game"
)

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("session:%s:game", id)
}

// Save refreshes the TTL on every write, so an active game never expires.
func (s *RedisStore) Save(ctx context.Context, id string, snap game.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(id), b, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (game.Snapshot, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.Snapshot{}, false, nil
	}
	if err != nil {
		return game.Snapshot{}, false, err
	}

	var snap game.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return game.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}
