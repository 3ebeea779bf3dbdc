package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/payables/internal/domain/payables"
	"github.com/redis/go-redis/v9"
)

const defaultReservationKeyPrefix = "payables:checknum:"

// releaseScript deletes each key only while it still holds the caller's owner token
var releaseScript = redis.NewScript(`
local released = 0
for _, key in ipairs(KEYS) do
	if redis.call('GET', key) == ARGV[1] then
		redis.call('DEL', key)
		released = released + 1
	end
end
return released
`)

// RedisReservationStore implements CheckNumberReservationStore using Redis.
// Each check number is one key holding the owner token, so planners on
// different hosts see each other's claims
type RedisReservationStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisReservationStore creates a Redis-based reservation store and
// verifies the connection
func NewRedisReservationStore(ctx context.Context, cfg RedisConfig) (*RedisReservationStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisReservationStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisReservationStoreWithClient creates a store with an existing Redis client
func NewRedisReservationStoreWithClient(client *redis.Client, keyPrefix string) *RedisReservationStore {
	if keyPrefix == "" {
		keyPrefix = defaultReservationKeyPrefix
	}
	return &RedisReservationStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Reserve claims every number in r for owner with SETNX. When any number is
// held by another owner the numbers claimed by this call are rolled back and
// the held numbers are returned.
func (s *RedisReservationStore) Reserve(ctx context.Context, r payables.CheckNumberRange, owner string, ttl time.Duration) ([]string, error) {
	numbers := r.Numbers()
	if len(numbers) == 0 {
		return nil, nil
	}
	keys := s.keys(r, numbers)

	setCmds := make([]*redis.BoolCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			setCmds[i] = pipe.SetNX(ctx, key, owner, ttl)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reserve check numbers: %w", err)
	}

	var acquired, contended []int
	for i, cmd := range setCmds {
		if cmd.Val() {
			acquired = append(acquired, i)
		} else {
			contended = append(contended, i)
		}
	}
	if len(contended) == 0 {
		return nil, nil
	}

	held, err := s.holders(ctx, keys, contended)
	if err != nil {
		s.rollback(ctx, keys, acquired, owner)
		return nil, err
	}

	var conflicts, ours []string
	for _, i := range contended {
		if held[i] == owner {
			ours = append(ours, keys[i])
			continue
		}
		conflicts = append(conflicts, numbers[i])
	}

	if len(conflicts) > 0 {
		s.rollback(ctx, keys, acquired, owner)
		return conflicts, nil
	}

	// Numbers this owner already held get a fresh TTL
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range ours {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh check number reservation: %w", err)
	}
	return nil, nil
}

// Release drops the claims owner holds on r
func (s *RedisReservationStore) Release(ctx context.Context, r payables.CheckNumberRange, owner string) error {
	numbers := r.Numbers()
	if len(numbers) == 0 {
		return nil
	}
	if err := releaseScript.Run(ctx, s.client, s.keys(r, numbers), owner).Err(); err != nil {
		return fmt.Errorf("failed to release check numbers: %w", err)
	}
	return nil
}

// holders returns the current owner token of each contended key. A key that
// expired in the meantime maps to the empty string and counts as a conflict.
func (s *RedisReservationStore) holders(ctx context.Context, keys []string, idx []int) (map[int]string, error) {
	getCmds := make(map[int]*redis.StringCmd, len(idx))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, i := range idx {
			getCmds[i] = pipe.Get(ctx, keys[i])
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read check number reservations: %w", err)
	}

	// Pipelined reports only the first failure, which may be a redis.Nil
	// hiding a real error on a later key
	held := make(map[int]string, len(idx))
	for i, cmd := range getCmds {
		if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to read check number reservation %s: %w", keys[i], err)
		}
		held[i] = cmd.Val()
	}
	return held, nil
}

func (s *RedisReservationStore) rollback(ctx context.Context, keys []string, idx []int, owner string) {
	if len(idx) == 0 {
		return
	}
	claimed := make([]string, len(idx))
	for j, i := range idx {
		claimed[j] = keys[i]
	}
	// Best effort; the TTL frees anything left behind
	_ = releaseScript.Run(ctx, s.client, claimed, owner).Err()
}

func (s *RedisReservationStore) keys(r payables.CheckNumberRange, numbers []string) []string {
	keys := make([]string, len(numbers))
	for i, n := range numbers {
		keys[i] = reservationKey(s.keyPrefix, r, n)
	}
	return keys
}

// Close closes the Redis client
func (s *RedisReservationStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisReservationStore) GetClient() *redis.Client {
	return s.client
}

var _ payables.CheckNumberReservationStore = (*RedisReservationStore)(nil)
