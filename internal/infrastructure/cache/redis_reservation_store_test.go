//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisReservationStore(t *testing.T) {
	client := startRedis(t)
	store := NewRedisReservationStoreWithClient(client, "test:checknum:")

	ctx := context.Background()
	company := uuid.New()

	t.Run("claims a free range with TTL", func(t *testing.T) {
		conflicts, err := store.Reserve(ctx, testRange(company, 7, 1000, 3), "run-a", time.Minute)
		require.NoError(t, err)
		assert.Empty(t, conflicts)

		key := reservationKey("test:checknum:", testRange(company, 7, 1000, 3), "1001")
		owner, err := client.Get(ctx, key).Result()
		require.NoError(t, err)
		assert.Equal(t, "run-a", owner)

		ttl, err := client.TTL(ctx, key).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("overlap is rolled back", func(t *testing.T) {
		conflicts, err := store.Reserve(ctx, testRange(company, 7, 1002, 3), "run-b", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, []string{"1002"}, conflicts)

		// 1003 and 1004 were claimed then released
		n, err := client.Exists(ctx,
			reservationKey("test:checknum:", testRange(company, 7, 0, 0), "1003"),
			reservationKey("test:checknum:", testRange(company, 7, 0, 0), "1004"),
		).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("same owner refreshes", func(t *testing.T) {
		conflicts, err := store.Reserve(ctx, testRange(company, 7, 1000, 4), "run-a", time.Minute)
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	})

	t.Run("release only drops the owner's claims", func(t *testing.T) {
		_, err := store.Reserve(ctx, testRange(company, 8, 1, 2), "run-c", time.Minute)
		require.NoError(t, err)

		require.NoError(t, store.Release(ctx, testRange(company, 7, 1000, 4), "run-c"))
		conflicts, err := store.Reserve(ctx, testRange(company, 7, 1000, 1), "run-c", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, []string{"1000"}, conflicts)

		require.NoError(t, store.Release(ctx, testRange(company, 7, 1000, 4), "run-a"))
		conflicts, err = store.Reserve(ctx, testRange(company, 7, 1000, 4), "run-c", time.Minute)
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	})
}

func TestRedisReservationStore_HoldersReportsKeyErrors(t *testing.T) {
	client := startRedis(t)
	store := NewRedisReservationStoreWithClient(client, "test:checknum:")
	ctx := context.Background()

	// The expired key fails first with redis.Nil; the hash key fails with WRONGTYPE
	keys := []string{"test:checknum:expired", "test:checknum:corrupt", "test:checknum:held"}
	require.NoError(t, client.HSet(ctx, keys[1], "owner", "run-x").Err())
	require.NoError(t, client.Set(ctx, keys[2], "run-y", time.Minute).Err())

	held, err := store.holders(ctx, keys, []int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "", 2: "run-y"}, held)

	_, err = store.holders(ctx, keys, []int{0, 1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WRONGTYPE")
	assert.Contains(t, err.Error(), keys[1])
}
