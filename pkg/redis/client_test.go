package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dispo-backend/pkg/config"
)

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.IdempotencyKey("evt:processed:transactions-worker", "abc")
	first, err := client.SetNX(ctx, key, "1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := client.SetNX(ctx, key, "1", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)
	assert.Equal(t, time.Hour, mock.ttls[key])

	require.NoError(t, client.Del(ctx, key))
	third, err := client.SetNX(ctx, key, "1", time.Hour)
	require.NoError(t, err)
	assert.True(t, third)
}

func TestGetMissingKey(t *testing.T) {
	client := &Client{store: newMockCmdable()}
	_, err := client.Get(context.Background(), "dispo:missing")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	_, err := client.SetNX(context.Background(), "k", "v", time.Second)
	assert.Error(t, err)
	assert.Error(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "dispo:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "dispo:idempotency:id", client.IdempotencyKey("", "id"), "empty parts are skipped")
	assert.Equal(t, "dispo:trace:42", Key(" trace ", "", "42"))
	assert.Equal(t, "dispo", Key())
}

func TestPoolStatsWithoutConnection(t *testing.T) {
	assert.Equal(t, PoolStats{}, (&Client{store: newMockCmdable()}).PoolStats())
}

func TestClientWithoutStore(t *testing.T) {
	ctx := context.Background()
	c := &Client{}

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, errNotInitialized)
	_, err = c.SetNX(ctx, "k", "v", time.Minute)
	assert.ErrorIs(t, err, errNotInitialized)
	assert.ErrorIs(t, c.Del(ctx, "k"), errNotInitialized)
	assert.ErrorIs(t, c.Ping(ctx), errNotInitialized)
	assert.NoError(t, c.Close())
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:          "redis://localhost:6379/2",
		PoolSize:     7,
		DialTimeout:  time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6380", DB: 3})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB)
}

type mockCmdable struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
