package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type storeFactory func(t *testing.T, c context.Context) (Store, Store)

func TestStores(t *testing.T) {
	tests := []struct {
		name    string
		short   bool
		factory storeFactory
	}{
		{
			name:  "memory",
			short: true,
			factory: func(t *testing.T, c context.Context) (Store, Store) {
				store := NewMemoryStore()
				return store, store
			},
		},
		{
			name:  "file",
			short: true,
			factory: func(t *testing.T, c context.Context) (Store, Store) {
				path := filepath.Join(t.TempDir(), "storage.json")
				writer, err := NewFileStore(path, "tab-a")
				require.NoError(t, err)
				reader, err := NewFileStore(path, "tab-b")
				require.NoError(t, err)
				return writer, reader
			},
		},
		{
			name:    "redis",
			factory: setupRedis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.short && testing.Short() {
				t.Skip("skipping container test in short mode")
			}
			c, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			writer, reader := tt.factory(t, c)

			_, ok, err := reader.Get(c, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			events, unsubscribe, err := reader.Subscribe(c)
			require.NoError(t, err)
			defer unsubscribe()

			require.NoError(t, writer.Set(c, "sdb_cart_v3", `{"robusta":{"sku":"robusta"}}`))
			require.NoError(t, writer.Publish(c, Event{Key: "sdb_cart_v3", Origin: "tab-a", At: time.Now()}))

			value, ok, err := reader.Get(c, "sdb_cart_v3")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"robusta":{"sku":"robusta"}}`, value)

			select {
			case event := <-events:
				assert.Equal(t, "tab-a", event.Origin)
			case <-time.After(10 * time.Second):
				t.Fatal("expected change event")
			}

			require.NoError(t, writer.Delete(c, "sdb_cart_v3"))
			_, ok, err = reader.Get(c, "sdb_cart_v3")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestMemoryStoreUnsubscribeClosesChannel(t *testing.T) {
	store := NewMemoryStore()
	events, unsubscribe, err := store.Subscribe(context.Background())
	require.NoError(t, err)

	unsubscribe()
	unsubscribe()

	_, ok := <-events
	assert.False(t, ok)
	assert.NoError(t, store.Publish(context.Background(), Event{Origin: "tab-a"}))
}

func TestFileStoreCorruptFile(t *testing.T) {
	c := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	store, err := NewFileStore(path, "tab-a")
	require.NoError(t, err)

	_, _, err = store.Get(c, "sdb_cart_v3")
	assert.Error(t, err)

	require.NoError(t, store.Set(c, "sdb_cart_v3", "{}"))
	value, ok, err := store.Get(c, "sdb_cart_v3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "{}", value)
}

func setupRedis(t *testing.T, c context.Context) (Store, Store) {
	redisContainer, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := redisContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed terminating redis container with error: %s", err)
		}
	})

	redisConnStr, err := redisContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting redis connection string with error: %s", err)
	}

	redisOpt, err := redis.ParseURL(redisConnStr)
	if err != nil {
		t.Fatalf("failed parsing redis connection string with error: %s", err)
	}

	writerClient := redis.NewClient(redisOpt)
	readerClient := redis.NewClient(redisOpt)
	t.Cleanup(func() {
		writerClient.Close()
		readerClient.Close()
	})
	if err = writerClient.Ping(c).Err(); err != nil {
		t.Fatalf("failed ping redis client with error: %s", err)
	}

	return NewRedisStore(writerClient, "test"), NewRedisStore(readerClient, "test")
}
