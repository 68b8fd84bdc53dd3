package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "test:session"), mr
}

func storesUnderTest(t *testing.T) map[string]Store {
	redisStore, _ := newRedisTestStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json")),
		"redis":  redisStore,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	lifetimePair, err := Grant{AccessToken: "a1", RefreshToken: "r1", ExpiresIn: time.Hour}.Pair(testEpoch)
	require.NoError(t, err)
	absolutePair, err := Grant{AccessToken: "a2", RefreshToken: "r2", ExpiresAt: testEpoch.Add(2 * time.Hour)}.Pair(testEpoch)
	require.NoError(t, err)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Read(ctx)
			require.NoError(t, err)
			assert.False(t, ok, "empty store should report no pair")

			for _, pair := range []CredentialPair{lifetimePair, absolutePair} {
				require.NoError(t, store.Save(ctx, pair))
				got, ok, err := store.Read(ctx)
				require.NoError(t, err)
				require.True(t, ok)
				assert.True(t, got.Equal(pair), "got %+v, want %+v", got, pair)
			}

			require.NoError(t, store.Clear(ctx))
			_, ok, err = store.Read(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			// Clearing an empty store is not an error.
			require.NoError(t, store.Clear(ctx))
		})
	}
}

func TestFileStore_RecordLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)

	pair := CredentialPair{AccessToken: "a", RefreshToken: "r", ExpiresAt: testEpoch}
	require.NoError(t, store.Save(context.Background(), pair))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"accessToken": "a"`)
	assert.Contains(t, string(data), `"refreshToken": "r"`)
	assert.Contains(t, string(data), `"expiresAt": "2026-03-01T08:00:00Z"`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStore_CorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, ok, err := NewFileStore(path).Read(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := newRedisTestStore(t)
	mr.Close()

	_, ok, err := store.Read(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
