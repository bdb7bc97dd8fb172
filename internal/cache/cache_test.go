package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"atomkit/internal/telemetry"
	"atomkit/lib/chars"

	"github.com/stretchr/testify/require"
)

type clock struct {
	at time.Time
}

func (c *clock) now() time.Time {
	return c.at
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := &clock{at: time.Unix(1_700_000_000, 0)}

	store, err := NewFileStore(dir, "Pixabay", time.Hour, nil)
	require.NoError(t, err)
	store.now = c.now

	_, ok, err := store.Get(ctx, "https://pixabay.com/api/?q=cat")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "https://pixabay.com/api/?q=cat", []byte(`{"total":1}`)))
	matches, err := filepath.Glob(filepath.Join(dir, "Pixabay__1700000000__*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, ok, err := store.Get(ctx, "https://pixabay.com/api/?q=cat")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"total":1}`, string(data))

	c.at = c.at.Add(time.Minute)
	require.NoError(t, store.Set(ctx, "https://pixabay.com/api/?q=cat", []byte(`{"total":2}`)))
	require.NoError(t, store.Set(ctx, "https://pixabay.com/api/?q=dog", []byte(`{"total":3}`)))
	matches, err = filepath.Glob(filepath.Join(dir, "Pixabay__*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 2)

	data, ok, err = store.Get(ctx, "https://pixabay.com/api/?q=cat")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"total":2}`, string(data))

	c.at = c.at.Add(time.Hour + time.Second)
	_, ok, err = store.Get(ctx, "https://pixabay.com/api/?q=cat")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.json"), []byte("{}"), 0644))
	require.NoError(t, store.Prune(ctx))
	matches, err = filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "unrelated.json")}, matches)

	_, err = NewFileStore(dir, "bad__name", time.Hour, nil)
	require.Error(t, err)
}

func TestFileStoreReplaceFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tel := &telemetry.Recorder{}
	store, err := NewFileStore(dir, "stock", time.Hour, tel)
	require.NoError(t, err)
	store.now = (&clock{at: time.Unix(1_700_000_060, 0)}).now

	// a non empty directory in place of the old entry cannot be removed
	stale := filepath.Join(dir, "stock__1700000000__"+chars.Hash2S("k")+".json")
	require.NoError(t, os.MkdirAll(filepath.Join(stale, "child"), 0777))

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.Len(t, tel.Reports("warning"), 1)
	require.Equal(t, "cache: "+report_file_replace, tel.Reports("warning")[0].ID)

	data, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", string(data))
}

func TestFileStorePruneReports(t *testing.T) {
	ctx := context.Background()
	tel := &telemetry.Recorder{}
	store, err := NewFileStore(t.TempDir(), "stock", time.Hour, tel)
	require.NoError(t, err)
	c := &clock{at: time.Unix(1_700_000_000, 0)}
	store.now = c.now

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	c.at = c.at.Add(time.Hour * 2)
	require.NoError(t, store.Prune(ctx))
	require.Len(t, tel.Reports("debug"), 1)
	require.Equal(t, "cache: "+report_file_prune, tel.Reports("debug")[0].ID)
}

func TestFileStoreDisabled(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), "off", 0, nil)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBoltStore(t *testing.T) {
	ctx := context.Background()
	c := &clock{at: time.Unix(1_700_000_000, 0)}

	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "nested", "cache.db"), "stock", time.Hour)
	require.NoError(t, err)
	defer store.Close()
	store.now = c.now

	require.NoError(t, store.Set(ctx, "a", []byte("first")))
	require.NoError(t, store.Set(ctx, "b", []byte("second")))

	data, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "first", string(data))

	c.at = c.at.Add(time.Minute * 30)
	require.NoError(t, store.Set(ctx, "b", []byte("refreshed")))

	c.at = c.at.Add(time.Minute * 31)
	_, ok, err = store.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Prune(ctx))
	data, ok, err = store.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "refreshed", string(data))
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL is not set")
	}
	ctx := context.Background()
	store, err := NewRedisStore(url, "atomkit-test", time.Minute)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "key", []byte("value")))
	data, ok, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value", string(data))

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(Config{Dir: dir, TTL: 10}, "x", nil)
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, store)

	store, err = Open(Config{Kind: "bolt", Dir: dir, TTL: 10}, "x", nil)
	require.NoError(t, err)
	require.IsType(t, &BoltStore{}, store)
	require.NoError(t, store.Close())
	require.FileExists(t, filepath.Join(dir, "cache.db"))

	_, err = Open(Config{Kind: "redis", RedisURL: "not a url"}, "x", nil)
	require.Error(t, err)

	_, err = Open(Config{Kind: "memcached"}, "x", nil)
	require.Error(t, err)
}
