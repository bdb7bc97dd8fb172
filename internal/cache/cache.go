package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"atomkit/internal/telemetry"
)

const DefaultTTL = 86400

type Config struct {
	// one of file, bolt, redis. defaults to file
	Kind string `json:"kind" toml:"kind"`
	// directory of the file store
	Dir string `json:"dir" toml:"dir"`
	// database file of the bolt store, defaults to <dir>/cache.db
	File     string `json:"file" toml:"file"`
	RedisURL string `json:"redis_url" toml:"redis_url"`
	// seconds an entry stays valid, 0 disables caching
	TTL int `json:"ttl" toml:"ttl"`
}

func DefaultConfig() Config {
	return Config{
		Kind: "file",
		Dir:  filepath.Join("out", "cache"),
		TTL:  DefaultTTL,
	}
}

func (c Config) ttl() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Store keeps values by key for a limited time, expired values are never
// returned.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Prune deletes expired entries.
	Prune(ctx context.Context) error
	Close() error
}

// Open creates the store described by cfg, name namespaces the entries.
func Open(cfg Config, name string, tel telemetry.API) (Store, error) {
	switch cfg.Kind {
	case "", "file":
		dir := cfg.Dir
		if dir == "" {
			dir = DefaultConfig().Dir
		}
		return NewFileStore(dir, name, cfg.ttl(), tel)
	case "bolt":
		file := cfg.File
		if file == "" {
			dir := cfg.Dir
			if dir == "" {
				dir = DefaultConfig().Dir
			}
			file = filepath.Join(dir, "cache.db")
		}
		return OpenBoltStore(file, name, cfg.ttl())
	case "redis":
		return NewRedisStore(cfg.RedisURL, name, cfg.ttl())
	}
	return nil, fmt.Errorf("unknown cache kind '%s'", cfg.Kind)
}
