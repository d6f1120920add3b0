package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/brands-digger/internal/config"
	"github.com/suPer8Hu/brands-digger/internal/db"
)

type BackendFactory func(ctx context.Context, cfg config.Config) (Backend, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]BackendFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]BackendFactory)}
}

func (r *Registry) Register(name string, f BackendFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Open(ctx context.Context, name string, cfg config.Config) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown storage driver: %s", name)
	}
	return f(ctx, cfg)
}

// DefaultRegistry knows the file, sqlite, mysql and redis backends.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("file", func(ctx context.Context, cfg config.Config) (Backend, error) {
		return NewFileBackend(cfg.DataDir)
	})
	r.Register("sqlite", func(ctx context.Context, cfg config.Config) (Backend, error) {
		dsn := cfg.DBDSN
		if db.DriverFor(dsn) != "sqlite" {
			dsn = "file:" + filepath.Join(cfg.DataDir, "brands_digger.db")
		}
		gdb, err := db.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		return NewGormBackend(gdb)
	})
	r.Register("mysql", func(ctx context.Context, cfg config.Config) (Backend, error) {
		gdb, err := db.Open("mysql", cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		return NewGormBackend(gdb)
	})
	r.Register("redis", func(ctx context.Context, cfg config.Config) (Backend, error) {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedisBackend(rdb), nil
	})
	return r
}
