package storage

import (
	"context"
	"fmt"
	"strings"

	"chatcart/internal/config"
)

// NewStore creates the memory backend selected by cfg.Backend.
func NewStore(ctx context.Context, cfg config.MemoryConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return NewInMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Dir)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL, cfg.KeyPrefix)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
	}
}
