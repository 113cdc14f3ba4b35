package commands

import (
	"context"
	"strings"

	"github.com/conduit-lang/opconvert/internal/cache"
	"github.com/conduit-lang/opconvert/internal/cli/config"
)

// openCache returns the configured backend, or nil when caching is off
func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	cc := cache.DefaultConfig()
	if cfg.TTL > 0 {
		cc.DefaultTTL = cfg.TTL
	}

	switch strings.ToLower(cfg.Backend) {
	case "memory":
		return cache.NewMemoryCache(cc), nil
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cc)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, nil
	}
}
