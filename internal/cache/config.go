package cache

import (
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/broadsheet/internal/model"
)

// NewFromConfig builds the layered cache described by cfg: memory, then
// disk, then Redis when an address is configured. It returns nil when
// caching is disabled. The returned close function releases the Redis
// connection and is always safe to call.
func NewFromConfig(cfg model.CacheConfig) (Cache, func() error) {
	noop := func() error { return nil }
	if !cfg.Enabled {
		return nil, noop
	}

	memTTL := cfg.MemoryTTL
	if memTTL == 0 {
		memTTL = time.Hour
	}
	layers := []Cache{NewMemoryCache(memTTL, 10*time.Minute)}

	if cfg.Dir != "" {
		diskTTL := cfg.DiskTTL
		if diskTTL == 0 {
			diskTTL = 7 * 24 * time.Hour
		}
		layers = append(layers, NewDiskCache(cfg.Dir, diskTTL))
	}

	closeFn := noop
	if cfg.RedisAddr != "" {
		rc, err := NewRedisCache(RedisConfig{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			DefaultTTL: cfg.DiskTTL,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: redis cache disabled: %v\n", err)
		} else {
			layers = append(layers, rc)
			closeFn = rc.Close
		}
	}

	return NewLayered(layers...), closeFn
}
