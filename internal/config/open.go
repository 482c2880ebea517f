package config

import (
	"context"

	"github.com/matzehuels/countrymap/pkg/cache"
	"github.com/matzehuels/countrymap/pkg/session"
)

// OpenCache returns the configured cache. noCache forces a NullCache.
func (c Config) OpenCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Cache.Backend {
	case CacheNone:
		return cache.NewNullCache(), nil
	case CacheRedis:
		return cache.NewRedisCache(ctx, c.Redis.Addr, c.Redis.Password, c.Redis.DB)
	default:
		dir, err := c.CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// Keyer returns the cache keyer, scoped to Cache.Namespace if one is set.
func (c Config) Keyer() cache.Keyer {
	if c.Cache.Namespace == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, c.Cache.Namespace+":")
}

// OpenSessionStore returns the configured session store.
func (c Config) OpenSessionStore(ctx context.Context) (session.Store, error) {
	switch c.Session.Backend {
	case SessionFile:
		return session.NewFileStore(c.Session.Dir)
	case SessionRedis:
		return session.NewRedisStore(ctx, session.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		})
	case SessionMongo:
		return session.NewMongoStore(ctx, session.MongoConfig{
			URI:        c.Mongo.URI,
			Database:   c.Mongo.Database,
			Collection: c.Mongo.Collection,
		})
	default:
		return session.NewMemoryStore(), nil
	}
}
