// Package config loads countrymap settings from a TOML file and the
// environment.
//
// Settings are resolved in increasing priority:
//
//  1. built-in defaults (see [Default])
//  2. countrymap.toml in the working directory, or
//     $XDG_CONFIG_HOME/countrymap/countrymap.toml
//  3. COUNTRYMAP_* environment variables, including those from a .env file
//  4. command-line flags, applied by the caller
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/countrymap/pkg/colorscale"
	"github.com/matzehuels/countrymap/pkg/errors"
	"github.com/matzehuels/countrymap/pkg/pipeline"
	"github.com/matzehuels/countrymap/pkg/session"
)

// FileName is the config file searched for by [Find].
const FileName = "countrymap.toml"

const appName = "countrymap"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Session store backends.
const (
	SessionMemory = "memory"
	SessionFile   = "file"
	SessionRedis  = "redis"
	SessionMongo  = "mongo"
)

// Config is the full set of settings.
type Config struct {
	Metrics  string `toml:"metrics"`
	Features string `toml:"features"`

	Render  RenderConfig  `toml:"render"`
	Server  ServerConfig  `toml:"server"`
	Cache   CacheConfig   `toml:"cache"`
	Session SessionConfig `toml:"session"`
	Redis   RedisConfig   `toml:"redis"`
	Mongo   MongoConfig   `toml:"mongo"`
}

// RenderConfig holds the map's appearance.
type RenderConfig struct {
	Width    int      `toml:"width"`
	Height   int      `toml:"height"`
	Scale    float64  `toml:"scale"`
	Rotate   *float64 `toml:"rotate"`
	Low      string   `toml:"low"`
	High     string   `toml:"high"`
	Fallback string   `toml:"fallback"`
	Clamp    bool     `toml:"clamp"`
	Legend   bool     `toml:"legend"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	// Metrics enables the Prometheus endpoint at /metrics.
	Metrics bool `toml:"metrics"`
}

// CacheConfig selects the document and artifact cache.
type CacheConfig struct {
	Backend string `toml:"backend"`
	// Dir is the file cache directory. Empty means the XDG cache dir.
	Dir string `toml:"dir"`
	// Namespace prefixes every cache key, so deployments sharing one
	// Redis do not read each other's documents.
	Namespace string `toml:"namespace"`
}

// SessionConfig selects where per-browser widget state lives.
type SessionConfig struct {
	Backend string        `toml:"backend"`
	Dir     string        `toml:"dir"`
	TTL     time.Duration `toml:"ttl"`
}

// RedisConfig is shared by the Redis cache and session store.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// MongoConfig configures the MongoDB session store.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Metrics:  pipeline.DefaultMetricsSource,
		Features: pipeline.DefaultFeaturesSource,
		Render: RenderConfig{
			Width:    pipeline.DefaultWidth,
			Height:   pipeline.DefaultHeight,
			Scale:    pipeline.DefaultScale,
			Low:      colorscale.DefaultLow,
			High:     colorscale.DefaultHigh,
			Fallback: colorscale.DefaultFallback,
			Legend:   true,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			Metrics:         true,
		},
		Cache: CacheConfig{Backend: CacheFile},
		Session: SessionConfig{
			Backend: SessionMemory,
			TTL:     session.DefaultTTL,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   session.DefaultMongoDatabase,
			Collection: session.DefaultMongoCollection,
		},
	}
}

// Find returns the first config file that exists, or "" if none does.
func Find() string {
	candidates := []string{FileName}
	if dir, err := configDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, FileName))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads path over the defaults and then applies the environment. An
// empty path searches with [Find]; if nothing is found only the defaults
// and environment apply. The returned string is the file actually read.
func Load(path string) (Config, string, error) {
	cfg := Default()
	if path == "" {
		path = Find()
	}
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, path, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, path, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown key %q", path, undecoded[0].String())
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, path, err
	}
	return cfg, path, cfg.Validate()
}

// LoadDotEnv loads .env files into the process environment. Variables that
// are already set win. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// ApplyEnv overrides settings from COUNTRYMAP_* variables.
func (c *Config) ApplyEnv() error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv("COUNTRYMAP_" + name); ok && v != "" {
			*dst = v
		}
	}
	str("METRICS", &c.Metrics)
	str("FEATURES", &c.Features)
	str("ADDR", &c.Server.Addr)
	str("CACHE", &c.Cache.Backend)
	str("CACHE_DIR", &c.Cache.Dir)
	str("SESSION_STORE", &c.Session.Backend)
	str("SESSION_DIR", &c.Session.Dir)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("REDIS_PREFIX", &c.Redis.Prefix)
	str("CACHE_NAMESPACE", &c.Cache.Namespace)
	str("MONGO_URI", &c.Mongo.URI)
	str("MONGO_DATABASE", &c.Mongo.Database)

	if v := os.Getenv("COUNTRYMAP_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "COUNTRYMAP_REDIS_DB")
		}
		c.Redis.DB = db
	}
	if v := os.Getenv("COUNTRYMAP_SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "COUNTRYMAP_SESSION_TTL")
		}
		c.Session.TTL = ttl
	}
	return nil
}

// Validate checks backend names and value ranges.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case CacheFile, CacheRedis, CacheNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (must be file, redis or none)", c.Cache.Backend)
	}
	switch c.Session.Backend {
	case SessionMemory, SessionFile, SessionRedis, SessionMongo:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown session backend %q (must be memory, file, redis or mongo)", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "session ttl must be positive, got %s", c.Session.TTL)
	}
	if err := errors.ValidateSource(c.Metrics); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := errors.ValidateSource(c.Features); err != nil {
		return fmt.Errorf("features: %w", err)
	}
	return pipeline.ValidateColors(c.Render.Low, c.Render.High, c.Render.Fallback)
}

// PipelineOptions returns pipeline options seeded from the config.
func (c Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		MetricsSource:  c.Metrics,
		FeaturesSource: c.Features,
		Width:          c.Render.Width,
		Height:         c.Render.Height,
		Scale:          c.Render.Scale,
		Rotate:         c.Render.Rotate,
		Low:            c.Render.Low,
		High:           c.Render.High,
		Fallback:       c.Render.Fallback,
		Clamp:          c.Render.Clamp,
		Legend:         c.Render.Legend,
	}
}

// CacheDir returns the file cache directory (~/.cache/countrymap/ by
// default, following XDG).
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns $XDG_CONFIG_HOME/countrymap or ~/.config/countrymap.
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

