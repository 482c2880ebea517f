// Package cache stores loaded documents and rendered artifacts.
//
// The [Cache] interface is implemented by [FileCache] for the CLI,
// [RedisCache] for servers that share a cache between instances, and
// [NullCache] when caching is disabled. Keys come from a [Keyer]; wrap one
// with [NewScopedKeyer] to give a deployment its own namespace.
//
// Key shapes:
//
//	doc:<kind>:<source>               raw metrics or features document
//	artifact:<sha256(hash, opts)>     rendered output for a document pair
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A miss reports false with a nil error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// Entry lifetimes.
const (
	TTLDocument = time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

var (
	// ErrNotFound marks a document source that does not exist: a missing
	// file or an HTTP 404.
	ErrNotFound = errors.New("document not found")

	// ErrNetwork marks a document fetch that failed in transit: a refused
	// connection, a timeout or a 5xx status.
	ErrNetwork = errors.New("document unreachable")

	// ErrUnavailable is returned when a remote cache backend cannot be reached.
	ErrUnavailable = errors.New("cache unavailable")
)

// NullCache misses on every Get and drops every Set. It backs --no-cache
// and the "none" backend, so callers never need a nil check.
type NullCache struct{}

// NewNullCache returns a [NullCache].
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }
