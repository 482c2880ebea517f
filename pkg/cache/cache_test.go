package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	// DocumentKey keeps the source readable
	docKey := k.DocumentKey(KindMetrics, "https://example.com/data.json")
	if docKey != "doc:metrics:https://example.com/data.json" {
		t.Errorf("DocumentKey unexpected: %s", docKey)
	}
	if k.DocumentKey(KindFeatures, "a") == k.DocumentKey(KindMetrics, "a") {
		t.Error("Document kinds should produce different keys")
	}

	// ArtifactKey should include options in hash
	ak1 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg", Width: 800})
	ak2 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "png", Width: 800})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
	ak3 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg", Width: 800, Query: "fin"})
	if ak1 == ak3 {
		t.Error("Query should be part of the artifact key")
	}
	if ak1 != k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg", Width: 800}) {
		t.Error("ArtifactKey should be deterministic")
	}
	if !strings.HasPrefix(ak1, "artifact:") {
		t.Errorf("ArtifactKey missing prefix: %s", ak1)
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "staging:")

	// All keys should be prefixed
	docKey := scoped.DocumentKey(KindFeatures, "features.json")
	if docKey != "staging:doc:features:features.json" {
		t.Errorf("ScopedKeyer DocumentKey unexpected: %s", docKey)
	}

	artifactKey := scoped.ArtifactKey("abc", ArtifactKeyOpts{})
	if !strings.HasPrefix(artifactKey, "staging:artifact:") {
		t.Errorf("ScopedKeyer ArtifactKey should be prefixed: %s", artifactKey)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.DocumentKey("test", "key")
	if key != "prefix:doc:test:key" {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Errorf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || !hit || string(data) != "value" {
		t.Errorf("Get(key) = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("short")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed from disk")
	}

	if err := c.Set(ctx, "forever", []byte("y"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("zero ttl entry should not expire")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	path := c.path("bad")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "bad"); hit || err != nil {
		t.Errorf("corrupt entry: hit %v, err %v", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, _ := NewFileCache(dir)

	for _, key := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, key, []byte(key), 0); err != nil {
			t.Fatalf("Set(%s) error: %v", key, err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("cache dir not empty after Clear: %d entries", len(entries))
	}
	if c.Dir() != dir {
		t.Errorf("Dir() = %s, want %s", c.Dir(), dir)
	}
}

func TestNewRedisCacheUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Port 1 is reserved and never has a listener in test environments.
	_, err := NewRedisCache(ctx, "127.0.0.1:1", "", 0)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("NewRedisCache error = %v, want ErrUnavailable", err)
	}
}

func TestFileCacheLayout(t *testing.T) {
	c, _ := NewFileCache(t.TempDir())

	tests := []struct {
		key    string
		family string
	}{
		{"doc:metrics:data.json", "doc"},
		{"artifact:abc", "artifact"},
		{"staging:doc:features:x", "staging"},
		{"no-colon", "misc"},
		{"../up:x", "misc"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := filepath.Base(filepath.Dir(c.path(tt.key)))
			if got != tt.family {
				t.Errorf("path(%q) family = %s, want %s", tt.key, got, tt.family)
			}
		})
	}
}

func TestEntryEncoding(t *testing.T) {
	expires := time.Unix(1700000000, 0)
	raw := encodeEntry(expires, []byte("line one\nline two"))

	got, data, ok := decodeEntry(raw)
	if !ok {
		t.Fatal("decodeEntry rejected its own encoding")
	}
	if !got.Equal(expires) {
		t.Errorf("expires = %v, want %v", got, expires)
	}
	if string(data) != "line one\nline two" {
		t.Errorf("data = %q", data)
	}

	if _, _, ok := decodeEntry([]byte("other-format 0\nx")); ok {
		t.Error("foreign header should be rejected")
	}
	never, _, ok := decodeEntry(encodeEntry(time.Time{}, nil))
	if !ok || !never.IsZero() {
		t.Errorf("zero expiry round trip = %v, %v", never, ok)
	}
}

func TestHashKeyBoundaries(t *testing.T) {
	if hashKey("k", "ab", "c") == hashKey("k", "a", "bc") {
		t.Error("hashKey should keep part boundaries")
	}
}
