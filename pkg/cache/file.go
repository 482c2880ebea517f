package cache

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL is how long cached documents and artifacts live.
const DefaultTTL = 24 * time.Hour

// entryMagic starts every entry file. The header line is
//
//	countrymap-cache/1 <expiry unix nanos, 0 for never>
//
// followed by the raw value.
const (
	entryMagic = "countrymap-cache/1"
	entryExt   = ".entry"
)

// FileCache keeps entries as files under a directory, one subdirectory per
// key family ("doc", "artifact"). Writes go through a temp file and a
// rename so a reader never sees a half-written entry.
type FileCache struct {
	dir string
}

// NewFileCache opens the cache rooted at dir, creating it if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Get returns the entry for key. Expired and unreadable entries are removed
// and reported as misses.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	expires, data, ok := decodeEntry(raw)
	if !ok || (!expires.IsZero() && time.Now().After(expires)) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return data, true, nil
}

// Set writes data under key.
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	path := c.path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(encodeEntry(expires, data)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes key.
func (c *FileCache) Delete(_ context.Context, key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *FileCache) Close() error { return nil }

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

// Clear removes every entry and the family directories, leaving dir empty.
// It returns the number of entries removed.
func (c *FileCache) Clear() (int, error) {
	families, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, fam := range families {
		path := filepath.Join(c.dir, fam.Name())
		if !fam.IsDir() {
			if err := os.Remove(path); err != nil {
				return removed, err
			}
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return removed, err
		}
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), entryExt) {
				removed++
			}
		}
		if err := os.RemoveAll(path); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Prune removes expired and unreadable entries and returns how many it
// removed. Get already drops stale entries lazily; Prune is for sweeps.
func (c *FileCache) Prune() (int, error) {
	now := time.Now()
	removed := 0
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), entryExt) {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		expires, _, ok := decodeEntry(raw)
		if ok && (expires.IsZero() || now.Before(expires)) {
			return nil
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
		return nil
	})
	return removed, err
}

// path maps key to <dir>/<family>/<sha256(key)>.entry. The family is the
// key's first segment, so "doc:metrics:x" lands under doc/.
func (c *FileCache) path(key string) string {
	family, _, found := strings.Cut(key, ":")
	if !found || !validFamily(family) {
		family = "misc"
	}
	return filepath.Join(c.dir, family, Hash([]byte(key))+entryExt)
}

func validFamily(s string) bool {
	if s == "" || len(s) > 32 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

func encodeEntry(expires time.Time, data []byte) []byte {
	var nanos int64
	if !expires.IsZero() {
		nanos = expires.UnixNano()
	}
	header := entryMagic + " " + strconv.FormatInt(nanos, 10) + "\n"
	out := make([]byte, 0, len(header)+len(data))
	return append(append(out, header...), data...)
}

func decodeEntry(raw []byte) (expires time.Time, data []byte, ok bool) {
	header, data, found := bytes.Cut(raw, []byte("\n"))
	if !found {
		return time.Time{}, nil, false
	}
	magic, stamp, found := strings.Cut(string(header), " ")
	if !found || magic != entryMagic {
		return time.Time{}, nil, false
	}
	nanos, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return time.Time{}, nil, false
	}
	if nanos != 0 {
		expires = time.Unix(0, nanos)
	}
	return expires, data, true
}

var (
	_ Cache = (*FileCache)(nil)
	_ Cache = (*NullCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
