package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/matzehuels/countrymap/pkg/cache"
)

// FileStore keeps sessions as entries of a [cache.FileCache], for local
// development where no Redis or MongoDB is running. Entries expire
// ExpiredRetention after Session.ExpiresAt.
type FileStore struct {
	files *cache.FileCache
}

// NewFileStore opens a store under dir, defaulting to
// ~/.config/countrymap/sessions.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config", "countrymap", "sessions")
	}
	files, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{files: files}, nil
}

// fileKey only accepts UUIDs, so a crafted ID cannot name another entry.
func fileKey(id string) (string, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return "session:" + id, true
}

func (s *FileStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	key, ok := fileKey(sessionID)
	if !ok {
		return nil, nil
	}
	data, hit, err := s.files.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	if !hit {
		return nil, nil
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", sessionID, err)
	}
	if sess.IsExpired() {
		return nil, ErrExpired
	}
	return &sess, nil
}

// Set writes sess. A session past its retention is deleted instead.
func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	key, ok := fileKey(sess.ID)
	if !ok {
		return fmt.Errorf("%w: malformed session id %q", ErrNotFound, sess.ID)
	}
	ttl := sess.retainFor()
	if ttl <= 0 {
		return s.files.Delete(ctx, key)
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.files.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	key, ok := fileKey(sessionID)
	if !ok {
		return nil
	}
	return s.files.Delete(ctx, key)
}

// Cleanup sweeps entries past their retention from disk.
func (s *FileStore) Cleanup(ctx context.Context) error {
	_, err := s.files.Prune()
	return err
}

func (s *FileStore) Close() error { return s.files.Close() }

// Path returns the directory holding session entries.
func (s *FileStore) Path() string {
	return s.files.Dir()
}

var _ Store = (*FileStore)(nil)
