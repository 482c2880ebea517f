// Package session stores per-browser widget state for the HTTP server.
//
// Each browser that opens the map gets a [Session] holding a
// [widget.Snapshot]: its hover, query and pan/zoom position. The loaded
// dataset is shared by all sessions and never stored here.
//
// Backends implement [Store]:
//   - memory: in-process map for a single server or tests
//   - file: JSON files in a directory, for local development
//   - redis: Redis keys with native expiry, for multi-instance deployments
//   - mongo: a MongoDB collection with a TTL index
//
// # Usage
//
//	store := session.NewMemoryStore()
//
//	sess, err := session.New(session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, id)
//	switch {
//	case errors.Is(err, session.ErrExpired):
//	    // Expired within the last ExpiredRetention
//	case err != nil:
//	    return err
//	case sess == nil:
//	    // Unknown, or expired long ago
//	}
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/countrymap/pkg/widget"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("expired")
)

// Session is one browser's widget state.
type Session struct {
	ID        string          `json:"id" bson:"_id"`
	State     widget.Snapshot `json:"state" bson:"state"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" bson:"updated_at"`
	ExpiresAt time.Time       `json:"expires_at" bson:"expires_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// ExpiredRetention is how long stores keep a session past ExpiresAt, so a
// returning browser learns its session expired instead of never existing.
const ExpiredRetention = time.Hour

// retainFor is how long a store should still hold s, zero or less if it
// can be dropped.
func (s *Session) retainFor() time.Duration {
	return time.Until(s.ExpiresAt.Add(ExpiredRetention))
}

// Touch records a state change and extends the expiry by ttl.
func (s *Session) Touch(state widget.Snapshot, ttl time.Duration) {
	now := time.Now()
	s.State = state
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID. An expired session still retained
	// yields nil, ErrExpired; an unknown one yields nil, nil.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup drops sessions expired for longer than ExpiredRetention (a
	// no-op where the backend expires entries itself).
	Cleanup(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// DefaultTTL is the idle lifetime of a session.
const DefaultTTL = 2 * time.Hour

// GenerateID creates a random session ID.
func GenerateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// New creates a session in the initial widget state.
func New(ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:        id,
		State:     widget.InitialSnapshot(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
