// Package session implements server-side sessions keyed by an opaque
// identifier carried in a client cookie. The record itself stays on the
// server; the browser only ever sees the random ID.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/campusdesk-dev/campusdesk/internal/cache"
)

// ErrNotFound is returned when no session exists for the given ID
var ErrNotFound = errors.New("session not found")

// UserEntry is the user identity stored inside a session after login.
// LoginType distinguishes how the session was established; only
// "password" sessions pass authentication.
type UserEntry struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	LoginType string `json:"login_type"`
}

// Record is the server-held session state
type Record struct {
	User      *UserEntry `json:"user,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Store persists session records in a cache with the configured TTL
type Store struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewStore creates a session store on top of a cache backend
func NewStore(c cache.Cache, ttl time.Duration) *Store {
	return &Store{cache: c, ttl: ttl}
}

// TTL returns the configured session lifetime
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create stores a new session for the given user entry and returns the
// generated session ID
func (s *Store) Create(entry UserEntry) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}

	record := Record{
		User:      &entry,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.put(id, &record); err != nil {
		return "", err
	}
	return id, nil
}

// Get loads the session record for the given ID
func (s *Store) Get(id string) (*Record, error) {
	raw, ok := s.cache.Get(sessionKey(id))
	if !ok {
		return nil, ErrNotFound
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &record, nil
}

// ClearUser removes the user entry from a session, forcing re-login on
// the next authenticated request. The session record itself survives so
// concurrent requests fail with a clean 401 instead of a decode error.
func (s *Store) ClearUser(id string) error {
	record, err := s.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if record.User == nil {
		return nil
	}

	record.User = nil
	return s.put(id, record)
}

// Delete removes the session record entirely
func (s *Store) Delete(id string) {
	s.cache.Delete(sessionKey(id))
}

func (s *Store) put(id string, record *Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	s.cache.Set(sessionKey(id), raw, s.ttl)
	return nil
}

// newSessionID generates an opaque session ID (64 hex characters = 32
// bytes of randomness)
func newSessionID() (string, error) {
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}
	return hex.EncodeToString(idBytes), nil
}

func sessionKey(id string) string {
	return "session:" + id
}
