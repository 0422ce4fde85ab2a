// Package session owns the authenticated identity of the client and the
// request credentials derived from it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-dashboard/internal/store"
)

// StorageKey is the fixed name the session blob is persisted under.
const StorageKey = "authData"

// Identity is the profile returned by a successful login.
type Identity struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`

	// Profile is the raw login response, kept opaque.
	Profile json.RawMessage `json:"-"`
}

// record is the persisted form of a session.
type record struct {
	Username string          `json:"username"`
	Password string          `json:"password"`
	Profile  json.RawMessage `json:"profile,omitempty"`
}

// CredentialStore holds at most one session. The in-memory session and the
// persisted blob are updated together: the blob is written first and memory
// follows only when the write succeeded.
type CredentialStore struct {
	mu      sync.RWMutex
	current *record
	token   Token

	storage store.Store
	log     logrus.FieldLogger
}

// NewCredentialStore creates an empty CredentialStore persisting to storage.
func NewCredentialStore(storage store.Store, log logrus.FieldLogger) *CredentialStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CredentialStore{storage: storage, log: log}
}

// SetSession replaces the current session with identity and secret.
func (s *CredentialStore) SetSession(identity Identity, secret string) error {
	if identity.Username == "" {
		return fmt.Errorf("session requires a username")
	}
	rec := &record{
		Username: identity.Username,
		Password: secret,
		Profile:  identity.Profile,
	}
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Put(context.Background(), StorageKey, blob); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.current = rec
	s.token = newToken(rec.Username, rec.Password)
	return nil
}

// Clear drops the current session. The in-memory session is always dropped.
// When the blob cannot be deleted it is overwritten with an empty record,
// which Restore treats as no session. An error is returned only when
// neither write succeeded.
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.token = Token{}

	ctx := context.Background()
	err := s.storage.Delete(ctx, StorageKey)
	if err == nil {
		return nil
	}
	s.log.WithError(err).Warn("deleting persisted session failed; overwriting it")
	if perr := s.storage.Put(ctx, StorageKey, []byte("{}")); perr != nil {
		return fmt.Errorf("delete persisted session: %w", errors.Join(err, perr))
	}
	return nil
}

// Current returns the token for the current session. A session without
// token material is reported as absent.
func (s *CredentialStore) Current() (Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil || s.token.IsZero() {
		return Token{}, false
	}
	return s.token, true
}

// Username returns the name of the logged in user, or "".
func (s *CredentialStore) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return ""
	}
	return s.current.Username
}

// Restore hydrates the session from the persisted blob and reports whether
// one was recovered. An unreadable blob is deleted.
func (s *CredentialStore) Restore() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	blob, err := s.storage.Get(ctx, StorageKey)
	if errors.Is(err, store.ErrNotFound) {
		s.current = nil
		s.token = Token{}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load persisted session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(blob, &rec); err != nil || rec.Username == "" {
		s.log.Warn("discarding unreadable persisted session")
		if derr := s.storage.Delete(ctx, StorageKey); derr != nil {
			return false, fmt.Errorf("delete unreadable session: %w", derr)
		}
		s.current = nil
		s.token = Token{}
		return false, nil
	}

	s.current = &rec
	s.token = newToken(rec.Username, rec.Password)
	s.log.WithField("username", rec.Username).Debug("restored persisted session")
	return true, nil
}
