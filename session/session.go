// Package session holds the identity of the logged-in user.
//
// The original client scattered ambient key-value lookups (token, username,
// user id, cached friends) across views. Here the same state lives in one
// Session value created on login, injected into whatever needs it, and
// cleared wholesale on logout.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gochat/models"
)

const sessionFileName = "session.json"

// Session is the locally held identity and credential of the current user.
type Session struct {
	Username string          `json:"username"`
	UserID   int64           `json:"user_id"`
	Token    string          `json:"token"`
	Friends  []models.Friend `json:"friends,omitempty"`
}

// Active reports whether a user is logged in.
func (s Session) Active() bool {
	return s.Username != "" && s.Token != ""
}

// Store persists the session across launches as one JSON file in the app
// data directory. All methods are safe for concurrent use.
type Store struct {
	path string

	mu      sync.RWMutex
	current Session
}

// OpenStore loads any persisted session from dataDir. A missing file is not
// an error; it just means nobody is logged in.
func OpenStore(dataDir string) (*Store, error) {
	store := &Store{path: filepath.Join(dataDir, sessionFileName)}

	raw, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	if err := json.Unmarshal(raw, &store.current); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}

	return store, nil
}

// Current returns a copy of the stored session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Begin replaces the stored session after a successful login.
func (s *Store) Begin(sess Session) error {
	if sess.Username == "" {
		return errors.New("session username is required")
	}
	if sess.Token == "" {
		return errors.New("session token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
	return s.persistLocked()
}

// SetUserID records the numeric account id once it has been resolved.
func (s *Store) SetUserID(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.UserID = id
	return s.persistLocked()
}

// CacheFriends stores the latest friend list alongside the session so the
// friends view renders immediately on next launch.
func (s *Store) CacheFriends(friends []models.Friend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Friends = friends
	return s.persistLocked()
}

// Reset clears the session on logout, removing the persisted file.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Session{}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *Store) persistLocked() error {
	raw, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	raw = append(raw, '\n')
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
