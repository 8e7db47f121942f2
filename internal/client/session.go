// Package client implements the command-line client of the contacts API:
// the persisted login session, the HTTP API client and interactive prompts.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// DefaultSessionFile is where the shell keeps its tokens between runs.
const DefaultSessionFile = "session.json"

// Session holds the tokens of the logged-in user.
type Session struct {
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	mu   sync.Mutex
	path string
}

// NewSession returns an empty session persisted at path.
func NewSession(path string) *Session {
	return &Session{path: path}
}

// Load reads the session file. A missing file leaves the session empty.
func (s *Session) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("invalid session file %s: %w", s.path, err)
	}
	return nil
}

// Save writes the session file readable by the owner only.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Set stores a fresh token pair.
func (s *Session) Set(email, access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if email != "" {
		s.Email = email
	}
	s.AccessToken, s.RefreshToken = access, refresh
}

// Tokens returns the current access and refresh tokens.
func (s *Session) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.AccessToken, s.RefreshToken
}

// LoggedIn reports whether a refresh token is available.
func (s *Session) LoggedIn() bool {
	_, refresh := s.Tokens()
	return refresh != ""
}

// Clear forgets the tokens and removes the session file.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Email, s.AccessToken, s.RefreshToken = "", "", ""
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
