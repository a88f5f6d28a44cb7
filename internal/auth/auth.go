// Package auth implements the two-account credential check and the
// in-memory session store behind the login cookie. The household has
// exactly two users; there is no registration and no roles.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/felipeimp22/persona-finances/internal/core"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator checks passwords for the two household members.
type Authenticator struct {
	hashes map[core.Person][]byte
}

// NewAuthenticator hashes the configured passwords at startup. Passwords
// come from the environment, never from the database.
func NewAuthenticator(felipePassword, carolPassword string) (*Authenticator, error) {
	hashes := make(map[core.Person][]byte, 2)
	for person, pw := range map[core.Person]string{
		core.PersonFelipe: felipePassword,
		core.PersonCarol:  carolPassword,
	} {
		if pw == "" {
			return nil, fmt.Errorf("no password configured for %s", person)
		}
		h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", person, err)
		}
		hashes[person] = h
	}
	return &Authenticator{hashes: hashes}, nil
}

// Authenticate verifies a person/password pair.
func (a *Authenticator) Authenticate(person core.Person, password string) error {
	hash, ok := a.hashes[person]
	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Session is an authenticated login.
type Session struct {
	Token     string
	Person    core.Person
	ExpiresAt time.Time
}

// SessionStore keeps sessions in memory. Restarting the server logs both
// users out, which is acceptable for a two-person household app.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create issues a new session token for a person.
func (s *SessionStore) Create(person core.Person) (Session, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return Session{}, fmt.Errorf("generate session token: %w", err)
	}

	sess := Session{
		Token:     hex.EncodeToString(buf),
		Person:    person,
		ExpiresAt: s.now().Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess, nil
}

// Lookup resolves a token to its session, dropping it when expired.
func (s *SessionStore) Lookup(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, false
	}
	if s.now().After(sess.ExpiresAt) {
		delete(s.sessions, token)
		return Session{}, false
	}
	return sess, true
}

// Revoke ends a session.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// CleanExpired removes all expired sessions and reports how many.
func (s *SessionStore) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}
