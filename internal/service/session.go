package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fortina-rp/intake/internal/model"
)

// ErrSessionInvalid is returned when a token is unknown, revoked, or past
// its expiry. Callers cannot distinguish the three cases.
var ErrSessionInvalid = errors.New("session invalid")

// Session is an issued login session. Immutable once created; the client
// holds only the token value, never the record.
type Session struct {
	Token     string
	Username  string
	Role      model.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionStore issues, validates, and revokes opaque bearer tokens. The
// interface exists so the in-memory table can later be swapped for a
// persistent or shared backend without touching callers.
type SessionStore interface {
	// Issue creates a session for the given identity and returns its token.
	Issue(username string, role model.Role, ttl time.Duration) (string, error)
	// Validate resolves a token to its session. Expiry is checked on every
	// call; expired entries are left in place (lazy invalidation) and
	// reported as ErrSessionInvalid.
	Validate(token string) (*Session, error)
	// Revoke removes the session if present. Revoking an unknown token is
	// a no-op, so logout is idempotent.
	Revoke(token string)
	// Sweep removes expired entries and reports how many were dropped.
	Sweep() int
}

// MemorySessionStore is the process-wide session table. All access goes
// through a read-write mutex; request handlers never see the map itself.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemorySessionStore creates an empty session table.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// newToken returns 32 bytes from crypto/rand, hex encoded: 256 bits of
// entropy, unguessable regardless of how many login attempts an adversary
// can make.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (m *MemorySessionStore) Issue(username string, role model.Role, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	now := m.now()
	m.mu.Lock()
	m.sessions[token] = Session{
		Token:     token,
		Username:  username,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	m.mu.Unlock()
	return token, nil
}

func (m *MemorySessionStore) Validate(token string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[token]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionInvalid
	}
	if !m.now().Before(sess.ExpiresAt) {
		return nil, ErrSessionInvalid
	}
	return &sess, nil
}

func (m *MemorySessionStore) Revoke(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

func (m *MemorySessionStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, sess := range m.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries currently in the table, expired or not.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartSweeper launches a background compaction loop that drops expired
// sessions every interval. Validation never depends on it; the sweeper only
// bounds memory growth under long uptime. Returns when ctx is cancelled.
func StartSweeper(ctx context.Context, store SessionStore, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				logger.Debug("swept expired sessions", "removed", n)
			}
		}
	}
}
