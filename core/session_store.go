package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore binds opaque session identifiers to authenticated accounts.
// Implementations must be safe for concurrent use; atomicity is per key only.
type SessionStore interface {
	// Get returns the account bound to sessionID or ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (Account, error)
	// Put binds sessionID to account, replacing any previous binding.
	Put(ctx context.Context, sessionID string, account Account) error
	// Delete removes the binding. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, sessionID string) error
}

// NewSessionID returns a fresh, unguessable session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

type memorySession struct {
	account   Account
	expiresAt time.Time
}

// MemorySessionStore keeps session bindings in process memory.
type MemorySessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]memorySession
}

// NewMemorySessionStore creates a store whose entries expire after ttl (0 = never).
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memorySession),
	}
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (Account, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Account{}, ErrSessionNotFound
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		// Expired entries are left for Put/Delete/Sweep so Get stays read-only.
		return Account{}, ErrSessionNotFound
	}
	return entry.account, nil
}

func (s *MemorySessionStore) Put(_ context.Context, sessionID string, account Account) error {
	entry := memorySession{account: account}
	entry.account.Roles = account.Roles.Clone()
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.sessions[sessionID] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored bindings, expired ones included.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops expired bindings and returns how many were removed.
func (s *MemorySessionStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.sessions {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *MemorySessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
