package session

import (
	"context"
	"sync"
	"time"
)

// Store owns conversational sessions. Get never fails for a missing user: a
// default session is created lazily on first interaction. Update applies the
// mutator atomically with respect to other operations on the same user; the
// mutator may perform blocking work (backend calls), only the caller's user
// is serialized while it runs.
type Store interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Update(ctx context.Context, userID string, mutate func(*Session) error) error
	Reset(ctx context.Context, userID string) error
}

// keyedMutex hands out one mutex per key so unrelated users never contend.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// MemoryStore keeps sessions in process memory. Losing them on restart only
// forces a re-login; the backend session is the durable source of truth.
type MemoryStore struct {
	users *keyedMutex

	mu       sync.RWMutex
	sessions map[string]*Session

	nowF func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    newKeyedMutex(),
		sessions: make(map[string]*Session),
		nowF:     time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return s.clone(), nil
	}
	return m.defaultSession(userID), nil
}

func (m *MemoryStore) Update(ctx context.Context, userID string, mutate func(*Session) error) error {
	unlock := m.users.lock(userID)
	defer unlock()

	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()

	var work *Session
	if ok {
		work = s.clone()
	} else {
		work = m.defaultSession(userID)
	}

	err := mutate(work)

	// Persist even when the mutator errored: the middleware pipeline may have
	// advanced activity state before the failure.
	m.mu.Lock()
	m.sessions[userID] = work
	m.mu.Unlock()
	return err
}

func (m *MemoryStore) Reset(ctx context.Context, userID string) error {
	unlock := m.users.lock(userID)
	defer unlock()

	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) defaultSession(userID string) *Session {
	return &Session{
		UserID:         userID,
		Step:           StepIdle,
		LastActivityAt: m.nowF(),
	}
}
