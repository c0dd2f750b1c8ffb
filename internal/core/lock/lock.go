// Package lock serializes concurrent logical operations that target the
// same resource key inside one process. Combined with the store's
// busy_timeout this keeps two callers writing the same session from
// interleaving transactions and keeps ordering deterministic. It does not
// protect against a second process writing concurrently; that is the
// store's native locking plus the retry wrapper.
package lock

import "sync"

// WriteKey serializes all writers against the store
const WriteKey = "database_write"

// SessionKey returns the coordinator key for a single session
func SessionKey(sessionID string) string {
	return "session_" + sessionID
}

// Mutex is a keyed mutual-exclusion primitive. Waiters on the same key are
// FIFO: each acquirer queues behind the previous holder's release channel.
type Mutex struct {
	mu    sync.Mutex
	holds map[string]chan struct{}
}

// NewMutex creates an empty coordinator. Construct one per process and
// inject it; tests construct a fresh instance per test.
func NewMutex() *Mutex {
	return &Mutex{holds: make(map[string]chan struct{})}
}

// Acquire blocks until any existing hold on key is released, installs a new
// hold, and returns the release function. Callers must release exactly once.
func (m *Mutex) Acquire(key string) func() {
	done := make(chan struct{})

	m.mu.Lock()
	prev := m.holds[key]
	m.holds[key] = done
	m.mu.Unlock()

	if prev != nil {
		<-prev
	}

	return func() {
		m.mu.Lock()
		if m.holds[key] == done {
			delete(m.holds, key)
		}
		m.mu.Unlock()
		close(done)
	}
}

// WithLock runs fn while holding key, releasing on success, error, or panic.
func (m *Mutex) WithLock(key string, fn func() error) error {
	release := m.Acquire(key)
	defer release()
	return fn()
}

// IsLocked reports whether key is currently held or queued
func (m *Mutex) IsLocked(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.holds[key]
	return ok
}

// ActiveLockCount returns the number of keys with a hold installed
func (m *Mutex) ActiveLockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.holds)
}

// Stats is a snapshot of coordinator state for observability
type Stats struct {
	ActiveLocks   int
	IsWriteLocked bool
}

// LockStats returns current lock usage
func (m *Mutex) LockStats() Stats {
	return Stats{
		ActiveLocks:   m.ActiveLockCount(),
		IsWriteLocked: m.IsLocked(WriteKey),
	}
}
