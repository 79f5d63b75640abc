// Package cache keeps metadata responses (jurisdictions, series, agencies,
// ...) so repeated lookups within a session do not hit the service again.
// Values and document-values responses are never cached.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("cache closed")

// Store holds response bodies by key.
type Store interface {
	// Get returns the body stored under key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores body under key. A ttl of zero keeps it until evicted.
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
	Close() error
}

type memoryEntry struct {
	body    []byte
	expires time.Time
}

// MemoryStore is an in-process Store with per-entry expiry. When MaxEntries
// is reached the entry closest to expiry is evicted.
type MemoryStore struct {
	mu         sync.Mutex
	items      map[string]memoryEntry
	maxEntries int
	closed     bool
	now        func() time.Time
}

// NewMemoryStore returns a store holding at most maxEntries bodies
// (unlimited when maxEntries <= 0).
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		items:      make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.body...), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, body []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	e := memoryEntry{body: append([]byte(nil), body...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	if _, exists := m.items[key]; !exists && m.maxEntries > 0 && len(m.items) >= m.maxEntries {
		m.evictLocked()
	}
	m.items[key] = e
	return nil
}

// evictLocked drops expired entries, or the soonest-expiring one if none
// have expired. Entries without expiry go last.
func (m *MemoryStore) evictLocked() {
	now := m.now()
	var victim string
	var victimExp time.Time
	for k, e := range m.items {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.items, k)
			continue
		}
		switch {
		case victim == "":
			victim, victimExp = k, e.expires
		case victimExp.IsZero() && !e.expires.IsZero():
			victim, victimExp = k, e.expires
		case !e.expires.IsZero() && e.expires.Before(victimExp):
			victim, victimExp = k, e.expires
		}
	}
	if len(m.items) >= m.maxEntries && victim != "" {
		delete(m.items, victim)
	}
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.items = nil
	return nil
}
