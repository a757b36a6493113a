package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultMemoryEntries caps a MemoryProvider built without an explicit size.
const DefaultMemoryEntries = 1024

// MemoryProvider is an in-process Provider for single-instance deployments and tests.
// Expired entries are swept on every Set; past maxEntries the oldest write is evicted.
type MemoryProvider struct {
	mu         sync.Mutex
	data       map[string]entry
	maxEntries int
	seq        uint64
	now        func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
	seq       uint64
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryProvider creates an empty in-memory cache holding up to
// DefaultMemoryEntries entries.
func NewMemoryProvider() *MemoryProvider {
	return NewMemoryProviderSize(DefaultMemoryEntries)
}

// NewMemoryProviderSize creates an empty in-memory cache holding up to
// maxEntries entries; a non-positive size falls back to DefaultMemoryEntries.
func NewMemoryProviderSize(maxEntries int) *MemoryProvider {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	return &MemoryProvider{data: make(map[string]entry), maxEntries: maxEntries, now: time.Now}
}

// Get returns a copy of the stored bytes or ErrCacheMiss when absent or expired.
func (m *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if it.expired(m.now()) {
		delete(m.data, key)
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), it.value...), nil
}

// Set stores value; a non-positive ttl never expires.
func (m *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	if _, exists := m.data[key]; !exists {
		for len(m.data) >= m.maxEntries {
			m.evictOldest()
		}
	}

	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	m.seq++
	m.data[key] = entry{value: append([]byte(nil), value...), expiresAt: expires, seq: m.seq}
	return nil
}

// Len reports the number of stored entries, expired ones included until the next Set.
func (m *MemoryProvider) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Del removes an entry.
func (m *MemoryProvider) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Close drops all entries.
func (m *MemoryProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]entry)
	return nil
}

func (m *MemoryProvider) sweep(now time.Time) {
	for key, it := range m.data {
		if it.expired(now) {
			delete(m.data, key)
		}
	}
}

func (m *MemoryProvider) evictOldest() {
	var (
		oldestKey string
		oldestSeq uint64
		found     bool
	)
	for key, it := range m.data {
		if !found || it.seq < oldestSeq {
			oldestKey, oldestSeq, found = key, it.seq, true
		}
	}
	if found {
		delete(m.data, oldestKey)
	}
}
