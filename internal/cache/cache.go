// Package cache stores rendered HTML keyed by the digest of the input
// document. Rendering is deterministic, so a hit is always equal to a fresh
// render of the same input.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Cache stores rendered output.
type Cache interface {
	// Get returns the cached output for key. ok is false on a miss.
	Get(ctx context.Context, key string) (html string, ok bool, err error)
	Set(ctx context.Context, key, html string, ttl time.Duration) error
	Backend() string
}

// Key derives the cache key of an input document.
func Key(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

type memEntry struct {
	html    string
	expires time.Time
}

// DefaultMaxEntries bounds a MemoryCache created with a non-positive size.
const DefaultMaxEntries = 10000

// MemoryCache is an in-process Cache holding at most max entries. A zero ttl
// on Set means no expiry. When full, expired entries are swept first, then
// the oldest insertions are evicted.
type MemoryCache struct {
	mu      sync.Mutex
	entries *linkedhashmap.Map // key -> memEntry, insertion ordered
	max     int
	now     func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryCache{entries: linkedhashmap.New(), max: maxEntries, now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries.Get(key)
	if !ok {
		return "", false, nil
	}
	e := v.(memEntry)
	if m.expired(e) {
		m.entries.Remove(key)
		return "", false, nil
	}
	return e.html, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key, html string, ttl time.Duration) error {
	e := memEntry{html: html}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Re-insert so a rewritten key counts as the newest.
	m.entries.Remove(key)
	if m.entries.Size() >= m.max {
		m.sweep()
	}
	for m.entries.Size() >= m.max {
		it := m.entries.Iterator()
		if !it.First() {
			break
		}
		m.entries.Remove(it.Key())
	}
	m.entries.Put(key, e)
	return nil
}

// sweep drops every expired entry. Callers hold mu.
func (m *MemoryCache) sweep() {
	var stale []interface{}
	it := m.entries.Iterator()
	for it.Next() {
		if m.expired(it.Value().(memEntry)) {
			stale = append(stale, it.Key())
		}
	}
	for _, k := range stale {
		m.entries.Remove(k)
	}
}

func (m *MemoryCache) expired(e memEntry) bool {
	return !e.expires.IsZero() && m.now().After(e.expires)
}

func (m *MemoryCache) Backend() string { return "memory" }

// Len returns the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries.Size()
}
