package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/github-api-cache/pkg/store"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

// MemStore is an in-memory store.Store with a controllable clock.
type MemStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     time.Time

	// Err, when set, is returned by every operation.
	Err error

	// Operation counters.
	ExistsCalls int
	GetCalls    int
	SetCalls    int
	TTLCalls    int
}

var _ store.Store = (*MemStore)(nil)

// NewMemStore creates an empty store whose clock starts at the current time.
func NewMemStore() *MemStore {
	return &MemStore{
		entries: make(map[string]memEntry),
		now:     time.Now(),
	}
}

// Now returns the store clock.
func (m *MemStore) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the store clock forward, expiring keys as it goes.
func (m *MemStore) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// SetErr makes every following operation fail with err (nil clears it).
func (m *MemStore) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Keys returns the live keys.
func (m *MemStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.entries))
	for k := range m.entries {
		if _, ok := m.lookup(k); ok {
			out = append(out, k)
		}
	}
	return out
}

// Writes returns the number of Set calls made so far.
func (m *MemStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SetCalls
}

// lookup returns a live entry; callers hold mu.
func (m *MemStore) lookup(key string) (memEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now.Before(e.expiresAt) {
		delete(m.entries, key)
		return memEntry{}, false
	}
	return e, true
}

// Exists implements store.Store.
func (m *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExistsCalls++

	if err := m.fail(ctx); err != nil {
		return false, err
	}
	_, ok := m.lookup(key)
	return ok, nil
}

// Get implements store.Store.
func (m *MemStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++

	if err := m.fail(ctx); err != nil {
		return nil, err
	}
	e, ok := m.lookup(key)
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Set implements store.Store.
func (m *MemStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++

	if err := m.fail(ctx); err != nil {
		return err
	}
	e := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now.Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// TTL implements store.Store. Like Redis, it rounds to whole seconds.
func (m *MemStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TTLCalls++

	if err := m.fail(ctx); err != nil {
		return 0, err
	}
	e, ok := m.lookup(key)
	if !ok {
		return 0, store.ErrNotFound
	}
	if e.expiresAt.IsZero() {
		return 0, nil
	}
	return e.expiresAt.Sub(m.now).Round(time.Second), nil
}

func (m *MemStore) fail(ctx context.Context) error {
	if m.Err != nil {
		return m.Err
	}
	return ctx.Err()
}
