package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/buildest/internal/estimate"
)

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// sweepEvery is how many creates pass between full sweeps of expired sessions.
const sweepEvery = 64

// MemoryStore keeps sessions in process memory. Expired sessions are
// dropped on access and by a sweep that runs every sweepEvery creates.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]memoryItem
	ttl     time.Duration
	now     func() time.Time
	creates int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. A zero ttl keeps sessions forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Create stores state under a fresh id.
func (m *MemoryStore) Create(ctx context.Context, state estimate.State) (string, error) {
	data, err := encode(state)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.creates%sweepEvery == 0 {
		m.sweep()
	}
	m.items[id] = memoryItem{data: data, expiresAt: m.expiry()}
	return id, nil
}

// Get returns the state stored under id, or ErrNotFound once it has expired.
func (m *MemoryStore) Get(ctx context.Context, id string) (estimate.State, error) {
	m.mu.RLock()
	item, ok := m.items[id]
	m.mu.RUnlock()

	if !ok {
		return estimate.State{}, ErrNotFound
	}
	if m.expired(item) {
		m.mu.Lock()
		// A Put may have refreshed the session since the read above.
		item, ok = m.items[id]
		if ok && m.expired(item) {
			delete(m.items, id)
			ok = false
		}
		m.mu.Unlock()
		if !ok {
			return estimate.State{}, ErrNotFound
		}
	}
	return decode(item.data)
}

// Put replaces the state of a live session and refreshes its expiry.
func (m *MemoryStore) Put(ctx context.Context, id string, state estimate.State) error {
	data, err := encode(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || m.expired(item) {
		delete(m.items, id)
		return ErrNotFound
	}
	m.items[id] = memoryItem{data: data, expiresAt: m.expiry()}
	return nil
}

// Delete removes the session, returning ErrNotFound when it is unknown.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// Len reports how many sessions are held, including expired ones not yet
// evicted.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// sweep drops every expired session. The caller holds the write lock.
func (m *MemoryStore) sweep() {
	for id, item := range m.items {
		if m.expired(item) {
			delete(m.items, id)
		}
	}
}

func (m *MemoryStore) expiry() time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(m.ttl)
}

func (m *MemoryStore) expired(item memoryItem) bool {
	return !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt)
}
