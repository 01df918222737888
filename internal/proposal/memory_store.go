package proposal

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	proposal  Proposal
	expiresAt time.Time
}

// MemoryStore is the single-process fallback when Redis is not configured.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, p Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now.UTC()
	}
	s.sweepLocked(now)
	s.items[p.ID] = memoryEntry{proposal: p, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[id]
	if !ok {
		return Proposal{}, ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.items, id)
		return Proposal{}, ErrNotFound
	}
	return entry.proposal, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for id, entry := range s.items {
		if !now.Before(entry.expiresAt) {
			delete(s.items, id)
		}
	}
}
