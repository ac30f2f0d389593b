// Package dedup provides the time-bounded deduplication guard used by the
// worker to make at-least-once delivery idempotent.
package dedup

import (
	"container/list"
	"sync"
	"time"
)

// Store is the idempotency guard contract. TryClaim returns true exactly once
// per key within the TTL window; claim check-and-set is a single atomic
// operation so two in-flight deliveries for the same key cannot both win.
// Release gives a claim back so a retried delivery of the same message can
// win it again.
type Store interface {
	TryClaim(key string) bool
	Release(key string)
}

// InMemoryStore is a capacity-and-TTL-bounded claim store. When the entry
// bound is reached the least-recently-claimed entry is evicted, which weakens
// the dedup guarantee under extreme load: a duplicate may occasionally be
// reprocessed. That is an accepted tradeoff, not a contract violation.
type InMemoryStore struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = oldest claim
}

type entry struct {
	key       string
	claimedAt time.Time
}

// StoreOption configures the store
type StoreOption func(*InMemoryStore)

// WithTTL sets how long a claimed key stays claimed
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *InMemoryStore) {
		s.ttl = ttl
	}
}

// WithMaxEntries bounds the total number of live claims
func WithMaxEntries(max int) StoreOption {
	return func(s *InMemoryStore) {
		s.maxEntries = max
	}
}

// WithClock injects the time source, tests use a controllable clock
func WithClock(now func() time.Time) StoreOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

// NewInMemoryStore creates a claim store with a 10 minute TTL and a 10000
// entry bound by default.
func NewInMemoryStore(options ...StoreOption) *InMemoryStore {
	s := &InMemoryStore{
		ttl:        10 * time.Minute,
		maxEntries: 10000,
		now:        time.Now,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// TryClaim implements Store.
func (s *InMemoryStore) TryClaim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if el, ok := s.entries[key]; ok {
		e := el.Value.(*entry)
		if now.Sub(e.claimedAt) < s.ttl {
			return false
		}
		// Expired claim: the key can be won again.
		s.remove(el)
	}

	s.expireOldest(now)
	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		if oldest := s.order.Front(); oldest != nil {
			s.remove(oldest)
		}
	}

	el := s.order.PushBack(&entry{key: key, claimedAt: now})
	s.entries[key] = el
	return true
}

// Release implements Store.
func (s *InMemoryStore) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[key]; ok {
		s.remove(el)
	}
}

// Len reports the number of live claims.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// expireOldest drops entries whose TTL has elapsed. Entries are ordered by
// claim time, so expiry stops at the first live one.
func (s *InMemoryStore) expireOldest(now time.Time) {
	for el := s.order.Front(); el != nil; {
		e := el.Value.(*entry)
		if now.Sub(e.claimedAt) < s.ttl {
			return
		}
		next := el.Next()
		s.remove(el)
		el = next
	}
}

func (s *InMemoryStore) remove(el *list.Element) {
	e := el.Value.(*entry)
	s.order.Remove(el)
	delete(s.entries, e.key)
}
