// Package cache stores computed statuses keyed by (person, reference date).
//
// A cached status is only valid for the exact date it was computed for and
// for the trip set it was computed from, so writers must call Invalidate on
// every trip create, edit or delete. Invalidate also advances the person's
// generation: a reader takes the generation before loading trips and Set
// refuses the write if it moved, so a status computed from a superseded trip
// set is never stored.
package cache

import (
	"context"
	"sync"
	"time"

	"sojourn/internal/compliance"
	id "sojourn/pkg/domain"
)

type entry struct {
	status    compliance.Status
	expiresAt time.Time
}

type bucket struct {
	generation uint64
	dates      map[id.Date]entry
}

// Memory is a process-local status cache.
type Memory struct {
	mu      sync.Mutex
	persons map[id.PersonID]*bucket
	ttl     time.Duration
	now     func() time.Time

	// issued is the last generation handed out by Invalidate. floor is the
	// generation of a person without a bucket; it is raised to issued when a
	// sweep drops buckets so a dropped generation can never be matched again.
	issued    uint64
	floor     uint64
	lastSweep time.Time
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory constructs a cache whose entries live for ttl.
func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{
		persons: make(map[id.PersonID]*bucket),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSweep = m.now()
	return m
}

func (m *Memory) Get(_ context.Context, personID id.PersonID, ref id.Date) (compliance.Status, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.persons[personID]
	if !ok {
		return compliance.Status{}, false, nil
	}
	e, ok := b.dates[ref]
	if !ok || !m.now().Before(e.expiresAt) {
		return compliance.Status{}, false, nil
	}
	return e.status, true, nil
}

// Generation returns the person's current generation.
func (m *Memory) Generation(_ context.Context, personID id.PersonID) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generationLocked(personID), nil
}

// Set stores status if the person's generation still equals generation and
// reports whether it did. Expired entries are dropped on the way.
func (m *Memory) Set(_ context.Context, personID id.PersonID, generation uint64, status compliance.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= m.ttl {
		m.sweepLocked(now)
	}
	if m.generationLocked(personID) != generation {
		return false, nil
	}

	b, ok := m.persons[personID]
	if !ok {
		b = &bucket{generation: m.floor, dates: make(map[id.Date]entry)}
		m.persons[personID] = b
	}
	dropExpired(b, now)
	b.dates[status.ReferenceDate] = entry{status: status, expiresAt: now.Add(m.ttl)}
	return true, nil
}

// Invalidate drops every cached date of the person and advances its generation.
func (m *Memory) Invalidate(_ context.Context, personID id.PersonID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
	m.persons[personID] = &bucket{generation: m.issued, dates: make(map[id.Date]entry)}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.persons {
		n += len(b.dates)
	}
	return n
}

func (m *Memory) generationLocked(personID id.PersonID) uint64 {
	if b, ok := m.persons[personID]; ok {
		return b.generation
	}
	return m.floor
}

// sweepLocked drops expired entries and empty buckets.
func (m *Memory) sweepLocked(now time.Time) {
	dropped := false
	for personID, b := range m.persons {
		dropExpired(b, now)
		if len(b.dates) == 0 {
			delete(m.persons, personID)
			dropped = true
		}
	}
	if dropped {
		m.floor = m.issued
	}
	m.lastSweep = now
}

func dropExpired(b *bucket, now time.Time) {
	for ref, e := range b.dates {
		if !now.Before(e.expiresAt) {
			delete(b.dates, ref)
		}
	}
}
