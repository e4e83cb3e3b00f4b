// Package markers provides short-lived correlation markers for the
// scheduling reconciler: a pending-booking marker bridges the gap between
// the synchronous booking request and the provider's invitee.created
// webhook, and a cancellation marker lets a cancel followed quickly by a
// recreate be recognised as a reschedule. Markers live in process memory;
// a horizontally scaled deployment would need a shared marker store.
package markers

import (
	"context"
	"sync"
	"time"
)

// PendingBooking is stored under a client-chosen correlation id while an
// appointment awaits provider confirmation.
type PendingBooking struct {
	AppointmentID string
}

// Cancellation is stored under the invitee email after invitee.canceled so
// an immediate recreate for the same email is treated as a reschedule.
type Cancellation struct {
	AppointmentID string
	EventURI      string
}

const (
	// PendingTTL bounds how long a booking may wait for its webhook.
	PendingTTL = 120 * time.Second
	// CancellationTTL bounds the cancel-then-recreate reschedule window.
	// Past it the recreate degrades to an unrelated new booking.
	CancellationTTL = time.Hour
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Store is a mutex-guarded TTL map. Expired entries are dropped lazily on
// read and swept by a janitor goroutine when Run is used.
type Store[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry[T]
}

func NewStore[T any](ttl time.Duration) *Store[T] {
	return &Store[T]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[T]),
	}
}

// Put stores value under key for the store's TTL, replacing any prior entry.
func (s *Store[T]) Put(key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[T]{value: value, expiresAt: s.now().Add(s.ttl)}
}

// Get returns the live value for key, dropping it if expired.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		var zero T
		return zero, false
	}
	return e.value, true
}

// Delete removes key if present.
func (s *Store[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len reports the number of entries, expired or not.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run sweeps expired entries every interval until ctx is cancelled.
func (s *Store[T]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep removes every expired entry.
func (s *Store[T]) Sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}
