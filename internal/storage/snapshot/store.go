// Package snapshot
package snapshot

import "sync"

type Store[T any] struct {
	mu   sync.RWMutex
	data T
}

func (s *Store[T]) Set(v T) {
	s.mu.Lock()
	s.data = v
	s.mu.Unlock()
}

func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Latest holds an optional value: Get reports false until the first Set.
type Latest[T any] struct {
	mu   sync.RWMutex
	data T
	ok   bool
}

func (l *Latest[T]) Set(v T) {
	l.mu.Lock()
	l.data = v
	l.ok = true
	l.mu.Unlock()
}

func (l *Latest[T]) Clear() {
	l.mu.Lock()
	var zero T
	l.data = zero
	l.ok = false
	l.mu.Unlock()
}

func (l *Latest[T]) Get() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.data, l.ok
}
