// Package sync_ guards a value with a lock, so it can only be reached while the lock is held.
package sync_

import "sync"

// RWMutexed holds a value behind a sync.RWMutex.
//
// The value is handed to callbacks rather than returned, since for reference types such as maps and sets a returned
// value would escape the lock.
type RWMutexed[T any] struct {
	mu    sync.RWMutex
	value T
}

func NewRWMutexed[T any](value T) *RWMutexed[T] {
	return &RWMutexed[T]{value: value}
}

// Locked runs f with the write lock held.
func (m *RWMutexed[T]) Locked(f func(T) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return f(m.value)
}

// RLocked runs f with the read lock held. f must not modify the value.
func (m *RWMutexed[T]) RLocked(f func(T) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return f(m.value)
}

// Read runs f under the read lock and returns its result.
func Read[T any, R any](m *RWMutexed[T], f func(T) R) R {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return f(m.value)
}
