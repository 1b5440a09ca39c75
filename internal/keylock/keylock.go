// Package keylock provides per-key mutual exclusion.
//
// Work on one key is serialized while distinct keys proceed in parallel.
// Entries are reference counted and dropped once no holder or waiter remains.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock serializes callers that share a key.
type KeyLock[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// New creates an empty KeyLock.
func New[K comparable]() *KeyLock[K] {
	return &KeyLock[K]{
		entries: make(map[K]*entry),
	}
}

func (l *KeyLock[K]) acquire(key K) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}

	e.refs++

	return e
}

func (l *KeyLock[K]) release(key K, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Lock blocks until the key is held and returns the function that releases it.
func (l *KeyLock[K]) Lock(key K) (unlock func()) {
	e := l.acquire(key)
	e.mu.Lock()

	var once sync.Once

	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.release(key, e)
		})
	}
}

// TryLock acquires the key only if it is free.
func (l *KeyLock[K]) TryLock(key K) (unlock func(), ok bool) {
	e := l.acquire(key)
	if !e.mu.TryLock() {
		l.release(key, e)

		return nil, false
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.release(key, e)
		})
	}, true
}

// WithLock runs fn while holding the key.
func (l *KeyLock[K]) WithLock(key K, fn func()) {
	unlock := l.Lock(key)
	defer unlock()

	fn()
}

// Len returns the number of keys currently held or awaited.
func (l *KeyLock[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}
