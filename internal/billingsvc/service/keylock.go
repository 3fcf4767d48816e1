package service

import "sync"

// pairLocks serializes payment processing per (user, game) key within this
// instance. The unique constraint on the purchases table stays the
// authoritative backstop across instances; this lock only keeps one
// verify-record sequence in flight locally.
type pairLocks struct {
	mu   sync.Mutex
	held map[string]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{held: make(map[string]*pairLock)}
}

// lock blocks until the key is free and returns the matching unlock func.
// Entries are dropped once the last holder releases, so the map stays
// bounded by in-flight requests.
func (l *pairLocks) lock(key string) func() {
	l.mu.Lock()
	e, ok := l.held[key]
	if !ok {
		e = &pairLock{}
		l.held[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.held, key)
		}
		l.mu.Unlock()
	}
}
