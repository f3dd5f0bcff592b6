package service

import "sync"

// gameLocks serializes commands per game ID. Commands against different
// games run concurrently; two commands against the same game never
// interleave between load and save.
type gameLocks struct {
	mu    sync.Mutex
	locks map[uint64]*gameLock
}

type gameLock struct {
	sync.Mutex
	refs int
}

func newGameLocks() *gameLocks {
	return &gameLocks{locks: make(map[uint64]*gameLock)}
}

// acquire blocks until the caller holds the lock for gameID and returns
// the release func. Lock entries are dropped once the last holder
// releases, so the map does not grow with dead games.
func (l *gameLocks) acquire(gameID uint64) func() {
	l.mu.Lock()
	gl, ok := l.locks[gameID]
	if !ok {
		gl = &gameLock{}
		l.locks[gameID] = gl
	}
	gl.refs++
	l.mu.Unlock()

	gl.Lock()
	return func() {
		gl.Unlock()
		l.mu.Lock()
		gl.refs--
		if gl.refs == 0 {
			delete(l.locks, gameID)
		}
		l.mu.Unlock()
	}
}
