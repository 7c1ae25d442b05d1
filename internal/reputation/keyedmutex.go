package reputation

import "sync"

// keyedMutex provides one mutex per user id. Entries are reference-counted
// and removed once the last holder releases, so the map stays bounded by
// the number of in-flight operations.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

// acquire locks the mutex for the given key and returns the release
// function.
func (km *keyedMutex) acquire(key uint) func() {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[uint]*userLock)
	}
	l, ok := km.locks[key]
	if !ok {
		l = &userLock{}
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		km.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}
