package locks

import "sync"

// KeyedMutex serializes work per string key. Bid acceptance and settlement
// share one instance so that, for a given auction, bids and the closing sweep
// never interleave. Different keys proceed in parallel.
//
// Entries live for the life of the process; the key space is the set of
// auction IDs seen, which is bounded by the auction table.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use, and returns the
// matching unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
