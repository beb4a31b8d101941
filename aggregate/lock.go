package aggregate

import "sync"

type keyedLock struct {
	sync.Mutex
	holders int
}

// KeyedMutex provides mutual exclusion per key, typically an Aggregate Root
// identifier, so that at most one mutating sequence runs per Aggregate Root.
//
// Locks for keys nobody holds or waits on are released, so the KeyedMutex
// does not grow with the number of distinct keys seen.
//
// The zero value is ready to use. A KeyedMutex must not be copied after first use.
type KeyedMutex struct {
	mx    sync.Mutex
	locks map[string]*keyedLock
}

// Lock acquires the lock for the specified key, blocking until available,
// and returns the function to release it.
func (km *KeyedMutex) Lock(key string) (unlock func()) {
	km.mx.Lock()

	if km.locks == nil {
		km.locks = make(map[string]*keyedLock)
	}

	lock, ok := km.locks[key]
	if !ok {
		lock = new(keyedLock)
		km.locks[key] = lock
	}

	lock.holders++
	km.mx.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()

		km.mx.Lock()
		defer km.mx.Unlock()

		if lock.holders--; lock.holders == 0 {
			delete(km.locks, key)
		}
	}
}

func (km *KeyedMutex) size() int {
	km.mx.Lock()
	defer km.mx.Unlock()

	return len(km.locks)
}
