package template

import "sync"

// keyedMutex hands out one mutex per vendor key, created on demand.
// Learning for one vendor never blocks learning for another; two
// documents racing on the same unseen vendor serialize behind the same
// lock. Mutexes are never removed — the vendor population is small and
// bounded by the template store.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
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
