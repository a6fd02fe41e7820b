package locks

import "sync"

// Keyed serializes read-modify-write sequences per aggregate ID. Mutations
// on distinct aggregates proceed in parallel; two callers touching the same
// order or subscription queue up behind one mutex.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *Keyed) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key and drops it once nobody is waiting.
func (k *Keyed) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if ok {
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}

// Orders and Subscriptions guard the two aggregate families.
var (
	Orders        = NewKeyed()
	Subscriptions = NewKeyed()
)
