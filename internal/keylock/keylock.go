package keylock

import (
	"slices"
	"sync"
)

// Locker hands out one mutex per int64 key.
// Entries are reference counted and dropped once no goroutine holds or waits on them.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{locks: make(map[int64]*entry)}
}

// Lock acquires the mutexes for all keys in ascending key order and returns
// a function that releases them. Duplicate keys are locked once.
func (l *Locker) Lock(keys ...int64) (unlock func()) {
	ordered := slices.Clone(keys)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	held := make([]*entry, 0, len(ordered))
	for _, k := range ordered {
		e := l.acquire(k)
		e.mu.Lock()
		held = append(held, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				l.release(ordered[i])
			}
		})
	}
}

func (l *Locker) acquire(key int64) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) release(key int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Len returns the number of keys currently tracked.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
