package staging

import "sync"

// Locks hands out per-file_id reader/writer locks. Entries are reference
// counted and dropped once no goroutine holds or waits on them.
type Locks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.RWMutex
	refs int
}

// NewLocks constructs an empty lock table.
func NewLocks() *Locks {
	return &Locks{entries: make(map[string]*lockEntry)}
}

// Lock acquires the exclusive lock for id and returns its release func.
func (l *Locks) Lock(id string) func() {
	entry := l.acquire(id)
	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.release(id, entry)
	}
}

// RLock acquires the shared lock for id and returns its release func.
func (l *Locks) RLock(id string) func() {
	entry := l.acquire(id)
	entry.mu.RLock()
	return func() {
		entry.mu.RUnlock()
		l.release(id, entry)
	}
}

// TryLock acquires the exclusive lock for id only if it is currently free.
func (l *Locks) TryLock(id string) (func(), bool) {
	entry := l.acquire(id)
	if !entry.mu.TryLock() {
		l.release(id, entry)
		return nil, false
	}
	return func() {
		entry.mu.Unlock()
		l.release(id, entry)
	}, true
}

// Len returns the number of live entries.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Locks) acquire(id string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{}
		l.entries[id] = entry
	}
	entry.refs++
	return entry
}

func (l *Locks) release(id string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, id)
	}
}
