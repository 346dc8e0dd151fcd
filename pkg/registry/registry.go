package registry

import (
	"sort"
	"sync"
	"time"
)

// Entry records one task currently being polled.
type Entry struct {
	TaskID    string
	StartedAt time.Time
}

// Registry tracks active poll loops so each task has at most one.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: map[string]Entry{}}
}

// Acquire claims taskID. It returns false when another loop already holds it.
func (r *Registry) Acquire(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[taskID]; ok {
		return false
	}
	r.entries[taskID] = Entry{TaskID: taskID, StartedAt: time.Now().UTC()}
	return true
}

// Release frees taskID.
func (r *Registry) Release(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, taskID)
}

// Get retrieves an entry and a boolean indicating its presence.
func (r *Registry) Get(taskID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[taskID]
	return entry, ok
}

// Active lists the task ids being polled, sorted.
func (r *Registry) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
