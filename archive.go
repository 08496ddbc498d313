package deltecho

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryArchive is an in-process Archive backed by a map of scope-keyed
// slices. It is the default store when no database is configured and is safe
// for concurrent use.
type MemoryArchive struct {
	mu     sync.RWMutex
	scopes map[string][]ArchivedMemory
}

// NewMemoryArchive creates an empty in-process archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{scopes: make(map[string][]ArchivedMemory)}
}

// Store implements Archive. IDs are assigned when absent.
func (a *MemoryArchive) Store(_ context.Context, mem ArchivedMemory) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if mem.ID == "" {
		mem.ID = uuid.New().String()
	}
	a.scopes[mem.Scope] = append(a.scopes[mem.Scope], mem)
	return nil
}

// Scan implements Archive, returning the scope's records oldest first.
func (a *MemoryArchive) Scan(_ context.Context, scope string) ([]ArchivedMemory, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	records := a.scopes[scope]
	out := make([]ArchivedMemory, len(records))
	copy(out, records)
	return out, nil
}

// Len returns the number of records held for a scope.
func (a *MemoryArchive) Len(scope string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.scopes[scope])
}

var _ Archive = (*MemoryArchive)(nil)
