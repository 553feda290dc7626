package leaflet

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryRegistry is an in-process ViewRegistry. Entries expire after ttl and
// the least recently used are evicted beyond size.
type MemoryRegistry struct {
	mu    sync.Mutex
	views *expirable.LRU[string, *MapView]
}

// NewMemoryRegistry creates a registry holding at most size views.
func NewMemoryRegistry(size int, ttl time.Duration) *MemoryRegistry {
	return &MemoryRegistry{views: expirable.NewLRU[string, *MapView](size, nil, ttl)}
}

func (r *MemoryRegistry) Load(_ context.Context, containerID string) (*MapView, bool) {
	return r.views.Get(containerID)
}

func (r *MemoryRegistry) LoadOrStore(_ context.Context, containerID string, v *MapView) (*MapView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.views.Get(containerID); ok {
		return existing, true
	}
	r.views.Add(containerID, v)
	return v, false
}

// Forget unbinds a container ID.
func (r *MemoryRegistry) Forget(_ context.Context, containerID string) {
	r.views.Remove(containerID)
}

// Len returns the number of bound views.
func (r *MemoryRegistry) Len() int {
	return r.views.Len()
}

var _ ViewRegistry = (*MemoryRegistry)(nil)
