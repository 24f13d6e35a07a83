// event/registry.go
package event

import "sync"

// Unsubscriber is the teardown capability shared by every channel,
// whatever its payload type. A registry holds heterogeneous channels
// under this interface and clears them uniformly.
type Unsubscriber interface {
	UnsubscribeAll()
}

// Registry tracks the channels an owner has created so they can all be
// cleared on the owner's destroy path with one call.
type Registry struct {
	mu       sync.Mutex
	channels []Unsubscriber
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Track adds channels to the registry. Duplicates are harmless;
// UnsubscribeAll is idempotent.
func (r *Registry) Track(channels ...Unsubscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, channels...)
}

// TeardownAll clears every tracked channel and forgets them.
func (r *Registry) TeardownAll() {
	r.mu.Lock()
	channels := r.channels
	r.channels = nil
	r.mu.Unlock()

	for _, c := range channels {
		c.UnsubscribeAll()
	}
}

// Len returns the number of tracked channels.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}
