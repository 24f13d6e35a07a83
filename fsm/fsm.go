// fsm/fsm.go
package fsm

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Errors returned by Machine. They are caller errors, not transient
// failures: fix the key or the handler instead of retrying.
var (
	ErrUnknownState  = errors.New("unknown state")
	ErrEmptyStateKey = errors.New("empty state key")
	ErrNilHandler    = errors.New("nil state handler")
)

// Handler is the behavior of one state. OnEnter and OnExit run on
// transition, OnUpdate runs once per external tick.
type Handler interface {
	OnEnter()
	OnUpdate(dt time.Duration)
	OnExit()
}

// UpdateFunc is the per-tick callback of a function-based state.
type UpdateFunc func(dt time.Duration)

// funcState adapts optional callbacks to the Handler interface.
type funcState struct {
	enter  func()
	update UpdateFunc
	exit   func()
}

func (s *funcState) OnEnter() {
	if s.enter != nil {
		s.enter()
	}
}

func (s *funcState) OnUpdate(dt time.Duration) {
	if s.update != nil {
		s.update(dt)
	}
}

func (s *funcState) OnExit() {
	if s.exit != nil {
		s.exit()
	}
}

// Machine holds a registry of states and at most one active state.
// It performs no scheduling of its own; the owner drives it by calling
// Update once per tick and ChangeState when the logic demands it.
//
// The registry is safe for concurrent access, but callbacks run outside
// the lock. A ChangeState issued from inside a callback completes before
// the outer call returns.
type Machine struct {
	mu      sync.RWMutex
	states  map[string]Handler
	current string
}

func NewMachine() *Machine {
	return &Machine{
		states: make(map[string]Handler),
	}
}

// RegisterState adds or replaces a function-based state under key.
// Any of the callbacks may be nil. The active state is not affected,
// even when its own key is replaced.
func (m *Machine) RegisterState(key string, enter func(), update UpdateFunc, exit func()) error {
	if key == "" {
		return ErrEmptyStateKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = &funcState{enter: enter, update: update, exit: exit}
	return nil
}

// RegisterHandler adds or replaces an interface-based state under key.
func (m *Machine) RegisterHandler(key string, h Handler) error {
	if key == "" {
		return ErrEmptyStateKey
	}
	if h == nil {
		return ErrNilHandler
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = h
	return nil
}

// ChangeState transitions to the state registered under key.
// Returns ErrUnknownState for an unregistered key, leaving the current
// state untouched. Transitioning to the already-active key is a no-op.
// Otherwise the old state's OnExit runs strictly before the new state's
// OnEnter.
func (m *Machine) ChangeState(key string) error {
	m.mu.Lock()
	next, ok := m.states[key]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownState, key)
	}
	if m.current == key {
		m.mu.Unlock()
		return nil
	}
	var prev Handler
	if m.current != "" {
		prev = m.states[m.current]
	}
	m.mu.Unlock()

	if prev != nil {
		prev.OnExit()
	}

	m.mu.Lock()
	m.current = key
	m.mu.Unlock()

	next.OnEnter()
	return nil
}

// Update drives the active state's OnUpdate with the elapsed time since
// the previous tick. No-op when no state is active.
func (m *Machine) Update(dt time.Duration) {
	m.mu.RLock()
	var h Handler
	if m.current != "" {
		h = m.states[m.current]
	}
	m.mu.RUnlock()

	if h != nil {
		h.OnUpdate(dt)
	}
}

// CurrentStateKey returns the active state's key, or "" before the
// first successful transition.
func (m *Machine) CurrentStateKey() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Has reports whether a state is registered under key.
func (m *Machine) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.states[key]
	return ok
}
