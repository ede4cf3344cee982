// Package appstate wires together the Store, LogRing, ProxyForwarder and the
// active-profile pointer shared across every request handler.
package appstate

import (
	"sync"

	"github.com/eeu479/proxyman-helper/internal/logring"
	"github.com/eeu479/proxyman-helper/internal/proxyfwd"
	"github.com/eeu479/proxyman-helper/internal/store"
	"github.com/tevino/abool"
)

// State is the dependency set every API and dispatch handler closes over.
type State struct {
	Store     *store.Store
	Logs      *logring.Ring
	Forwarder *proxyfwd.Forwarder
	Ready     *abool.AtomicBool

	activeMu      sync.Mutex
	activeProfile string
}

// New constructs State and primes the active-profile pointer from the
// persisted document.
func New(st *store.Store) *State {
	doc := st.Read()
	s := &State{
		Store:     st,
		Logs:      logring.New(),
		Forwarder: proxyfwd.New(),
		Ready:     abool.New(),
	}
	if doc.ActiveProfile != nil {
		s.activeProfile = *doc.ActiveProfile
	}
	s.Ready.Set()
	return s
}

// ActiveProfile returns the current active profile name, or "" if unset.
func (s *State) ActiveProfile() string {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return s.activeProfile
}

// SetActiveProfile updates the in-memory active-profile pointer. Callers are
// responsible for also persisting it via Store.Mutate.
func (s *State) SetActiveProfile(name string) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.activeProfile = name
}

