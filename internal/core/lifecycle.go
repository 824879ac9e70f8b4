package core

import (
	"fmt"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"replication-agent/internal/types"
)

var lifecycleTransitions = map[types.PackageState][]types.PackageState{
	types.PackageStateBuilt:     {types.PackageStateQueued, types.PackageStateExporting, types.PackageStateDeleted},
	types.PackageStateQueued:    {types.PackageStateExporting, types.PackageStateDeleted},
	types.PackageStateExporting: {types.PackageStateDelivered, types.PackageStateFailed},
	types.PackageStateDelivered: {types.PackageStateImported, types.PackageStateDeleted, types.PackageStateFailed},
	types.PackageStateImported:  {types.PackageStateDeleted, types.PackageStateFailed},
	// a failed package goes back to the queue or is retried by the caller
	types.PackageStateFailed: {types.PackageStateQueued, types.PackageStateExporting, types.PackageStateDelivered, types.PackageStateDeleted},
}

// CanTransition reports whether a package may move from one state to another.
func CanTransition(from types.PackageState, to types.PackageState) bool {
	for _, next := range lifecycleTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Lifecycle tracks the state of every package a process touches. Deleted
// packages are forgotten.
type Lifecycle struct {
	mu     sync.Mutex
	states map[string]types.PackageState
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{states: map[string]types.PackageState{}}
}

// Track registers a package in its initial state: BUILT for packages made
// here, DELIVERED for packages received from a remote.
func (l *Lifecycle) Track(id string, state types.PackageState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states[id] = state
}

func (l *Lifecycle) State(id string) (types.PackageState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, ok := l.states[id]
	return state, ok
}

func (l *Lifecycle) Transition(id string, to types.PackageState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	from, ok := l.states[id]
	if !ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("package %s is not tracked", id))
	}
	if !CanTransition(from, to) {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("package %s cannot move from %s to %s", id, from, to))
	}
	if to == types.PackageStateDeleted {
		delete(l.states, id)
		return nil
	}
	l.states[id] = to
	return nil
}
