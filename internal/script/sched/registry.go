// Package sched backs the sequential test scheduler: registration-order
// bookkeeping, the active-descriptor stack for nested tests, and the
// single promise chain the host awaits.
//
// The chain itself lives in guest space. Storing a guest callable for
// invocation from an unrelated tick is unsafe, so each test registration
// appends its body to one running promise chain immediately; the host
// only ever observes the chain's settled state through TrackChain.
package sched

import (
	"sync"

	"github.com/dop251/goja"

	"github.com/relayhq/relay/internal/script/state"
)

// RootName labels the implicit descriptor that collects assertions made
// outside any test body.
const RootName = "(script)"

// Registry owns one run's test descriptor tree
type Registry struct {
	mu     sync.Mutex
	root   *state.TestDescriptor
	active []*state.TestDescriptor
	nextID int64
	byID   map[int64]*state.TestDescriptor
	chain  *goja.Promise
}

// NewRegistry creates a registry with the implicit root active
func NewRegistry() *Registry {
	root := state.NewTestDescriptor(RootName)
	return &Registry{
		root:   root,
		active: []*state.TestDescriptor{root},
		byID:   map[int64]*state.TestDescriptor{},
	}
}

// Register creates a descriptor under the currently active one and
// returns its id. Registration order is preserved: the result tree lists
// tests in the order test() was called, regardless of completion timing.
func (r *Registry) Register(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := state.NewTestDescriptor(name)
	parent := r.active[len(r.active)-1]
	parent.Children = append(parent.Children, d)
	r.nextID++
	r.byID[r.nextID] = d
	return r.nextID
}

// Enter pushes the descriptor onto the active stack
func (r *Registry) Enter(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byID[id]; ok {
		r.active = append(r.active, d)
	}
}

// Leave pops the descriptor, recording errMessage as a failing outcome
// first if the body threw. The descriptor is frozen afterwards: a stray
// continuation can no longer alter it.
func (r *Registry) Leave(id int64, errMessage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return
	}
	if errMessage != "" {
		d.Record(state.StatusFail, errMessage)
	}
	d.Freeze()
	if len(r.active) > 1 && r.active[len(r.active)-1] == d {
		r.active = r.active[:len(r.active)-1]
	}
}

// Active returns the descriptor assertions currently record onto
func (r *Registry) Active() *state.TestDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[len(r.active)-1]
}

// Record adds an outcome to the active descriptor
func (r *Registry) Record(status, message string) {
	r.Active().Record(status, message)
}

// TrackChain remembers the newest link of the guest's promise chain
func (r *Registry) TrackChain(p *goja.Promise) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chain = p
}

// ChainSettled reports whether the promise chain has fully settled.
// True when no test was ever registered.
func (r *Registry) ChainSettled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chain == nil {
		return true
	}
	return r.chain.State() != goja.PromiseStatePending
}

// Tests returns the top-level descriptor list. Assertions recorded
// outside any test surface as a leading implicit entry.
func (r *Registry) Tests() []*state.TestDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	tests := r.root.Children
	if len(r.root.Outcomes) == 0 {
		return tests
	}
	implicit := state.NewTestDescriptor(RootName)
	implicit.Outcomes = append(implicit.Outcomes, r.root.Outcomes...)
	return append([]*state.TestDescriptor{implicit}, tests...)
}
