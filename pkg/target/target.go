// Package target implements the small build-target graph the install
// helpers register their work with: named targets with dependencies,
// aliases, always-build markers and side-effect serialization.
package target

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
)

// Target is a single unit of work. Dest and Sources are only consulted for
// the up-to-date check; the actual work happens in Action.
type Target struct {
	// Name identifies the target; auto-generated when empty.
	Name string
	// Dest is the filesystem path the target produces.
	Dest string
	// Sources are the paths the target's output is derived from.
	Sources []string
	// Deps are names of targets that must run first.
	Deps []string
	// AlwaysBuild disables the mtime based up-to-date check. Targets whose
	// completeness can't be judged from Dest alone (directory copies,
	// in-place rewrites) set this.
	AlwaysBuild bool
	// SideEffects lists shared markers. Two targets carrying the same
	// marker are never run concurrently.
	SideEffects []string

	Action func(ctx context.Context) error
}

func (t *Target) String() string {
	return fmt.Sprintf("<Target %s -> %s>", t.Name, t.Dest)
}

// Graph collects targets and aliases before a run.
type Graph struct {
	targets map[string]*Target
	order   []string
	aliases map[string][]string
	cleans  map[string][]string
}

func NewGraph() *Graph {
	return &Graph{
		targets: make(map[string]*Target),
		aliases: make(map[string][]string),
		cleans:  make(map[string][]string),
	}
}

// Add registers a target. Targets without a name receive a generated one so
// callers can register anonymous one-off actions.
func (g *Graph) Add(t *Target) error {
	if t.Name == "" {
		t.Name = "auto#" + nanoid.New()
	}

	if _, present := g.targets[t.Name]; present {
		return eris.Errorf("target %s is already registered", t.Name)
	}
	if _, present := g.aliases[t.Name]; present {
		return eris.Errorf("target %s conflicts with an alias of the same name", t.Name)
	}

	g.targets[t.Name] = t
	g.order = append(g.order, t.Name)
	return nil
}

// Alias attaches targets to a named alias, creating it if necessary.
func (g *Graph) Alias(name string, targets ...string) {
	g.aliases[name] = append(g.aliases[name], targets...)
}

// Depends appends dependencies to an already registered target.
func (g *Graph) Depends(name string, deps ...string) error {
	t, ok := g.targets[name]
	if !ok {
		return eris.Errorf("target %s not found", name)
	}

	t.Deps = append(t.Deps, deps...)
	return nil
}

// Clean records paths that are removed when the given alias is cleaned.
func (g *Graph) Clean(alias string, paths ...string) {
	g.cleans[alias] = append(g.cleans[alias], paths...)
}

// CleanPaths returns the recorded clean paths for an alias.
func (g *Graph) CleanPaths(alias string) []string {
	return g.cleans[alias]
}

// Target looks up a registered target by name.
func (g *Graph) Target(name string) (*Target, bool) {
	t, ok := g.targets[name]
	return t, ok
}

// Targets returns all registered targets in registration order.
func (g *Graph) Targets() []*Target {
	result := make([]*Target, 0, len(g.order))
	for _, name := range g.order {
		result = append(result, g.targets[name])
	}
	return result
}

// resolve expands a name to the targets behind it: either the target itself
// or, for an alias, all attached targets.
func (g *Graph) resolve(name string) ([]*Target, error) {
	if t, ok := g.targets[name]; ok {
		return []*Target{t}, nil
	}

	members, ok := g.aliases[name]
	if !ok {
		return nil, eris.Errorf("target %s not found", name)
	}

	result := make([]*Target, 0, len(members))
	for _, member := range members {
		t, ok := g.targets[member]
		if !ok {
			return nil, eris.Errorf("alias %s refers to unknown target %s", name, member)
		}
		result = append(result, t)
	}
	return result, nil
}

// sideEffectLocks hands out one mutex per side-effect marker. The markers
// are process-wide on purpose: two graphs built in the same process still
// share the underlying resource the marker stands for.
var (
	sideEffectMu    sync.Mutex
	sideEffectLocks = make(map[string]*sync.Mutex)
)

func lockSideEffects(markers []string) func() {
	if len(markers) == 0 {
		return func() {}
	}

	// lock in a stable order to avoid deadlocks between targets sharing
	// several markers
	sorted := append([]string(nil), markers...)
	sort.Strings(sorted)

	locked := make([]*sync.Mutex, 0, len(sorted))
	for _, marker := range sorted {
		sideEffectMu.Lock()
		mu, ok := sideEffectLocks[marker]
		if !ok {
			mu = &sync.Mutex{}
			sideEffectLocks[marker] = mu
		}
		sideEffectMu.Unlock()

		mu.Lock()
		locked = append(locked, mu)
	}

	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].Unlock()
		}
	}
}
