package target

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/eupsci/eupsbuild/pkg/buildenv"
)

// Runner executes targets from a graph, each at most once per run.
type Runner struct {
	// DryRun logs what would happen without executing any action.
	DryRun bool
	// Force skips the up-to-date check.
	Force bool

	graph *Graph
	state map[string]bool
}

func NewRunner(graph *Graph) *Runner {
	return &Runner{
		graph: graph,
		state: make(map[string]bool),
	}
}

// Run executes the named targets (or aliases) and their dependencies.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	for _, name := range names {
		targets, err := r.graph.resolve(name)
		if err != nil {
			return err
		}

		for _, t := range targets {
			err = r.runTarget(ctx, t)
			if err != nil {
				return eris.Wrapf(err, "target %s failed", t.Name)
			}
		}
	}
	return nil
}

func (r *Runner) runTarget(ctx context.Context, t *Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done, visited := r.state[t.Name]
	if visited {
		if done {
			buildenv.Log(ctx).Debug().Msgf("Target %s already run", t.Name)
			return nil
		}
		return eris.Errorf("target %s depends on itself", t.Name)
	}
	r.state[t.Name] = false

	for _, dep := range t.Deps {
		depTarget, ok := r.graph.Target(dep)
		if !ok {
			return eris.Errorf("target %s not found (dependency of %s)", dep, t.Name)
		}

		err := r.runTarget(ctx, depTarget)
		if err != nil {
			return eris.Wrapf(err, "target %s failed due to its dependency %s", t.Name, dep)
		}
	}

	if !t.AlwaysBuild && !r.Force && r.upToDate(ctx, t) {
		buildenv.Log(ctx).Info().Str("target", t.Name).Msg("nothing to do")
		r.state[t.Name] = true
		return nil
	}

	if r.DryRun {
		buildenv.Log(ctx).Info().Str("target", t.Name).Msg("would run (dry run)")
		r.state[t.Name] = true
		return nil
	}

	if t.Action != nil {
		unlock := lockSideEffects(t.SideEffects)
		err := t.Action(ctx)
		unlock()

		if err != nil {
			return err
		}
	}

	r.state[t.Name] = true
	return nil
}

// upToDate reports whether Dest is newer than every source. Targets without
// a destination or without sources are never considered up to date.
func (r *Runner) upToDate(ctx context.Context, t *Target) bool {
	if t.Dest == "" || len(t.Sources) == 0 {
		return false
	}

	destInfo, err := os.Stat(t.Dest)
	if err != nil {
		return false
	}

	var newestInput time.Time
	for _, src := range t.Sources {
		info, err := os.Stat(src)
		if err != nil {
			buildenv.Log(ctx).Warn().Msgf("Failed to check input %s of target %s", src, t.Name)
			return false
		}

		if info.ModTime().After(newestInput) {
			newestInput = info.ModTime()
		}
	}

	return destInfo.ModTime().After(newestInput)
}
