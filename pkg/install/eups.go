package install

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aidarkhanov/nanoid"
	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"

	"github.com/eupsci/eupsbuild/pkg/buildenv"
	"github.com/eupsci/eupsbuild/pkg/execute"
	"github.com/eupsci/eupsbuild/pkg/target"
)

// sideEffectMarker serializes every eups invocation that rewrites shared
// registry metadata. The expansion commands are not safe to run in parallel
// against the same registry.
const sideEffectMarker = "eups"

// Classification partitions metadata files into the four EUPS categories.
// Every input file lands in exactly one bucket.
type Classification struct {
	Build  []string
	Table  []string
	Script []string
	Misc   []string
}

// Classify sorts candidate files by name: *.build, *.table, eupspkg*
// scripts, everything else.
func Classify(files []string) Classification {
	result := Classification{}

	for _, file := range files {
		name := filepath.Base(file)
		switch {
		case strings.HasSuffix(name, ".build"):
			result.Build = append(result.Build, file)
		case strings.HasSuffix(name, ".table"):
			result.Table = append(result.Table, file)
		case strings.HasPrefix(name, "eupspkg"):
			result.Script = append(result.Script, file)
		default:
			result.Misc = append(result.Misc, file)
		}
	}

	return result
}

// gatherMetadataFiles combines caller supplied files with everything the
// conventional ups directory holds, without duplicates.
func gatherMetadataFiles(files []string) []string {
	candidates := append([]string(nil), files...)

	for _, pattern := range []string{"ups/*.build", "ups/*.table", "ups/*.cfg", "ups/eupspkg*"} {
		matches, _ := filepath.Glob(filepath.FromSlash(pattern))
		candidates = append(candidates, matches...)
	}

	seen := make(map[string]bool, len(candidates))
	result := make([]string, 0, len(candidates))
	for _, file := range candidates {
		if !seen[file] {
			seen[file] = true
			result = append(result, file)
		}
	}

	sort.Strings(result)
	return result
}

func eupsCommandOptions() execute.Options {
	opts := execute.Options{}
	if bin := buildenv.EupsBinPath(); bin != "" {
		opts.PrependPath = []string{bin}
	}

	lockPid := os.Getenv("EUPS_LOCK_PID")
	if lockPid == "" {
		lockPid = nanoid.New()
	}
	opts.Env = []string{"EUPS_LOCK_PID=" + lockPid}

	return opts
}

// withRegistryLock runs fn while holding a shared advisory lock on the
// registry. Locking is best effort: when the lock can't be taken the
// expansion proceeds anyway with a warning.
func withRegistryLock(ctx context.Context, env *buildenv.Env, fn func() error) error {
	if env.EupsPath == "" {
		buildenv.Log(ctx).Warn().Msg("No EUPS_PATH configured; not locking")
		return fn()
	}

	lock := flock.New(filepath.Join(env.EupsPath, ".eupsbuild.lock"))
	locked, err := lock.TryRLock()
	if err != nil || !locked {
		buildenv.Log(ctx).Warn().Msgf("Unable to lock the registry at %s; proceeding without", env.EupsPath)
		return fn()
	}
	defer lock.Unlock()

	return fn()
}

func expandBuildCommand(env *buildenv.Env, file string) []string {
	command := []string{"eups", "expandbuild", "-i", "--version", env.Version}
	if env.BaseVersion != "" {
		command = append(command, "--repoversion", env.BaseVersion)
	}
	return append(command, file)
}

func expandTableCommand(presetup map[string]string, file string) []string {
	// dependencies whose version starts with "LOCAL:" point at a live
	// checkout and must not be pinned into the table
	command := []string{"eups", "expandtable", "-i", "-W", "^(?!LOCAL:)"}

	names := make([]string, 0, len(presetup))
	for name := range presetup {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		command = append(command, "--product", name+"="+presetup[name])
	}

	return append(command, file)
}

// InstallEups installs a product's registry metadata into dest: build and
// table templates, eupspkg scripts and any other files the caller passes
// in. Build and table templates are rewritten in place afterwards with the
// resolved versions. presetup overrides the versions expandtable would pick
// on its own.
func InstallEups(ctx context.Context, env *buildenv.Env, graph *target.Graph, dest string, files []string, presetup map[string]string) ([]*target.Target, error) {
	if !env.Installing {
		return nil, nil
	}

	classes := Classify(gatherMetadataFiles(files))
	targets := make([]*target.Target, 0)

	install := func(file string, expand func(string) []string) (*target.Target, error) {
		destPath := filepath.Join(dest, filepath.Base(file))

		t := &target.Target{
			Name:        "install:" + filepath.ToSlash(file),
			Dest:        destPath,
			Sources:     []string{file},
			AlwaysBuild: expand != nil,
			Action: func(ctx context.Context) error {
				if err := os.MkdirAll(dest, 0o755); err != nil {
					return eris.Wrapf(err, "failed to create %s", dest)
				}

				buildenv.Log(ctx).Info().Msgf("Copying %s to %s", file, dest)
				if err := copyFile(file, destPath); err != nil {
					return err
				}

				if expand == nil {
					return nil
				}

				return withRegistryLock(ctx, env, func() error {
					command := expand(destPath)
					buildenv.Log(ctx).Info().Msg(strings.Join(command, " "))

					_, err := execute.Run(ctx, command, eupsCommandOptions())
					return err
				})
			},
		}

		if expand != nil {
			t.SideEffects = []string{sideEffectMarker}
		}

		if err := graph.Add(t); err != nil {
			return nil, err
		}
		return t, nil
	}

	for _, file := range classes.Build {
		t, err := install(file, func(installed string) []string {
			return expandBuildCommand(env, installed)
		})
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	for _, file := range classes.Table {
		t, err := install(file, func(installed string) []string {
			return expandTableCommand(presetup, installed)
		})
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	for _, file := range append(append([]string(nil), classes.Script...), classes.Misc...) {
		t, err := install(file, nil)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	return targets, nil
}

// CleanEups removes an installed tree, typically the whole product prefix.
// Missing directories are not an error.
func CleanEups(ctx context.Context, dest string) error {
	buildenv.Log(ctx).Warn().Msgf("Removing %s", dest)

	err := os.RemoveAll(dest)
	if err != nil && !eris.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "failed to remove %s", dest)
	}
	return nil
}
