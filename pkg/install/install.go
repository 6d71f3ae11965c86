package install

import (
	"context"
	"path/filepath"

	"github.com/eupsci/eupsbuild/pkg/buildenv"
	"github.com/eupsci/eupsbuild/pkg/target"
)

// InstallProduct dispatches each directory to the right installer: the ups
// metadata directory gets the EUPS treatment (template expansion included)
// while everything else is a plain recursive copy. All produced targets are
// attached to the install alias and the prefix is registered for clean.
func InstallProduct(ctx context.Context, env *buildenv.Env, graph *target.Graph, prefix string, dirs []string, ignoreRegex string, presetup map[string]string) ([]*target.Target, error) {
	results := make([]*target.Target, 0, len(dirs))
	graph.Alias("install")

	for _, dir := range dirs {
		// without eups the .build and .table files are not expanded
		if dir == "ups" && !env.NoEups {
			targets, err := InstallEups(ctx, env, graph, filepath.Join(prefix, "ups"), nil, presetup)
			if err != nil {
				return nil, err
			}

			for _, t := range targets {
				graph.Alias("install", t.Name)
			}
			results = append(results, targets...)
			continue
		}

		t, err := InstallDir(ctx, env, graph, prefix, dir, ignoreRegex, true)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}

		graph.Alias("install", t.Name)
		results = append(results, t)
	}

	graph.Clean("install", prefix)
	return results, nil
}
