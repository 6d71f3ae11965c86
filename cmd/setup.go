package cmd

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/eupsci/eupsbuild/pkg"
	"github.com/eupsci/eupsbuild/pkg/buildenv"
	"github.com/eupsci/eupsbuild/pkg/install"
	"github.com/eupsci/eupsbuild/pkg/product"
	"github.com/eupsci/eupsbuild/pkg/target"
)

// conventional directories installed when the product definition doesn't
// list any
var defaultInstallDirs = []string{"bin", "doc", "etc", "include", "lib", "python", "ups"}

type buildContext struct {
	ctx    context.Context
	env    *buildenv.Env
	def    *product.Definition
	prefix string
	graph  *target.Graph
	runner *target.Runner
}

func newContext(cmd *cobra.Command) context.Context {
	level := zerolog.InfoLevel
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	return buildenv.WithLogger(cmd.Context(), &logger)
}

// splitOptions separates key=value option overrides from plain arguments.
func splitOptions(args []string) ([]string, map[string]string) {
	plain := make([]string, 0, len(args))
	options := make(map[string]string)

	for _, part := range args {
		pos := strings.Index(part, "=")
		if pos > -1 {
			options[part[:pos]] = part[pos+1:]
		} else {
			plain = append(plain, part)
		}
	}

	return plain, options
}

// setup loads the product definition, applies flag overrides and resolves
// version and prefix. Every registry-facing command starts here.
func setup(cmd *cobra.Command, args []string, installing, declaring bool) (*buildContext, error) {
	ctx := newContext(cmd)

	root, err := pkg.FindProductRoot()
	if err != nil {
		return nil, err
	}

	// relative directories in the definition are resolved against the
	// product root
	err = os.Chdir(root)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to enter %s", root)
	}

	_, options := splitOptions(args)
	def, _, err := product.Load(ctx, "product.star", options)
	if err != nil {
		return nil, err
	}

	env := buildenv.New()
	env.Product = def.Name
	env.Version = def.Version
	env.VersionString = def.VersionString
	env.BaseVersion = def.BaseVersion
	env.Installing = installing
	env.Declaring = declaring

	flags := cmd.Flags()
	if value, _ := flags.GetString("version"); value != "" {
		env.Version = value
	}
	if value, _ := flags.GetString("flavor"); value != "" {
		env.Flavor = value
	}
	if value, _ := flags.GetString("prefix"); value != "" {
		env.Prefix = value
	}
	if value, _ := flags.GetString("product-path"); value != "" {
		env.ProductPath = value
	}
	if value, _ := flags.GetString("tag"); value != "" {
		env.Tag = value
	}
	env.Force, _ = flags.GetBool("force")
	env.NoEups, _ = flags.GetBool("no-eups")

	prefix, err := install.SetPrefix(ctx, env, env.VersionString, def.EupsProductPath)
	if err != nil {
		return nil, err
	}

	graph := target.NewGraph()
	runner := target.NewRunner(graph)
	runner.DryRun, _ = flags.GetBool("dry")
	runner.Force = env.Force

	return &buildContext{
		ctx:    ctx,
		env:    env,
		def:    def,
		prefix: prefix,
		graph:  graph,
		runner: runner,
	}, nil
}

// installDirs returns the directories to install: the definition's list, or
// whichever conventional directories exist.
func (bc *buildContext) installDirs() []string {
	if len(bc.def.Dirs) > 0 {
		return bc.def.Dirs
	}

	dirs := make([]string, 0, len(defaultInstallDirs))
	for _, dir := range defaultInstallDirs {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}

	sort.Strings(dirs)
	return dirs
}
