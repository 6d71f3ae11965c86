package install

import (
	"context"
	"strings"

	"github.com/eupsci/eupsbuild/pkg/buildenv"
	"github.com/eupsci/eupsbuild/pkg/execute"
	"github.com/eupsci/eupsbuild/pkg/target"
)

// Product names a (product, version) pair for declaration. Empty fields
// fall back to the build environment's product and resolved version.
type Product struct {
	Name    string
	Version string
}

// Requested mirrors which of the registry aliases the user asked for; the
// declare commands differ slightly depending on the combination.
type Requested struct {
	Current   bool
	Declare   bool
	Undeclare bool
}

// DeclareCommand renders the eups declare invocation for a product.
func DeclareCommand(env *buildenv.Env, prefix string, prod Product, current, tagged bool) []string {
	command := []string{"eups", "declare", "--force", "--flavor", env.Flavor, "--root", prefix}

	if env.EupsPath != "" {
		command = append(command, "-Z", env.EupsPath)
	}

	if prod.Version != "" {
		command = append(command, prod.Name, prod.Version)
	}

	if current {
		return append(command, "--current")
	}

	if tagged && env.Tag != "" {
		command = append(command, "--tag="+env.Tag)
	}
	return command
}

// UndeclareCommand renders the eups undeclare invocation for a product.
func UndeclareCommand(env *buildenv.Env, prod Product, current bool) []string {
	command := []string{"eups", "undeclare", "--flavor", env.Flavor, prod.Name, prod.Version}
	if current {
		command = append(command, "--current")
	}
	return command
}

func commandTarget(name string, command []string) *target.Target {
	return &target.Target{
		Name:        name,
		AlwaysBuild: true,
		Action: func(ctx context.Context) error {
			buildenv.Log(ctx).Info().Msg(strings.Join(command, " "))
			_, err := execute.Run(ctx, command, eupsCommandOptions())
			return err
		},
	}
}

// Declare registers current/declare/undeclare targets for the given
// products. Products without a name default to env.Product, products
// without a version default to the resolved env.Version.
func Declare(ctx context.Context, env *buildenv.Env, graph *target.Graph, prefix string, products []Product, req Requested) error {
	if len(products) == 0 {
		products = []Product{{}}
	}

	// make sure the aliases resolve even when no product ends up with a
	// runnable command
	if req.Undeclare {
		graph.Alias("undeclare")
	} else {
		graph.Alias("current")
		if !req.Current {
			graph.Alias("declare")
		}
	}

	for _, prod := range products {
		if prod.Name == "" {
			prod.Name = env.Product
		}
		if prod.Version == "" {
			prod.Version = env.Version
		}

		if req.Undeclare {
			if prod.Version == "" || prod.Version == "unknown" {
				env.Report.Warn(ctx, "I don't know your version; not undeclaring %s", prod.Name)
				continue
			}

			command := UndeclareCommand(env, prod, req.Current && !req.Declare)
			t := commandTarget(nameFor("undeclare", prod), command)
			if err := graph.Add(t); err != nil {
				return err
			}
			graph.Alias("undeclare", t.Name)
			continue
		}

		current := commandTarget(nameFor("current", prod),
			DeclareCommand(env, prefix, prod, true, false))
		if err := graph.Add(current); err != nil {
			return err
		}
		graph.Alias("current", current.Name)

		if !req.Current {
			// if current is also requested, that declaration covers this one
			declare := commandTarget(nameFor("declare", prod),
				DeclareCommand(env, prefix, prod, false, true))
			if err := graph.Add(declare); err != nil {
				return err
			}
			graph.Alias("declare", declare.Name)

			// tagging current presumes the product is declared
			if err := graph.Depends(current.Name, declare.Name); err != nil {
				return err
			}
		}
	}

	return nil
}

func nameFor(kind string, prod Product) string {
	return kind + ":" + prod.Name + ":" + prod.Version
}
