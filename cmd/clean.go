package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eupsci/eupsbuild/pkg"
	"github.com/eupsci/eupsbuild/pkg/install"
)

func runClean(cmd *cobra.Command, args []string) error {
	bc, err := setup(cmd, args, true, true)
	if err != nil {
		return err
	}

	pkg.PrintTask(fmt.Sprintf("Removing %s", bc.prefix))

	if dry, _ := cmd.Flags().GetBool("dry"); !dry {
		if err := install.CleanEups(bc.ctx, bc.prefix); err != nil {
			return err
		}
	}

	if bc.env.NoEups {
		return nil
	}

	pkg.PrintSubtask(fmt.Sprintf("Undeclaring %s", bc.env.Product))
	err = install.Declare(bc.ctx, bc.env, bc.graph, bc.prefix, nil, install.Requested{Undeclare: true})
	if err != nil {
		return err
	}

	return bc.runner.Run(bc.ctx, "undeclare")
}

var cleanCmd = &cobra.Command{
	Use:   "clean [key=value ...]",
	Short: "Removes the installed product and undeclares it",
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
