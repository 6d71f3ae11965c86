package cmd

import (
	"github.com/spf13/cobra"

	"github.com/eupsci/eupsbuild/pkg/install"
)

func runDeclare(cmd *cobra.Command, args []string, req install.Requested, alias string) error {
	bc, err := setup(cmd, args, false, true)
	if err != nil {
		return err
	}

	err = install.Declare(bc.ctx, bc.env, bc.graph, bc.prefix, nil, req)
	if err != nil {
		return err
	}

	return bc.runner.Run(bc.ctx, alias)
}

var declareCmd = &cobra.Command{
	Use:   "declare [key=value ...]",
	Short: "Declares the product to eups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDeclare(cmd, args, install.Requested{Declare: true}, "declare")
	},
}

var undeclareCmd = &cobra.Command{
	Use:   "undeclare [key=value ...]",
	Short: "Removes the product's eups declaration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDeclare(cmd, args, install.Requested{Undeclare: true}, "undeclare")
	},
}

var currentCmd = &cobra.Command{
	Use:   "current [key=value ...]",
	Short: "Declares the product to eups and marks it current",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDeclare(cmd, args, install.Requested{Current: true}, "current")
	},
}

func init() {
	rootCmd.AddCommand(declareCmd)
	rootCmd.AddCommand(undeclareCmd)
	rootCmd.AddCommand(currentCmd)
}
