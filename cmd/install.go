package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eupsci/eupsbuild/pkg"
	"github.com/eupsci/eupsbuild/pkg/install"
)

var installCmd = &cobra.Command{
	Use:   "install [key=value ...]",
	Short: "Installs the product into its EUPS prefix",
	Long: `Copies the product's directories into the resolved installation prefix.
The ups directory receives special treatment: its build and table templates
are expanded with the resolved version. key=value arguments override
option() defaults from product.star.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		clean, err := cmd.Flags().GetBool("clean")
		if err != nil {
			return err
		}
		if clean {
			return runClean(cmd, args)
		}

		bc, err := setup(cmd, args, true, false)
		if err != nil {
			return err
		}

		pkg.PrintTask(fmt.Sprintf("Installing %s %s into %s", bc.env.Product, bc.env.Version, bc.prefix))

		_, err = install.InstallProduct(bc.ctx, bc.env, bc.graph, bc.prefix, bc.installDirs(), bc.def.Ignore, bc.def.Presetup)
		if err != nil {
			return err
		}

		err = bc.runner.Run(bc.ctx, "install")
		if err != nil {
			return err
		}

		pkg.PrintTask("Done")
		return nil
	},
}

func init() {
	installCmd.Flags().BoolP("clean", "c", false, "Remove the installed product instead of installing it")
	rootCmd.AddCommand(installCmd)
}
