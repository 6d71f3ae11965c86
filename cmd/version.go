package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eupsci/eupsbuild/pkg/install"
)

var versionCmd = &cobra.Command{
	Use:   "version [key=value ...]",
	Short: "Prints the resolved product version",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := setup(cmd, args, false, false)
		if err != nil {
			return err
		}

		fmt.Println(bc.env.Version)

		if fingerprint := install.Fingerprint(bc.ctx, bc.env.VersionString); fingerprint != "" {
			fmt.Println(fingerprint)
		}
		return nil
	},
}

var prefixCmd = &cobra.Command{
	Use:   "prefix [key=value ...]",
	Short: "Prints the resolved installation prefix",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := setup(cmd, args, false, false)
		if err != nil {
			return err
		}

		fmt.Println(bc.prefix)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(prefixCmd)
}
