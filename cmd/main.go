package cmd

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/eupsci/eupsbuild/pkg"
)

var rootCmd = &cobra.Command{
	Use:   "eupsbuild",
	Short: "EUPS packaging helpers for product builds",
	Long: `This command bundles the EUPS conventions a product build needs:
resolving a version from the checkout, computing the installation prefix,
installing directory trees and declaring the result to eups.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Bool("debug", false, "Show debug output")
	flags.Bool("dry", false, "Print what would happen without doing it")
	flags.Bool("force", false, "Proceed even if the version can't be determined")
	flags.Bool("no-eups", false, "Disable all registry interaction")
	flags.String("prefix", "", "Explicit installation prefix (may contain %-placeholders)")
	flags.String("flavor", "", "Platform flavor (defaults to $EUPS_FLAVOR)")
	flags.String("version", "", "Explicit version override")
	flags.String("product-path", "", "Product path override inside the registry")
	flags.String("tag", "", "Registry tag applied at declare time")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pkg.PrintError(eris.ToString(err, false))
		os.Exit(1)
	}
}
