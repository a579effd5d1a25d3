package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wangqi/ghostty/pkg/build"
	"github.com/wangqi/ghostty/pkg/console"
	"github.com/wangqi/ghostty/pkg/project"
	"github.com/wangqi/ghostty/pkg/xcframework"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Checks an existing GhosttyKit.xcframework without rebuilding",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := cmd.Flags().GetString("target")
		if err != nil {
			return err
		}
		deep, err := cmd.Flags().GetBool("deep")
		if err != nil {
			return err
		}
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}

		ctx, stop := newContext(cmd, verbose)
		defer stop()

		root, err := project.Root()
		if err != nil {
			return err
		}

		projCfg, err := project.LoadConfig(root)
		if err != nil {
			return err
		}

		var expected []string
		switch target {
		case "universal":
			expected = projCfg.UniversalSlices
		case "native":
		default:
			return build.Usagef("invalid target %q (expected universal or native)", target)
		}

		bundle := projCfg.BundlePath(root)
		override, err := cmd.Flags().GetString("bundle")
		if err != nil {
			return err
		}
		if override != "" {
			bundle = override
		}

		verifier := xcframework.NewVerifier()
		verifier.Deep = deep

		console.PrintTask("Verifying " + bundle)
		report, err := verifier.Verify(ctx, bundle, expected)
		if err != nil {
			return err
		}

		for _, slice := range report.Slices {
			if !slice.Present {
				continue
			}
			console.PrintSubtask(fmt.Sprintf("%-32s %s [%s]",
				slice.Identifier, slice.Platform, strings.Join(slice.Architectures, " ")))
		}
		for _, warning := range report.Warnings {
			console.PrintWarning(warning)
		}

		if len(report.Warnings) == 0 {
			console.PrintTask("Bundle looks complete")
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().String("target", "universal", "expected slice set (universal or native)")
	verifyCmd.Flags().String("bundle", "", "path to the xcframework (defaults to macos/GhosttyKit.xcframework)")
	verifyCmd.Flags().Bool("deep", false, "also read each Mach-O and compare its architectures")
	verifyCmd.Flags().BoolP("verbose", "v", false, "log at debug level")
	rootCmd.AddCommand(verifyCmd)
}
