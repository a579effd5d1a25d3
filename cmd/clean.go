package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wangqi/ghostty/pkg/build"
	"github.com/wangqi/ghostty/pkg/console"
	"github.com/wangqi/ghostty/pkg/project"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Removes the zig build caches",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		console.PrintTask("Cleaning caches")
		return build.Clean(ctx, root, projCfg.CacheDirs)
	},
}

func init() {
	cleanCmd.Flags().BoolP("verbose", "v", false, "log at debug level")
	rootCmd.AddCommand(cleanCmd)
}
