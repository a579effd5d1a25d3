package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wangqi/ghostty/pkg/console"
	"github.com/wangqi/ghostty/pkg/envcheck"
	"github.com/wangqi/ghostty/pkg/project"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Checks the build environment without building anything",
	Long: `Runs every environment check, including the optional ones, and keeps going
past failures so you get the full picture at once.`,
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

		checker := envcheck.New()
		checker.Builder = projCfg.Builder.Command
		checker.Requires = projCfg.Requires

		console.PrintTask("Checking build environment in " + root)

		failed := 0
		for _, res := range checker.All(ctx) {
			switch {
			case res.Err == nil:
				console.PrintSubtask(fmt.Sprintf("%-16s %s", res.Name, res.Detail))
			case res.Optional:
				console.PrintWarning(fmt.Sprintf("%-16s %s", res.Name, res.Err))
			default:
				failed++
				console.PrintError(fmt.Sprintf("%-16s %s", res.Name, res.Err))
			}
		}

		if failed > 0 {
			return &envcheck.CheckError{
				Reason: fmt.Sprintf("%d required checks failed", failed),
			}
		}

		console.PrintTask("Environment is ready")
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolP("verbose", "v", false, "log at debug level")
	rootCmd.AddCommand(doctorCmd)
}
