package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wangqi/ghostty/pkg/build"
	"github.com/wangqi/ghostty/pkg/console"
	"github.com/wangqi/ghostty/pkg/envcheck"
	"github.com/wangqi/ghostty/pkg/pipeline"
	"github.com/wangqi/ghostty/pkg/project"
	"github.com/wangqi/ghostty/pkg/xcframework"
)

var rootCmd = &cobra.Command{
	Use:   "ghostty-build",
	Short: "Builds and verifies GhosttyKit.xcframework",
	Long: `Compiles the Ghostty core into GhosttyKit.xcframework and checks that the
produced bundle is complete. Run it from anywhere inside the checkout.

Flags:
  --release       optimized build (ReleaseFast)
  --debug         debug build (the default)
  --target <t>    universal or native (default universal)
  --clean         remove .zig-cache and zig-out before building
  --deep          also inspect the Mach-O binaries of the produced bundle
  --verbose       stream zig's output and log at debug level
  -h, --help      show this help`,
	// the build flags need an order-aware scan (--release/--debug are
	// last-wins), so cobra only routes subcommands here
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := build.ParseArgs(args)
		if err != nil {
			if eris.Is(err, build.ErrHelp) {
				return cmd.Help()
			}
			return err
		}

		ctx, stop := newContext(cmd, cfg.Verbose)
		defer stop()

		root, err := project.Root()
		if err != nil {
			return err
		}

		projCfg, err := project.LoadConfig(root)
		if err != nil {
			return err
		}

		summary, err := pipeline.New(root, projCfg).Run(ctx, cfg)
		if err != nil {
			return err
		}

		summary.Print()
		return nil
	},
}

// newContext prepares the logger and signal handling shared by all
// commands. Interrupts cancel the context so child processes get stopped
// instead of orphaned.
func newContext(cmd *cobra.Command, verbose bool) (context.Context, context.CancelFunc) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(NewConsoleWriter()).Level(level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	return logger.WithContext(ctx), stop
}

func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	console.PrintError(err.Error())

	var usageErr *build.UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(os.Stderr, "Run 'ghostty-build --help' for usage.")
	}

	if os.Getenv("GHOSTTY_BUILD_DEBUG") != "" {
		fmt.Fprint(os.Stderr, eris.ToString(err, true))
	}

	os.Exit(exitCode(err))
}

// exitCode sorts errors into the tool's contract: 1 for usage and
// environment problems, 2 for build and verification failures.
func exitCode(err error) int {
	var buildErr *build.BuildError
	var outputErr *xcframework.OutputError
	if errors.As(err, &buildErr) || errors.As(err, &outputErr) {
		return 2
	}

	var usageErr *build.UsageError
	var checkErr *envcheck.CheckError
	if errors.As(err, &usageErr) || errors.As(err, &checkErr) {
		return 1
	}

	return 1
}
