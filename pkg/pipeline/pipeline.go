// Package pipeline wires the build stages together: environment checks,
// cache cleanup, the zig invocation and bundle verification. Stages run
// strictly in order and the first hard failure aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/wangqi/ghostty/pkg/build"
	"github.com/wangqi/ghostty/pkg/console"
	"github.com/wangqi/ghostty/pkg/envcheck"
	"github.com/wangqi/ghostty/pkg/hooks"
	"github.com/wangqi/ghostty/pkg/project"
	"github.com/wangqi/ghostty/pkg/xcframework"
)

// failureTailLines is how much of the buffered child output gets replayed
// when a non-verbose build fails.
const failureTailLines = 30

type Pipeline struct {
	Root     string
	Config   project.Config
	Checker  *envcheck.Checker
	Builder  build.Builder
	Hooks    *hooks.Runner
	Verifier *xcframework.Verifier
	Out      io.Writer
}

func New(root string, cfg project.Config) *Pipeline {
	checker := envcheck.New()
	checker.Builder = cfg.Builder.Command
	checker.Requires = cfg.Requires

	return &Pipeline{
		Root:    root,
		Config:  cfg,
		Checker: checker,
		Builder: &build.ExecBuilder{
			Dir:       root,
			Command:   cfg.Builder.Command,
			ExtraArgs: cfg.Builder.ExtraArgs,
		},
		Hooks:    &hooks.Runner{Dir: root},
		Verifier: xcframework.NewVerifier(),
		Out:      os.Stdout,
	}
}

// Summary is what a successful run reports back to the user.
type Summary struct {
	Config   build.Config
	Duration time.Duration
	Bundle   string
	Report   *xcframework.Report
}

func (s *Summary) Print() {
	console.PrintTask("Build complete")
	console.PrintSubtask(fmt.Sprintf("mode:     %s", s.Config.Mode))
	console.PrintSubtask(fmt.Sprintf("target:   %s", s.Config.Target))
	console.PrintSubtask(fmt.Sprintf("duration: %s", s.Duration.Round(time.Millisecond)))
	console.PrintSubtask(fmt.Sprintf("bundle:   %s", s.Bundle))

	for _, warning := range s.Report.Warnings {
		console.PrintWarning(warning)
	}
}

// Run drives a full build.
func (p *Pipeline) Run(ctx context.Context, cfg build.Config) (summary *Summary, err error) {
	started := time.Now()
	stage := "environment"
	defer func() {
		if err != nil {
			console.PrintError(fmt.Sprintf("%s stage failed after %s",
				stage, time.Since(started).Round(time.Millisecond)))
		}
	}()

	console.PrintTask("Checking environment")
	err = p.Checker.Run(ctx)
	if err != nil {
		return nil, err
	}
	p.Checker.Probe(ctx)

	if cfg.Clean {
		stage = "clean"
		console.PrintTask("Cleaning caches")
		err = build.Clean(ctx, p.Root, p.Config.CacheDirs)
		if err != nil {
			return nil, err
		}
	}

	stage = "build"
	err = p.runHooks(ctx, "pre_build", cfg, p.Config.Hooks.PreBuild)
	if err != nil {
		return nil, err
	}

	bundle := p.Config.BundlePath(p.Root)
	console.PrintTask(fmt.Sprintf("Building %s.xcframework (mode=%s, target=%s)",
		p.Config.Framework, cfg.Mode, cfg.Target))

	res, err := p.Builder.Invoke(ctx, cfg)
	if err != nil {
		err = &build.BuildError{ExitCode: -1, Err: err}
		return nil, err
	}
	if res.ExitCode != 0 {
		if ctx.Err() != nil {
			zerolog.Ctx(ctx).Warn().Msg("Build interrupted")
		}
		p.printFailureTail(res)
		err = &build.BuildError{ExitCode: res.ExitCode}
		return nil, err
	}

	stage = "verify"
	console.PrintTask("Verifying " + bundle)

	var expected []string
	if cfg.Target == build.Universal {
		expected = p.Config.UniversalSlices
	}

	p.Verifier.Deep = cfg.Deep
	report, err := p.Verifier.Verify(ctx, bundle, expected)
	if err != nil {
		return nil, err
	}

	err = p.runHooks(ctx, "post_build", cfg, p.Config.Hooks.PostBuild)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Config:   cfg,
		Duration: res.Duration,
		Bundle:   bundle,
		Report:   report,
	}, nil
}

func (p *Pipeline) runHooks(ctx context.Context, phase string, cfg build.Config, snippets []string) error {
	if len(snippets) == 0 {
		return nil
	}

	console.PrintTask("Running " + phase + " hooks")
	p.Hooks.Env = map[string]string{
		"GHOSTTY_BUILD_MODE":   cfg.Mode.String(),
		"GHOSTTY_BUILD_TARGET": cfg.Target.String(),
		"GHOSTTY_XCFRAMEWORK":  p.Config.BundlePath(p.Root),
	}

	err := p.Hooks.Run(ctx, phase, snippets)
	if err != nil {
		return &build.BuildError{ExitCode: hooks.ExitCode(err), Err: err}
	}
	return nil
}

func (p *Pipeline) printFailureTail(res *build.Result) {
	tail := res.Tail(failureTailLines)
	if len(tail) == 0 {
		return
	}

	console.PrintError(fmt.Sprintf("Build failed, last %d lines of output:", len(tail)))
	for _, line := range tail {
		fmt.Fprintln(p.out(), line)
	}
}

func (p *Pipeline) out() io.Writer {
	if p.Out == nil {
		return os.Stdout
	}
	return p.Out
}
