// Package hooks runs the shell snippets configured around the build.
package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Runner executes hook snippets with the embedded POSIX shell. Each phase
// gets a fresh shell, so variables set by one snippet are visible to the
// next snippet of the same phase but not across phases.
type Runner struct {
	Dir    string
	Env    map[string]string
	Stdout io.Writer
	Stderr io.Writer
}

func (r *Runner) environ() expand.Environ {
	envVars := os.Environ()
	for name, value := range r.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", name, value))
	}
	return expand.ListEnviron(envVars...)
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}

// Run executes the snippets one after another, stopping at the first
// failure.
func (r *Runner) Run(ctx context.Context, phase string, snippets []string) error {
	if len(snippets) == 0 {
		return nil
	}

	runner, err := interp.New(
		interp.Dir(r.Dir),
		interp.Env(r.environ()),
		interp.StdIO(nil, r.stdout(), r.stderr()),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "Failed to initialize the hook shell")
	}

	parser := syntax.NewParser()
	for idx, snippet := range snippets {
		name := fmt.Sprintf("%s[%d]", phase, idx)

		file, err := parser.Parse(strings.NewReader(snippet), name)
		if err != nil {
			return eris.Wrapf(err, "Failed to parse hook %s", name)
		}

		zerolog.Ctx(ctx).Info().Str("hook", name).Msg(snippet)
		err = runner.Run(ctx, file)
		if err != nil {
			return eris.Wrapf(err, "Hook %s failed", name)
		}

		if runner.Exited() {
			return nil
		}
	}

	return nil
}

// ExitCode extracts the shell status from a failed hook run, or -1 if the
// hook never produced one.
func ExitCode(err error) int {
	if status, ok := interp.IsExitStatus(err); ok {
		return int(status)
	}
	return -1
}
