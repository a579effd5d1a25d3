package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// Result describes a finished builder run. ExitCode is the child's status;
// Output holds the combined output unless it was streamed.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Tail returns the last n lines of the captured output.
func (r *Result) Tail(n int) []string {
	output := strings.TrimRight(r.Output, "\n")
	if output == "" {
		return nil
	}

	lines := strings.Split(output, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// Builder runs the external build command. The pipeline only sees this
// interface, which keeps the real zig process out of the tests.
type Builder interface {
	Invoke(ctx context.Context, cfg Config) (*Result, error)
}

// BuildError is any failure of the build stage. It maps to exit code 2.
// ExitCode is the child's status, or -1 if it never ran properly.
type BuildError struct {
	ExitCode int
	Err      error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("Build command exited with status %d", e.ExitCode)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// ExecBuilder invokes the configured build command as a child process from
// the project root.
type ExecBuilder struct {
	Dir       string
	Command   string
	ExtraArgs []string
	Stdout    io.Writer
	Stderr    io.Writer
}

func (b *ExecBuilder) Invoke(ctx context.Context, cfg Config) (*Result, error) {
	args := append(cfg.BuilderArgs(), b.ExtraArgs...)

	proc := exec.CommandContext(ctx, b.Command, args...)
	proc.Dir = b.Dir
	// forward interrupts instead of killing the child outright so zig can
	// shut its cache down cleanly
	proc.Cancel = func() error {
		return proc.Process.Signal(os.Interrupt)
	}
	proc.WaitDelay = 5 * time.Second

	zerolog.Ctx(ctx).Debug().
		Str("dir", b.Dir).
		Msgf("Running %s %s", b.Command, strings.Join(args, " "))

	if cfg.Verbose {
		return runStreaming(proc, b.stdout(), b.stderr())
	}
	return runBuffered(proc)
}

func (b *ExecBuilder) stdout() io.Writer {
	if b.Stdout == nil {
		return os.Stdout
	}
	return b.Stdout
}

func (b *ExecBuilder) stderr() io.Writer {
	if b.Stderr == nil {
		return os.Stderr
	}
	return b.Stderr
}

func runStreaming(proc *exec.Cmd, stdout, stderr io.Writer) (*Result, error) {
	proc.Stdout = stdout
	proc.Stderr = stderr

	start := time.Now()
	err := proc.Run()
	res := &Result{Duration: time.Since(start)}
	return res, finishRun(res, proc, err)
}

func runBuffered(proc *exec.Cmd) (*Result, error) {
	var buf bytes.Buffer
	proc.Stdout = &buf
	proc.Stderr = &buf

	desc := proc.Args[0]
	if len(proc.Args) > 1 {
		desc += " " + proc.Args[1]
	}

	bar := newSpinner(desc)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				bar.Add(1)
			}
		}
	}()

	start := time.Now()
	err := proc.Run()
	res := &Result{Duration: time.Since(start)}

	close(done)
	bar.Finish()

	res.Output = buf.String()
	return res, finishRun(res, proc, err)
}

// finishRun folds the child's exit status into the result. Only failures to
// run the process at all are reported as errors.
func finishRun(res *Result, proc *exec.Cmd, err error) error {
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return nil
	}

	res.ExitCode = -1
	return eris.Wrapf(err, "Failed to run %s", proc.Args[0])
}

func newSpinner(desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetVisibility(os.Getenv("CI") != "true"),
	)
}
