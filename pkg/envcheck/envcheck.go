// Package envcheck verifies that the host can actually produce a
// GhosttyKit build before any work starts.
package envcheck

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// CheckError is a failed environment prerequisite. It carries a
// remediation hint for the user and maps to exit code 1.
type CheckError struct {
	Check  string
	Reason string
	Hint   string
	Err    error
}

func (e *CheckError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s (%s)", e.Reason, e.Hint)
	}
	return e.Reason
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// Result is one line of a doctor report.
type Result struct {
	Name     string
	Detail   string
	Optional bool
	Err      error
}

// Checker runs the environment checks. The function fields exist so tests
// can stand in for the real host.
type Checker struct {
	GOOS     string
	Builder  string
	LookPath func(file string) (string, error)
	Output   func(ctx context.Context, name string, args ...string) (string, error)
	Requires map[string]string
}

// New returns a Checker wired to the real host.
func New() *Checker {
	return &Checker{
		GOOS:     runtime.GOOS,
		Builder:  "zig",
		LookPath: exec.LookPath,
		Output:   runOutput,
	}
}

func runOutput(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return strings.TrimSpace(string(out)), err
}

type check struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func (c *Checker) checks() []check {
	list := []check{
		{"macOS", c.checkHostOS},
		{"Xcode CLT", c.checkCommandLineTools},
		{c.Builder, c.checkBuilder},
		{"iOS SDK", c.checkDeviceSDK},
	}

	tools := make([]string, 0, len(c.Requires))
	for tool := range c.Requires {
		tools = append(tools, tool)
	}
	sort.Strings(tools)

	for _, tool := range tools {
		tool := tool
		list = append(list, check{
			name: tool + " version",
			run: func(ctx context.Context) (string, error) {
				return c.checkVersion(ctx, tool, c.Requires[tool])
			},
		})
	}

	return list
}

func (c *Checker) probes() []check {
	return []check{
		{"nix", func(ctx context.Context) (string, error) {
			path, err := c.LookPath("nix")
			if err != nil {
				return "", eris.New("not on PATH (optional, only needed for the reproducible dev shell)")
			}
			return path, nil
		}},
	}
}

// Run executes every check in order and stops at the first failure.
func (c *Checker) Run(ctx context.Context) error {
	for _, chk := range c.checks() {
		detail, err := chk.run(ctx)
		if err != nil {
			return err
		}

		zerolog.Ctx(ctx).Info().Str("check", chk.name).Msg(detail)
	}
	return nil
}

// Probe logs the state of the optional helpers. Nothing here can fail
// the build.
func (c *Checker) Probe(ctx context.Context) {
	for _, prb := range c.probes() {
		detail, err := prb.run(ctx)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Str("check", prb.name).Msg(err.Error())
			continue
		}

		zerolog.Ctx(ctx).Info().Str("check", prb.name).Msg(detail)
	}
}

// All runs every check and probe without stopping at failures. The doctor
// command builds its report from this.
func (c *Checker) All(ctx context.Context) []Result {
	results := make([]Result, 0)
	for _, chk := range c.checks() {
		detail, err := chk.run(ctx)
		results = append(results, Result{Name: chk.name, Detail: detail, Err: err})
	}

	for _, prb := range c.probes() {
		detail, err := prb.run(ctx)
		results = append(results, Result{Name: prb.name, Detail: detail, Optional: true, Err: err})
	}

	return results
}

func (c *Checker) checkHostOS(ctx context.Context) (string, error) {
	if c.GOOS != "darwin" {
		return "", &CheckError{
			Check:  "macOS",
			Reason: fmt.Sprintf("GhosttyKit can only be built on macOS, not %s", c.GOOS),
		}
	}
	return "building on macOS", nil
}

func (c *Checker) checkCommandLineTools(ctx context.Context) (string, error) {
	out, err := c.Output(ctx, "xcode-select", "-p")
	if err != nil || out == "" {
		return "", &CheckError{
			Check:  "Xcode CLT",
			Reason: "The Xcode Command Line Tools are not installed",
			Hint:   "run xcode-select --install",
			Err:    err,
		}
	}
	return out, nil
}

func (c *Checker) checkBuilder(ctx context.Context) (string, error) {
	path, err := c.LookPath(c.Builder)
	if err != nil {
		return "", &CheckError{
			Check:  c.Builder,
			Reason: fmt.Sprintf("%s is not on PATH", c.Builder),
			Hint:   "install it from https://ziglang.org/download or through the nix dev shell",
			Err:    err,
		}
	}
	return path, nil
}

func (c *Checker) checkDeviceSDK(ctx context.Context) (string, error) {
	out, err := c.Output(ctx, "xcrun", "--sdk", "iphoneos", "--show-sdk-path")
	if err != nil || out == "" {
		return "", &CheckError{
			Check:  "iOS SDK",
			Reason: "The iOS SDK is missing",
			Hint:   "install the iOS platform in Xcode under Settings > Platforms",
			Err:    err,
		}
	}
	return out, nil
}

// checkVersion compares a tool's reported version against the configured
// minimum. Prerelease builds (zig nightlies) compare the way you'd expect:
// 0.14.0-dev.2 satisfies a 0.13.0 minimum.
func (c *Checker) checkVersion(ctx context.Context, tool, minimum string) (string, error) {
	var raw string
	var err error

	switch tool {
	case "zig":
		raw, err = c.Output(ctx, c.Builder, "version")
	case "xcode":
		raw, err = c.Output(ctx, "xcodebuild", "-version")
		if err == nil {
			// first line reads "Xcode 16.2"
			fields := strings.Fields(strings.SplitN(raw, "\n", 2)[0])
			if len(fields) < 2 {
				err = eris.Errorf("unexpected xcodebuild output %q", raw)
			} else {
				raw = fields[1]
			}
		}
	default:
		return "", eris.Errorf("No version probe for %s", tool)
	}

	if err != nil {
		return "", &CheckError{
			Check:  tool,
			Reason: fmt.Sprintf("Could not determine the %s version", tool),
			Err:    err,
		}
	}

	version, err := semver.NewVersion(raw)
	if err != nil {
		return "", &CheckError{
			Check:  tool,
			Reason: fmt.Sprintf("Could not parse the %s version %q", tool, raw),
			Err:    err,
		}
	}

	want, err := semver.NewVersion(minimum)
	if err != nil {
		return "", eris.Wrapf(err, "Invalid minimum version %q for %s", minimum, tool)
	}

	if version.Compare(want) < 0 {
		return "", &CheckError{
			Check:  tool,
			Reason: fmt.Sprintf("%s %s is older than the required %s", tool, version, want),
			Hint:   "update it before building",
		}
	}

	return raw, nil
}
