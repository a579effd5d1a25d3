// Package build drives the zig invocation that produces
// GhosttyKit.xcframework, along with the argument handling and cache
// cleanup around it.
package build

import (
	"fmt"

	"github.com/rotisserie/eris"
)

type Mode int

const (
	Debug Mode = iota
	Release
)

func (m Mode) String() string {
	if m == Release {
		return "Release"
	}
	return "Debug"
}

type Target int

const (
	Universal Target = iota
	Native
)

func (t Target) String() string {
	if t == Native {
		return "native"
	}
	return "universal"
}

// Config is the parsed command line. It is passed by value through the
// pipeline and never modified after parsing.
type Config struct {
	Mode    Mode
	Target  Target
	Clean   bool
	Verbose bool
	Deep    bool
}

// ErrHelp is returned by ParseArgs when the user asked for the usage text.
var ErrHelp = eris.New("help requested")

// UsageError is a bad command line. It maps to exit code 1.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string {
	return e.msg
}

// Usagef builds a UsageError from a format string.
func Usagef(format string, args ...any) error {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

// ParseArgs turns the raw command line into a Config. The scan is
// order-aware: --release and --debug overwrite each other and the last
// occurrence wins.
func ParseArgs(args []string) (Config, error) {
	cfg := Config{Mode: Debug, Target: Universal}

	// --help wins no matter what else is on the command line
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return cfg, ErrHelp
		}
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--release":
			cfg.Mode = Release
		case "--debug":
			cfg.Mode = Debug
		case "--target":
			if i+1 >= len(args) {
				return cfg, Usagef("--target requires a value (universal or native)")
			}
			i++
			switch args[i] {
			case "universal":
				cfg.Target = Universal
			case "native":
				cfg.Target = Native
			default:
				return cfg, Usagef("invalid target %q (expected universal or native)", args[i])
			}
		case "--clean":
			cfg.Clean = true
		case "--verbose":
			cfg.Verbose = true
		case "--deep":
			cfg.Deep = true
		default:
			return cfg, Usagef("unrecognized argument %q", args[i])
		}
	}

	return cfg, nil
}

// BuilderArgs maps the config onto zig's build flags for the xcframework
// target.
func (c Config) BuilderArgs() []string {
	args := []string{
		"build",
		"-Demit-xcframework=true",
		"-Demit-macos-app=false",
		"-Dxcframework-target=" + c.Target.String(),
	}
	if c.Mode == Release {
		args = append(args, "-Doptimize=ReleaseFast")
	}
	return args
}
