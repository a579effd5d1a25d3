// Package project locates the Ghostty checkout and reads the optional
// build configuration next to it.
package project

import (
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ConfigFile is the optional per-checkout configuration, read from the
// project root.
const ConfigFile = "xcbuild.yml"

type BuilderConfig struct {
	Command   string   `yaml:"command"`
	ExtraArgs []string `yaml:"extra_args"`
}

type HooksConfig struct {
	PreBuild  []string `yaml:"pre_build"`
	PostBuild []string `yaml:"post_build"`
}

type Config struct {
	Framework       string            `yaml:"framework"`
	Builder         BuilderConfig     `yaml:"builder"`
	Output          string            `yaml:"output"`
	CacheDirs       []string          `yaml:"cache_dirs"`
	UniversalSlices []string          `yaml:"universal_slices"`
	Requires        map[string]string `yaml:"requires"`
	Hooks           HooksConfig       `yaml:"hooks"`
}

// Defaults describes the stock Ghostty layout: zig emits
// GhosttyKit.xcframework into macos/ for the Xcode projects there.
func Defaults() Config {
	return Config{
		Framework: "GhosttyKit",
		Builder:   BuilderConfig{Command: "zig"},
		Output:    "macos",
		CacheDirs: []string{".zig-cache", "zig-out"},
		UniversalSlices: []string{
			"ios-arm64",
			"ios-arm64_x86_64-simulator",
			"macos-arm64_x86_64",
		},
	}
}

// LoadConfig reads xcbuild.yml from the project root. A missing file is
// fine, the defaults cover it.
func LoadConfig(root string) (Config, error) {
	cfg := Defaults()

	path := filepath.Join(root, ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, eris.Wrapf(err, "Could not open %s", path)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, eris.Wrapf(err, "Failed to parse %s", path)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, eris.Wrapf(err, "Invalid config in %s", path)
	}
	return cfg, nil
}

// versionedTools lists the tools the environment checker knows how to
// query for a version.
var versionedTools = map[string]bool{
	"zig":   true,
	"xcode": true,
}

func (c *Config) Validate() error {
	if c.Framework == "" {
		return eris.New("framework must not be empty")
	}
	if c.Builder.Command == "" {
		return eris.New("builder.command must not be empty")
	}

	for tool, minimum := range c.Requires {
		if !versionedTools[tool] {
			return eris.Errorf("no version probe for %q (supported: xcode, zig)", tool)
		}

		_, err := semver.NewVersion(minimum)
		if err != nil {
			return eris.Wrapf(err, "invalid minimum version %q for %s", minimum, tool)
		}
	}

	return nil
}

// BundlePath returns the location the build emits the xcframework to.
func (c *Config) BundlePath(root string) string {
	return filepath.Join(root, c.Output, c.Framework+".xcframework")
}
