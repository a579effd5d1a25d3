package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wangqi/ghostty/pkg/build"
	"github.com/wangqi/ghostty/pkg/envcheck"
	"github.com/wangqi/ghostty/pkg/project"
	"github.com/wangqi/ghostty/pkg/xcframework"
)

type fakeBuilder struct {
	invoked []build.Config
	res     *build.Result
	err     error
}

func (f *fakeBuilder) Invoke(ctx context.Context, cfg build.Config) (*build.Result, error) {
	f.invoked = append(f.invoked, cfg)
	if f.res == nil {
		return &build.Result{Duration: time.Second}, f.err
	}
	return f.res, f.err
}

func passingChecker() *envcheck.Checker {
	return &envcheck.Checker{
		GOOS:    "darwin",
		Builder: "zig",
		LookPath: func(file string) (string, error) {
			return "/opt/bin/" + file, nil
		},
		Output: func(ctx context.Context, name string, args ...string) (string, error) {
			return "/Library/Developer/CommandLineTools", nil
		},
	}
}

const manifestXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>AvailableLibraries</key>
	<array>
		<dict>
			<key>LibraryIdentifier</key>
			<string>ios-arm64</string>
			<key>LibraryPath</key>
			<string>libghostty.a</string>
			<key>SupportedArchitectures</key>
			<array>
				<string>arm64</string>
			</array>
			<key>SupportedPlatform</key>
			<string>ios</string>
		</dict>
	</array>
	<key>CFBundlePackageType</key>
	<string>XFWK</string>
	<key>XCFrameworkFormatVersion</key>
	<string>1.0</string>
</dict>
</plist>
`

// writeBundle drops a complete single-slice bundle where the pipeline
// expects the build to emit it.
func writeBundle(t *testing.T, root string, cfg project.Config) {
	t.Helper()

	bundle := cfg.BundlePath(root)
	if err := os.MkdirAll(filepath.Join(bundle, "ios-arm64"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bundle, "Info.plist"), []byte(manifestXML), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testPipeline(t *testing.T) (*Pipeline, *fakeBuilder, string) {
	t.Helper()

	root := t.TempDir()
	cfg := project.Defaults()
	// the fixture bundle has a single slice, so don't expect the full
	// universal set
	cfg.UniversalSlices = []string{"ios-arm64"}

	p := New(root, cfg)
	p.Checker = passingChecker()
	p.Out = io.Discard

	fake := &fakeBuilder{}
	p.Builder = fake
	return p, fake, root
}

func TestRunSuccess(t *testing.T) {
	p, fake, root := testPipeline(t)
	writeBundle(t, root, p.Config)

	cfg := build.Config{Mode: build.Release, Target: build.Universal}
	summary, err := p.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() returned %v", err)
	}

	if len(fake.invoked) != 1 {
		t.Fatalf("builder invoked %d times, want 1", len(fake.invoked))
	}
	if fake.invoked[0] != cfg {
		t.Errorf("builder got %+v, want %+v", fake.invoked[0], cfg)
	}

	if summary.Duration != time.Second {
		t.Errorf("Duration = %v, want the builder's measurement", summary.Duration)
	}
	if len(summary.Report.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", summary.Report.Warnings)
	}
	if summary.Bundle != p.Config.BundlePath(root) {
		t.Errorf("Bundle = %s, want %s", summary.Bundle, p.Config.BundlePath(root))
	}
}

func TestRunEnvFailureSkipsBuild(t *testing.T) {
	p, fake, _ := testPipeline(t)
	p.Checker.GOOS = "linux"

	_, err := p.Run(context.Background(), build.Config{})
	if err == nil {
		t.Fatal("Run() succeeded on linux")
	}

	var checkErr *envcheck.CheckError
	if !errors.As(err, &checkErr) {
		t.Errorf("error is %T, want *CheckError", err)
	}
	if len(fake.invoked) != 0 {
		t.Error("builder ran despite the failed environment check")
	}
}

func TestRunBuildFailure(t *testing.T) {
	p, fake, _ := testPipeline(t)
	fake.res = &build.Result{ExitCode: 1, Output: "error: ld failed\n", Duration: time.Second}

	_, err := p.Run(context.Background(), build.Config{})
	if err == nil {
		t.Fatal("Run() succeeded despite the child failing")
	}

	var buildErr *build.BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("error is %T, want *BuildError", err)
	}
	if buildErr.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want the child's status", buildErr.ExitCode)
	}
}

func TestRunCleanRemovesCaches(t *testing.T) {
	p, _, root := testPipeline(t)
	writeBundle(t, root, p.Config)

	for _, dir := range p.Config.CacheDirs {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	_, err := p.Run(context.Background(), build.Config{Clean: true})
	if err != nil {
		t.Fatalf("Run() returned %v", err)
	}

	for _, dir := range p.Config.CacheDirs {
		if _, statErr := os.Stat(filepath.Join(root, dir)); !os.IsNotExist(statErr) {
			t.Errorf("%s survived a clean build", dir)
		}
	}
}

func TestRunNoCleanByDefault(t *testing.T) {
	p, _, root := testPipeline(t)
	writeBundle(t, root, p.Config)

	marker := filepath.Join(root, ".zig-cache", "keep")
	if err := os.MkdirAll(marker, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := p.Run(context.Background(), build.Config{})
	if err != nil {
		t.Fatalf("Run() returned %v", err)
	}
	if _, statErr := os.Stat(marker); statErr != nil {
		t.Error("cache was removed without --clean")
	}
}

func TestRunHooks(t *testing.T) {
	p, _, root := testPipeline(t)
	writeBundle(t, root, p.Config)
	p.Hooks.Stdout = io.Discard
	p.Hooks.Stderr = io.Discard

	p.Config.Hooks.PreBuild = []string{"echo $GHOSTTY_BUILD_MODE > pre.txt"}
	p.Config.Hooks.PostBuild = []string{"echo $GHOSTTY_XCFRAMEWORK > post.txt"}

	_, err := p.Run(context.Background(), build.Config{Mode: build.Release})
	if err != nil {
		t.Fatalf("Run() returned %v", err)
	}

	pre, err := os.ReadFile(filepath.Join(root, "pre.txt"))
	if err != nil {
		t.Fatalf("pre_build hook never ran: %v", err)
	}
	if string(pre) != "Release\n" {
		t.Errorf("pre.txt = %q, want the build mode", pre)
	}

	post, err := os.ReadFile(filepath.Join(root, "post.txt"))
	if err != nil {
		t.Fatalf("post_build hook never ran: %v", err)
	}
	if string(post) != p.Config.BundlePath(root)+"\n" {
		t.Errorf("post.txt = %q, want the bundle path", post)
	}
}

func TestRunFailingHookStopsBuild(t *testing.T) {
	p, fake, _ := testPipeline(t)
	p.Hooks.Stdout = io.Discard
	p.Hooks.Stderr = io.Discard
	p.Config.Hooks.PreBuild = []string{"exit 3"}

	_, err := p.Run(context.Background(), build.Config{})
	if err == nil {
		t.Fatal("Run() succeeded despite the failing hook")
	}

	var buildErr *build.BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("error is %T, want *BuildError", err)
	}
	if buildErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want the hook's status", buildErr.ExitCode)
	}
	if len(fake.invoked) != 0 {
		t.Error("builder ran despite the failed pre_build hook")
	}
}

func TestRunMissingBundle(t *testing.T) {
	p, _, _ := testPipeline(t)
	// no bundle fixture: the build "succeeded" but emitted nothing

	_, err := p.Run(context.Background(), build.Config{})
	if err == nil {
		t.Fatal("Run() succeeded without a bundle on disk")
	}

	var outputErr *xcframework.OutputError
	if !errors.As(err, &outputErr) {
		t.Fatalf("error is %T, want *OutputError", err)
	}
}
