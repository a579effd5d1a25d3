package xcframework

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// OutputError means the build left no usable bundle behind. Everything
// softer than that is a warning on the report. Maps to exit code 2.
type OutputError struct {
	Path   string
	Reason string
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

// SliceStatus describes one platform library of the bundle.
type SliceStatus struct {
	Identifier    string
	Platform      string
	Architectures []string
	Present       bool
}

// Report is the outcome of a verification run. Warnings never fail the
// build, they only show up in the summary.
type Report struct {
	Bundle   string
	Slices   []SliceStatus
	Warnings []string
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Verifier checks a bundle on disk against its own manifest.
type Verifier struct {
	Manifest Reader
	Deep     bool
}

func NewVerifier() *Verifier {
	return &Verifier{Manifest: PlistReader{}}
}

// Verify checks the bundle at the given path. expected lists the slice
// directories a universal build must produce; pass nil for native builds.
//
// A missing bundle or manifest is fatal. A manifest that exists but cannot
// be parsed only degrades the check to warnings, matching how little we
// trust Xcode to keep the plist format stable.
func (v *Verifier) Verify(ctx context.Context, bundle string, expected []string) (*Report, error) {
	report := &Report{Bundle: bundle}

	info, err := os.Stat(bundle)
	if err != nil || !info.IsDir() {
		return nil, &OutputError{Path: bundle, Reason: "No xcframework bundle found"}
	}

	manifestPath := filepath.Join(bundle, "Info.plist")
	_, err = os.Stat(manifestPath)
	if err != nil {
		return nil, &OutputError{Path: manifestPath, Reason: "Bundle manifest missing"}
	}

	manifest, err := v.Manifest.Read(manifestPath)
	if err != nil {
		report.warnf("Manifest is unreadable, continuing without it: %v", err)
		manifest = nil
	}

	if manifest != nil {
		for _, lib := range manifest.Libraries {
			status := SliceStatus{
				Identifier:    lib.Identifier,
				Platform:      lib.PlatformLabel(),
				Architectures: lib.Architectures,
			}

			sliceDir := filepath.Join(bundle, lib.Identifier)
			dirInfo, err := os.Stat(sliceDir)
			if err == nil && dirInfo.IsDir() {
				status.Present = true
			} else {
				report.warnf("Slice %s is listed in the manifest but missing on disk", lib.Identifier)
			}

			if status.Present && v.Deep {
				v.inspectBinary(ctx, report, bundle, lib)
			}

			report.Slices = append(report.Slices, status)
		}
	}

	for _, name := range expected {
		_, err := os.Stat(filepath.Join(bundle, name))
		if err != nil {
			report.warnf("Universal build should contain %s but it is missing", name)
		}
	}

	zerolog.Ctx(ctx).Debug().
		Int("slices", len(report.Slices)).
		Int("warnings", len(report.Warnings)).
		Msgf("Verified %s", bundle)

	return report, nil
}
