// Package xcframework checks that an emitted xcframework bundle is
// complete enough for the Xcode projects to consume.
package xcframework

import (
	"os"

	"github.com/rotisserie/eris"
	"howett.net/plist"
)

// Library is one entry of the AvailableLibraries array in an xcframework's
// Info.plist.
type Library struct {
	Identifier      string   `plist:"LibraryIdentifier"`
	Path            string   `plist:"LibraryPath"`
	Architectures   []string `plist:"SupportedArchitectures"`
	Platform        string   `plist:"SupportedPlatform"`
	PlatformVariant string   `plist:"SupportedPlatformVariant"`
}

// PlatformLabel combines platform and variant the way Xcode displays them,
// e.g. "ios-simulator".
func (l Library) PlatformLabel() string {
	if l.PlatformVariant != "" {
		return l.Platform + "-" + l.PlatformVariant
	}
	return l.Platform
}

type Manifest struct {
	FormatVersion string    `plist:"XCFrameworkFormatVersion"`
	Libraries     []Library `plist:"AvailableLibraries"`
}

// Reader parses an xcframework manifest. Kept narrow so tests can feed
// fixtures instead of real plists.
type Reader interface {
	Read(path string) (*Manifest, error)
}

// PlistReader reads the Info.plist Xcode writes, in either XML or binary
// form.
type PlistReader struct{}

func (PlistReader) Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "Could not open %s", path)
	}

	var manifest Manifest
	_, err = plist.Unmarshal(data, &manifest)
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to parse %s", path)
	}
	return &manifest, nil
}
