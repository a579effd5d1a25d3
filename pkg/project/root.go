package project

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Marker is the file that identifies the repository root.
const Marker = "build.zig"

// FindRoot walks upward from dir until it finds the marker file.
func FindRoot(dir string) (string, error) {
	path, err := filepath.Abs(dir)
	if err != nil {
		return "", eris.Wrapf(err, "Failed to resolve %s", dir)
	}

	for {
		marker := filepath.Join(path, Marker)
		_, err := os.Stat(marker)
		if err == nil {
			return path, nil
		}
		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "Failed to check %s", marker)
		}

		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		path = parent
	}

	return "", eris.Errorf("No %s found above %s", Marker, dir)
}

// Root locates the project root for the current process. It starts at the
// working directory and falls back to the directory the tool itself was
// installed to.
func Root() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", eris.Wrap(err, "Failed to retrieve the current working directory")
	}

	root, err := FindRoot(wd)
	if err == nil {
		return root, nil
	}

	exe, exeErr := os.Executable()
	if exeErr != nil {
		return "", err
	}
	if resolved, linkErr := filepath.EvalSymlinks(exe); linkErr == nil {
		exe = resolved
	}

	root, exeErr = FindRoot(filepath.Dir(exe))
	if exeErr != nil {
		return "", eris.Errorf("Not inside a Ghostty checkout (no %s above %s)", Marker, wd)
	}
	return root, nil
}
