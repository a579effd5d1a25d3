package build

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Clean removes the build caches and previous outputs under root.
// Directories that are already gone are skipped, so running it twice is
// harmless.
func Clean(ctx context.Context, root string, dirs []string) error {
	for _, dir := range dirs {
		path := filepath.Join(root, dir)

		_, err := os.Stat(path)
		if eris.Is(err, os.ErrNotExist) {
			zerolog.Ctx(ctx).Debug().Str("path", path).Msg("Already clean")
			continue
		}
		if err != nil {
			return eris.Wrapf(err, "Could not stat %s", path)
		}

		zerolog.Ctx(ctx).Info().Str("path", path).Msg("Removing")
		err = os.RemoveAll(path)
		if err != nil {
			return eris.Wrapf(err, "Could not delete %s", path)
		}
	}

	return nil
}
