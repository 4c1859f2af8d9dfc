// Package archive packs a build output directory into an EPUB container.
//
// The mimetype file must be the first member and stored uncompressed; every
// other file is deflated.
package archive

import (
	"context"
	"os"
	"path/filepath"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// MimetypeFile is the name of the mimetype member.
const MimetypeFile = "mimetype"

// Archiver writes the package at packagePath from the files in sourceDir.
type Archiver interface {
	Archive(ctx context.Context, sourceDir, packagePath string) error
}

// excluded names are never packed.
var excluded = map[string]bool{
	".DS_Store":   true,
	"Thumbs.db":   true,
	"desktop.ini": true,
	"__MACOSX":    true,
}

func requireMimetype(sourceDir string) error {
	info, err := os.Stat(filepath.Join(sourceDir, MimetypeFile))
	if err != nil || info.IsDir() {
		return foundationerrors.ArchiveError("mimetype file missing from build output").
			WithContext("path", sourceDir).
			WithCause(err).
			Build()
	}
	return nil
}
