package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

// envFiles are read in priority order. godotenv never overrides a variable
// that is already set, so earlier files win.
var envFiles = []string{".env.local", ".env"}

// LoadEnvFiles loads .env.local and .env from dir into the process
// environment without overriding existing variables. Missing files are skipped.
func LoadEnvFiles(dir string) error {
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to load environment file").
				WithContext("path", path).
				Build()
		}
	}
	return nil
}
