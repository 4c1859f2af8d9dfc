package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFileName))
	require.NoError(t, err)

	require.Equal(t, ".bookbuilder/build", cfg.Build.Directory)
	require.Equal(t, ArchiverZip, cfg.Build.Archiver)
	require.Equal(t, "zip", cfg.Build.ArchiveProgram)
	require.Equal(t, ".bookbuilder/file_stats.yml", cfg.Cache.Path)
	require.True(t, cfg.Cache.IsEnabled())
	require.Empty(t, cfg.History.Path)
	require.Equal(t, 2_000_000, cfg.Images.MaxPixels)
	require.Equal(t, LogLevelInfo, cfg.Logging.Level)
}

func TestParse(t *testing.T) {
	t.Setenv("BOOKBUILDER_TEST_OUT", "out/pkg")

	cfg, err := Parse([]byte(`
build:
  directory: ${BOOKBUILDER_TEST_OUT}
  archiver: Command
cache:
  enabled: false
history:
  path: history.db
images:
  max_pixels: 500
logging:
  level: DEBUG
`))
	require.NoError(t, err)

	require.Equal(t, "out/pkg", cfg.Build.Directory)
	require.Equal(t, ArchiverCommand, cfg.Build.Archiver)
	require.False(t, cfg.Cache.IsEnabled())
	require.Equal(t, "history.db", cfg.History.Path)
	require.Equal(t, 500, cfg.Images.MaxPixels)
	require.Equal(t, LogLevelDebug, cfg.Logging.Level)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown archiver", "build:\n  archiver: tar\n"},
		{"build in root", "build:\n  directory: .\n"},
		{"cache inside build", "build:\n  directory: out\ncache:\n  path: out/stats.yml\n"},
		{"negative pixels", "images:\n  max_pixels: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("build: [unterminated"))
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestCacheInsideDisabledBuildIsAllowed(t *testing.T) {
	_, err := Parse([]byte("build:\n  directory: out\ncache:\n  path: out/stats.yml\n  enabled: false\n"))
	require.NoError(t, err)
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.History.Path = ":memory:"
	cfg.Metrics.Textfile = "/var/lib/metrics/book.prom"
	cfg.Resolve(root)

	require.Equal(t, filepath.Join(root, ".bookbuilder", "build"), cfg.Build.Directory)
	require.Equal(t, filepath.Join(root, ".bookbuilder", "file_stats.yml"), cfg.Cache.Path)
	require.Equal(t, ":memory:", cfg.History.Path)
	require.Equal(t, "/var/lib/metrics/book.prom", cfg.Metrics.Textfile)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)

	require.NoError(t, Init(path, false))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ".bookbuilder/history.db", cfg.History.Path)

	err = Init(path, false)
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))

	require.NoError(t, os.WriteFile(path, []byte("images:\n  max_pixels: 10\n"), 0o600))
	require.NoError(t, Init(path, true))
	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, 2_000_000, cfg.Images.MaxPixels)
}

func TestNormalizeEnums(t *testing.T) {
	require.Equal(t, ArchiverZip, NormalizeArchiverKind("bogus"))
	require.Equal(t, ArchiverCommand, NormalizeArchiverKind(" COMMAND "))
	require.Equal(t, LogLevelWarn, NormalizeLogLevel("warning"))

	_, err := ParseLogLevel("loud")
	require.Error(t, err)
}
