package archive

import (
	"context"
	"hash/crc32"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	foundationerrors "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/logfields"
)

// ZipArchiver writes the package in process.
type ZipArchiver struct {
	logger *slog.Logger
}

// NewZipArchiver returns the default archiver.
func NewZipArchiver() *ZipArchiver {
	return &ZipArchiver{logger: slog.Default()}
}

// WithLogger sets a custom logger.
func (z *ZipArchiver) WithLogger(logger *slog.Logger) *ZipArchiver {
	z.logger = logger
	return z
}

// Archive implements Archiver. The package is written to a temporary file
// next to packagePath and renamed into place when complete.
func (z *ZipArchiver) Archive(ctx context.Context, sourceDir, packagePath string) error {
	if err := requireMimetype(sourceDir); err != nil {
		return err
	}
	members, err := listMembers(sourceDir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(packagePath), 0o750); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to create package directory").
			WithContext("path", packagePath).
			Build()
	}
	tmp, err := os.CreateTemp(filepath.Dir(packagePath), ".bookbuilder-*.epub")
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to create temporary package").
			WithContext("path", packagePath).
			Build()
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := z.write(ctx, tmp, sourceDir, members); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryArchive, "failed to finish package").Build()
	}
	if err := os.Rename(tmpName, packagePath); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to move package into place").
			WithContext("path", packagePath).
			Build()
	}
	z.logger.Info("Package written", logfields.Path(packagePath), logfields.Count(len(members)+1))
	return nil
}

func (z *ZipArchiver) write(ctx context.Context, w io.Writer, sourceDir string, members []string) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	if err := addMimetype(zw, sourceDir); err != nil {
		return err
	}
	for _, rel := range members {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addMember(zw, sourceDir, rel, zip.Deflate); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryArchive, "failed to finish zip stream").Build()
	}
	return nil
}

// addMimetype writes the mimetype member stored, without extra fields or a
// data descriptor, so its content starts at byte 38 of the package.
func addMimetype(zw *zip.Writer, sourceDir string) error {
	// #nosec G304 -- path is inside the build output directory
	data, err := os.ReadFile(filepath.Join(sourceDir, MimetypeFile))
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to read mimetype").
			WithContext("path", sourceDir).
			Build()
	}
	hdr := &zip.FileHeader{
		Name:               MimetypeFile,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: uint64(len(data)),
	}
	dst, err := zw.CreateRaw(hdr)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryArchive, "failed to add mimetype").Build()
	}
	if _, err := dst.Write(data); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryArchive, "failed to write mimetype").Build()
	}
	return nil
}

func addMember(zw *zip.Writer, sourceDir, rel string, method uint16) error {
	path := filepath.Join(sourceDir, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to stat package member").
			WithContext("path", rel).
			Build()
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryArchive, "failed to build zip header").
			WithContext("path", rel).
			Build()
	}
	hdr.Name = rel
	hdr.Method = method

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryArchive, "failed to add package member").
			WithContext("path", rel).
			Build()
	}
	// #nosec G304 -- path is inside the build output directory
	src, err := os.Open(path)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to open package member").
			WithContext("path", rel).
			Build()
	}
	defer func() { _ = src.Close() }()
	if _, err := io.Copy(dst, src); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryArchive, "failed to write package member").
			WithContext("path", rel).
			Build()
	}
	return nil
}

// listMembers returns every packable file except mimetype, sorted, as
// slash separated paths relative to sourceDir.
func listMembers(sourceDir string) ([]string, error) {
	var members []string
	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if excluded[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel != MimetypeFile {
			members = append(members, rel)
		}
		return nil
	})
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to scan build output").
			WithContext("path", sourceDir).
			Build()
	}
	sort.Strings(members)
	return members, nil
}
