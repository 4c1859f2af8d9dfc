// Package imaging copies raster images into the build, downscaling those
// above a pixel budget.
package imaging

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"git.home.luguber.info/inful/bookbuilder/internal/fsutil"
)

// DefaultMaxPixels is the pixel budget of an image in the package.
const DefaultMaxPixels = 2_000_000

// Processor writes the image at src to dst.
type Processor interface {
	Process(ctx context.Context, src, dst string) (*Outcome, error)
}

// Outcome describes what Process did.
type Outcome struct {
	Resized        bool
	OriginalWidth  int
	OriginalHeight int
	Width          int
	Height         int
}

// Downscaler resizes images with more than MaxPixels pixels and copies the
// rest unchanged.
type Downscaler struct {
	MaxPixels   int
	JPEGQuality int
}

// NewDownscaler returns a downscaler with the given budget. A non-positive
// budget selects DefaultMaxPixels.
func NewDownscaler(maxPixels int) *Downscaler {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Downscaler{MaxPixels: maxPixels, JPEGQuality: 90}
}

// Process implements Processor. The scale factor max/pixels is applied to
// each dimension.
func (d *Downscaler) Process(ctx context.Context, src, dst string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := decodeConfig(src)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		OriginalWidth:  cfg.Width,
		OriginalHeight: cfg.Height,
		Width:          cfg.Width,
		Height:         cfg.Height,
	}
	pixels := cfg.Width * cfg.Height
	if pixels <= d.MaxPixels {
		return out, fsutil.CopyFile(src, dst)
	}

	scale := float64(d.MaxPixels) / float64(pixels)
	out.Width = max(1, int(float64(cfg.Width)*scale))
	out.Height = max(1, int(float64(cfg.Height)*scale))
	out.Resized = true

	if err := d.resize(src, dst, out.Width, out.Height); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeConfig(path string) (image.Config, error) {
	// #nosec G304 -- path is a resolved source path of the project
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("decode image header %s: %w", path, err)
	}
	return cfg, nil
}

func (d *Downscaler) resize(src, dst string, width, height int) error {
	// #nosec G304 -- src is a resolved source path of the project
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	img, format, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("decode image %s: %w", src, err)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Over, nil)

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	// #nosec G304 -- dst is inside the build directory
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := d.encode(out, scaled, format, dst); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (d *Downscaler) encode(f *os.File, img image.Image, format, dst string) error {
	ext := strings.ToLower(filepath.Ext(dst))
	switch {
	case ext == ".png" || (ext == "" && format == "png"):
		return png.Encode(f, img)
	case ext == ".jpg" || ext == ".jpeg" || format == "jpeg":
		return jpeg.Encode(f, img, &jpeg.Options{Quality: d.JPEGQuality})
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
}
