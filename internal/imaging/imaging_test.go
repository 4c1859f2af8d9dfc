package imaging

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestSmallImageIsCopied(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "small.png")
	dst := filepath.Join(dir, "out", "OEBPS", "small.png")
	writePNG(t, src, 40, 20)

	out, err := NewDownscaler(1000).Process(context.Background(), src, dst)
	require.NoError(t, err)
	require.False(t, out.Resized)

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLargeImageIsScaledPerDimension(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "big.png")
	dst := filepath.Join(dir, "out", "big.png")
	writePNG(t, src, 100, 50)

	out, err := NewDownscaler(2500).Process(context.Background(), src, dst)
	require.NoError(t, err)
	require.True(t, out.Resized)
	require.Equal(t, 50, out.Width)
	require.Equal(t, 25, out.Height)

	w, h := imageSize(t, dst)
	require.Equal(t, 50, w)
	require.Equal(t, 25, h)
}

func TestJPEGKeepsFormat(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.jpg")
	img := image.NewRGBA(image.Rect(0, 0, 60, 60))
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, nil))
	require.NoError(t, f.Close())

	dst := filepath.Join(dir, "out", "photo.jpg")
	out, err := NewDownscaler(900).Process(context.Background(), src, dst)
	require.NoError(t, err)
	require.True(t, out.Resized)

	in, err := os.Open(dst)
	require.NoError(t, err)
	defer func() { _ = in.Close() }()
	_, format, err := image.DecodeConfig(in)
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
}

func TestNotAnImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(src, []byte("nope"), 0o600))

	_, err := NewDownscaler(0).Process(context.Background(), src, filepath.Join(dir, "x.png"))
	require.Error(t, err)
}
