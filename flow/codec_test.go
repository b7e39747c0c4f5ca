package flow

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := range 64 {
		for y := range 48 {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 128, A: 255})
		}
	}
	p := filepath.Join(t.TempDir(), name)
	f, err := os.Create(p)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return p
}

func TestStdImageCodecCompress(t *testing.T) {
	codec := NewStdImageCodec(t.TempDir())
	src := writePNG(t, "shot.png")

	out, err := codec.Compress(context.Background(), src, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "compressed_shot.png", filepath.Base(out.Path))
	info, err := os.Stat(out.Path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), out.Size)

	f, err := os.Open(out.Path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
}

func TestStdImageCodecConvert(t *testing.T) {
	codec := NewStdImageCodec(t.TempDir())
	src := writePNG(t, "shot.png")

	out, err := codec.Convert(context.Background(), src, "jpg")
	require.NoError(t, err)
	assert.Equal(t, "shot.jpg", filepath.Base(out.Path))

	f, err := os.Open(out.Path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Height)

	_, err = codec.Convert(context.Background(), src, "webp")
	assert.ErrorIs(t, err, ErrUnsupportedConversion)
}

func TestStdImageCodecRejectsNonImages(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.png")
	require.NoError(t, os.WriteFile(p, []byte("not an image"), 0o644))
	_, err := NewStdImageCodec(t.TempDir()).Compress(context.Background(), p, 0.7)
	assert.Error(t, err)
}
