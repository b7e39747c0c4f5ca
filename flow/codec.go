package flow

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/moyoez/filetool-go/tool"
)

// ImageOutput is a file written by an image primitive. Size may be 0 when unknown.
type ImageOutput struct {
	Path string
	Size int64
}

// ImageCompressor is the host's image compression primitive. quality is in (0,1].
type ImageCompressor interface {
	Compress(ctx context.Context, srcPath string, quality float64) (ImageOutput, error)
}

// ImageConverter is the host's local image format conversion primitive.
type ImageConverter interface {
	Convert(ctx context.Context, srcPath, format string) (ImageOutput, error)
}

// StdImageCodec re-encodes jpeg, png and gif images with the standard library codecs.
type StdImageCodec struct {
	dir string
}

// NewStdImageCodec writes its outputs under dir, "" uses <tmp>/filetool-processed.
func NewStdImageCodec(dir string) *StdImageCodec {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "filetool-processed")
	}
	return &StdImageCodec{dir: dir}
}

// Dir is where outputs are written.
func (c *StdImageCodec) Dir() string {
	return c.dir
}

func (c *StdImageCodec) Compress(ctx context.Context, srcPath string, quality float64) (ImageOutput, error) {
	img, format, err := decodeImage(ctx, srcPath)
	if err != nil {
		return ImageOutput{}, err
	}
	base := tool.TrimExtension(filepath.Base(srcPath))
	if format == "png" {
		return c.write("compressed_"+base+".png", img, "png", quality)
	}
	return c.write("compressed_"+base+".jpg", img, "jpg", quality)
}

func (c *StdImageCodec) Convert(ctx context.Context, srcPath, format string) (ImageOutput, error) {
	format = strings.ToLower(format)
	if format != "jpg" && format != "jpeg" && format != "png" {
		return ImageOutput{}, fmt.Errorf("%w: image to %s", ErrUnsupportedConversion, format)
	}
	img, _, err := decodeImage(ctx, srcPath)
	if err != nil {
		return ImageOutput{}, err
	}
	return c.write(tool.TrimExtension(filepath.Base(srcPath))+"."+format, img, format, 0.92)
}

func decodeImage(ctx context.Context, path string) (image.Image, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
	}
	return img, format, nil
}

func (c *StdImageCodec) write(name string, img image.Image, format string, quality float64) (ImageOutput, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		level := png.DefaultCompression
		if quality < 0.9 {
			level = png.BestCompression
		}
		enc := png.Encoder{CompressionLevel: level}
		if err := enc.Encode(&buf, img); err != nil {
			return ImageOutput{}, fmt.Errorf("failed to encode png: %w", err)
		}
	default:
		q := int(quality * 100)
		q = min(max(q, 1), 100)
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return ImageOutput{}, fmt.Errorf("failed to encode jpeg: %w", err)
		}
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return ImageOutput{}, err
	}
	target := tool.NextAvailablePath(c.dir, name)
	if err := tool.WriteFileAtomic(target, buf.Bytes(), 0o644); err != nil {
		return ImageOutput{}, err
	}
	return ImageOutput{Path: target, Size: int64(buf.Len())}, nil
}
