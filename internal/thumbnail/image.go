package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // registers the webp decoder
)

// DecodeOptions is passed explicitly to every decode; there is no
// package-level decoder state.
type DecodeOptions struct {
	// MaxPixels rejects images whose header declares more pixels.
	MaxPixels int
	// AutoOrient applies the EXIF orientation tag of JPEGs.
	AutoOrient bool
}

// checkStructure reads only the container header: format, width and height.
// Truncated or corrupt headers fail here without allocating a bitmap.
func checkStructure(data []byte, opts DecodeOptions) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, "", fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if opts.MaxPixels > 0 && cfg.Width*cfg.Height > opts.MaxPixels {
		return image.Config{}, "", fmt.Errorf("%dx%d exceeds %d pixels", cfg.Width, cfg.Height, opts.MaxPixels)
	}
	return cfg, format, nil
}

func decode(data []byte, opts DecodeOptions) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(opts.AutoOrient))
}

// fit scales img down so neither side exceeds bound, keeping the aspect ratio,
// and flattens it onto an opaque white background. Smaller images keep
// their size.
func fit(img image.Image, bound int) *image.NRGBA {
	scaled := imaging.Fit(img, bound, bound, imaging.Lanczos)
	b := scaled.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, scaled, image.Pt(0, 0), 1.0)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
