// Package raster wraps the image IO shared across the toolchain: decoding
// tiles into straight-alpha pixels, nearest-neighbor resampling, canvas
// allocation, compositing and writing finished mosaics.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Load decodes the raster file at path into an NRGBA image. The format is
// detected from the file contents; png, jpeg, gif, tiff and bmp are
// supported.
func Load(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	return imaging.Clone(img), nil
}

// EnsureSize returns img resampled to w by h with nearest-neighbor
// filtering, or img itself when the dimensions already match. Nearest
// keeps hard pixel edges and never introduces blended colors.
func EnsureSize(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return imaging.Resize(img, w, h, imaging.NearestNeighbor)
}

// NewCanvas allocates a fully transparent w by h canvas.
func NewCanvas(w, h int) *image.NRGBA {
	return imaging.New(w, h, color.NRGBA{})
}

// Overlay composites src onto dst with its top-left corner at (x, y),
// using straight-alpha over. Fully transparent source pixels leave the
// destination untouched; parts that fall outside dst are clipped.
func Overlay(dst *image.NRGBA, src image.Image, x, y int) {
	b := src.Bounds()
	r := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	draw.Draw(dst, r, src, b.Min, draw.Over)
}

// Save writes img to path, creating parent directories as needed. The
// encoding is chosen from the file extension; an unknown extension is an
// error.
func Save(img image.Image, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return imaging.Save(img, path)
}

// EncodePNG encodes img as PNG in memory.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
