package raster

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestNewCanvasTransparent(t *testing.T) {
	canvas := NewCanvas(8, 4)

	if got := canvas.Bounds(); got.Dx() != 8 || got.Dy() != 4 {
		t.Fatalf("canvas size = %dx%d, want 8x4", got.Dx(), got.Dy())
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			if px := canvas.NRGBAAt(x, y); px != (color.NRGBA{}) {
				t.Fatalf("pixel (%d,%d) = %+v, want fully transparent", x, y, px)
			}
		}
	}
}

func TestEnsureSizeKeepsMatchingImage(t *testing.T) {
	img := solid(4, 4, color.NRGBA{R: 1, A: 255})
	if got := EnsureSize(img, 4, 4); got != img {
		t.Fatal("EnsureSize resampled an image that already had the target size")
	}
}

func TestEnsureSizeNearestNeighbor(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	green := color.NRGBA{G: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, red)
	src.SetNRGBA(1, 0, green)
	src.SetNRGBA(0, 1, blue)
	src.SetNRGBA(1, 1, white)

	got := EnsureSize(src, 4, 4)
	if b := got.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Fatalf("resampled size = %dx%d, want 4x4", b.Dx(), b.Dy())
	}

	allowed := map[color.NRGBA]bool{red: true, green: true, blue: true, white: true}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if px := got.NRGBAAt(x, y); !allowed[px] {
				t.Fatalf("pixel (%d,%d) = %+v is a blended color; nearest must not blend", x, y, px)
			}
		}
	}
	if got.NRGBAAt(0, 0) != red {
		t.Errorf("top-left = %+v, want %+v", got.NRGBAAt(0, 0), red)
	}
	if got.NRGBAAt(3, 3) != white {
		t.Errorf("bottom-right = %+v, want %+v", got.NRGBAAt(3, 3), white)
	}
}

func TestOverlayOpaqueReplaces(t *testing.T) {
	dst := NewCanvas(4, 4)
	src := solid(2, 2, color.NRGBA{R: 200, A: 255})

	Overlay(dst, src, 1, 1)

	if px := dst.NRGBAAt(2, 2); px != (color.NRGBA{R: 200, A: 255}) {
		t.Errorf("covered pixel = %+v, want opaque source color", px)
	}
	if px := dst.NRGBAAt(0, 0); px != (color.NRGBA{}) {
		t.Errorf("uncovered pixel = %+v, want transparent", px)
	}
}

func TestOverlayTransparentLeavesDestination(t *testing.T) {
	base := color.NRGBA{B: 128, A: 255}
	dst := solid(2, 2, base)
	src := solid(2, 2, color.NRGBA{})

	Overlay(dst, src, 0, 0)

	if px := dst.NRGBAAt(1, 1); px != base {
		t.Errorf("pixel = %+v, want untouched %+v", px, base)
	}
}

func TestOverlayClipsOutOfBounds(t *testing.T) {
	dst := NewCanvas(4, 4)
	src := solid(4, 4, color.NRGBA{G: 90, A: 255})

	Overlay(dst, src, 2, 2)

	if px := dst.NRGBAAt(3, 3); px != (color.NRGBA{G: 90, A: 255}) {
		t.Errorf("in-bounds pixel = %+v, want source color", px)
	}
	if px := dst.NRGBAAt(1, 1); px != (color.NRGBA{}) {
		t.Errorf("pixel before offset = %+v, want transparent", px)
	}
}

func TestSaveCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "nested", "mosaic.png")
	img := solid(3, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	if err := Save(img, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b := back.Bounds(); b.Dx() != 3 || b.Dy() != 3 {
		t.Errorf("roundtrip size = %dx%d, want 3x3", b.Dx(), b.Dy())
	}
	if px := back.NRGBAAt(1, 1); px != (color.NRGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("roundtrip pixel = %+v, want original color", px)
	}
}

func TestSaveRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mosaic.xyz")
	if err := Save(solid(2, 2, color.NRGBA{A: 255}), path); err == nil {
		t.Fatal("Save accepted an unknown output extension")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted a file that is not an image")
	}
}

func TestEncodePNGSignature(t *testing.T) {
	data, err := EncodePNG(solid(2, 2, color.NRGBA{R: 1, A: 255}))
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	sig := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	if len(data) < len(sig) {
		t.Fatalf("encoded output too short: %d bytes", len(data))
	}
	for i, b := range sig {
		if data[i] != b {
			t.Fatalf("byte %d = %#x, want PNG signature byte %#x", i, data[i], b)
		}
	}
}
