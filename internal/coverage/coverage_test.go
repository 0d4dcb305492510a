package coverage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sumShahd/sat2uav-rubble-detect/internal/stitcher"
)

// touch creates empty files; the coverage map only reads names, never
// pixel data.
func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestRenderCounts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "004_1_2_1.png", "004_1_2_16.png", "banner.txt")

	img, sum, err := Render(dir, 4, Options{GridSize: 4, SubBase: 1, CellPx: 10})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if sum.Blocks != 1 || sum.Present != 2 || sum.Missing != 14 {
		t.Fatalf("summary = %+v, want 1 block, 2 present, 14 missing", sum)
	}
	// Block at (col 1, row 2) without compaction spans to cell (1+1, 2+1).
	if b := img.Bounds(); b.Dx() != 2*40 || b.Dy() != 3*40 {
		t.Fatalf("image = %dx%d, want 80x120", b.Dx(), b.Dy())
	}
}

func TestRenderCompaction(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "004_1_0_1.png", "004_5_0_1.png")

	opts := Options{GridSize: 4, SubBase: 1, CellPx: 10}
	blockPx := opts.GridSize * opts.CellPx

	opts.CompactGaps = true
	img, _, err := Render(dir, 4, opts)
	if err != nil {
		t.Fatalf("Render compact: %v", err)
	}
	if got := img.Bounds().Dx(); got != 2*blockPx {
		t.Errorf("compact width = %d, want %d", got, 2*blockPx)
	}

	opts.CompactGaps = false
	img, _, err = Render(dir, 4, opts)
	if err != nil {
		t.Fatalf("Render raw: %v", err)
	}
	if got := img.Bounds().Dx(); got != 6*blockPx {
		t.Errorf("raw width = %d, want %d", got, 6*blockPx)
	}
}

func TestRenderNoTiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "004_1_2_1.png")

	_, _, err := Render(dir, 7, Options{})
	if !errors.Is(err, stitcher.ErrNoTiles) {
		t.Fatalf("expected ErrNoTiles, got %v", err)
	}
}
