// Package stitcher reconstructs full-resolution scene images from
// directories of gridded tile files.
//
// Tiles are named <scene>_<col>_<row>_<sub>.<ext> and reconstruction runs
// in two structurally identical levels: sub-tiles are composited into
// fixed-size blocks addressed by (col, row), then blocks are composited
// onto the final mosaic canvas, optionally with sparse column and row ids
// compacted into a contiguous sequence so id gaps do not stretch the
// output.
//
// Every function here is a pure function of its arguments plus the
// filesystem at call time; the package holds no state between calls.
package stitcher

import (
	"fmt"
	"image"

	"github.com/sumShahd/sat2uav-rubble-detect/pkg/raster"
)

// Grid geometry defaults, matching the tiling that produced the datasets.
const (
	DefaultTileSize = 256
	DefaultGridSize = 4
	DefaultSubBase  = 1
)

// Options configures a stitching run.
//
// SubBase and CompactGaps are used as given: a zero SubBase means the
// sub-indices are 0-based. The command layer applies the conventional
// defaults (SubBase 1, CompactGaps on) through its flags.
type Options struct {
	// TileSize is the side length every tile is normalized to.
	TileSize int
	// GridSize is the number of sub-tiles per block side.
	GridSize int
	// SubBase is the sub-index that maps to cell (0, 0).
	SubBase int
	// CompactGaps re-ranks sparse block columns and rows into contiguous
	// sequences before placement.
	CompactGaps bool
	// StrideX and StrideY space the block origins on the mosaic. Zero
	// means the block pixel size, which lays blocks out edge to edge.
	StrideX int
	StrideY int
}

// Normalized returns a copy of o with unset geometry filled in:
// non-positive TileSize and GridSize fall back to the defaults, and
// non-positive strides become the block pixel size.
func (o Options) Normalized() Options {
	if o.TileSize <= 0 {
		o.TileSize = DefaultTileSize
	}
	if o.GridSize <= 0 {
		o.GridSize = DefaultGridSize
	}
	blockPx := o.GridSize * o.TileSize
	if o.StrideX <= 0 {
		o.StrideX = blockPx
	}
	if o.StrideY <= 0 {
		o.StrideY = blockPx
	}
	return o
}

// Result is a finished mosaic with its run statistics.
type Result struct {
	Image  *image.NRGBA
	Width  int
	Height int
	Tiles  int
	Blocks int
}

// AssembleBlocks scans dir for the scene's tiles and builds one composited
// block image per occupied (col, row) key, returning the blocks and the
// number of tiles that went into them.
//
// Every block canvas is exactly gridSize*tileSize pixels per side no
// matter how many of its cells are occupied; absent sub-tiles leave their
// cell transparent. Tiles whose pixel size differs from opts.TileSize are
// resampled with nearest-neighbor filtering first. Sub-indices composite
// in ascending order, so when clamping maps several onto one cell the
// highest lands on top.
func AssembleBlocks(dir string, sceneID int, opts Options) (map[BlockKey]*image.NRGBA, int, error) {
	opts = opts.Normalized()

	grouped, err := ScanTiles(dir, sceneID)
	if err != nil {
		return nil, 0, err
	}

	blockPx := opts.GridSize * opts.TileSize
	blocks := make(map[BlockKey]*image.NRGBA, len(grouped))
	tileCount := 0

	for key, subs := range grouped {
		cells := make([]placement, 0, len(subs))
		for _, subID := range sortedSubs(subs) {
			img, err := loadTile(subs[subID], opts.TileSize)
			if err != nil {
				return nil, 0, err
			}
			row, col := CellForSub(subID, opts.GridSize, opts.SubBase)
			cells = append(cells, placement{at: BlockKey{Col: col, Row: row}, img: img})
		}
		blocks[key] = placeGrid(cells, opts.TileSize, opts.TileSize, blockPx, blockPx)
		tileCount += len(cells)
	}
	return blocks, tileCount, nil
}

// AssembleMosaic places every block at its coarse-grid offset and
// composites them onto a canvas sized exactly to the furthest block: max
// offset plus block size per axis, no padding. With compact set, sparse
// column and row ids are independently re-ranked into contiguous
// sequences first.
//
// Block placements cannot overlap while each stride is at least the block
// size. Smaller strides overlap, and blocks composite in ascending
// (row, col) order, so the output stays deterministic for a given input
// set. An empty block map returns ErrNoBlocks.
func AssembleMosaic(blocks map[BlockKey]*image.NRGBA, strideX, strideY int, compact bool) (*image.NRGBA, error) {
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}

	placed := make([]placement, 0, len(blocks))
	if compact {
		cols := make([]int, 0, len(blocks))
		rows := make([]int, 0, len(blocks))
		for key := range blocks {
			cols = append(cols, key.Col)
			rows = append(rows, key.Row)
		}
		denseCol := DenseIndex(cols)
		denseRow := DenseIndex(rows)

		for _, key := range sortedKeys(blocks) {
			placed = append(placed, placement{
				at:  BlockKey{Col: denseCol[key.Col], Row: denseRow[key.Row]},
				img: blocks[key],
			})
		}
	} else {
		for _, key := range sortedKeys(blocks) {
			placed = append(placed, placement{at: key, img: blocks[key]})
		}
	}

	return placeGrid(placed, strideX, strideY, 0, 0), nil
}

// Stitch reconstructs one scene from dir and returns the finished mosaic.
// ErrNoTiles is returned when nothing in dir belongs to the scene.
func Stitch(dir string, sceneID int, opts Options) (*Result, error) {
	opts = opts.Normalized()

	blocks, tiles, err := AssembleBlocks(dir, sceneID, opts)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w %d in %s", ErrNoTiles, sceneID, dir)
	}

	mosaic, err := AssembleMosaic(blocks, opts.StrideX, opts.StrideY, opts.CompactGaps)
	if err != nil {
		return nil, err
	}

	b := mosaic.Bounds()
	return &Result{
		Image:  mosaic,
		Width:  b.Dx(),
		Height: b.Dy(),
		Tiles:  tiles,
		Blocks: len(blocks),
	}, nil
}

// loadTile decodes one tile file and normalizes it to the configured size.
func loadTile(path string, tileSize int) (*image.NRGBA, error) {
	img, err := raster.Load(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return raster.EnsureSize(img, tileSize, tileSize), nil
}
