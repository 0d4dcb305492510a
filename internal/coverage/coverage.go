// Package coverage renders a schematic occupancy map of a scene: one
// small rectangle per sub-tile cell, filled where a tile file exists and
// hollow where one is missing. It answers "which tiles are missing"
// without decoding a single tile or assembling the full mosaic.
package coverage

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/sumShahd/sat2uav-rubble-detect/internal/stitcher"
)

// DefaultCellPx is the rendered size of one sub-tile cell.
const DefaultCellPx = 24

var (
	backgroundColor = color.NRGBA{R: 248, G: 248, B: 248, A: 255}
	presentColor    = color.NRGBA{R: 46, G: 160, B: 67, A: 255}
	missingColor    = color.NRGBA{R: 208, G: 208, B: 208, A: 255}
	blockEdgeColor  = color.NRGBA{R: 60, G: 60, B: 60, A: 255}
)

// Options configures one coverage rendering.
type Options struct {
	// GridSize and SubBase mirror the stitching geometry; the map is
	// only truthful when they match the values the tiles were cut with.
	GridSize int
	SubBase  int
	// CellPx is the rendered side length of one cell; zero means
	// DefaultCellPx.
	CellPx int
	// CompactGaps packs sparse block columns and rows together, same as
	// the mosaic assembler does.
	CompactGaps bool
}

// Summary counts what the rendering shows.
type Summary struct {
	Blocks  int
	Present int
	Missing int
}

// Render scans dir for the scene's tiles and draws its occupancy map.
// stitcher.ErrNoTiles is returned when the scene has no tiles at all.
func Render(dir string, sceneID int, opts Options) (image.Image, *Summary, error) {
	if opts.GridSize <= 0 {
		opts.GridSize = stitcher.DefaultGridSize
	}
	if opts.CellPx <= 0 {
		opts.CellPx = DefaultCellPx
	}

	tiles, err := stitcher.ScanTiles(dir, sceneID)
	if err != nil {
		return nil, nil, err
	}
	if len(tiles) == 0 {
		return nil, nil, fmt.Errorf("%w %d in %s", stitcher.ErrNoTiles, sceneID, dir)
	}

	// Block origins follow the same placement rule as the mosaic, in
	// cell units instead of pixels.
	cols := make([]int, 0, len(tiles))
	rows := make([]int, 0, len(tiles))
	for key := range tiles {
		cols = append(cols, key.Col)
		rows = append(rows, key.Row)
	}
	position := func(key stitcher.BlockKey) (int, int) { return key.Col, key.Row }
	if opts.CompactGaps {
		denseCol := stitcher.DenseIndex(cols)
		denseRow := stitcher.DenseIndex(rows)
		position = func(key stitcher.BlockKey) (int, int) { return denseCol[key.Col], denseRow[key.Row] }
	}

	maxX, maxY := 0, 0
	for key := range tiles {
		x, y := position(key)
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
	}

	blockPx := opts.GridSize * opts.CellPx
	dc := gg.NewContext((maxX+1)*blockPx, (maxY+1)*blockPx)
	dc.SetColor(backgroundColor)
	dc.Clear()

	sum := &Summary{Blocks: len(tiles)}
	cellPx := float64(opts.CellPx)

	for key, subs := range tiles {
		bx, by := position(key)
		originX := float64(bx * blockPx)
		originY := float64(by * blockPx)

		occupied := make(map[stitcher.BlockKey]bool, len(subs))
		for subID := range subs {
			row, col := stitcher.CellForSub(subID, opts.GridSize, opts.SubBase)
			occupied[stitcher.BlockKey{Col: col, Row: row}] = true
		}

		for row := 0; row < opts.GridSize; row++ {
			for col := 0; col < opts.GridSize; col++ {
				x := originX + float64(col)*cellPx
				y := originY + float64(row)*cellPx
				if occupied[stitcher.BlockKey{Col: col, Row: row}] {
					dc.SetColor(presentColor)
					dc.DrawRectangle(x, y, cellPx, cellPx)
					dc.Fill()
					sum.Present++
				} else {
					dc.SetColor(missingColor)
					dc.DrawRectangle(x+0.5, y+0.5, cellPx-1, cellPx-1)
					dc.SetLineWidth(1)
					dc.Stroke()
					sum.Missing++
				}
			}
		}

		// Heavier stroke marks the block boundary.
		dc.SetColor(blockEdgeColor)
		dc.SetLineWidth(2)
		dc.DrawRectangle(originX+1, originY+1, float64(blockPx)-2, float64(blockPx)-2)
		dc.Stroke()
	}

	return dc.Image(), sum, nil
}
