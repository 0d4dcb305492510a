package stitcher

import (
	"image"
	"sort"

	"github.com/sumShahd/sat2uav-rubble-detect/pkg/raster"
)

// BlockKey addresses one coarse block of a scene by its column and row.
// It doubles as the cell address inside a block, where Col and Row are the
// 0-based cell coordinates.
type BlockKey struct {
	Col int
	Row int
}

// CellForSub maps a tile's sub-index to its (row, col) cell within a
// block. The index is taken relative to subBase and clamped into
// [0, gridSize*gridSize-1], so out-of-range sub-indices land on an edge
// cell instead of failing. Layout is row-major: the sub-index walks the
// columns of a row first, then moves down.
func CellForSub(subID, gridSize, subBase int) (row, col int) {
	idx := subID - subBase
	if idx < 0 {
		idx = 0
	}
	if max := gridSize*gridSize - 1; idx > max {
		idx = max
	}
	return idx / gridSize, idx % gridSize
}

// DenseIndex maps each distinct input value to its 0-based rank in
// ascending order. Re-keying sparse column or row ids through the result
// packs them into a contiguous sequence.
func DenseIndex(values []int) map[int]int {
	seen := make(map[int]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}

	uniq := make([]int, 0, len(seen))
	for v := range seen {
		uniq = append(uniq, v)
	}
	sort.Ints(uniq)

	dense := make(map[int]int, len(uniq))
	for i, v := range uniq {
		dense[v] = i
	}
	return dense
}

// placement pairs an image with the grid slot it occupies.
type placement struct {
	at  BlockKey
	img *image.NRGBA
}

// placeGrid composites placements onto one transparent canvas, each with
// its origin at (Col*strideX, Row*strideY), in the order given. The canvas
// is exactly large enough to hold the furthest placement, or minWidth by
// minHeight if that is larger. Both grid levels run through here: tiles
// into a block, and blocks into the mosaic.
//
// Placements cannot overlap as long as each stride is at least the item
// size on its axis. With a smaller stride they may, and later placements
// composite over earlier ones.
func placeGrid(items []placement, strideX, strideY, minWidth, minHeight int) *image.NRGBA {
	width, height := minWidth, minHeight
	for _, it := range items {
		if w := it.at.Col*strideX + it.img.Bounds().Dx(); w > width {
			width = w
		}
		if h := it.at.Row*strideY + it.img.Bounds().Dy(); h > height {
			height = h
		}
	}

	canvas := raster.NewCanvas(width, height)
	for _, it := range items {
		raster.Overlay(canvas, it.img, it.at.Col*strideX, it.at.Row*strideY)
	}
	return canvas
}

// sortedKeys returns the block keys in ascending (row, col) order.
func sortedKeys(blocks map[BlockKey]*image.NRGBA) []BlockKey {
	keys := make([]BlockKey, 0, len(blocks))
	for k := range blocks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Row != keys[j].Row {
			return keys[i].Row < keys[j].Row
		}
		return keys[i].Col < keys[j].Col
	})
	return keys
}

// sortedSubs returns the sub-indices of one block in ascending order.
func sortedSubs(subs map[int]string) []int {
	ids := make([]int, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
