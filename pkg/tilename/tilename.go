// Package tilename parses the grid position encoded in tile filenames.
//
// Dataset tiles are named <scene>_<col>_<row>_<sub>.<ext>, for example
// 004_1_2_10.png: scene 4, block column 1, block row 2, sub-tile 10.
package tilename

import (
	"regexp"
	"strconv"
)

// Position is the grid address carried by a tile filename: the scene the
// tile belongs to, the coarse block column and row, and the sub-index of
// the tile within its block.
type Position struct {
	Scene int
	Col   int
	Row   int
	Sub   int
}

var tileName = regexp.MustCompile(`(?i)^(\d+)_(\d+)_(\d+)_(\d+)\.(png|jpg|jpeg|tif|tiff)$`)

// Parse extracts the Position from a bare tile filename. It reports false
// for any name that does not follow the scene_col_row_sub.ext convention;
// such files are not tiles and callers are expected to skip them.
func Parse(name string) (Position, bool) {
	m := tileName.FindStringSubmatch(name)
	if m == nil {
		return Position{}, false
	}

	var fields [4]int
	for i := range fields {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Position{}, false
		}
		fields[i] = n
	}

	return Position{
		Scene: fields[0],
		Col:   fields[1],
		Row:   fields[2],
		Sub:   fields[3],
	}, true
}
