package stitcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sumShahd/sat2uav-rubble-detect/pkg/tilename"
)

// ScanTiles lists dir (non-recursively) and returns the scene's tile files
// grouped by block key, then by sub-index. Entries that do not parse as
// tile names and tiles of other scenes are skipped silently. When the same
// (block, sub) position appears under several filenames, the
// lexically last one wins.
func ScanTiles(dir string, sceneID int) (map[BlockKey]map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read tile directory: %w", err)
	}

	tiles := make(map[BlockKey]map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		pos, ok := tilename.Parse(entry.Name())
		if !ok || pos.Scene != sceneID {
			continue
		}

		key := BlockKey{Col: pos.Col, Row: pos.Row}
		if tiles[key] == nil {
			tiles[key] = make(map[int]string)
		}
		tiles[key][pos.Sub] = filepath.Join(dir, entry.Name())
	}
	return tiles, nil
}

// SceneInfo summarizes one scene found in a tile directory.
type SceneInfo struct {
	Scene  int `json:"scene"`
	Tiles  int `json:"tiles"`
	Blocks int `json:"blocks"`
}

// ListScenes scans dir and reports every scene with at least one tile,
// ordered by scene id.
func ListScenes(dir string) ([]SceneInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read tile directory: %w", err)
	}

	tiles := make(map[int]int)
	blocks := make(map[int]map[BlockKey]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		pos, ok := tilename.Parse(entry.Name())
		if !ok {
			continue
		}
		tiles[pos.Scene]++
		if blocks[pos.Scene] == nil {
			blocks[pos.Scene] = make(map[BlockKey]struct{})
		}
		blocks[pos.Scene][BlockKey{Col: pos.Col, Row: pos.Row}] = struct{}{}
	}

	scenes := make([]SceneInfo, 0, len(tiles))
	for id, n := range tiles {
		scenes = append(scenes, SceneInfo{Scene: id, Tiles: n, Blocks: len(blocks[id])})
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Scene < scenes[j].Scene })
	return scenes, nil
}
