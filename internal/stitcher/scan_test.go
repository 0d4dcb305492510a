package stitcher

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestScanTiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"004_1_2_1.png",
		"004_1_2_2.jpg",
		"004_3_0_1.png",
		"007_1_2_1.png", // other scene
		"readme.txt",    // not a tile
	)
	if err := os.Mkdir(filepath.Join(dir, "005_0_0_1.png"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	tiles, err := ScanTiles(dir, 4)
	if err != nil {
		t.Fatalf("ScanTiles: %v", err)
	}

	if len(tiles) != 2 {
		t.Fatalf("blocks = %v, want keys (1,2) and (3,0)", tiles)
	}
	if got := len(tiles[BlockKey{Col: 1, Row: 2}]); got != 2 {
		t.Errorf("block (1,2) has %d tiles, want 2", got)
	}
	if got := len(tiles[BlockKey{Col: 3, Row: 0}]); got != 1 {
		t.Errorf("block (3,0) has %d tiles, want 1", got)
	}
}

func TestScanTilesDuplicateSub(t *testing.T) {
	dir := t.TempDir()
	// Same position under two extensions: the lexically later file wins.
	touch(t, dir, "004_0_0_1.jpg", "004_0_0_1.png")

	tiles, err := ScanTiles(dir, 4)
	if err != nil {
		t.Fatalf("ScanTiles: %v", err)
	}

	got := tiles[BlockKey{}][1]
	if filepath.Base(got) != "004_0_0_1.png" {
		t.Fatalf("duplicate sub resolved to %s, want the lexically last name", got)
	}
}

func TestScanTilesMissingDir(t *testing.T) {
	if _, err := ScanTiles(filepath.Join(t.TempDir(), "nope"), 4); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestListScenes(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"004_1_2_1.png", "004_1_2_2.png", "004_3_0_1.png",
		"007_0_0_1.tif",
		"junk.png",
	)

	scenes, err := ListScenes(dir)
	if err != nil {
		t.Fatalf("ListScenes: %v", err)
	}

	want := []SceneInfo{
		{Scene: 4, Tiles: 3, Blocks: 2},
		{Scene: 7, Tiles: 1, Blocks: 1},
	}
	if !reflect.DeepEqual(scenes, want) {
		t.Fatalf("ListScenes = %+v, want %+v", scenes, want)
	}
}

func TestListScenesEmpty(t *testing.T) {
	scenes, err := ListScenes(t.TempDir())
	if err != nil {
		t.Fatalf("ListScenes: %v", err)
	}
	if len(scenes) != 0 {
		t.Fatalf("ListScenes = %+v, want empty", scenes)
	}
}
