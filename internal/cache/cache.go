// Package cache keeps finished mosaics and scene listings warm for the
// HTTP server, so repeated stitch requests against an unchanged tile
// directory do not redo the full decode and composite pass.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sumShahd/sat2uav-rubble-detect/internal/stitcher"
)

// Config sizes the two caches.
type Config struct {
	// MosaicCacheSizeMB caps the encoded-mosaic cache. Mosaics are
	// large; this is a hard upper bound, not a per-entry limit.
	MosaicCacheSizeMB int
	// MosaicTTL expires cached mosaics, bounding how stale a response
	// can be when the tile directory changes underneath the server.
	MosaicTTL time.Duration
	// SceneCacheSize is the number of directory listings kept.
	SceneCacheSize int
}

// DefaultConfig returns the sizing used by the serve command.
func DefaultConfig() Config {
	return Config{
		MosaicCacheSizeMB: 256,
		MosaicTTL:         5 * time.Minute,
		SceneCacheSize:    64,
	}
}

// Manager owns the mosaic byte cache and the scene listing cache.
type Manager struct {
	mosaics *bigcache.BigCache
	scenes  *lru.Cache[string, []stitcher.SceneInfo]
}

// NewManager builds both caches from cfg.
func NewManager(cfg Config) (*Manager, error) {
	mosaicCfg := bigcache.Config{
		Shards:             64,
		LifeWindow:         cfg.MosaicTTL,
		CleanWindow:        cfg.MosaicTTL / 2,
		MaxEntriesInWindow: 1024,
		MaxEntrySize:       16 * 1024 * 1024,
		HardMaxCacheSize:   cfg.MosaicCacheSizeMB,
		Verbose:            false,
	}

	mosaics, err := bigcache.New(context.Background(), mosaicCfg)
	if err != nil {
		return nil, fmt.Errorf("create mosaic cache: %w", err)
	}

	scenes, err := lru.New[string, []stitcher.SceneInfo](cfg.SceneCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create scene cache: %w", err)
	}

	return &Manager{mosaics: mosaics, scenes: scenes}, nil
}

// GetMosaic returns the cached encoded mosaic for key, if present.
func (m *Manager) GetMosaic(key string) ([]byte, bool) {
	data, err := m.mosaics.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetMosaic stores an encoded mosaic under key.
func (m *Manager) SetMosaic(key string, data []byte) error {
	return m.mosaics.Set(key, data)
}

// GetScenes returns the cached listing for a tile directory.
func (m *Manager) GetScenes(dir string) ([]stitcher.SceneInfo, bool) {
	return m.scenes.Get(dir)
}

// SetScenes stores the listing for a tile directory.
func (m *Manager) SetScenes(dir string, scenes []stitcher.SceneInfo) {
	m.scenes.Add(dir, scenes)
}

// MosaicKey derives a stable cache key from everything that influences
// the stitched output: the directory, the scene and the full geometry.
func MosaicKey(dir string, sceneID int, opts stitcher.Options) string {
	opts = opts.Normalized()
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|%d|%d|%t|%d|%d",
		dir, sceneID, opts.TileSize, opts.GridSize, opts.SubBase,
		opts.CompactGaps, opts.StrideX, opts.StrideY)
	return "mosaic:" + hex.EncodeToString(h.Sum(nil))[:24]
}

// Stats reports entry counts for the health endpoint.
func (m *Manager) Stats() map[string]int {
	return map[string]int{
		"mosaics": m.mosaics.Len(),
		"scenes":  m.scenes.Len(),
	}
}

// Close releases the mosaic cache's shards.
func (m *Manager) Close() error {
	return m.mosaics.Close()
}
