package sampler

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestName is the record a run leaves next to its output.
const ManifestName = "manifest.yaml"

// Manifest describes where a sample came from and what it took, so a
// dataset split can be reproduced or audited later.
type Manifest struct {
	CreatedAt  time.Time      `yaml:"created_at"`
	Source     string         `yaml:"source"`
	Seed       int64          `yaml:"seed"`
	Mode       string         `yaml:"mode"`
	Requested  int            `yaml:"requested,omitempty"`
	Percent    float64        `yaml:"percent,omitempty"`
	Candidates int            `yaml:"candidates"`
	Selected   int            `yaml:"selected"`
	PerGroup   map[string]int `yaml:"per_group,omitempty"`
	Files      []string       `yaml:"files"`
}

// writeManifest records the run into DstDir/manifest.yaml.
func writeManifest(opts Options, res *Result) error {
	mode := "flat"
	if opts.Stratify {
		mode = "stratified"
	}

	m := Manifest{
		CreatedAt:  time.Now().UTC(),
		Source:     opts.SrcDir,
		Seed:       opts.Seed,
		Mode:       mode,
		Requested:  opts.Count,
		Percent:    opts.Percent,
		Candidates: res.Candidates,
		Selected:   res.Selected,
		PerGroup:   res.PerGroup,
		Files:      res.Files,
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	path := filepath.Join(opts.DstDir, ManifestName)
	if err := os.MkdirAll(opts.DstDir, 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
