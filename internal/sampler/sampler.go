// Package sampler draws reproducible random samples from an image
// dataset directory into a destination folder, optionally stratified by
// class subfolder. It shares nothing with the stitching core beyond the
// standard library; the two tools only happen to live in one repository.
package sampler

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExts are the image extensions sampled when none are given.
var DefaultExts = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".gif", ".webp"}

// Options configures one sampling run. Exactly one of Count and Percent
// must be set.
type Options struct {
	SrcDir string
	DstDir string

	// Count is the absolute number of images to draw.
	Count int
	// Percent draws a fraction of the candidates instead, in (0, 100].
	Percent float64

	// Exts filters candidate files; defaults to DefaultExts. Entries
	// are matched case-insensitively, with or without a leading dot.
	Exts []string
	// Recursive walks subdirectories of SrcDir instead of only its
	// immediate entries.
	Recursive bool
	// Stratify draws proportionally per immediate parent directory, so
	// class folders keep their relative sizes in the sample.
	Stratify bool
	// Seed fixes the random source; the same seed over the same source
	// tree selects the same files.
	Seed int64

	// Move relocates files instead of copying them.
	Move bool
	// Overwrite replaces destination files that already exist;
	// otherwise they are counted as skipped.
	Overwrite bool
	// KeepTree mirrors each file's path relative to SrcDir under
	// DstDir. Without it, stratified runs keep the class folder and
	// flat runs place everything directly in DstDir.
	KeepTree bool
	// DryRun selects and reports but touches nothing, and writes no
	// manifest.
	DryRun bool

	// PairExts are sidecar extensions (annotations, labels) carried
	// along with each selected image when a file with the same stem
	// exists.
	PairExts []string
}

// Result summarizes a run.
type Result struct {
	// Candidates is the number of files that matched the extension
	// filter.
	Candidates int
	// Selected is the number of files drawn.
	Selected int
	// Transferred counts files actually copied or moved, sidecars
	// included.
	Transferred int
	// Skipped counts destination collisions left in place.
	Skipped int
	// PerGroup is the per-class take of a stratified run.
	PerGroup map[string]int
	// Files are the selected source paths, relative to SrcDir.
	Files []string
}

// Run samples according to opts and, unless DryRun is set, writes a
// manifest.yaml into DstDir recording what was taken.
func Run(opts Options) (*Result, error) {
	if opts.SrcDir == "" || opts.DstDir == "" {
		return nil, errors.New("source and destination directories are required")
	}
	if (opts.Count > 0) == (opts.Percent > 0) {
		return nil, errors.New("exactly one of count and percent must be set")
	}
	if opts.Percent > 100 {
		return nil, fmt.Errorf("percent %v out of range (0, 100]", opts.Percent)
	}

	info, err := os.Stat(opts.SrcDir)
	if err != nil {
		return nil, fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", opts.SrcDir)
	}

	candidates, err := findImages(opts.SrcDir, normalizeExts(opts.Exts), opts.Recursive)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New("no images found with the given extensions")
	}

	want := opts.Count
	if opts.Percent > 0 {
		want = int(float64(len(candidates)) * opts.Percent / 100)
		if want < 1 {
			want = 1
		}
	}

	rnd := rand.New(rand.NewSource(opts.Seed))

	res := &Result{Candidates: len(candidates)}
	var chosen []string
	if opts.Stratify {
		chosen, res.PerGroup = drawStratified(candidates, want, rnd)
	} else {
		chosen = drawFlat(candidates, want, rnd)
	}
	sort.Strings(chosen)
	res.Selected = len(chosen)
	res.Files = chosen

	for _, rel := range chosen {
		src := filepath.Join(opts.SrcDir, rel)
		dst := destPath(opts, rel)

		transferred, skipped, err := transfer(src, dst, opts)
		if err != nil {
			return nil, err
		}
		res.Transferred += transferred
		res.Skipped += skipped
	}

	if !opts.DryRun {
		if err := writeManifest(opts, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// findImages lists matching files as paths relative to src, sorted so a
// fixed seed always sees the same ordering.
func findImages(src string, exts map[string]bool, recursive bool) ([]string, error) {
	var files []string

	if recursive {
		err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !exts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk source directory: %w", err)
		}
	} else {
		entries, err := os.ReadDir(src)
		if err != nil {
			return nil, fmt.Errorf("read source directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !exts[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

func normalizeExts(exts []string) map[string]bool {
	if len(exts) == 0 {
		exts = DefaultExts
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}

// drawFlat shuffles all candidates and takes the first min(want, n).
func drawFlat(candidates []string, want int, rnd *rand.Rand) []string {
	picked := append([]string(nil), candidates...)
	rnd.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if want > len(picked) {
		want = len(picked)
	}
	return picked[:want]
}

// drawStratified allocates the requested total across immediate parent
// directories in proportion to their size, handing out the rounding
// remainder to the groups with the largest fractional parts. Groups too
// small to fill their allocation are topped up from the leftover pool.
func drawStratified(candidates []string, want int, rnd *rand.Rand) ([]string, map[string]int) {
	groups := make(map[string][]string)
	for _, rel := range candidates {
		g := filepath.Base(filepath.Dir(rel))
		groups[g] = append(groups[g], rel)
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	total := len(candidates)
	if want > total {
		want = total
	}

	type share struct {
		group string
		frac  float64
	}
	quota := make(map[string]int, len(groups))
	shares := make([]share, 0, len(groups))
	allocated := 0
	for _, g := range names {
		raw := float64(len(groups[g])) / float64(total) * float64(want)
		quota[g] = int(raw)
		allocated += quota[g]
		shares = append(shares, share{group: g, frac: raw - float64(quota[g])})
	}

	// Remainder goes to the largest fractional parts; equal fractions
	// are broken by a shuffle so no group is systematically favored.
	rnd.Shuffle(len(shares), func(i, j int) { shares[i], shares[j] = shares[j], shares[i] })
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].frac > shares[j].frac })
	for i := 0; i < want-allocated; i++ {
		quota[shares[i%len(shares)].group]++
	}

	chosenSet := make(map[string]bool, want)
	var chosen []string
	taken := make(map[string]int, len(groups))
	for _, g := range names {
		pool := append([]string(nil), groups[g]...)
		rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		n := quota[g]
		if n > len(pool) {
			n = len(pool)
		}
		for _, rel := range pool[:n] {
			chosen = append(chosen, rel)
			chosenSet[rel] = true
		}
		taken[g] = n
	}

	// Tiny groups can leave the draw short; fill from whatever is left.
	if len(chosen) < want {
		var rest []string
		for _, rel := range candidates {
			if !chosenSet[rel] {
				rest = append(rest, rel)
			}
		}
		rnd.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
		for _, rel := range rest {
			if len(chosen) == want {
				break
			}
			chosen = append(chosen, rel)
			taken[filepath.Base(filepath.Dir(rel))]++
		}
	}

	return chosen, taken
}

// destPath maps a selected relative source path to its destination.
func destPath(opts Options, rel string) string {
	switch {
	case opts.KeepTree:
		return filepath.Join(opts.DstDir, rel)
	case opts.Stratify:
		return filepath.Join(opts.DstDir, filepath.Base(filepath.Dir(rel)), filepath.Base(rel))
	default:
		return filepath.Join(opts.DstDir, filepath.Base(rel))
	}
}

// transfer copies or moves src to dst along with any sidecar files
// sharing its stem, and reports how many files landed and how many were
// skipped over existing destinations.
func transfer(src, dst string, opts Options) (transferred, skipped int, err error) {
	paths := [][2]string{{src, dst}}
	for _, ext := range opts.PairExts {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		sidecar := withExt(src, ext)
		if _, statErr := os.Stat(sidecar); statErr == nil {
			paths = append(paths, [2]string{sidecar, withExt(dst, ext)})
		}
	}

	for _, pair := range paths {
		s, d := pair[0], pair[1]
		if _, statErr := os.Stat(d); statErr == nil && !opts.Overwrite {
			skipped++
			continue
		}
		if opts.DryRun {
			transferred++
			continue
		}
		if err := os.MkdirAll(filepath.Dir(d), 0o755); err != nil {
			return transferred, skipped, fmt.Errorf("create destination directory: %w", err)
		}
		if opts.Move {
			err = moveFile(s, d)
		} else {
			err = copyFile(s, d)
		}
		if err != nil {
			return transferred, skipped, err
		}
		transferred++
	}
	return transferred, skipped, nil
}

// withExt swaps the extension of path for ext.
func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}

// moveFile renames when possible and falls back to copy-and-delete
// across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
