package sampler

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

// writeTree creates empty files under dir for each relative path.
func writeTree(t *testing.T, dir string, paths ...string) {
	t.Helper()
	for _, rel := range paths {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(rel), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return files
}

func TestRunValidation(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{name: "missing directories", opts: Options{Count: 1}},
		{name: "neither count nor percent", opts: Options{SrcDir: "a", DstDir: "b"}},
		{name: "both count and percent", opts: Options{SrcDir: "a", DstDir: "b", Count: 1, Percent: 10}},
		{name: "percent over 100", opts: Options{SrcDir: "a", DstDir: "b", Percent: 150}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Run(tc.opts); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestRunFlat(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, "a.png", "b.png", "c.png", "d.png", "notes.txt")

	res, err := Run(Options{SrcDir: src, DstDir: dst, Count: 2, Seed: 42})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Candidates != 4 {
		t.Errorf("candidates = %d, want 4 (text file must not count)", res.Candidates)
	}
	if res.Selected != 2 || res.Transferred != 2 {
		t.Errorf("selected/transferred = %d/%d, want 2/2", res.Selected, res.Transferred)
	}

	got := listFiles(t, dst)
	if len(got) != 3 { // two images plus the manifest
		t.Fatalf("destination holds %v, want 2 images and %s", got, ManifestName)
	}
}

func TestRunDeterministic(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, "a.png", "b.png", "c.png", "d.png", "e.png")

	opts := Options{SrcDir: src, Count: 3, Seed: 7, DryRun: true}

	opts.DstDir = t.TempDir()
	first, err := Run(opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	opts.DstDir = t.TempDir()
	second, err := Run(opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !reflect.DeepEqual(first.Files, second.Files) {
		t.Fatalf("same seed selected %v then %v", first.Files, second.Files)
	}
}

func TestRunStratified(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	// 8 rubble, 4 intact: a draw of 6 should split 4/2.
	writeTree(t, src,
		"rubble/r1.png", "rubble/r2.png", "rubble/r3.png", "rubble/r4.png",
		"rubble/r5.png", "rubble/r6.png", "rubble/r7.png", "rubble/r8.png",
		"intact/i1.png", "intact/i2.png", "intact/i3.png", "intact/i4.png",
	)

	res, err := Run(Options{
		SrcDir: src, DstDir: dst, Count: 6, Seed: 1,
		Recursive: true, Stratify: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.PerGroup["rubble"] != 4 || res.PerGroup["intact"] != 2 {
		t.Fatalf("per-group take = %v, want rubble:4 intact:2", res.PerGroup)
	}

	// Stratified output keeps the class folders.
	for _, rel := range listFiles(t, dst) {
		if rel == ManifestName {
			continue
		}
		top := filepath.Dir(rel)
		if top != "rubble" && top != "intact" {
			t.Errorf("file %s not under a class folder", rel)
		}
	}
}

func TestRunStratifiedTopUp(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	// The tiny group cannot fill a proportional share; the draw must
	// still reach the requested total from the larger group.
	writeTree(t, src,
		"big/b1.png", "big/b2.png", "big/b3.png", "big/b4.png",
		"big/b5.png", "big/b6.png", "big/b7.png",
		"tiny/t1.png",
	)

	res, err := Run(Options{
		SrcDir: src, DstDir: dst, Count: 6, Seed: 3,
		Recursive: true, Stratify: true, DryRun: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Selected != 6 {
		t.Fatalf("selected = %d, want 6", res.Selected)
	}
}

func TestRunSidecars(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, "a.png", "a.json", "b.png")

	res, err := Run(Options{
		SrcDir: src, DstDir: dst, Count: 2, Seed: 42,
		PairExts: []string{".json"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Both images plus a.png's sidecar.
	if res.Transferred != 3 {
		t.Fatalf("transferred = %d, want 3", res.Transferred)
	}
	if _, err := os.Stat(filepath.Join(dst, "a.json")); err != nil {
		t.Fatalf("sidecar not carried: %v", err)
	}
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, "a.png", "b.png")

	res, err := Run(Options{SrcDir: src, DstDir: dst, Count: 1, Seed: 42, DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Selected != 1 {
		t.Fatalf("selected = %d, want 1", res.Selected)
	}
	if got := listFiles(t, dst); len(got) != 0 {
		t.Fatalf("dry run wrote %v", got)
	}
}

func TestRunKeepTree(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, "set1/deep/a.png")

	_, err := Run(Options{
		SrcDir: src, DstDir: dst, Count: 1, Seed: 42,
		Recursive: true, KeepTree: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "set1", "deep", "a.png")); err != nil {
		t.Fatalf("relative path not mirrored: %v", err)
	}
}

func TestRunSkipsExistingWithoutOverwrite(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, "a.png")
	writeTree(t, dst, "a.png")

	res, err := Run(Options{SrcDir: src, DstDir: dst, Count: 1, Seed: 42})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Skipped != 1 || res.Transferred != 0 {
		t.Fatalf("skipped/transferred = %d/%d, want 1/0", res.Skipped, res.Transferred)
	}
}

func TestRunMove(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, "a.png")

	_, err := Run(Options{SrcDir: src, DstDir: dst, Count: 1, Seed: 42, Move: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(src, "a.png")); !os.IsNotExist(err) {
		t.Fatal("moved file still present at source")
	}
	if _, err := os.Stat(filepath.Join(dst, "a.png")); err != nil {
		t.Fatalf("moved file missing at destination: %v", err)
	}
}

func TestManifestWritten(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, "a.png", "b.png")

	if _, err := Run(Options{SrcDir: src, DstDir: dst, Count: 2, Seed: 9}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dst, ManifestName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if m.Seed != 9 || m.Mode != "flat" || m.Selected != 2 || len(m.Files) != 2 {
		t.Fatalf("manifest %+v does not describe the run", m)
	}
}
