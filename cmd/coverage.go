package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sumShahd/sat2uav-rubble-detect/internal/coverage"
	"github.com/sumShahd/sat2uav-rubble-detect/internal/logging"
	"github.com/sumShahd/sat2uav-rubble-detect/internal/stitcher"
	"github.com/sumShahd/sat2uav-rubble-detect/pkg/raster"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Render an occupancy map of a scene's tiles",
	Long: `Coverage draws a small schematic of a scene: one square per
sub-tile cell, filled where a tile exists and hollow where one is
missing, with block boundaries marked. It reads only filenames, so it is
fast enough to run over a whole dataset before committing to stitching.

Examples:
  rubble coverage --tiles ./tiles --scene 4 --out coverage004.png
  rubble coverage --tiles ./tiles --scene 4 --out c.png --cell 32 --compact=false`,
	RunE: runCoverage,
}

func init() {
	rootCmd.AddCommand(coverageCmd)

	coverageCmd.Flags().String("tiles", "", "tile directory (required)")
	coverageCmd.Flags().Int("scene", -1, "scene id (required)")
	coverageCmd.Flags().String("out", "", "output image file (required)")
	coverageCmd.Flags().Int("grid-size", stitcher.DefaultGridSize, "sub-tiles per block side")
	coverageCmd.Flags().Int("sub-base", stitcher.DefaultSubBase, "sub-index that maps to cell (0,0)")
	coverageCmd.Flags().Int("cell", coverage.DefaultCellPx, "rendered cell size in pixels")
	coverageCmd.Flags().Bool("compact", true, "pack sparse block columns and rows together")

	viper.BindPFlag("coverage.tiles", coverageCmd.Flags().Lookup("tiles"))
	viper.BindPFlag("coverage.scene", coverageCmd.Flags().Lookup("scene"))
	viper.BindPFlag("coverage.out", coverageCmd.Flags().Lookup("out"))
	viper.BindPFlag("coverage.grid-size", coverageCmd.Flags().Lookup("grid-size"))
	viper.BindPFlag("coverage.sub-base", coverageCmd.Flags().Lookup("sub-base"))
	viper.BindPFlag("coverage.cell", coverageCmd.Flags().Lookup("cell"))
	viper.BindPFlag("coverage.compact", coverageCmd.Flags().Lookup("compact"))
}

func runCoverage(cmd *cobra.Command, args []string) error {
	initLogging()
	defer logging.Sync()

	dir := viper.GetString("coverage.tiles")
	sceneID := viper.GetInt("coverage.scene")
	out := viper.GetString("coverage.out")

	if dir == "" {
		return errors.New("tile directory is required (use --tiles)")
	}
	if sceneID < 0 {
		return errors.New("scene id is required (use --scene)")
	}
	if out == "" {
		return errors.New("output path is required (use --out)")
	}

	img, sum, err := coverage.Render(dir, sceneID, coverage.Options{
		GridSize:    viper.GetInt("coverage.grid-size"),
		SubBase:     viper.GetInt("coverage.sub-base"),
		CellPx:      viper.GetInt("coverage.cell"),
		CompactGaps: viper.GetBool("coverage.compact"),
	})
	if errors.Is(err, stitcher.ErrNoTiles) {
		fmt.Printf("no tiles found for scene %03d\n", sceneID)
		suggestScenes(dir)
		return nil
	}
	if err != nil {
		return err
	}

	if err := raster.Save(img, out); err != nil {
		return fmt.Errorf("save coverage map: %w", err)
	}

	fmt.Printf("[scene %03d] coverage saved to %s: %d blocks, %d/%d cells present\n",
		sceneID, out, sum.Blocks, sum.Present, sum.Present+sum.Missing)
	return nil
}
