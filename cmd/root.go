// Package cmd holds the rubble command tree: stitching as the root
// command, plus the sample, coverage and serve subcommands.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sumShahd/sat2uav-rubble-detect/internal/logging"
	"github.com/sumShahd/sat2uav-rubble-detect/internal/stitcher"
	"github.com/sumShahd/sat2uav-rubble-detect/pkg/raster"
)

const version = "1.0.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rubble",
	Short: "Reconstruct scene mosaics from gridded tile datasets",
	Long: `rubble stitches directories of gridded tile images back into
full-resolution scene mosaics.

Tiles are named <scene>_<col>_<row>_<sub>.<ext> and assembled in two
levels: sub-tiles into fixed-size blocks, blocks onto the mosaic canvas.
Missing tiles stay transparent; sparse block columns and rows can be
packed together so id gaps do not stretch the output.

Examples:
  # Stitch scene 4 from ./tiles into a PNG
  rubble --tiles ./tiles --scene 4 --out mosaic/scene004.png

  # Keep raw block positions (gaps become empty canvas)
  rubble --tiles ./tiles --scene 4 --out scene004.png --compact=false

  # Render a quick-look occupancy map instead of the full mosaic
  rubble coverage --tiles ./tiles --scene 4 --out coverage004.png

  # Draw a stratified 500-image sample for annotation
  rubble sample --src ./dataset --dst ./annotate --num 500 --stratify

  # Run the stitching HTTP API
  rubble serve --port 8080`,
	RunE: runStitch,
}

// Execute runs the command tree; main calls it once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rubble.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-file", "", "also log JSON to this rotating file")

	rootCmd.Flags().StringP("tiles", "t", "", "tile directory (required)")
	rootCmd.Flags().IntP("scene", "s", -1, "scene id to stitch (required)")
	rootCmd.Flags().StringP("out", "o", "", "output raster file (required)")
	rootCmd.Flags().Int("tile-size", stitcher.DefaultTileSize, "tile side length in pixels")
	rootCmd.Flags().Int("grid-size", stitcher.DefaultGridSize, "sub-tiles per block side")
	rootCmd.Flags().Int("sub-base", stitcher.DefaultSubBase, "sub-index that maps to cell (0,0)")
	rootCmd.Flags().Bool("compact", true, "pack sparse block columns and rows together")
	rootCmd.Flags().Int("stride-x", 0, "horizontal block spacing in pixels (default: block size)")
	rootCmd.Flags().Int("stride-y", 0, "vertical block spacing in pixels (default: block size)")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("tiles", rootCmd.Flags().Lookup("tiles"))
	viper.BindPFlag("scene", rootCmd.Flags().Lookup("scene"))
	viper.BindPFlag("out", rootCmd.Flags().Lookup("out"))
	viper.BindPFlag("tile-size", rootCmd.Flags().Lookup("tile-size"))
	viper.BindPFlag("grid-size", rootCmd.Flags().Lookup("grid-size"))
	viper.BindPFlag("sub-base", rootCmd.Flags().Lookup("sub-base"))
	viper.BindPFlag("compact", rootCmd.Flags().Lookup("compact"))
	viper.BindPFlag("stride-x", rootCmd.Flags().Lookup("stride-x"))
	viper.BindPFlag("stride-y", rootCmd.Flags().Lookup("stride-y"))
}

// initConfig reads the config file and RUBBLE_* environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rubble")
	}

	viper.SetEnvPrefix("RUBBLE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// initLogging applies the persistent logging flags. Every command calls
// it first.
func initLogging() {
	logging.Init(viper.GetString("log-level"), viper.GetString("log-file"))
}

func runStitch(cmd *cobra.Command, args []string) error {
	if cmd.Flags().NFlag() == 0 && len(args) == 0 {
		return cmd.Help()
	}

	initLogging()
	defer logging.Sync()

	dir := viper.GetString("tiles")
	sceneID := viper.GetInt("scene")
	out := viper.GetString("out")

	if dir == "" {
		return errors.New("tile directory is required (use --tiles)")
	}
	if sceneID < 0 {
		return errors.New("scene id is required (use --scene)")
	}
	if out == "" {
		return errors.New("output path is required (use --out)")
	}

	opts := stitcher.Options{
		TileSize:    viper.GetInt("tile-size"),
		GridSize:    viper.GetInt("grid-size"),
		SubBase:     viper.GetInt("sub-base"),
		CompactGaps: viper.GetBool("compact"),
		StrideX:     viper.GetInt("stride-x"),
		StrideY:     viper.GetInt("stride-y"),
	}

	result, err := stitcher.Stitch(dir, sceneID, opts)
	if errors.Is(err, stitcher.ErrNoTiles) {
		fmt.Printf("no tiles found for scene %03d\n", sceneID)
		suggestScenes(dir)
		return nil
	}
	if err != nil {
		return err
	}

	if err := raster.Save(result.Image, out); err != nil {
		return fmt.Errorf("save mosaic: %w", err)
	}

	logging.Log.Info("mosaic written",
		zap.Int("scene", sceneID),
		zap.Int("tiles", result.Tiles),
		zap.Int("blocks", result.Blocks),
		zap.String("out", out))
	fmt.Printf("[scene %03d] saved to %s, size=%dx%d\n", sceneID, out, result.Width, result.Height)
	return nil
}

// suggestScenes tells the user what the directory does contain when the
// requested scene is empty.
func suggestScenes(dir string) {
	scenes, err := stitcher.ListScenes(dir)
	if err != nil || len(scenes) == 0 {
		return
	}
	fmt.Print("available scenes:")
	for _, s := range scenes {
		fmt.Printf(" %03d (%d tiles)", s.Scene, s.Tiles)
	}
	fmt.Println()
}
