package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sumShahd/sat2uav-rubble-detect/internal/logging"
	"github.com/sumShahd/sat2uav-rubble-detect/internal/sampler"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Randomly sample images into a training dataset folder",
	Long: `Sample draws a reproducible random subset of a dataset directory
into a destination folder and records the draw in a manifest.yaml.

Stratified mode keeps class proportions when the source is organized as
one subfolder per class. Sidecar files sharing an image's stem (labels,
annotations) can be carried along with --pair-exts.

Examples:
  # 500 random images
  rubble sample --src ./dataset --dst ./annotate --num 500

  # 10% of every class, labels included
  rubble sample --src ./dataset --dst ./val --percent 10 --stratify --pair-exts .txt

  # See what a draw would take without touching anything
  rubble sample --src ./dataset --dst ./out --num 100 --dry-run`,
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().String("src", "", "source dataset folder (required)")
	sampleCmd.Flags().String("dst", "", "destination folder (required)")
	sampleCmd.Flags().IntP("num", "n", 0, "number of images to sample")
	sampleCmd.Flags().Float64("percent", 0, "percentage of images to sample instead of a count")
	sampleCmd.Flags().Int64("seed", 42, "random seed for reproducibility")
	sampleCmd.Flags().Bool("recursive", false, "search subdirectories for images")
	sampleCmd.Flags().StringSlice("ext", nil, "image extensions to include (default: common raster types)")
	sampleCmd.Flags().Bool("stratify", false, "sample proportionally per immediate subfolder")
	sampleCmd.Flags().Bool("keep-tree", false, "mirror the source folder structure under dst")
	sampleCmd.Flags().Bool("overwrite", false, "overwrite existing destination files")
	sampleCmd.Flags().Bool("move", false, "move files instead of copying")
	sampleCmd.Flags().StringSlice("pair-exts", nil, "sidecar extensions carried with each image (e.g. .json,.txt,.xml)")
	sampleCmd.Flags().Bool("dry-run", false, "report the draw without copying or moving")

	viper.BindPFlag("sample.src", sampleCmd.Flags().Lookup("src"))
	viper.BindPFlag("sample.dst", sampleCmd.Flags().Lookup("dst"))
	viper.BindPFlag("sample.num", sampleCmd.Flags().Lookup("num"))
	viper.BindPFlag("sample.percent", sampleCmd.Flags().Lookup("percent"))
	viper.BindPFlag("sample.seed", sampleCmd.Flags().Lookup("seed"))
	viper.BindPFlag("sample.recursive", sampleCmd.Flags().Lookup("recursive"))
	viper.BindPFlag("sample.ext", sampleCmd.Flags().Lookup("ext"))
	viper.BindPFlag("sample.stratify", sampleCmd.Flags().Lookup("stratify"))
	viper.BindPFlag("sample.keep-tree", sampleCmd.Flags().Lookup("keep-tree"))
	viper.BindPFlag("sample.overwrite", sampleCmd.Flags().Lookup("overwrite"))
	viper.BindPFlag("sample.move", sampleCmd.Flags().Lookup("move"))
	viper.BindPFlag("sample.pair-exts", sampleCmd.Flags().Lookup("pair-exts"))
	viper.BindPFlag("sample.dry-run", sampleCmd.Flags().Lookup("dry-run"))
}

func runSample(cmd *cobra.Command, args []string) error {
	initLogging()
	defer logging.Sync()

	opts := sampler.Options{
		SrcDir:    viper.GetString("sample.src"),
		DstDir:    viper.GetString("sample.dst"),
		Count:     viper.GetInt("sample.num"),
		Percent:   viper.GetFloat64("sample.percent"),
		Exts:      viper.GetStringSlice("sample.ext"),
		Recursive: viper.GetBool("sample.recursive"),
		Stratify:  viper.GetBool("sample.stratify"),
		Seed:      viper.GetInt64("sample.seed"),
		Move:      viper.GetBool("sample.move"),
		Overwrite: viper.GetBool("sample.overwrite"),
		KeepTree:  viper.GetBool("sample.keep-tree"),
		DryRun:    viper.GetBool("sample.dry-run"),
		PairExts:  viper.GetStringSlice("sample.pair-exts"),
	}

	if opts.SrcDir == "" || opts.DstDir == "" {
		return errors.New("source and destination are required (use --src and --dst)")
	}

	res, err := sampler.Run(opts)
	if err != nil {
		return err
	}

	verb := "copied"
	if opts.Move {
		verb = "moved"
	}
	if opts.DryRun {
		verb = "would transfer"
	}

	logging.Log.Info("sampling done",
		zap.Int("candidates", res.Candidates),
		zap.Int("selected", res.Selected),
		zap.Int("transferred", res.Transferred),
		zap.Int("skipped", res.Skipped))

	fmt.Printf("selected %d of %d images, %s %d (%d skipped)\n",
		res.Selected, res.Candidates, verb, res.Transferred, res.Skipped)
	if len(res.PerGroup) > 0 {
		for group, n := range res.PerGroup {
			fmt.Printf("  %s: %d\n", group, n)
		}
	}
	if res.Selected < opts.Count {
		fmt.Printf("warning: requested %d but only %d images available\n", opts.Count, res.Selected)
	}
	return nil
}
