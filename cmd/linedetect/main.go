// Package main is a command line tool that extracts 3D lines from an RGB-D frame.
package main

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/linedetection/logging"
	"go.viam.com/linedetection/pointcloud"
	"go.viam.com/linedetection/rimage"
	"go.viam.com/linedetection/rimage/transform"
	"go.viam.com/linedetection/vision/detect2d"
	"go.viam.com/linedetection/vision/lines2d"
	"go.viam.com/linedetection/vision/linedetection"
)

const (
	// Flags.
	flagImage          = "image"
	flagDepth          = "depth"
	flagCloud          = "cloud"
	flagCamera         = "camera"
	flagConfig         = "config"
	flagDetectorConfig = "detector-config"
	flagDetector       = "detector"
	flagDepthScale     = "depth-scale"
	flagDepthLines     = "depth-lines"
	flagKeepDirection  = "keep-direction"
	flagParallel       = "parallel"
	flagMerge          = "merge"
	flagCheck2D        = "check-2d"
	flagCheckReproj    = "check-reprojection"
	flagSkipBruteForce = "skip-brute-force"
	flagOutput         = "output"
	flagOverlay        = "overlay"
	flagHistogram      = "histogram"
	flagSaveCloud      = "save-cloud"
	flagStats          = "stats"
	flagDebug          = "debug"

	lengthBins = 10
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var logger logging.Logger

	imageFlag := &cli.StringFlag{
		Name:     flagImage,
		Aliases:  []string{"i"},
		Required: true,
		Usage:    "color image `FILE` (png or jpeg)",
	}
	detectorFlag := &cli.StringFlag{
		Name:  flagDetector,
		Value: detect2d.LSD.String(),
		Usage: "2D line detector: LSD, EDL, FAST or HOUGH",
	}
	detectorConfigFlag := &cli.StringFlag{
		Name:  flagDetectorConfig,
		Usage: "load 2D detector parameters from `FILE`",
	}
	outputFlag := &cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage:   "write the lines to `FILE` instead of stdout",
	}
	overlayFlag := &cli.StringFlag{
		Name:  flagOverlay,
		Usage: "draw the lines over the color image and save it to `FILE`",
	}

	return &cli.App{
		Name:  "linedetect",
		Usage: "extract 3D lines from RGB-D frames",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("linedetect")
			} else {
				logger = logging.NewLogger("linedetect")
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				//nolint:errcheck
				logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "detect",
				Usage: "detect 3D lines and their planes in a color image with depth",
				Flags: []cli.Flag{
					imageFlag,
					&cli.StringFlag{
						Name:    flagDepth,
						Aliases: []string{"d"},
						Usage:   "16 bit depth image `FILE` aligned with the color image",
					},
					&cli.StringFlag{
						Name:  flagCloud,
						Usage: "organized point cloud `FILE` (pcd) aligned with the color image",
					},
					&cli.StringFlag{
						Name:     flagCamera,
						Required: true,
						Usage:    "camera `FILE` with pinhole intrinsics or a projection_matrix",
					},
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load line detection parameters from `FILE`",
					},
					detectorFlag,
					detectorConfigFlag,
					&cli.Float64Flag{
						Name:  flagDepthScale,
						Value: transform.DefaultDepthScale,
						Usage: "meters per depth unit",
					},
					&cli.BoolFlag{
						Name:  flagDepthLines,
						Usage: "also detect 2D lines on the depth image",
					},
					&cli.BoolFlag{
						Name:  flagKeepDirection,
						Usage: "keep the 2D direction of every line",
					},
					&cli.BoolFlag{
						Name:  flagParallel,
						Usage: "lift the lines on several goroutines",
					},
					&cli.StringFlag{
						Name:  flagMerge,
						Usage: "merge near duplicate 2D lines first: none, at_the_end or on_the_fly (overrides the config)",
					},
					&cli.BoolFlag{
						Name:  flagCheck2D,
						Usage: "drop 2D lines that cross a depth discontinuity before lifting",
					},
					&cli.BoolFlag{
						Name:  flagCheckReproj,
						Usage: "drop 3D lines whose reprojection does not match their 2D line",
					},
					&cli.BoolFlag{
						Name:  flagSkipBruteForce,
						Usage: "keep 3D lines without checking them against the cloud points",
					},
					outputFlag,
					overlayFlag,
					&cli.StringFlag{
						Name:  flagHistogram,
						Usage: "plot the prolongation patterns to `FILE`",
					},
					&cli.StringFlag{
						Name:  flagSaveCloud,
						Usage: "save the organized cloud to a binary pcd `FILE`",
					},
					&cli.BoolFlag{
						Name:  flagStats,
						Usage: "print the statistics table and the line length histogram",
					},
				},
				Action: func(c *cli.Context) error {
					return detectAction(c, logger)
				},
			},
			{
				Name:  "detect2d",
				Usage: "detect 2D line segments in an image",
				Flags: []cli.Flag{
					imageFlag,
					detectorFlag,
					detectorConfigFlag,
					outputFlag,
					overlayFlag,
				},
				Action: func(c *cli.Context) error {
					return detect2DAction(c, logger)
				},
			},
			{
				Name:  "params",
				Usage: "print the default parameters as JSON",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "2d",
						Usage: "print the 2D detector parameters instead",
					},
				},
				Action: func(c *cli.Context) error {
					var params interface{} = linedetection.DefaultConfig()
					if c.Bool("2d") {
						params = detect2d.DefaultConfig()
					}
					out, err := json.MarshalIndent(params, "", "  ")
					if err != nil {
						return err
					}
					printf(c.App.Writer, "%s", out)
					return nil
				},
			},
		},
	}
}

func detectAction(c *cli.Context, logger logging.Logger) error {
	detector, cfg2D, err := detectorFromFlags(c)
	if err != nil {
		return err
	}
	cfg := linedetection.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		if cfg, err = linedetection.NewConfigFromJSONFile(path); err != nil {
			return err
		}
	}
	if err := applyPipelineFlags(c, &cfg); err != nil {
		return err
	}
	img, err := rimage.ReadImageFromFile(c.String(flagImage))
	if err != nil {
		return err
	}
	projection, err := transform.NewProjectionMatrixFromJSONFile(c.String(flagCamera))
	if err != nil {
		return errors.Wrap(err, "cannot read camera")
	}
	cloud, depth, err := loadCloud(c, img)
	if err != nil {
		return err
	}
	if b := img.Bounds(); b.Dx() != cloud.Width() || b.Dy() != cloud.Height() {
		logger.Warnw("image and cloud sizes differ", "image", b.Size(), "cloud", cloud.Bounds().Size())
	}

	lines, err := detect2d.Detect(img, detector, cfg2D)
	if err != nil {
		return err
	}
	logger.Debugw("detected 2D lines", "detector", detector, "count", len(lines))
	if c.Bool(flagDepthLines) {
		if depth == nil {
			return errors.Errorf("--%s needs a depth image", flagDepthLines)
		}
		depthLines, err := detect2d.DetectOnDepth(depth, detector, cfg2D)
		if err != nil {
			return err
		}
		logger.Debugw("detected 2D lines on depth", "count", len(depthLines))
		lines = append(lines, depthLines...)
	}

	ld, err := linedetection.NewLineDetector(cfg, projection, logger.Sublogger("lines"))
	if err != nil {
		return err
	}
	lines2D, lines3D, st, err := ld.Detect3DLines(c.Context, cloud, lines, c.Bool(flagKeepDirection), c.Bool(flagParallel))
	if err != nil {
		return err
	}
	st.Log(logger)
	logger.Infow("found 3D lines", "count", len(lines3D))
	if c.Bool(flagStats) {
		if err := printStatistics(c.App.ErrWriter, st); err != nil {
			return err
		}
	}

	if err := writeOutput(c, func(w io.Writer) error { return linedetection.WriteLines(w, lines3D) }); err != nil {
		return err
	}
	if path := c.String(flagOverlay); path != "" {
		overlay, err := linedetection.DrawLinesByType(img, lines2D, lines3D)
		if err != nil {
			return err
		}
		if err := rimage.WriteImageToFile(path, overlay); err != nil {
			return err
		}
	}
	if path := c.String(flagHistogram); path != "" {
		if err := plotProlongationHistogram(&st.Prolongation, path); err != nil {
			return err
		}
	}
	if path := c.String(flagSaveCloud); path != "" {
		return writeFile(path, func(w io.Writer) error {
			return pointcloud.WriteOrganizedPCD(cloud, w, pointcloud.PCDBinary)
		})
	}
	return nil
}

// applyPipelineFlags overrides the pipeline steps of cfg with the flags that were set.
func applyPipelineFlags(c *cli.Context, cfg *linedetection.Config) error {
	if c.IsSet(flagMerge) {
		strategy, err := linedetection.ParseMergeStrategy(c.String(flagMerge))
		if err != nil {
			return err
		}
		cfg.MergeStrategy = strategy
	}
	if c.Bool(flagCheck2D) {
		cfg.CheckDiscont2D = true
	}
	if c.Bool(flagCheckReproj) {
		cfg.CheckReprojection = true
	}
	if c.Bool(flagSkipBruteForce) {
		cfg.CheckBruteForce = false
	}
	return nil
}

func detect2DAction(c *cli.Context, logger logging.Logger) error {
	detector, cfg2D, err := detectorFromFlags(c)
	if err != nil {
		return err
	}
	img, err := rimage.ReadImageFromFile(c.String(flagImage))
	if err != nil {
		return err
	}
	lines, err := detect2d.Detect(img, detector, cfg2D)
	if err != nil {
		return err
	}
	logger.Infow("detected 2D lines", "detector", detector, "count", len(lines))
	if err := writeOutput(c, func(w io.Writer) error { return writeLines2D(w, lines) }); err != nil {
		return err
	}
	if path := c.String(flagOverlay); path != "" {
		return rimage.WriteImageToFile(path, detect2d.DrawLines(img, lines, linedetection.Plane.Color()))
	}
	return nil
}

func detectorFromFlags(c *cli.Context) (detect2d.DetectorType, detect2d.Config, error) {
	detector, err := detect2d.ParseDetectorType(c.String(flagDetector))
	if err != nil {
		return 0, detect2d.Config{}, err
	}
	cfg := detect2d.DefaultConfig()
	if path := c.String(flagDetectorConfig); path != "" {
		if cfg, err = detect2d.NewConfigFromJSONFile(path); err != nil {
			return 0, detect2d.Config{}, err
		}
	}
	return detector, cfg, nil
}

// loadCloud returns the organized cloud of the frame and, when it came from a depth image, the
// depth image itself.
func loadCloud(c *cli.Context, img image.Image) (*pointcloud.Organized, *image.Gray16, error) {
	depthPath, cloudPath := c.String(flagDepth), c.String(flagCloud)
	switch {
	case depthPath != "" && cloudPath != "":
		return nil, nil, errors.Errorf("only one of --%s and --%s can be given", flagDepth, flagCloud)
	case cloudPath != "":
		cloud, err := pointcloud.NewOrganizedFromPCDFile(cloudPath)
		return cloud, nil, err
	case depthPath != "":
		intrinsics, err := transform.NewPinholeCameraIntrinsicsFromJSONFile(c.String(flagCamera))
		if err == nil {
			err = intrinsics.CheckValid()
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "depth images need pinhole intrinsics")
		}
		raw, err := rimage.ReadImageFromFile(depthPath)
		if err != nil {
			return nil, nil, err
		}
		depth := transform.DepthImageToGray16(raw)
		cloud, err := intrinsics.DepthToOrganizedCloud(depth, img, c.Float64(flagDepthScale))
		if err != nil {
			return nil, nil, err
		}
		return cloud, depth, nil
	default:
		return nil, nil, errors.Errorf("one of --%s and --%s is required", flagDepth, flagCloud)
	}
}

// printStatistics goes to the error writer so it never mixes with lines written to stdout.
func printStatistics(w io.Writer, st *linedetection.Statistics) error {
	printf(w, "%s", st.Table())
	if len(st.Lengths) == 0 {
		return nil
	}
	printf(w, "3D line lengths (m):")
	return histogram.Fprint(w, st.LengthHistogram(lengthBins), histogram.Linear(40))
}

func writeOutput(c *cli.Context, write func(io.Writer) error) error {
	if path := c.String(flagOutput); path != "" {
		return writeFile(path, write)
	}
	return write(c.App.Writer)
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return write(f)
}

// writeLines2D writes one "x1 y1 x2 y2" line per segment.
func writeLines2D(w io.Writer, lines []lines2d.Line) error {
	for _, l := range lines {
		_, err := fmt.Fprintf(w, "%s %s %s %s\n",
			formatCoord(l.Start.X), formatCoord(l.Start.Y), formatCoord(l.End.X), formatCoord(l.End.Y))
		if err != nil {
			return err
		}
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
