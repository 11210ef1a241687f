// Package main runs the hierarchical pose search end to end on a synthetic volume: it renders
// images of random rotations, searches for them and reports the angular error of every
// estimate.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/so3pose/config"
	"go.viam.com/so3pose/logging"
	"go.viam.com/so3pose/posesearch"
	"go.viam.com/so3pose/posetrack"
	"go.viam.com/so3pose/rendermodel"
	"go.viam.com/so3pose/so3grid"
	"go.viam.com/so3pose/spatialmath"
	"go.viam.com/so3pose/utils"
)

var logger = logging.NewLogger("so3search")

func main() {
	goutils.ContextualMain(mainWithArgs, logger.AsZap())
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"config,usage=search config file (json or yaml)"`
	Images     int    `flag:"images,default=8,usage=number of synthetic images"`
	Seed       int    `flag:"seed,default=1,usage=seed for the synthetic rotations"`
	Embedding  string `flag:"embedding,default=s2s2,usage=how estimates are stored (none, quat or s2s2)"`
	Debug      bool   `flag:"debug,usage=log per level search progress"`
	LogFile    string `flag:"log-file,usage=also write json logs to this size rotated file"`
	Schema     bool   `flag:"schema,usage=print the config file json schema and exit"`
}

func mainWithArgs(ctx context.Context, args []string, zlogger *zap.SugaredLogger) error {
	var argsParsed Arguments
	if err := goutils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cmdLogger := logging.FromZap(zlogger)
	level := zapcore.InfoLevel
	if argsParsed.Debug {
		cmdLogger = logging.NewDebugLogger("so3search")
		level = zapcore.DebugLevel
	}
	if argsParsed.LogFile != "" {
		file := logging.NewRotatingFile(argsParsed.LogFile)
		defer goutils.UncheckedErrorFunc(file.Close)
		cmdLogger = logging.NewFileLogger("so3search", file, level)
	}
	return run(ctx, argsParsed, cmdLogger, os.Stdout)
}

// syntheticVolume is an asymmetric mixture so that no two rotations render the same slice.
func syntheticVolume() (*rendermodel.GaussianMixture, error) {
	return rendermodel.NewGaussianMixture(
		rendermodel.Gaussian{Center: r3.Vector{X: 0.3, Y: 0.1, Z: 0.05}, Sigma: 0.25, Weight: 1},
		rendermodel.Gaussian{Center: r3.Vector{X: -0.35, Y: 0.2, Z: -0.1}, Sigma: 0.2, Weight: 0.7},
		rendermodel.Gaussian{Center: r3.Vector{X: 0.05, Y: -0.4, Z: 0.15}, Sigma: 0.3, Weight: 0.5},
		rendermodel.Gaussian{Center: r3.Vector{X: 0.1, Y: 0.3, Z: -0.45}, Sigma: 0.15, Weight: 0.4},
	)
}

// randomRotations draws rotations uniformly over SO(3) by normalizing 4D Gaussian samples.
func randomRotations(n int, seed uint64) []spatialmath.RotationMatrix {
	rng := rand.New(rand.NewPCG(seed, seed))
	out := make([]spatialmath.RotationMatrix, n)
	for i := range out {
		out[i] = spatialmath.QuatToRotationMatrix(quat.Number{
			Real: rng.NormFloat64(),
			Imag: rng.NormFloat64(),
			Jmag: rng.NormFloat64(),
			Kmag: rng.NormFloat64(),
		})
	}
	return out
}

func run(ctx context.Context, args Arguments, logger logging.Logger, out io.Writer) error {
	if args.Schema {
		data, err := json.MarshalIndent(config.Schema(), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	if args.Images <= 0 {
		return errors.Errorf("images must be positive, got %d", args.Images)
	}
	if args.Seed < 0 {
		return errors.Errorf("seed must be non-negative, got %d", args.Seed)
	}
	embedding, err := posetrack.ParseEmbeddingType(args.Embedding)
	if err != nil {
		return err
	}
	cfg := config.DefaultSearch()
	if args.ConfigFile != "" {
		if cfg, err = config.Read(args.ConfigFile, logger); err != nil {
			return err
		}
	}

	grid, err := so3grid.NewGrid(cfg.BaseResolution)
	if err != nil {
		return err
	}
	volume, err := syntheticVolume()
	if err != nil {
		return err
	}
	searcher, err := posesearch.NewSearcher(
		volume,
		grid,
		cfg.Lattice.Height,
		cfg.Lattice.Width,
		logger.Sublogger("search"),
		posesearch.WithWorkers(cfg.Workers),
	)
	if err != nil {
		return err
	}

	truths := randomRotations(args.Images, uint64(args.Seed))
	images, err := searcher.Render(ctx, truths)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	start := time.Now()
	estimates, err := searcher.SearchDetailed(ctx, images, cfg.Iterations)
	if err != nil {
		return err
	}
	logger.Infow("search complete",
		"run", runID,
		"images", args.Images,
		"base_rotations", grid.Len(),
		"iterations", cfg.Iterations,
		"spacing_deg", utils.RadToDeg(so3grid.Spacing(cfg.BaseResolution+cfg.Iterations)),
		"elapsed", time.Since(start))

	tracker, err := posetrack.New(lo.Map(estimates, func(e posesearch.Estimate, _ int) spatialmath.RotationMatrix {
		return e.Rotation
	}), nil, embedding)
	if err != nil {
		return err
	}

	errs := make([]float64, len(estimates))
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "S2", "S1", "Score", "Error (deg)"})
	for i, e := range estimates {
		estimate, _, _, err := tracker.Pose(i)
		if err != nil {
			return err
		}
		errs[i] = utils.RadToDeg(spatialmath.AngularDistance(estimate, truths[i]))
		t.AppendRow(table.Row{i, e.Cell.S2, e.Cell.S1, fmt.Sprintf("%.3g", e.Score), fmt.Sprintf("%.2f", errs[i])})
	}
	if _, err := fmt.Fprintln(out, t.Render()); err != nil {
		return err
	}
	if err := printSummary(out, errs); err != nil {
		return err
	}
	return printHistogram(out, errs)
}

func printSummary(out io.Writer, errs []float64) error {
	mean, err := stats.Mean(errs)
	median, err2 := stats.Median(errs)
	p90, err3 := stats.Percentile(errs, 90)
	maxErr, err4 := stats.Max(errs)
	if err := multierr.Combine(err, err2, err3, err4); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "angular error (deg): mean %.2f, median %.2f, p90 %.2f, max %.2f\n", mean, median, p90, maxErr)
	return err
}

// printHistogram draws the error distribution when there is more than one distinct error.
func printHistogram(out io.Writer, errs []float64) error {
	lowest, highest := lo.Min(errs), lo.Max(errs)
	if len(errs) < 2 || lowest == highest {
		return nil
	}
	hist := histogram.Hist(min(len(errs), 10), errs)
	return histogram.Fprint(out, hist, histogram.Linear(40))
}
