// Package posesearch estimates, for each image of a batch, the rotation under which a render
// model best reproduces it.
//
// The search is coarse to fine: every image is first scored against the whole base grid of
// rotations, then for each refinement level the current best cell of every image is split and
// its nearest children are scored. Each stage issues exactly one render model call covering
// every image.
package posesearch

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/so3pose/logging"
	"go.viam.com/so3pose/so3grid"
	"go.viam.com/so3pose/spatialmath"
	"go.viam.com/so3pose/utils"
)

// DefaultIterations is the number of refinement levels used when none is configured.
const DefaultIterations = 5

// ErrModelTraining is returned when the render model is in training mode.
var ErrModelTraining = errors.New("render model must be in evaluation mode to search")

// RenderModel maps 3D coordinates to one intensity per coordinate.
type RenderModel interface {
	Evaluate(ctx context.Context, coords []r3.Vector) ([]float64, error)
}

// Trainer is implemented by render models that can be in a training mode.
type Trainer interface {
	Training() bool
}

// Grid supplies the candidate rotations. *so3grid.Grid is the production implementation.
type Grid interface {
	Base() []quat.Number
	CellOf(index int) so3grid.Cell
	Neighbors(q quat.Number, cell so3grid.Cell, level int) ([]so3grid.Candidate, error)
}

// Estimate is the search result for one image.
type Estimate struct {
	Rotation spatialmath.RotationMatrix
	Quat     quat.Number
	Cell     so3grid.Cell
	// Score is the sum of squared pixel differences of the chosen candidate. It is +Inf when
	// every candidate of the last stage rendered to a non-finite error.
	Score float64
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithWorkers bounds the number of goroutines used for coordinate generation and scoring.
func WithWorkers(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.workers = n
		}
	}
}

// Searcher runs the hierarchical search for one render model. The lattice and base rotations
// are computed once and only read afterwards, so a Searcher may serve concurrent searches if
// its model and grid can.
type Searcher struct {
	model     RenderModel
	grid      Grid
	ny, nx    int
	lattice   []r3.Vector
	baseQuats []quat.Number
	baseRots  []spatialmath.RotationMatrix
	workers   int
	logger    logging.Logger
}

// NewSearcher prepares a search over ny×nx images.
func NewSearcher(model RenderModel, grid Grid, ny, nx int, logger logging.Logger, opts ...Option) (*Searcher, error) {
	if model == nil {
		return nil, errors.New("render model is required")
	}
	if grid == nil {
		return nil, errors.New("rotation grid is required")
	}
	if ny <= 0 || nx <= 0 {
		return nil, errors.Errorf("lattice dimensions must be positive, got %dx%d", ny, nx)
	}
	baseQuats := grid.Base()
	if len(baseQuats) == 0 {
		return nil, errors.New("rotation grid has no base rotations")
	}
	if logger == nil {
		logger = logging.NewBlankLogger("posesearch")
	}
	s := &Searcher{
		model:     model,
		grid:      grid,
		ny:        ny,
		nx:        nx,
		lattice:   NewLattice(ny, nx),
		baseQuats: baseQuats,
		baseRots:  spatialmath.QuatsToRotationMatrices(baseQuats),
		workers:   utils.ParallelFactor,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search returns the best rotation for every image after niter refinement levels.
func (s *Searcher) Search(ctx context.Context, images ImageBatch, niter int) ([]spatialmath.RotationMatrix, error) {
	estimates, err := s.SearchDetailed(ctx, images, niter)
	if err != nil {
		return nil, err
	}
	return lo.Map(estimates, func(e Estimate, _ int) spatialmath.RotationMatrix {
		return e.Rotation
	}), nil
}

// SearchDetailed is Search but also reports the grid cell and score of each estimate.
func (s *Searcher) SearchDetailed(ctx context.Context, images ImageBatch, niter int) ([]Estimate, error) {
	if err := s.validate(images, niter); err != nil {
		return nil, err
	}
	if images.Count == 0 {
		return []Estimate{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	best, err := s.evalBase(ctx, images)
	if err != nil {
		return nil, err
	}
	for level := 1; level <= niter; level++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best, err = s.evalLevel(ctx, images, best, level)
		if err != nil {
			return nil, errors.Wrapf(err, "refinement level %d", level)
		}
	}

	return lo.Map(best, func(e Estimate, _ int) Estimate {
		e.Rotation = spatialmath.QuatToRotationMatrix(e.Quat)
		return e
	}), nil
}

// Render evaluates the model on the lattice rotated by each of rots, producing one image per
// rotation. It is the forward model the search inverts.
func (s *Searcher) Render(ctx context.Context, rots []spatialmath.RotationMatrix) (ImageBatch, error) {
	coords, err := s.transform(ctx, rots)
	if err != nil {
		return ImageBatch{}, err
	}
	values, err := s.evaluate(ctx, coords, "render")
	if err != nil {
		return ImageBatch{}, err
	}
	return ImageBatch{Count: len(rots), Height: s.ny, Width: s.nx, Pixels: values}, nil
}

func (s *Searcher) validate(images ImageBatch, niter int) error {
	if niter < 0 {
		return errors.Errorf("number of refinement levels must be non-negative, got %d", niter)
	}
	if images.Count < 0 {
		return errors.Errorf("image count must be non-negative, got %d", images.Count)
	}
	if images.Height != s.ny || images.Width != s.nx {
		return utils.NewShapeError("images",
			[]int{images.Count, s.ny, s.nx},
			[]int{images.Count, images.Height, images.Width})
	}
	if len(images.Pixels) != images.Count*s.ny*s.nx {
		return utils.NewShapeError("image pixels", []int{images.Count * s.ny * s.nx}, []int{len(images.Pixels)})
	}
	if trainer, ok := s.model.(Trainer); ok && trainer.Training() {
		return ErrModelTraining
	}
	return nil
}

// evalBase scores every image against the whole base grid in one render call.
func (s *Searcher) evalBase(ctx context.Context, images ImageBatch) ([]Estimate, error) {
	coords, err := s.transform(ctx, s.baseRots)
	if err != nil {
		return nil, err
	}
	rendered, err := s.evaluate(ctx, coords, "base grid")
	if err != nil {
		return nil, err
	}
	n := len(s.baseQuats)
	picks, err := s.score(images, rendered, func(int) (int, int) { return 0, n }, "base grid")
	if err != nil {
		return nil, err
	}
	return lo.Map(picks, func(p pick, _ int) Estimate {
		return Estimate{Quat: s.baseQuats[p.index], Cell: s.grid.CellOf(p.index), Score: p.score}
	}), nil
}

// evalLevel refines every estimate by one level. The candidates of all images are gathered
// into one render call and each image is scored only against its own candidates.
func (s *Searcher) evalLevel(ctx context.Context, images ImageBatch, current []Estimate, level int) ([]Estimate, error) {
	candidates := make([][]so3grid.Candidate, len(current))
	offsets := make([]int, len(current)+1)
	for i, e := range current {
		neighbors, err := s.grid.Neighbors(e.Quat, e.Cell, level)
		if err != nil {
			return nil, err
		}
		if len(neighbors) == 0 {
			return nil, errors.Errorf("grid returned no candidates for image %d", i)
		}
		candidates[i] = neighbors
		offsets[i+1] = offsets[i] + len(neighbors)
	}

	rots := lo.FlatMap(candidates, func(cands []so3grid.Candidate, _ int) []spatialmath.RotationMatrix {
		return lo.Map(cands, func(c so3grid.Candidate, _ int) spatialmath.RotationMatrix {
			return spatialmath.QuatToRotationMatrix(c.Quat)
		})
	})
	coords, err := s.transform(ctx, rots)
	if err != nil {
		return nil, err
	}
	rendered, err := s.evaluate(ctx, coords, "refinement")
	if err != nil {
		return nil, err
	}
	picks, err := s.score(images, rendered, func(i int) (int, int) {
		return offsets[i], offsets[i+1]
	}, "refinement")
	if err != nil {
		return nil, err
	}
	s.logger.Debugw("refined pose estimates", "level", level, "candidates", len(rots))

	return lo.Map(picks, func(p pick, i int) Estimate {
		c := candidates[i][p.index-offsets[i]]
		return Estimate{Quat: c.Quat, Cell: c.Cell, Score: p.score}
	}), nil
}

// transform returns, for every rotation R, the lattice points p as row vectors times R, which
// is Rᵀp. The output is rotation major.
func (s *Searcher) transform(ctx context.Context, rots []spatialmath.RotationMatrix) ([]r3.Vector, error) {
	m := len(s.lattice)
	coords := make([]r3.Vector, len(rots)*m)
	err := utils.GroupWorkParallel(
		ctx,
		len(rots),
		s.workers,
		nil,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				rt := rots[workNum].Transpose()
				out := coords[workNum*m : (workNum+1)*m]
				for j, p := range s.lattice {
					out[j] = rt.MulVec(p)
				}
			}, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return coords, nil
}

func (s *Searcher) evaluate(ctx context.Context, coords []r3.Vector, stage string) ([]float64, error) {
	values, err := s.model.Evaluate(ctx, coords)
	if err != nil {
		return nil, errors.Wrapf(err, "render model failed during %s stage", stage)
	}
	if len(values) != len(coords) {
		return nil, errors.Wrapf(
			utils.NewShapeError("render model output", []int{len(coords)}, []int{len(values)}),
			"%s stage", stage)
	}
	return values, nil
}

type pick struct {
	index int
	score float64
}

// score finds, for every image i, the candidate in [from, to) of rendered with the smallest sum
// of squared differences. Ties keep the earliest candidate; non-finite errors count as +Inf.
func (s *Searcher) score(
	images ImageBatch,
	rendered []float64,
	span func(i int) (from, to int),
	stage string,
) ([]pick, error) {
	m := images.Size()
	picks := make([]pick, images.Count)
	nonFinite := make([]int, images.Count)

	var group errgroup.Group
	group.SetLimit(s.workers)
	for i := 0; i < images.Count; i++ {
		group.Go(func() error {
			img := images.Image(i)
			diff := make([]float64, m)
			from, to := span(i)
			best := pick{index: from, score: math.Inf(1)}
			for c := from; c < to; c++ {
				floats.SubTo(diff, img, rendered[c*m:(c+1)*m])
				sse := floats.Dot(diff, diff)
				if !utils.IsFinite(sse) {
					nonFinite[i]++
					continue
				}
				if sse < best.score {
					best = pick{index: c, score: sse}
				}
			}
			picks[i] = best
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if total := lo.Sum(nonFinite); total > 0 {
		s.logger.Warnw("non-finite reconstruction errors treated as +Inf",
			"stage", stage, "count", total, "images", len(lo.Filter(nonFinite, func(n, _ int) bool { return n > 0 })))
	}
	return picks, nil
}
