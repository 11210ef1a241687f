// Package so3grid enumerates rotations on a hierarchical grid over SO(3).
//
// The grid is the Hopf fibration product of a HEALPix grid on S2 (the direction Rᵀx̂, the first
// row of the rotation matrix) and a uniform grid on S1 (the rotation about that direction). At
// resolution r there are 12·4^r nested HEALPix cells and 6·2^r in-plane cells, so the grid
// has 72·8^r rotations and every refinement splits a cell into 8 children whose angular
// spacing is half that of the parent.
// See Yershova et al., "Generating Uniform Incremental Grids on SO(3) Using the Hopf Fibration", IJRR 2010.
package so3grid

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/so3pose/spatialmath"
)

const (
	// DefaultResolution is the resolution of the base grid used by the pose search.
	DefaultResolution = 1
	// BaseSize is the cardinality of the grid at DefaultResolution: 48 S2 cells × 12 S1 cells.
	BaseSize = 576
	// MaxResolution bounds base resolution plus refinement level.
	MaxResolution = 20
	// NeighborCount is the number of children returned by Neighbors.
	NeighborCount = 8
)

// Cell addresses one grid cell at some resolution: S2 is the nested HEALPix pixel index and S1
// the in-plane rotation index.
type Cell struct {
	S2 int
	S1 int
}

// Candidate is one rotation of the grid together with the cell it came from.
type Candidate struct {
	Quat quat.Number
	Cell Cell
}

// Grid is the base level of the hierarchy, computed once at construction and read only after.
// A Grid is safe for concurrent use.
type Grid struct {
	resolution int
	nS1        int
	quats      []quat.Number
}

// NewGrid builds the base grid at the given resolution.
func NewGrid(resolution int) (*Grid, error) {
	if resolution < 0 || resolution > MaxResolution {
		return nil, errors.Errorf("grid resolution must be in [0, %d], got %d", MaxResolution, resolution)
	}
	nS2 := healpixPixels(nsideAt(resolution))
	nS1 := s1CellsAt(resolution)
	quats := make([]quat.Number, 0, nS2*nS1)
	for s2 := 0; s2 < nS2; s2++ {
		theta, phi := pix2angNest(nsideAt(resolution), s2)
		for s1 := 0; s1 < nS1; s1++ {
			quats = append(quats, HopfToQuat(theta, phi, s1Angle(s1, nS1)))
		}
	}
	return &Grid{resolution: resolution, nS1: nS1, quats: quats}, nil
}

// DefaultGrid builds the BaseSize grid at DefaultResolution.
func DefaultGrid() *Grid {
	g, err := NewGrid(DefaultResolution)
	if err != nil {
		panic(err)
	}
	return g
}

// Resolution returns the base resolution of the grid.
func (g *Grid) Resolution() int {
	return g.resolution
}

// Len returns the number of base rotations.
func (g *Grid) Len() int {
	return len(g.quats)
}

// Base returns the base rotations in enumeration order (S2 major, S1 minor). The returned slice
// is a copy.
func (g *Grid) Base() []quat.Number {
	out := make([]quat.Number, len(g.quats))
	copy(out, g.quats)
	return out
}

// CellOf decomposes an index into the base enumeration.
func (g *Grid) CellOf(index int) Cell {
	return Cell{S2: index / g.nS1, S1: index % g.nS1}
}

// Index is the inverse of CellOf.
func (g *Grid) Index(cell Cell) int {
	return cell.S2*g.nS1 + cell.S1
}

// Quaternion returns the rotation of cell at the given absolute resolution.
func (g *Grid) Quaternion(cell Cell, resolution int) quat.Number {
	theta, phi := pix2angNest(nsideAt(resolution), cell.S2)
	return HopfToQuat(theta, phi, s1Angle(cell.S1, s1CellsAt(resolution)))
}

// Neighbors returns the NeighborCount cells at refinement level level (resolution
// g.Resolution()+level) nearest to q, where q and cell are the parent at level-1. The 16
// candidates are the 4 nested S2 children of cell.S2 crossed with the 4 S1 cells around
// cell.S1; the 8 closest to q (by sign insensitive quaternion distance, ties kept in
// enumeration order) are returned.
func (g *Grid) Neighbors(q quat.Number, cell Cell, level int) ([]Candidate, error) {
	if level < 1 {
		return nil, errors.Errorf("refinement level must be at least 1, got %d", level)
	}
	resolution := g.resolution + level
	if resolution > MaxResolution {
		return nil, errors.Errorf("refinement level %d exceeds max resolution %d", level, MaxResolution)
	}
	nside := nsideAt(resolution)
	nS1 := s1CellsAt(resolution)

	candidates := make([]Candidate, 0, 16)
	for k := 0; k < 4; k++ {
		s2 := 4*cell.S2 + k
		theta, phi := pix2angNest(nside, s2)
		for d := -1; d <= 2; d++ {
			s1 := (2*cell.S1 + d + nS1) % nS1
			candidates = append(candidates, Candidate{
				Quat: HopfToQuat(theta, phi, s1Angle(s1, nS1)),
				Cell: Cell{S2: s2, S1: s1},
			})
		}
	}

	// the fiber bundle grid is not a product metric, so the nearest children are not always
	// the 2×4 block directly under the parent
	q = spatialmath.NormalizeQuaternion(q)
	dists := make([]float64, len(candidates))
	for i, c := range candidates {
		dists[i] = spatialmath.QuaternionSquaredDistance(c.Quat, q)
	}
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return dists[order[i]] < dists[order[j]]
	})
	out := make([]Candidate, NeighborCount)
	for i := range out {
		out[i] = candidates[order[i]]
	}
	return out, nil
}

// HopfToQuat converts Hopf coordinates (S2 colatitude theta and longitude phi, S1 angle psi) to
// a unit quaternion.
func HopfToQuat(theta, phi, psi float64) quat.Number {
	ct := math.Cos(theta / 2)
	st := math.Sin(theta / 2)
	return quat.Number{
		Real: ct * math.Cos(psi/2),
		Imag: ct * math.Sin(psi/2),
		Jmag: st * math.Cos(phi+psi/2),
		Kmag: st * math.Sin(phi+psi/2),
	}
}

// Spacing returns the approximate angular spacing, in radians, of the grid at a resolution.
func Spacing(resolution int) float64 {
	return 2 * math.Pi / float64(s1CellsAt(resolution))
}

func nsideAt(resolution int) int {
	return 1 << resolution
}

func s1CellsAt(resolution int) int {
	return 6 << resolution
}

func s1Angle(index, n int) float64 {
	dt := 2 * math.Pi / float64(n)
	return float64(index)*dt + dt/2
}
