// Package reparam maps R^D encoder outputs to a Gaussian on SO(3) and draws reparameterized
// samples from it.
//
// The mean lives on S2×S2 and is projected onto SO(3); the spread is a per-axis standard
// deviation in the tangent space at the mean. See section 2.5 of http://ethaneade.com/lie.pdf
package reparam

import (
	"math"
	"math/rand/v2"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"go.viam.com/so3pose/spatialmath"
	"go.viam.com/so3pose/utils"
)

const (
	s2s2Dim  = 6
	so3Dim   = 3
	meanName = "s2s2 projection"
	varName  = "log variance projection"
)

// Linear is an affine layer y = x Wᵀ + b. Weights has one row per output.
type Linear struct {
	Weights *mat.Dense
	Bias    []float64
}

// NewLinear initializes an out×in layer with weights and biases drawn uniformly from
// [-1/√in, 1/√in].
func NewLinear(in, out int, src rand.Source) (*Linear, error) {
	if in <= 0 || out <= 0 {
		return nil, errors.Errorf("linear layer dimensions must be positive, got %dx%d", out, in)
	}
	bound := 1 / math.Sqrt(float64(in))
	dist := distuv.Uniform{Min: -bound, Max: bound, Src: src}
	weights := make([]float64, out*in)
	for i := range weights {
		weights[i] = dist.Rand()
	}
	bias := make([]float64, out)
	for i := range bias {
		bias[i] = dist.Rand()
	}
	return &Linear{Weights: mat.NewDense(out, in, weights), Bias: bias}, nil
}

// InputDim is the number of columns Forward accepts.
func (l *Linear) InputDim() int {
	_, c := l.Weights.Dims()
	return c
}

// OutputDim is the number of columns Forward produces.
func (l *Linear) OutputDim() int {
	r, _ := l.Weights.Dims()
	return r
}

// Forward applies the layer to every row of x.
func (l *Linear) Forward(x *mat.Dense) (*mat.Dense, error) {
	if x == nil {
		return nil, errors.New("linear layer input is nil")
	}
	rows, cols := x.Dims()
	if cols != l.InputDim() {
		return nil, utils.NewShapeError("linear layer input", []int{rows, l.InputDim()}, []int{rows, cols})
	}
	out := mat.NewDense(rows, l.OutputDim(), nil)
	out.Mul(x, l.Weights.T())
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		for j, b := range l.Bias {
			row[j] += b
		}
	}
	return out, nil
}

// Reparameterizer holds the two projections from encoder space: one to S2×S2 for the mean and
// one to per-axis log variance.
type Reparameterizer struct {
	inputDim int
	s2s2     *Linear
	logVar   *Linear
}

// New builds a Reparameterizer for inputDim-dimensional encoder outputs with randomly
// initialized projections.
func New(inputDim int, src rand.Source) (*Reparameterizer, error) {
	s2s2, err := NewLinear(inputDim, s2s2Dim, src)
	if err != nil {
		return nil, err
	}
	logVar, err := NewLinear(inputDim, so3Dim, src)
	if err != nil {
		return nil, err
	}
	return &Reparameterizer{inputDim: inputDim, s2s2: s2s2, logVar: logVar}, nil
}

// NewFromLayers builds a Reparameterizer from explicit projections, for example trained weights.
func NewFromLayers(s2s2, logVar *Linear) (*Reparameterizer, error) {
	if s2s2 == nil || logVar == nil {
		return nil, errors.New("both projections are required")
	}
	if s2s2.OutputDim() != s2s2Dim || len(s2s2.Bias) != s2s2Dim {
		return nil, utils.NewShapeError(meanName, []int{s2s2Dim, s2s2.InputDim()}, []int{s2s2.OutputDim(), s2s2.InputDim()})
	}
	if logVar.OutputDim() != so3Dim || len(logVar.Bias) != so3Dim {
		return nil, utils.NewShapeError(varName, []int{so3Dim, logVar.InputDim()}, []int{logVar.OutputDim(), logVar.InputDim()})
	}
	if s2s2.InputDim() != logVar.InputDim() {
		return nil, utils.NewShapeError(varName, []int{so3Dim, s2s2.InputDim()}, []int{so3Dim, logVar.InputDim()})
	}
	return &Reparameterizer{inputDim: s2s2.InputDim(), s2s2: s2s2, logVar: logVar}, nil
}

// InputDim is the encoder dimension D.
func (r *Reparameterizer) InputDim() int {
	return r.inputDim
}

// Forward maps a B×D batch of encoder outputs to B mean rotations and B per-axis standard
// deviations, std = exp(logvar/2).
func (r *Reparameterizer) Forward(encoderOutput *mat.Dense) ([]spatialmath.RotationMatrix, []r3.Vector, error) {
	z, err := r.s2s2.Forward(encoderOutput)
	if err != nil {
		return nil, nil, errors.Wrap(err, meanName)
	}
	logVar, err := r.logVar.Forward(encoderOutput)
	if err != nil {
		return nil, nil, errors.Wrap(err, varName)
	}
	rows, _ := z.Dims()
	mean := make([]spatialmath.RotationMatrix, rows)
	std := make([]r3.Vector, rows)
	for i := 0; i < rows; i++ {
		mean[i] = spatialmath.NewS2S2FromSlice(z.RawRowView(i)).RotationMatrix()
		lv := logVar.RawRowView(i)
		std[i] = r3.Vector{X: math.Exp(lv[0] / 2), Y: math.Exp(lv[1] / 2), Z: math.Exp(lv[2] / 2)}
	}
	return mean, std, nil
}

// Sampler draws reparameterized rotations. A Sampler is not safe for concurrent use since it
// advances its random source.
type Sampler struct {
	normal distuv.Normal
}

// NewSampler returns a Sampler drawing standard normal noise from src. A nil src uses the
// global source.
func NewSampler(src rand.Source) *Sampler {
	return &Sampler{normal: distuv.Normal{Mu: 0, Sigma: 1, Src: src}}
}

// Sample draws ε ~ N(0, I) and returns mean[i]·ExpMap(ε⊙std[i]) along with the noise vectors
// ε⊙std[i]. A zero std returns the mean exactly.
func (s *Sampler) Sample(mean []spatialmath.RotationMatrix, std []r3.Vector) ([]spatialmath.RotationMatrix, []r3.Vector, error) {
	if len(mean) != len(std) {
		return nil, nil, utils.NewShapeError("std", []int{len(mean), so3Dim}, []int{len(std), so3Dim})
	}
	noise := make([]r3.Vector, len(mean))
	for i := range noise {
		eps := r3.Vector{X: s.normal.Rand(), Y: s.normal.Rand(), Z: s.normal.Rand()}
		noise[i] = r3.Vector{X: eps.X * std[i].X, Y: eps.Y * std[i].Y, Z: eps.Z * std[i].Z}
	}
	sampled := spatialmath.ExpMaps(noise)
	for i := range sampled {
		sampled[i] = mean[i].Mul(sampled[i])
	}
	return sampled, noise, nil
}
