package reparam

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/so3pose/spatialmath"
	"go.viam.com/so3pose/utils"
)

func fixedReparameterizer(t *testing.T, s2s2Bias, logVarBias []float64) *Reparameterizer {
	t.Helper()
	r, err := NewFromLayers(
		&Linear{Weights: mat.NewDense(6, 4, nil), Bias: s2s2Bias},
		&Linear{Weights: mat.NewDense(3, 4, nil), Bias: logVarBias},
	)
	test.That(t, err, test.ShouldBeNil)
	return r
}

func TestLinearForward(t *testing.T) {
	l := &Linear{
		Weights: mat.NewDense(2, 3, []float64{
			1, 0, -1,
			2, 1, 0,
		}),
		Bias: []float64{0.5, -1},
	}
	test.That(t, l.InputDim(), test.ShouldEqual, 3)
	test.That(t, l.OutputDim(), test.ShouldEqual, 2)

	out, err := l.Forward(mat.NewDense(2, 3, []float64{
		1, 2, 3,
		0, 1, 0,
	}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.RawMatrix().Data, test.ShouldResemble, []float64{-1.5, 3, 0.5, 0})

	_, err = l.Forward(mat.NewDense(1, 2, nil))
	test.That(t, utils.IsShapeError(err), test.ShouldBeTrue)
	_, err = l.Forward(nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewLinearInit(t *testing.T) {
	l, err := NewLinear(16, 6, rand.NewPCG(1, 2))
	test.That(t, err, test.ShouldBeNil)
	for _, w := range l.Weights.RawMatrix().Data {
		test.That(t, math.Abs(w), test.ShouldBeLessThanOrEqualTo, 0.25)
	}
	for _, b := range l.Bias {
		test.That(t, math.Abs(b), test.ShouldBeLessThanOrEqualTo, 0.25)
	}

	again, err := NewLinear(16, 6, rand.NewPCG(1, 2))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, l)

	_, err = NewLinear(0, 6, rand.NewPCG(1, 2))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewFromLayersShapes(t *testing.T) {
	_, err := NewFromLayers(nil, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewFromLayers(
		&Linear{Weights: mat.NewDense(5, 4, nil), Bias: make([]float64, 5)},
		&Linear{Weights: mat.NewDense(3, 4, nil), Bias: make([]float64, 3)},
	)
	test.That(t, utils.IsShapeError(err), test.ShouldBeTrue)

	_, err = NewFromLayers(
		&Linear{Weights: mat.NewDense(6, 4, nil), Bias: make([]float64, 6)},
		&Linear{Weights: mat.NewDense(3, 5, nil), Bias: make([]float64, 3)},
	)
	test.That(t, utils.IsShapeError(err), test.ShouldBeTrue)
}

func TestForward(t *testing.T) {
	r := fixedReparameterizer(t,
		[]float64{2, 0, 0, 0, 3, 0},
		[]float64{0, 2 * math.Ln2, -2 * math.Ln2},
	)
	test.That(t, r.InputDim(), test.ShouldEqual, 4)

	mean, std, err := r.Forward(mat.NewDense(2, 4, nil))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mean, test.ShouldHaveLength, 2)
	test.That(t, std, test.ShouldHaveLength, 2)
	for i := range mean {
		test.That(t, mean[i].AlmostEqual(spatialmath.IdentityRotationMatrix(), 1e-12), test.ShouldBeTrue)
		test.That(t, std[i].X, test.ShouldAlmostEqual, 1., 1e-12)
		test.That(t, std[i].Y, test.ShouldAlmostEqual, 2., 1e-12)
		test.That(t, std[i].Z, test.ShouldAlmostEqual, 0.5, 1e-12)
	}

	_, _, err = r.Forward(mat.NewDense(2, 3, nil))
	test.That(t, utils.IsShapeError(err), test.ShouldBeTrue)
}

func TestForwardRandomLayers(t *testing.T) {
	r, err := New(8, rand.NewPCG(3, 4))
	test.That(t, err, test.ShouldBeNil)
	rng := rand.New(rand.NewPCG(5, 6))
	x := mat.NewDense(10, 8, nil)
	for i := 0; i < 10; i++ {
		for j := 0; j < 8; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
	}
	mean, std, err := r.Forward(x)
	test.That(t, err, test.ShouldBeNil)
	for i := range mean {
		test.That(t, mean[i].OrthonormalityError(), test.ShouldBeLessThan, 1e-9)
		test.That(t, mean[i].Det(), test.ShouldAlmostEqual, 1., 1e-9)
		test.That(t, std[i].X, test.ShouldBeGreaterThan, 0.)
		test.That(t, std[i].Y, test.ShouldBeGreaterThan, 0.)
		test.That(t, std[i].Z, test.ShouldBeGreaterThan, 0.)
	}
}

func TestSampleZeroStd(t *testing.T) {
	mean := []spatialmath.RotationMatrix{
		spatialmath.ExpMap(r3.Vector{X: 0.3, Y: -1, Z: 2}),
		spatialmath.ExpMap(r3.Vector{X: 1, Y: 0.2}),
	}
	sampled, noise, err := NewSampler(rand.NewPCG(7, 8)).Sample(mean, make([]r3.Vector, 2))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sampled, test.ShouldResemble, mean)
	for _, n := range noise {
		test.That(t, n.Norm(), test.ShouldEqual, 0.)
	}
}

func TestSampleReproducible(t *testing.T) {
	mean := []spatialmath.RotationMatrix{spatialmath.IdentityRotationMatrix(), spatialmath.ExpMap(r3.Vector{Z: 1})}
	std := []r3.Vector{{X: 0.1, Y: 0.1, Z: 0.1}, {X: 0.5, Y: 0.2, Z: 0.3}}

	first, firstNoise, err := NewSampler(rand.NewPCG(9, 10)).Sample(mean, std)
	test.That(t, err, test.ShouldBeNil)
	second, secondNoise, err := NewSampler(rand.NewPCG(9, 10)).Sample(mean, std)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second, test.ShouldResemble, first)
	test.That(t, secondNoise, test.ShouldResemble, firstNoise)

	other, _, err := NewSampler(rand.NewPCG(11, 12)).Sample(mean, std)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, other, test.ShouldNotResemble, first)

	for i := range first {
		test.That(t, first[i].OrthonormalityError(), test.ShouldBeLessThan, 1e-9)
		test.That(t, first[i].AlmostEqual(mean[i].Mul(spatialmath.ExpMap(firstNoise[i])), 1e-12), test.ShouldBeTrue)
	}
}

func TestSampleSpread(t *testing.T) {
	const n = 5000
	center := spatialmath.ExpMap(r3.Vector{X: 0.4, Y: 0.1, Z: -0.7})
	sigma := r3.Vector{X: 0.1, Y: 0.2, Z: 0.05}
	mean := make([]spatialmath.RotationMatrix, n)
	std := make([]r3.Vector, n)
	for i := range mean {
		mean[i] = center
		std[i] = sigma
	}
	sampled, _, err := NewSampler(rand.NewPCG(13, 14)).Sample(mean, std)
	test.That(t, err, test.ShouldBeNil)

	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i, rm := range sampled {
		w := spatialmath.LogMap(center.Transpose().Mul(rm))
		xs[i], ys[i], zs[i] = w.X, w.Y, w.Z
	}
	for _, c := range []struct {
		samples []float64
		sigma   float64
	}{{xs, sigma.X}, {ys, sigma.Y}, {zs, sigma.Z}} {
		mu, variance := stat.MeanVariance(c.samples, nil)
		test.That(t, mu, test.ShouldAlmostEqual, 0., 4*c.sigma/math.Sqrt(n))
		test.That(t, variance, test.ShouldAlmostEqual, c.sigma*c.sigma, 0.1*c.sigma*c.sigma)
	}
}

func TestSampleLengthMismatch(t *testing.T) {
	_, _, err := NewSampler(rand.NewPCG(1, 1)).Sample(
		[]spatialmath.RotationMatrix{spatialmath.IdentityRotationMatrix()},
		nil,
	)
	test.That(t, utils.IsShapeError(err), test.ShouldBeTrue)
}
