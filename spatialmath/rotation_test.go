package spatialmath

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func randomQuat(rng *rand.Rand) quat.Number {
	return NormalizeQuaternion(quat.Number{
		Real: rng.NormFloat64(),
		Imag: rng.NormFloat64(),
		Jmag: rng.NormFloat64(),
		Kmag: rng.NormFloat64(),
	})
}

func randomRotation(rng *rand.Rand) RotationMatrix {
	return QuatToRotationMatrix(randomQuat(rng))
}

func randomVector(rng *rand.Rand) r3.Vector {
	return r3.Vector{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
}

func checkRotation(t *testing.T, rm RotationMatrix) {
	t.Helper()
	test.That(t, rm.OrthonormalityError(), test.ShouldBeLessThan, 1e-9)
	test.That(t, rm.Det(), test.ShouldAlmostEqual, 1., 1e-9)
}

func TestQuatRotationMatrixRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		rm := randomRotation(rng)
		checkRotation(t, rm)
		q := RotationMatrixToQuat(rm)
		test.That(t, quat.Abs(q), test.ShouldAlmostEqual, 1., 1e-12)
		test.That(t, q.Real, test.ShouldBeGreaterThanOrEqualTo, 0.)
		test.That(t, QuatToRotationMatrix(q).AlmostEqual(rm, 1e-9), test.ShouldBeTrue)
	}
}

func TestQuatDoubleCover(t *testing.T) {
	q := NormalizeQuaternion(quat.Number{Real: 0.3, Imag: -0.2, Jmag: 0.9, Kmag: 0.1})
	neg := quat.Scale(-1, q)
	test.That(t, QuatToRotationMatrix(q).AlmostEqual(QuatToRotationMatrix(neg), 1e-12), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(q, neg, 1e-12), test.ShouldBeTrue)
	test.That(t, QuaternionSquaredDistance(q, neg), test.ShouldAlmostEqual, 0., 1e-12)
	// both map back to the same canonical sign
	test.That(t, RotationMatrixToQuat(QuatToRotationMatrix(neg)), test.ShouldResemble,
		RotationMatrixToQuat(QuatToRotationMatrix(q)))
}

func TestQuatHalfTurns(t *testing.T) {
	// trace -1 rotations exercise every non-trace branch of the conversion
	for _, q := range []quat.Number{
		{Imag: 1},
		{Jmag: 1},
		{Kmag: 1},
		{Imag: math.Sqrt2 / 2, Kmag: -math.Sqrt2 / 2},
	} {
		rm := QuatToRotationMatrix(q)
		checkRotation(t, rm)
		back := RotationMatrixToQuat(rm)
		test.That(t, QuaternionAlmostEqual(back, q, 1e-12), test.ShouldBeTrue)
		test.That(t, back.Real, test.ShouldEqual, 0.)
	}
	back := RotationMatrixToQuat(QuatToRotationMatrix(quat.Number{Jmag: -1}))
	test.That(t, back.Jmag, test.ShouldAlmostEqual, 1.)
}

func TestQuatNormalization(t *testing.T) {
	q := quat.Number{Real: 2, Imag: 1, Jmag: -3, Kmag: 0.5}
	rm := QuatToRotationMatrix(q)
	checkRotation(t, rm)
	test.That(t, rm.AlmostEqual(QuatToRotationMatrix(NormalizeQuaternion(q)), 1e-12), test.ShouldBeTrue)

	test.That(t, QuatToRotationMatrix(quat.Number{}), test.ShouldResemble, IdentityRotationMatrix())
	test.That(t, NormalizeQuaternion(quat.Number{Real: math.NaN()}), test.ShouldResemble, quat.Number{Real: 1})
}

func TestQuatKnownRotation(t *testing.T) {
	// 90 degrees around z
	th := math.Pi / 2
	rm := QuatToRotationMatrix(quat.Number{Real: math.Cos(th / 2), Kmag: math.Sin(th / 2)})
	expected := RotationMatrix{[9]float64{0, -1, 0, 1, 0, 0, 0, 0, 1}}
	test.That(t, rm.AlmostEqual(expected, 1e-12), test.ShouldBeTrue)
	v := rm.MulVec(r3.Vector{X: 1})
	test.That(t, v.Y, test.ShouldAlmostEqual, 1.)
}

func TestBatchConversionsAreIndependent(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	qs := make([]quat.Number, 10)
	for i := range qs {
		qs[i] = randomQuat(rng)
	}
	rms := QuatsToRotationMatrices(qs)
	test.That(t, rms, test.ShouldHaveLength, 10)
	back := RotationMatricesToQuats(rms)
	for i := range qs {
		test.That(t, rms[i], test.ShouldResemble, QuatToRotationMatrix(qs[i]))
		test.That(t, back[i], test.ShouldResemble, RotationMatrixToQuat(rms[i]))
	}
	// a single element batch gives the same answer as the element inside a larger batch
	test.That(t, QuatsToRotationMatrices(qs[4:5])[0], test.ShouldResemble, rms[4])
	test.That(t, QuatsToRotationMatrices(nil), test.ShouldHaveLength, 0)
}

func TestNewRotationMatrix(t *testing.T) {
	rm, err := NewRotationMatrix([]float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rm, test.ShouldResemble, IdentityRotationMatrix())

	_, err = NewRotationMatrix([]float64{1, 0, 0})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected [9] but got [3]")
}

func TestRotationMatrixHelpers(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	a := randomRotation(rng)
	b := randomRotation(rng)

	test.That(t, a.Mul(a.Transpose()).AlmostEqual(IdentityRotationMatrix(), 1e-12), test.ShouldBeTrue)
	checkRotation(t, a.Mul(b))

	flat := a.Slice()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, flat[3*i+j], test.ShouldEqual, a.At(i, j))
		}
		test.That(t, a.Row(i).X, test.ShouldEqual, a.At(i, 0))
		test.That(t, a.Col(i).Z, test.ShouldEqual, a.At(2, i))
	}
	test.That(t, a.Slice(), test.ShouldHaveLength, 9)
}

func TestS2S2Identity(t *testing.T) {
	rm := S2S2ToRotationMatrix(r3.Vector{X: 1}, r3.Vector{Y: 1})
	test.That(t, rm, test.ShouldResemble, IdentityRotationMatrix())

	// scaling and a v1 component in v2 do not change the frame
	rm = S2S2ToRotationMatrix(r3.Vector{X: 4}, r3.Vector{X: 3, Y: 0.5})
	test.That(t, rm.AlmostEqual(IdentityRotationMatrix(), 1e-12), test.ShouldBeTrue)
}

func TestS2S2Orthonormal(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	for i := 0; i < 200; i++ {
		checkRotation(t, S2S2ToRotationMatrix(randomVector(rng), randomVector(rng)))
	}

	v := r3.Vector{X: 0.2, Y: -0.7, Z: 0.4}
	degenerate := []S2S2{
		{V1: v, V2: v},
		{V1: v, V2: v.Mul(-3)},
		{V1: v, V2: v.Add(r3.Vector{X: 1e-9})},
		{V1: v, V2: r3.Vector{}},
		{V1: r3.Vector{}, V2: r3.Vector{Y: 1}},
		{V1: r3.Vector{}, V2: r3.Vector{}},
		{V1: r3.Vector{X: 1e-12}, V2: r3.Vector{X: 1e-12}},
		{V1: r3.Vector{Z: 1}, V2: r3.Vector{Z: 1}},
		{V1: r3.Vector{Y: 2}, V2: r3.Vector{Y: -2}},
		{V1: r3.Vector{X: math.NaN()}, V2: r3.Vector{Y: 1}},
	}
	for _, s := range degenerate {
		rm := s.RotationMatrix()
		checkRotation(t, rm)
		for _, x := range rm.Slice() {
			test.That(t, math.IsNaN(x), test.ShouldBeFalse)
		}
	}
}

func TestS2S2RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	for i := 0; i < 100; i++ {
		rm := randomRotation(rng)
		s := RotationMatrixToS2S2(rm)
		test.That(t, s.V1, test.ShouldResemble, rm.Col(0))
		test.That(t, s.V2, test.ShouldResemble, rm.Col(1))
		test.That(t, s.RotationMatrix().AlmostEqual(rm, 1e-9), test.ShouldBeTrue)
		test.That(t, NewS2S2FromSlice(s.Slice()), test.ShouldResemble, s)
	}
	batch := S2S2sToRotationMatrices([]S2S2{{V1: r3.Vector{X: 1}, V2: r3.Vector{Y: 1}}, {V1: r3.Vector{Y: 1}, V2: r3.Vector{X: 1}}})
	test.That(t, batch, test.ShouldHaveLength, 2)
	test.That(t, batch[1].Col(2).Z, test.ShouldAlmostEqual, -1.)
}

func TestExpMapIdentity(t *testing.T) {
	test.That(t, ExpMap(r3.Vector{}), test.ShouldResemble, IdentityRotationMatrix())
	test.That(t, ExpMap(r3.Vector{X: 1e-300}).AlmostEqual(IdentityRotationMatrix(), 1e-15), test.ShouldBeTrue)
}

func TestExpMapKnown(t *testing.T) {
	rm := ExpMap(r3.Vector{Z: math.Pi / 2})
	expected := RotationMatrix{[9]float64{0, -1, 0, 1, 0, 0, 0, 0, 1}}
	test.That(t, rm.AlmostEqual(expected, 1e-12), test.ShouldBeTrue)

	rng := rand.New(rand.NewPCG(11, 12))
	for i := 0; i < 100; i++ {
		w := randomVector(rng)
		theta := w.Norm()
		axis := w.Normalize()
		q := quat.Number{
			Real: math.Cos(theta / 2),
			Imag: axis.X * math.Sin(theta/2),
			Jmag: axis.Y * math.Sin(theta/2),
			Kmag: axis.Z * math.Sin(theta/2),
		}
		rm := ExpMap(w)
		checkRotation(t, rm)
		test.That(t, rm.AlmostEqual(QuatToRotationMatrix(q), 1e-9), test.ShouldBeTrue)
	}
}

func TestExpMapContinuity(t *testing.T) {
	closedForm := func(theta float64) (float64, float64) {
		return math.Sin(theta) / theta, (1 - math.Cos(theta)) / (theta * theta)
	}
	for _, theta := range []float64{expTaylorThreshold, expTaylorThreshold * (1 - 1e-9), expTaylorThreshold * (1 + 1e-9)} {
		seriesA, seriesB := func() (float64, float64) {
			t2 := theta * theta
			return 1 - t2/6 + t2*t2/120, 0.5 - t2/24 + t2*t2/720
		}()
		exactA, exactB := closedForm(theta)
		test.That(t, seriesA, test.ShouldAlmostEqual, exactA, 1e-9)
		test.That(t, seriesB, test.ShouldAlmostEqual, exactB, 1e-9)
	}

	axis := r3.Vector{X: 1, Y: -2, Z: 0.5}.Normalize()
	below := ExpMap(axis.Mul(expTaylorThreshold * (1 - 1e-12)))
	above := ExpMap(axis.Mul(expTaylorThreshold * (1 + 1e-12)))
	test.That(t, below.AlmostEqual(above, 1e-9), test.ShouldBeTrue)

	for _, theta := range []float64{1e-12, 1e-8, 1e-5, 1e-3, 1e-2} {
		checkRotation(t, ExpMap(axis.Mul(theta)))
	}
}

func TestLogMapRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 14))
	for i := 0; i < 200; i++ {
		w := randomVector(rng).Normalize().Mul(rng.Float64() * (math.Pi - 1e-3))
		back := LogMap(ExpMap(w))
		test.That(t, back.Sub(w).Norm(), test.ShouldBeLessThan, 1e-9)
	}

	axis := r3.Vector{X: 0.3, Y: 0.4, Z: -0.5}.Normalize()
	for _, theta := range []float64{0, 1e-10, 1e-7, 1e-4, math.Pi - 1e-3, math.Pi - 1e-6, math.Pi - 1e-9} {
		w := axis.Mul(theta)
		back := LogMap(ExpMap(w))
		test.That(t, back.Sub(w).Norm(), test.ShouldBeLessThan, 1e-6)
	}

	// at exactly π either axis sign is correct
	half := ExpMap(axis.Mul(math.Pi))
	back := LogMap(half)
	test.That(t, back.Norm(), test.ShouldAlmostEqual, math.Pi, 1e-9)
	test.That(t, ExpMap(back).AlmostEqual(half, 1e-9), test.ShouldBeTrue)
}

func TestAngularDistance(t *testing.T) {
	rng := rand.New(rand.NewPCG(15, 16))
	a := randomRotation(rng)
	test.That(t, AngularDistance(a, a), test.ShouldAlmostEqual, 0., 1e-12)

	w := r3.Vector{X: 0.1, Y: 0.2, Z: -0.3}
	b := a.Mul(ExpMap(w))
	test.That(t, AngularDistance(a, b), test.ShouldAlmostEqual, w.Norm(), 1e-9)
	test.That(t, AngularDistance(b, a), test.ShouldAlmostEqual, w.Norm(), 1e-9)
}

func TestHatVee(t *testing.T) {
	w := r3.Vector{X: 1, Y: 2, Z: 3}
	v := r3.Vector{X: -1, Y: 0.5, Z: 4}
	k := Hat(w)
	prod := RotationMatrix{k}.MulVec(v)
	test.That(t, prod.Sub(w.Cross(v)).Norm(), test.ShouldAlmostEqual, 0., 1e-12)
	test.That(t, Vee(k), test.ShouldResemble, w)
}
