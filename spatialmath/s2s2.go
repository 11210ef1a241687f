package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// s2s2Epsilon bounds the norms below which an S2xS2 vector is treated as degenerate.
const s2s2Epsilon = 1e-5

// S2S2 is the 6 dimensional rotation representation made of two 3-vectors. Neither needs to be
// unit length or orthogonal to the other; S2S2ToRotationMatrix orthonormalizes them.
type S2S2 struct {
	V1 r3.Vector
	V2 r3.Vector
}

// NewS2S2FromSlice reads V1 from v[0:3] and V2 from v[3:6].
func NewS2S2FromSlice(v []float64) S2S2 {
	return S2S2{
		V1: r3.Vector{X: v[0], Y: v[1], Z: v[2]},
		V2: r3.Vector{X: v[3], Y: v[4], Z: v[5]},
	}
}

// Slice returns V1 followed by V2.
func (s S2S2) Slice() []float64 {
	return []float64{s.V1.X, s.V1.Y, s.V1.Z, s.V2.X, s.V2.Y, s.V2.Z}
}

// RotationMatrix returns the orthonormalized rotation of s.
func (s S2S2) RotationMatrix() RotationMatrix {
	return S2S2ToRotationMatrix(s.V1, s.V2)
}

// S2S2ToRotationMatrix builds the rotation whose first column is v1 normalized, whose second
// column is the normalized component of v2 orthogonal to v1 and whose third column is their
// cross product. A vanishing v1 is replaced by the x axis; a v2 (nearly) parallel to v1 is
// replaced by an arbitrary unit vector orthogonal to v1. The result is always orthonormal.
func S2S2ToRotationMatrix(v1, v2 r3.Vector) RotationMatrix {
	e1 := r3.Vector{X: 1}
	if n := v1.Norm(); n >= s2s2Epsilon && !math.IsInf(n, 0) {
		e1 = v1.Mul(1 / n)
	}
	u2 := v2.Sub(e1.Mul(e1.Dot(v2)))
	var e2 r3.Vector
	if n := u2.Norm(); n >= s2s2Epsilon && !math.IsInf(n, 0) {
		e2 = u2.Mul(1 / n)
	} else {
		e2 = orthogonalTo(e1)
	}
	// re-project once more so e1 and e2 are orthogonal to working precision
	e2 = e2.Sub(e1.Mul(e1.Dot(e2))).Normalize()
	e3 := e1.Cross(e2)
	return NewRotationMatrixFromColumns(e1, e2, e3)
}

// RotationMatrixToS2S2 returns the first two columns of rm, which S2S2ToRotationMatrix maps back
// to rm exactly up to floating point error.
func RotationMatrixToS2S2(rm RotationMatrix) S2S2 {
	return S2S2{V1: rm.Col(0), V2: rm.Col(1)}
}

// S2S2sToRotationMatrices converts every pair in ss.
func S2S2sToRotationMatrices(ss []S2S2) []RotationMatrix {
	out := make([]RotationMatrix, len(ss))
	for i, s := range ss {
		out[i] = S2S2ToRotationMatrix(s.V1, s.V2)
	}
	return out
}

// orthogonalTo returns a unit vector orthogonal to the unit vector v, built from the basis axis
// least aligned with v.
func orthogonalTo(v r3.Vector) r3.Vector {
	var axis r3.Vector
	switch v.Abs().LargestComponent() {
	case r3.XAxis:
		axis = r3.Vector{Y: 1}
	case r3.YAxis:
		axis = r3.Vector{Z: 1}
	default:
		axis = r3.Vector{X: 1}
	}
	return v.Cross(axis).Normalize()
}
