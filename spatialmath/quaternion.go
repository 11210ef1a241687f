package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Quaternions are gonum quat.Numbers with Real as the scalar part. q and -q describe the same
// rotation, so two quaternions must never be compared component-wise to decide whether they are
// the same orientation; use QuaternionAlmostEqual or compare the induced rotation matrices.

// NormalizeQuaternion scales q to unit norm. The zero quaternion is mapped to the identity.
func NormalizeQuaternion(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// QuatToRotationMatrix converts a quaternion to a rotation matrix. q is normalized first, so
// any non-zero quaternion yields an orthonormal matrix.
func QuatToRotationMatrix(q quat.Number) RotationMatrix {
	q = NormalizeQuaternion(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return RotationMatrix{[9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}}
}

// RotationMatrixToQuat converts a rotation matrix to a unit quaternion.
// The sign is fixed so the real part is non-negative; when it is zero, the first non-zero
// imaginary component is positive.
// See: https://www.euclideanspace.com/maths/geometry/rotations/conversions/matrixToQuaternion/
func RotationMatrixToQuat(rm RotationMatrix) quat.Number {
	m := rm.mat
	var q quat.Number
	switch tr := m[0] + m[4] + m[8]; {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = quat.Number{Real: s / 4, Imag: (m[7] - m[5]) / s, Jmag: (m[2] - m[6]) / s, Kmag: (m[3] - m[1]) / s}
	case m[0] > m[4] && m[0] > m[8]:
		s := math.Sqrt(1+m[0]-m[4]-m[8]) * 2
		q = quat.Number{Real: (m[7] - m[5]) / s, Imag: s / 4, Jmag: (m[1] + m[3]) / s, Kmag: (m[2] + m[6]) / s}
	case m[4] > m[8]:
		s := math.Sqrt(1+m[4]-m[0]-m[8]) * 2
		q = quat.Number{Real: (m[2] - m[6]) / s, Imag: (m[1] + m[3]) / s, Jmag: s / 4, Kmag: (m[5] + m[7]) / s}
	default:
		s := math.Sqrt(1+m[8]-m[0]-m[4]) * 2
		q = quat.Number{Real: (m[3] - m[1]) / s, Imag: (m[2] + m[6]) / s, Jmag: (m[5] + m[7]) / s, Kmag: s / 4}
	}
	return canonicalQuaternion(NormalizeQuaternion(q))
}

// QuatsToRotationMatrices converts every quaternion in qs.
func QuatsToRotationMatrices(qs []quat.Number) []RotationMatrix {
	out := make([]RotationMatrix, len(qs))
	for i, q := range qs {
		out[i] = QuatToRotationMatrix(q)
	}
	return out
}

// RotationMatricesToQuats converts every rotation matrix in rms.
func RotationMatricesToQuats(rms []RotationMatrix) []quat.Number {
	out := make([]quat.Number, len(rms))
	for i, rm := range rms {
		out[i] = RotationMatrixToQuat(rm)
	}
	return out
}

// QuaternionAlmostEqual reports whether a and b describe the same rotation within tol, comparing
// against both b and -b.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	within := func(b quat.Number) bool {
		return math.Abs(a.Real-b.Real) <= tol &&
			math.Abs(a.Imag-b.Imag) <= tol &&
			math.Abs(a.Jmag-b.Jmag) <= tol &&
			math.Abs(a.Kmag-b.Kmag) <= tol
	}
	return within(b) || within(quat.Scale(-1, b))
}

// QuaternionSquaredDistance returns min(|a-b|², |a+b|²), the chordal distance between the
// rotations described by unit quaternions a and b.
func QuaternionSquaredDistance(a, b quat.Number) float64 {
	d := quat.Sub(a, b)
	s := quat.Add(a, b)
	return math.Min(quatNorm2(d), quatNorm2(s))
}

func quatNorm2(q quat.Number) float64 {
	return q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag
}

func canonicalQuaternion(q quat.Number) quat.Number {
	switch {
	case q.Real > 0:
		return q
	case q.Real < 0:
		return quat.Scale(-1, q)
	}
	for _, c := range []float64{q.Imag, q.Jmag, q.Kmag} {
		if c > 0 {
			return q
		}
		if c < 0 {
			return quat.Scale(-1, q)
		}
	}
	return q
}
