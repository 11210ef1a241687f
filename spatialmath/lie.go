package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Tangent vectors of SO(3) are r3.Vectors in axis-angle form: the direction is the rotation
// axis and the norm is the angle in radians.
// See section 2 of http://ethaneade.com/lie.pdf

// expTaylorThreshold is the angle below which ExpMap switches to series coefficients. At this
// angle the series truncation error is ~1e-22 while the closed form loses ~1e-10 to cancellation.
const expTaylorThreshold = 1e-3

// logTaylorThreshold is the angle below which LogMap uses the series for θ/sin θ.
const logTaylorThreshold = 1e-6

// Hat returns the skew symmetric matrix [w]× in row major order, so that [w]× v = w × v.
func Hat(w r3.Vector) [9]float64 {
	return [9]float64{
		0, -w.Z, w.Y,
		w.Z, 0, -w.X,
		-w.Y, w.X, 0,
	}
}

// Vee is the inverse of Hat on the skew symmetric part of m.
func Vee(m [9]float64) r3.Vector {
	return r3.Vector{
		X: (m[7] - m[5]) / 2,
		Y: (m[2] - m[6]) / 2,
		Z: (m[3] - m[1]) / 2,
	}
}

// ExpMap maps a tangent vector to its rotation with Rodrigues' formula
//
//	R = I + sin(θ)/θ [w]× + (1-cos(θ))/θ² [w]×²
//
// Below expTaylorThreshold the coefficients are replaced by their series, which keeps the map
// smooth through θ = 0. ExpMap of the zero vector is exactly the identity.
func ExpMap(w r3.Vector) RotationMatrix {
	theta := w.Norm()
	a, b := expCoefficients(theta)
	k := Hat(w)
	out := IdentityRotationMatrix().mat
	addScaled3(&out, k, a)
	addScaled3(&out, mul3(k, k), b)
	return RotationMatrix{out}
}

// ExpMaps applies ExpMap to every vector in ws.
func ExpMaps(ws []r3.Vector) []RotationMatrix {
	out := make([]RotationMatrix, len(ws))
	for i, w := range ws {
		out[i] = ExpMap(w)
	}
	return out
}

func expCoefficients(theta float64) (float64, float64) {
	if theta < expTaylorThreshold {
		t2 := theta * theta
		return 1 - t2/6 + t2*t2/120, 0.5 - t2/24 + t2*t2/720
	}
	return math.Sin(theta) / theta, (1 - math.Cos(theta)) / (theta * theta)
}

// LogMap returns the tangent vector w with |w| in [0, π] such that ExpMap(w) = rm.
// At θ = π the axis sign is ambiguous and either choice is returned.
func LogMap(rm RotationMatrix) r3.Vector {
	m := rm.mat
	cosTheta := math.Max(-1, math.Min(1, (rm.Trace()-1)/2))
	// v = sin(θ) * axis
	v := Vee(m)
	sinTheta := v.Norm()
	theta := math.Atan2(sinTheta, cosTheta)

	switch {
	case theta < logTaylorThreshold:
		return v.Mul(1 + theta*theta/6)
	case cosTheta < 0 && sinTheta < 1e-4:
		// near π the skew part vanishes; recover the axis from the symmetric part
		// S = cos(θ) I + (1 - cos(θ)) a aᵀ
		axis := axisFromSymmetric(m, cosTheta)
		if axis.Dot(v) < 0 {
			axis = axis.Mul(-1)
		}
		return axis.Mul(theta)
	default:
		return v.Mul(theta / sinTheta)
	}
}

func axisFromSymmetric(m [9]float64, cosTheta float64) r3.Vector {
	scale := 1 - cosTheta
	diag := [3]float64{
		math.Max(0, (m[0]-cosTheta)/scale),
		math.Max(0, (m[4]-cosTheta)/scale),
		math.Max(0, (m[8]-cosTheta)/scale),
	}
	k := 0
	for i := 1; i < 3; i++ {
		if diag[i] > diag[k] {
			k = i
		}
	}
	ak := math.Sqrt(diag[k])
	var a [3]float64
	for i := 0; i < 3; i++ {
		if i == k {
			a[i] = ak
			continue
		}
		sym := (m[3*i+k] + m[3*k+i]) / 2
		a[i] = sym / (scale * ak)
	}
	return r3.Vector{X: a[0], Y: a[1], Z: a[2]}.Normalize()
}

// AngularDistance returns the geodesic angle, in radians, of the rotation taking a to b.
func AngularDistance(a, b RotationMatrix) float64 {
	return LogMap(a.Transpose().Mul(b)).Norm()
}
