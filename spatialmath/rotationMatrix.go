package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/so3pose/utils"
)

// RotationMatrix is a 3x3 matrix in row major order.
// m[3*i+j] is the element in the ith row and jth column.
// Every RotationMatrix produced by this package is orthonormal with determinant +1.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates a rotation matrix from a slice of 9 row major elements. The
// elements are taken as is; callers holding arbitrary matrices should check OrthonormalityError.
func NewRotationMatrix(m []float64) (RotationMatrix, error) {
	if len(m) != 9 {
		return RotationMatrix{}, utils.NewShapeError("rotation matrix", []int{9}, []int{len(m)})
	}
	var rm RotationMatrix
	copy(rm.mat[:], m)
	return rm, nil
}

// NewRotationMatrixFromColumns builds the matrix whose columns are c0, c1 and c2.
func NewRotationMatrixFromColumns(c0, c1, c2 r3.Vector) RotationMatrix {
	return RotationMatrix{[9]float64{
		c0.X, c1.X, c2.X,
		c0.Y, c1.Y, c2.Y,
		c0.Z, c1.Z, c2.Z,
	}}
}

// IdentityRotationMatrix returns the rotation matrix of the zero rotation.
func IdentityRotationMatrix() RotationMatrix {
	return RotationMatrix{[9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// At returns the element in the given row and column.
func (rm RotationMatrix) At(row, col int) float64 {
	return rm.mat[3*row+col]
}

// Row returns the ith row as a vector.
func (rm RotationMatrix) Row(i int) r3.Vector {
	return r3.Vector{X: rm.mat[3*i], Y: rm.mat[3*i+1], Z: rm.mat[3*i+2]}
}

// Col returns the jth column as a vector.
func (rm RotationMatrix) Col(j int) r3.Vector {
	return r3.Vector{X: rm.mat[j], Y: rm.mat[j+3], Z: rm.mat[j+6]}
}

// Slice returns a row major copy of the elements.
func (rm RotationMatrix) Slice() []float64 {
	out := make([]float64, 9)
	copy(out, rm.mat[:])
	return out
}

// Mul returns the product rm * other.
func (rm RotationMatrix) Mul(other RotationMatrix) RotationMatrix {
	return RotationMatrix{mul3(rm.mat, other.mat)}
}

// Transpose returns the transpose, which for a rotation is also its inverse.
func (rm RotationMatrix) Transpose() RotationMatrix {
	m := rm.mat
	return RotationMatrix{[9]float64{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}}
}

// MulVec returns the product rm * v.
func (rm RotationMatrix) MulVec(v r3.Vector) r3.Vector {
	m := rm.mat
	return r3.Vector{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		Z: m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Trace returns the sum of the diagonal.
func (rm RotationMatrix) Trace() float64 {
	return rm.mat[0] + rm.mat[4] + rm.mat[8]
}

// Det returns the determinant.
func (rm RotationMatrix) Det() float64 {
	return rm.Col(0).Dot(rm.Col(1).Cross(rm.Col(2)))
}

// OrthonormalityError returns the Frobenius norm of Rᵀ R - I.
func (rm RotationMatrix) OrthonormalityError() float64 {
	p := mul3(rm.Transpose().mat, rm.mat)
	p[0]--
	p[4]--
	p[8]--
	var sum float64
	for _, v := range p {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// AlmostEqual reports whether every element of rm is within tol of the matching element of other.
func (rm RotationMatrix) AlmostEqual(other RotationMatrix, tol float64) bool {
	for i := range rm.mat {
		if math.Abs(rm.mat[i]-other.mat[i]) > tol {
			return false
		}
	}
	return true
}

// Quaternion returns the unit quaternion of the rotation, with non-negative real part.
func (rm RotationMatrix) Quaternion() quat.Number {
	return RotationMatrixToQuat(rm)
}

// S2S2 returns the first two columns of the rotation.
func (rm RotationMatrix) S2S2() S2S2 {
	return RotationMatrixToS2S2(rm)
}

func mul3(a, b [9]float64) [9]float64 {
	var out [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[3*i+j] = a[3*i]*b[j] + a[3*i+1]*b[3+j] + a[3*i+2]*b[6+j]
		}
	}
	return out
}

func addScaled3(dst *[9]float64, m [9]float64, s float64) {
	for i := range m {
		dst[i] += s * m[i]
	}
}
