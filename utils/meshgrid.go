package utils

import "gonum.org/v1/gonum/mat"

// Linspace returns n evenly spaced values starting at start. The last value is stop when
// endpoint is set; otherwise the interval is split into n steps and stop is excluded.
func Linspace(start, stop float64, n int, endpoint bool) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	steps := float64(n)
	if endpoint {
		steps = float64(n - 1)
	}
	step := (stop - start) / steps
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	if endpoint {
		out[n-1] = stop
	}
	return out
}

// Meshgrid returns every combination of the axis values as the rows of a matrix with one
// column per axis. The last axis varies fastest, so Meshgrid(ys, xs) is y major.
func Meshgrid(axes ...[]float64) *mat.Dense {
	dims := make([]int, len(axes))
	for i, axis := range axes {
		dims[i] = len(axis)
	}
	sz := size(dims)
	if len(axes) == 0 || sz == 0 {
		return nil
	}
	out := mat.NewDense(sz, len(axes), nil)
	sub := make([]int, len(axes))
	for i := 0; i < sz; i++ {
		SubFor(sub, i, dims)
		for j, axis := range axes {
			out.Set(i, j, axis[sub[j]])
		}
	}
	return out
}

func size(dims []int) int {
	n := 1
	for _, v := range dims {
		n *= v
	}
	return n
}

// SubFor constructs the multi-dimensional subscript for the input linear index in row major
// order. Dims specifies the size in each dimension.
//
// If sub is non-nil the result is stored in-place into sub. If it is nil a new
// slice of the appropriate length is allocated.
func SubFor(sub []int, idx int, dims []int) []int {
	for _, v := range dims {
		if v <= 0 {
			panic("bad dims")
		}
	}
	if sub == nil {
		sub = make([]int, len(dims))
	}
	if len(sub) != len(dims) {
		panic("size mismatch")
	}
	if idx < 0 || idx >= size(dims) {
		panic("bad index")
	}
	for i := len(dims) - 1; i >= 0; i-- {
		sub[i] = idx % dims[i]
		idx /= dims[i]
	}
	return sub
}
