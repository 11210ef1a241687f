package utils

import (
	"golang.org/x/exp/constraints"
)

type number interface {
	constraints.Integer | constraints.Float
}

// convertNumberSlice converts any number slice into another number slice.
func convertNumberSlice[T1, T2 number](t1 []T1) []T2 {
	t2 := make([]T2, len(t1))
	for i := range t1 {
		t2[i] = T2(t1[i])
	}
	return t2
}

// ToFloat64Slice converts the backing data of a tensor (or any numeric slice) into a []float64.
// A []float64 is returned as is, without copying.
func ToFloat64Slice(slice interface{}) ([]float64, error) {
	switch v := slice.(type) {
	case []float64:
		return v, nil
	case float64:
		return []float64{v}, nil
	case []float32:
		return convertNumberSlice[float32, float64](v), nil
	case float32:
		return []float64{float64(v)}, nil
	case []int:
		return convertNumberSlice[int, float64](v), nil
	case []int32:
		return convertNumberSlice[int32, float64](v), nil
	case []int64:
		return convertNumberSlice[int64, float64](v), nil
	case []uint8:
		return convertNumberSlice[uint8, float64](v), nil
	default:
		return nil, NewUnexpectedTypeError([]float64{}, slice)
	}
}
