package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestToFloat64Slice(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input interface{}
	}{
		{"float64", []float64{1, 2.5}},
		{"float32", []float32{1, 2.5}},
		{"int", []int{1, 2}},
		{"int32", []int32{1, 2}},
		{"int64", []int64{1, 2}},
		{"uint8", []uint8{1, 2}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ToFloat64Slice(tc.input)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, out, test.ShouldHaveLength, 2)
			test.That(t, out[0], test.ShouldEqual, 1.)
		})
	}

	out, err := ToFloat64Slice(float32(3))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, []float64{3})

	_, err = ToFloat64Slice([]string{"a"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "[]string")
}
