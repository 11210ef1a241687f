package utils

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestShapeError(t *testing.T) {
	err := NewShapeError("images", []int{2, 4, 4}, []int{2, 3, 4})
	test.That(t, err.Error(), test.ShouldEqual, "invalid shape for images: expected [2 4 4] but got [2 3 4]")
	test.That(t, IsShapeError(err), test.ShouldBeTrue)
	test.That(t, IsShapeError(errors.Wrap(err, "search")), test.ShouldBeTrue)
	test.That(t, IsShapeError(errors.New("other")), test.ShouldBeFalse)

	var shapeErr *ShapeError
	test.That(t, errors.As(errors.Wrap(err, "outer"), &shapeErr), test.ShouldBeTrue)
	test.That(t, shapeErr.Name, test.ShouldEqual, "images")
	test.That(t, shapeErr.Actual, test.ShouldResemble, []int{2, 3, 4})
}

func TestNewUnexpectedTypeError(t *testing.T) {
	for _, tc := range []struct {
		name     string
		expected interface{}
		actual   interface{}
		errStr   string
	}{
		{"float", []float64{}, []int{}, "expected []float64 but got []int"},
		{"string", "a", 1, "expected string but got int"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := NewUnexpectedTypeError(tc.expected, tc.actual)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errStr)
		})
	}
}

func TestConfigValidationErrors(t *testing.T) {
	err := NewConfigValidationFieldRequiredError("search.lattice", "height")
	test.That(t, err.Error(), test.ShouldEqual, `error validating "search.lattice": "height" is required`)

	cause := errors.New("bad")
	err = NewConfigValidationError("search", cause)
	test.That(t, errors.Cause(err), test.ShouldEqual, cause)
}
