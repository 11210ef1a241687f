package utils

import (
	"fmt"

	"github.com/pkg/errors"
)

// ShapeError reports a mismatch between the dimensions a caller supplied and the ones an
// operation requires.
type ShapeError struct {
	Name     string
	Expected []int
	Actual   []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid shape for %s: expected %v but got %v", e.Name, e.Expected, e.Actual)
}

// NewShapeError is used when the dimensions of an input do not match what is required.
func NewShapeError(name string, expected, actual []int) error {
	return &ShapeError{Name: name, Expected: expected, Actual: actual}
}

// IsShapeError reports whether err, or anything it wraps, is a *ShapeError.
func IsShapeError(err error) bool {
	var shapeErr *ShapeError
	return errors.As(err, &shapeErr)
}

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError(expected interface{}, actual interface{}) error {
	return errors.Errorf("expected %T but got %T", expected, actual)
}

// NewConfigValidationError returns an error specifying that the config at path is invalid.
func NewConfigValidationError(path string, err error) error {
	return errors.Wrapf(err, "error validating %q", path)
}

// NewConfigValidationFieldRequiredError returns an error specifying that a required field of
// the config at path is missing.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return NewConfigValidationError(path, errors.Errorf("%q is required", field))
}
