// Package config defines the search configuration and how it is read from disk.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/so3pose/posesearch"
	"go.viam.com/so3pose/so3grid"
	"go.viam.com/so3pose/utils"
)

// Lattice is the size of the images being searched.
type Lattice struct {
	Height int `json:"height" yaml:"height" jsonschema:"minimum=1"`
	Width  int `json:"width" yaml:"width" jsonschema:"minimum=1"`
}

// Search describes one pose search run.
type Search struct {
	Iterations     int     `json:"iterations" yaml:"iterations"`
	BaseResolution int     `json:"base_resolution" yaml:"base_resolution"`
	Lattice        Lattice `json:"lattice" yaml:"lattice"`
	// Workers bounds search parallelism; 0 uses every available CPU.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// DefaultSearch returns the configuration used when no file is given.
func DefaultSearch() *Search {
	return &Search{
		Iterations:     posesearch.DefaultIterations,
		BaseResolution: so3grid.DefaultResolution,
		Lattice:        Lattice{Height: 32, Width: 32},
	}
}

// Validate ensures all parts of the config are valid, reporting every invalid field.
func (s *Search) Validate(path string) error {
	var err error
	if s.Iterations < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("iterations must be non-negative, got %d", s.Iterations)))
	}
	if s.BaseResolution < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("base_resolution must be non-negative, got %d", s.BaseResolution)))
	}
	if s.BaseResolution+s.Iterations > so3grid.MaxResolution {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("base_resolution plus iterations must be at most %d, got %d",
				so3grid.MaxResolution, s.BaseResolution+s.Iterations)))
	}
	if s.Workers < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("workers must be non-negative, got %d", s.Workers)))
	}
	return multierr.Append(err, s.Lattice.Validate(fmt.Sprintf("%s.%s", path, "lattice")))
}

// Validate ensures both dimensions are set.
func (l Lattice) Validate(path string) error {
	var err error
	if l.Height <= 0 {
		err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError(path, "height"))
	}
	if l.Width <= 0 {
		err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError(path, "width"))
	}
	return err
}
