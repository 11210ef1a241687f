// Package rendermodel contains the volume representations the pose search can score images
// against. Every model maps 3D coordinates to one intensity per coordinate.
package rendermodel

import (
	"context"

	"github.com/golang/geo/r3"
)

// Func adapts a pointwise intensity function to a render model.
type Func func(p r3.Vector) float64

// Evaluate calls f on every coordinate.
func (f Func) Evaluate(ctx context.Context, coords []r3.Vector) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]float64, len(coords))
	for i, p := range coords {
		out[i] = f(p)
	}
	return out, nil
}
