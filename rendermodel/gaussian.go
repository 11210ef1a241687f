package rendermodel

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Gaussian is one isotropic blob of a GaussianMixture.
type Gaussian struct {
	Center r3.Vector
	Sigma  float64
	Weight float64
}

// GaussianMixture is an analytic volume Σ wᵢ·exp(−‖p−cᵢ‖²/(2σᵢ²)). It never trains and is
// safe for concurrent use.
type GaussianMixture struct {
	components []Gaussian
}

// NewGaussianMixture validates and copies the components.
func NewGaussianMixture(components ...Gaussian) (*GaussianMixture, error) {
	if len(components) == 0 {
		return nil, errors.New("gaussian mixture needs at least one component")
	}
	for i, g := range components {
		if !(g.Sigma > 0) || math.IsInf(g.Sigma, 1) {
			return nil, errors.Errorf("component %d: sigma must be positive and finite, got %v", i, g.Sigma)
		}
	}
	return &GaussianMixture{components: append([]Gaussian(nil), components...)}, nil
}

// Components returns a copy of the mixture components.
func (gm *GaussianMixture) Components() []Gaussian {
	return append([]Gaussian(nil), gm.components...)
}

// Intensity evaluates the mixture at p.
func (gm *GaussianMixture) Intensity(p r3.Vector) float64 {
	var sum float64
	for _, g := range gm.components {
		d2 := p.Sub(g.Center).Norm2()
		sum += g.Weight * math.Exp(-d2/(2*g.Sigma*g.Sigma))
	}
	return sum
}

// Evaluate returns the intensity at every coordinate.
func (gm *GaussianMixture) Evaluate(ctx context.Context, coords []r3.Vector) ([]float64, error) {
	return Func(gm.Intensity).Evaluate(ctx, coords)
}
