package inject

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// RenderModel is an injected render model that also counts evaluations.
type RenderModel struct {
	EvaluateFunc func(ctx context.Context, coords []r3.Vector) ([]float64, error)
	TrainingFunc func() bool
	calls        atomic.Int64
}

// Evaluate calls the injected Evaluate.
func (m *RenderModel) Evaluate(ctx context.Context, coords []r3.Vector) ([]float64, error) {
	m.calls.Inc()
	if m.EvaluateFunc == nil {
		return nil, errors.New("no Evaluate function injected")
	}
	return m.EvaluateFunc(ctx, coords)
}

// Training calls the injected Training or reports evaluation mode.
func (m *RenderModel) Training() bool {
	if m.TrainingFunc == nil {
		return false
	}
	return m.TrainingFunc()
}

// Calls returns how many times Evaluate has been called.
func (m *RenderModel) Calls() int64 {
	return m.calls.Load()
}
