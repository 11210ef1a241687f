package inject

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/so3pose/rendermodel"
)

// Inferencer is an injected inference backend.
type Inferencer struct {
	InferFunc    func(ctx context.Context, inputs rendermodel.Tensors) (rendermodel.Tensors, error)
	TrainingFunc func() bool
}

// Infer calls the injected Infer.
func (i *Inferencer) Infer(ctx context.Context, inputs rendermodel.Tensors) (rendermodel.Tensors, error) {
	if i.InferFunc == nil {
		return nil, errors.New("no Infer function injected")
	}
	return i.InferFunc(ctx, inputs)
}

// Training calls the injected Training or reports evaluation mode.
func (i *Inferencer) Training() bool {
	if i.TrainingFunc == nil {
		return false
	}
	return i.TrainingFunc()
}
