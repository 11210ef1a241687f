package rendermodel

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"go.viam.com/so3pose/utils"
)

// Tensors are the named inputs or outputs of an inference call.
type Tensors map[string]*tensor.Dense

// Inferencer runs a learned volume, such as an exported coordinate network.
type Inferencer interface {
	Infer(ctx context.Context, inputs Tensors) (Tensors, error)
}

// TensorModel evaluates coordinates by packing them into an (M, 3) float64 tensor and reading
// back an (M) or (M, 1) float32 or float64 tensor.
type TensorModel struct {
	inferencer Inferencer
	inputName  string
	outputName string
}

// NewTensorModel wraps inf, feeding coordinates as inputName and reading outputName.
func NewTensorModel(inf Inferencer, inputName, outputName string) (*TensorModel, error) {
	if inf == nil {
		return nil, errors.New("inferencer is required")
	}
	if inputName == "" || outputName == "" {
		return nil, errors.New("input and output tensor names are required")
	}
	return &TensorModel{inferencer: inf, inputName: inputName, outputName: outputName}, nil
}

// Training reports whether the wrapped inferencer is in training mode, when it can tell.
func (tm *TensorModel) Training() bool {
	if trainer, ok := tm.inferencer.(interface{ Training() bool }); ok {
		return trainer.Training()
	}
	return false
}

// Evaluate runs one inference over all coordinates.
func (tm *TensorModel) Evaluate(ctx context.Context, coords []r3.Vector) ([]float64, error) {
	if len(coords) == 0 {
		return []float64{}, nil
	}
	backing := make([]float64, 0, 3*len(coords))
	for _, p := range coords {
		backing = append(backing, p.X, p.Y, p.Z)
	}
	input := tensor.New(tensor.WithShape(len(coords), 3), tensor.WithBacking(backing))
	outputs, err := tm.inferencer.Infer(ctx, Tensors{tm.inputName: input})
	if err != nil {
		return nil, errors.Wrap(err, "render model inference failed")
	}
	output, ok := outputs[tm.outputName]
	if !ok || output == nil {
		return nil, errors.Errorf("inference output %q missing", tm.outputName)
	}
	shape := output.Shape()
	if !validOutputShape(shape, len(coords)) {
		return nil, utils.NewShapeError(tm.outputName, []int{len(coords)}, []int(shape))
	}
	values, err := utils.ToFloat64Slice(output.Data())
	if err != nil {
		return nil, errors.Wrapf(err, "inference output %q", tm.outputName)
	}
	if len(values) != len(coords) {
		return nil, utils.NewShapeError(tm.outputName, []int{len(coords)}, []int{len(values)})
	}
	if _, isFloat64 := output.Data().([]float64); isFloat64 {
		values = append([]float64(nil), values...)
	}
	return values, nil
}

func validOutputShape(shape tensor.Shape, n int) bool {
	switch len(shape) {
	case 1:
		return shape[0] == n
	case 2:
		return shape[0] == n && shape[1] == 1
	default:
		return false
	}
}
