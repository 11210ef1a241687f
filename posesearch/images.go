package posesearch

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"go.viam.com/so3pose/utils"
)

// ImageBatch is a stack of Count images of Height×Width pixels, stored row-major as
// Count×Height×Width.
type ImageBatch struct {
	Count  int
	Height int
	Width  int
	Pixels []float64
}

// NewImageBatch validates the dimensions against the pixel count.
func NewImageBatch(count, height, width int, pixels []float64) (ImageBatch, error) {
	if count < 0 || height <= 0 || width <= 0 {
		return ImageBatch{}, errors.Errorf("invalid image batch dimensions %dx%dx%d", count, height, width)
	}
	if len(pixels) != count*height*width {
		return ImageBatch{}, utils.NewShapeError("image pixels", []int{count * height * width}, []int{len(pixels)})
	}
	return ImageBatch{Count: count, Height: height, Width: width, Pixels: pixels}, nil
}

// ImageBatchFromTensor reads a (B, Y, X) tensor, or a single (Y, X) image, of any numeric type.
func ImageBatchFromTensor(t *tensor.Dense) (ImageBatch, error) {
	if t == nil {
		return ImageBatch{}, errors.New("image tensor is nil")
	}
	shape := t.Shape()
	pixels, err := utils.ToFloat64Slice(t.Data())
	if err != nil {
		return ImageBatch{}, errors.Wrap(err, "image tensor")
	}
	if _, isFloat64 := t.Data().([]float64); isFloat64 {
		pixels = append([]float64(nil), pixels...)
	}
	switch len(shape) {
	case 2:
		return NewImageBatch(1, shape[0], shape[1], pixels)
	case 3:
		return NewImageBatch(shape[0], shape[1], shape[2], pixels)
	default:
		return ImageBatch{}, utils.NewShapeError("image tensor", []int{-1, -1, -1}, []int(shape))
	}
}

// Size is the number of pixels in one image.
func (b ImageBatch) Size() int {
	return b.Height * b.Width
}

// Image returns the pixels of image i. The slice aliases the batch.
func (b ImageBatch) Image(i int) []float64 {
	n := b.Size()
	return b.Pixels[i*n : (i+1)*n]
}

// ConcatImageBatches stacks batches of equally sized images.
func ConcatImageBatches(batches ...ImageBatch) (ImageBatch, error) {
	if len(batches) == 0 {
		return ImageBatch{}, errors.New("no image batches to concatenate")
	}
	out := ImageBatch{Height: batches[0].Height, Width: batches[0].Width}
	for _, b := range batches {
		if b.Height != out.Height || b.Width != out.Width {
			return ImageBatch{}, utils.NewShapeError("image batch", []int{b.Count, out.Height, out.Width}, []int{b.Count, b.Height, b.Width})
		}
		out.Count += b.Count
		out.Pixels = append(out.Pixels, b.Pixels...)
	}
	return out, nil
}
