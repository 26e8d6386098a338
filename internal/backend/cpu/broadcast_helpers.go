package cpu

import (
	"github.com/born-ml/pointseg/internal/tensor"
)

// broadcastStrides computes strides for reading a tensor of inShape as if it
// had outShape. Dimensions of size 1 and left-padded dimensions get stride 0.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	outDim := len(outShape)
	strides := make([]int, outDim)

	inDim := len(inShape)
	offset := outDim - inDim
	origStrides := inShape.ComputeStrides()

	for i := 0; i < outDim; i++ {
		inIdx := i - offset
		switch {
		case inIdx < 0:
			strides[i] = 0
		case inShape[inIdx] == 1:
			strides[i] = 0
		default:
			strides[i] = origStrides[inIdx]
		}
	}

	return strides
}

// indexIterator walks a shape in row-major order, keeping the multi-index
// so that strided offsets can be computed without divisions.
type indexIterator struct {
	shape  tensor.Shape
	coords []int
}

func newIndexIterator(shape tensor.Shape) *indexIterator {
	return &indexIterator{shape: shape, coords: make([]int, len(shape))}
}

func (it *indexIterator) offset(strides []int) int {
	off := 0
	for i, c := range it.coords {
		off += c * strides[i]
	}
	return off
}

func (it *indexIterator) next() {
	for i := len(it.coords) - 1; i >= 0; i-- {
		it.coords[i]++
		if it.coords[i] < it.shape[i] {
			return
		}
		it.coords[i] = 0
	}
}

// splitAt decomposes shape around dim into (outer, size, inner) extents,
// the layout every single-axis reduction and concatenation works on.
func splitAt(shape tensor.Shape, dim int) (outer, size, inner int) {
	outer, inner = 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	return outer, shape[dim], inner
}

// reducedShape removes (or keeps as 1) the dimension dim.
func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	out := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		switch {
		case i != dim:
			out = append(out, d)
		case keepDim:
			out = append(out, 1)
		}
	}
	if len(out) == 0 {
		out = tensor.Shape{1}
	}
	return out
}
