package cpu

import (
	"fmt"

	"github.com/born-ml/pointseg/internal/tensor"
)

// Reshape returns a copy of x with a new shape.
// A single -1 entry is inferred from the remaining dimensions.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	shape := newShape.Clone()
	infer := -1
	known := 1
	for i, d := range shape {
		if d == -1 {
			if infer >= 0 {
				panic(fmt.Sprintf("reshape: more than one inferred dimension in %v", newShape))
			}
			infer = i
			continue
		}
		known *= d
	}
	if infer >= 0 {
		if known == 0 || x.NumElements()%known != 0 {
			panic(fmt.Sprintf("reshape: cannot infer dimension for %v from %v", newShape, x.Shape()))
		}
		shape[infer] = x.NumElements() / known
	}

	if shape.NumElements() != x.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			x.Shape(), x.NumElements(), shape, shape.NumElements()))
	}

	return x.Clone().View(shape)
}

// Transpose permutes the dimensions of x.
// With no axes, all dimensions are reversed.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", ndim, len(axes)))
	}

	seen := make([]bool, ndim)
	perm := make([]int, ndim)
	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		ax = shape.NormalizeDim(ax)
		if seen[ax] {
			panic(fmt.Sprintf("transpose: repeated axis %d in %v", ax, axes))
		}
		seen[ax] = true
		perm[i] = ax
		outShape[i] = shape[ax]
	}

	inStrides := x.Strides()
	permStrides := make([]int, ndim)
	for i, ax := range perm {
		permStrides[i] = inStrides[ax]
	}

	result := tensor.MustNewRaw(outShape, x.DType(), cpu.device)
	copyStrided(result, x, outShape, permStrides)
	return result
}

// Cat concatenates tensors along dim.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	first := tensors[0].Shape()
	dim = first.NormalizeDim(dim)
	dtype := tensors[0].DType()

	outShape := first.Clone()
	outShape[dim] = 0
	for i, t := range tensors {
		s := t.Shape()
		if len(s) != len(first) || t.DType() != dtype {
			panic(fmt.Sprintf("cat: tensor %d has shape %v (%s), expected rank %d (%s)", i, s, t.DType(), len(first), dtype))
		}
		for d := range s {
			if d != dim && s[d] != first[d] {
				panic(fmt.Sprintf("cat: tensor %d shape %v incompatible with %v along dim %d", i, s, first, d))
			}
		}
		outShape[dim] += s[dim]
	}

	result := tensor.MustNewRaw(outShape, dtype, cpu.device)
	elem := dtype.Size()
	outer, outSize, inner := splitAt(outShape, dim)
	dst := result.Data()

	offset := 0
	for _, t := range tensors {
		_, size, _ := splitAt(t.Shape(), dim)
		src := t.Data()
		chunk := size * inner * elem
		for o := 0; o < outer; o++ {
			start := (o*outSize + offset) * inner * elem
			copy(dst[start:start+chunk], src[o*chunk:(o+1)*chunk])
		}
		offset += size
	}

	return result
}

// Expand broadcasts x to shape.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	xShape := x.Shape()
	if len(newShape) < len(xShape) {
		panic(fmt.Sprintf("expand: new shape %v has fewer dimensions than input shape %v", newShape, xShape))
	}

	offset := len(newShape) - len(xShape)
	for i, xDim := range xShape {
		if xDim != 1 && xDim != newShape[offset+i] {
			panic(fmt.Sprintf("expand: cannot expand dimension %d from %d to %d", i, xDim, newShape[offset+i]))
		}
	}

	result := tensor.MustNewRaw(newShape, x.DType(), cpu.device)
	copyStrided(result, x, newShape, broadcastStrides(xShape, newShape))
	return result
}

// copyStrided fills dst (contiguous, shape outShape) by reading src with
// the given element strides.
func copyStrided(dst, src *tensor.RawTensor, outShape tensor.Shape, srcStrides []int) {
	elem := src.DType().Size()
	out := dst.Data()
	in := src.Data()
	it := newIndexIterator(outShape)
	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		s := it.offset(srcStrides) * elem
		copy(out[i*elem:(i+1)*elem], in[s:s+elem])
		it.next()
	}
}
