package cpu

import (
	"fmt"

	"github.com/born-ml/pointseg/internal/tensor"
)

type reduceOp int

const (
	reduceSum reduceOp = iota
	reduceMean
	reduceMax
)

// Sum computes the sum of all elements. The result has shape [1].
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	flat := x.View(tensor.Shape{x.NumElements()})
	return cpu.reduce("sum", flat, 0, false, reduceSum)
}

// SumDim sums along dim.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduce("sum_dim", x, dim, keepDim, reduceSum)
}

// MeanDim averages along dim.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduce("mean_dim", x, dim, keepDim, reduceMean)
}

// MaxDim takes the maximum along dim.
func (cpu *CPUBackend) MaxDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduce("max_dim", x, dim, keepDim, reduceMax)
}

func (cpu *CPUBackend) reduce(name string, x *tensor.RawTensor, dim int, keepDim bool, op reduceOp) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) == 0 {
		shape = tensor.Shape{1}
		x = x.View(shape)
	}
	dim = shape.NormalizeDim(dim)
	outer, size, inner := splitAt(shape, dim)

	result := tensor.MustNewRaw(reducedShape(shape, dim, keepDim), x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		reduceAlong(result.AsFloat32(), x.AsFloat32(), outer, size, inner, op)
	case tensor.Float64:
		reduceAlong(result.AsFloat64(), x.AsFloat64(), outer, size, inner, op)
	case tensor.Int32:
		reduceAlong(result.AsInt32(), x.AsInt32(), outer, size, inner, op)
	case tensor.Int64:
		reduceAlong(result.AsInt64(), x.AsInt64(), outer, size, inner, op)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}

	return result
}

// reduceAlong reduces the middle axis of an (outer, size, inner) layout.
// Sums accumulate in float64 to keep large reductions stable in float32.
func reduceAlong[T number](out, in []T, outer, size, inner int, op reduceOp) {
	for o := 0; o < outer; o++ {
		base := o * size * inner
		for i := 0; i < inner; i++ {
			if op == reduceMax {
				best := in[base+i]
				for k := 1; k < size; k++ {
					if v := in[base+k*inner+i]; v > best {
						best = v
					}
				}
				out[o*inner+i] = best
				continue
			}

			var acc float64
			for k := 0; k < size; k++ {
				acc += float64(in[base+k*inner+i])
			}
			if op == reduceMean {
				acc /= float64(size)
			}
			out[o*inner+i] = T(acc)
		}
	}
}
