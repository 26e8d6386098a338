package cpu

import (
	"fmt"

	"github.com/born-ml/pointseg/internal/tensor"
)

// MulScalar multiplies each element by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.scalarOp("mul_scalar", x, scalar, opMul)
}

// AddScalar adds scalar to each element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.scalarOp("add_scalar", x, scalar, opAdd)
}

func (cpu *CPUBackend) scalarOp(name string, x *tensor.RawTensor, scalar float64, op binaryOp) *tensor.RawTensor {
	result := tensor.MustNewRaw(x.Shape(), x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		applyScalar(result.AsFloat32(), x.AsFloat32(), float32(scalar), op)
	case tensor.Float64:
		applyScalar(result.AsFloat64(), x.AsFloat64(), scalar, op)
	case tensor.Int32:
		applyScalar(result.AsInt32(), x.AsInt32(), int32(scalar), op)
	case tensor.Int64:
		applyScalar(result.AsInt64(), x.AsInt64(), int64(scalar), op)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}

	return result
}

func applyScalar[T number](out, x []T, s T, op binaryOp) {
	switch op {
	case opAdd:
		for i, v := range x {
			out[i] = v + s
		}
	case opMul:
		for i, v := range x {
			out[i] = v * s
		}
	default:
		panic(fmt.Sprintf("scalar: unsupported op %d", op))
	}
}
