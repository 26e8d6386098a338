package cpu

import (
	"fmt"

	"github.com/born-ml/pointseg/internal/tensor"
)

// Cast converts x to dtype. Float to integer conversion truncates toward zero.
func (cpu *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	if x.DType() == dtype {
		return x.Clone()
	}

	values := toFloat64(x)
	result := tensor.MustNewRaw(x.Shape(), dtype, cpu.device)

	switch dtype {
	case tensor.Float32:
		fromFloat64(result.AsFloat32(), values)
	case tensor.Float64:
		copy(result.AsFloat64(), values)
	case tensor.Int32:
		fromFloat64(result.AsInt32(), values)
	case tensor.Int64:
		fromFloat64(result.AsInt64(), values)
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %s", dtype))
	}

	return result
}

func toFloat64(x *tensor.RawTensor) []float64 {
	switch x.DType() {
	case tensor.Float32:
		return widen(x.AsFloat32())
	case tensor.Float64:
		return x.AsFloat64()
	case tensor.Int32:
		return widen(x.AsInt32())
	case tensor.Int64:
		return widen(x.AsInt64())
	default:
		panic(fmt.Sprintf("cast: unsupported source dtype %s", x.DType()))
	}
}

func widen[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func fromFloat64[T number](out []T, in []float64) {
	for i, v := range in {
		out[i] = T(v)
	}
}
