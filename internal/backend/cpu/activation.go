package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/pointseg/internal/tensor"
)

// Exp computes e^x element-wise.
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryFloat("exp", x, math.Exp)
}

// Sqrt computes the element-wise square root.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryFloat("sqrt", x, math.Sqrt)
}

// Tanh applies the hyperbolic tangent element-wise.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryFloat("tanh", x, math.Tanh)
}

// ReLU applies max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := tensor.MustNewRaw(x.Shape(), x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		relu(result.AsFloat32(), x.AsFloat32())
	case tensor.Float64:
		relu(result.AsFloat64(), x.AsFloat64())
	default:
		panic(fmt.Sprintf("relu: unsupported dtype %s", x.DType()))
	}

	return result
}

func relu[T float32 | float64](out, x []T) {
	for i, v := range x {
		if v > 0 {
			out[i] = v
		} else {
			out[i] = 0
		}
	}
}

func (cpu *CPUBackend) unaryFloat(name string, x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	result := tensor.MustNewRaw(x.Shape(), x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		out, in := result.AsFloat32(), x.AsFloat32()
		for i, v := range in {
			out[i] = float32(f(float64(v)))
		}
	case tensor.Float64:
		out, in := result.AsFloat64(), x.AsFloat64()
		for i, v := range in {
			out[i] = f(v)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}

	return result
}

// LogSoftmax computes log(softmax(x)) along dim using the log-sum-exp trick:
//
//	LogSoftmax(z)[i] = z[i] - (max(z) + log(Σ exp(z - max(z))))
func (cpu *CPUBackend) LogSoftmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)
	outer, size, inner := splitAt(shape, dim)

	result := tensor.MustNewRaw(shape, x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		logSoftmax(result.AsFloat32(), x.AsFloat32(), outer, size, inner)
	case tensor.Float64:
		logSoftmax(result.AsFloat64(), x.AsFloat64(), outer, size, inner)
	default:
		panic(fmt.Sprintf("log_softmax: unsupported dtype %s", x.DType()))
	}

	return result
}

func logSoftmax[T float32 | float64](out, in []T, outer, size, inner int) {
	for o := 0; o < outer; o++ {
		base := o * size * inner
		for i := 0; i < inner; i++ {
			maxZ := in[base+i]
			for k := 1; k < size; k++ {
				if v := in[base+k*inner+i]; v > maxZ {
					maxZ = v
				}
			}

			var sumExp float64
			for k := 0; k < size; k++ {
				sumExp += math.Exp(float64(in[base+k*inner+i] - maxZ))
			}
			logSumExp := float64(maxZ) + math.Log(sumExp)

			for k := 0; k < size; k++ {
				idx := base + k*inner + i
				out[idx] = T(float64(in[idx]) - logSumExp)
			}
		}
	}
}
