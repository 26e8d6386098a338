package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/pointseg/internal/tensor"
)

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N), computed with BLAS GEMM.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	result := tensor.MustNewRaw(tensor.Shape{m, n}, a.DType(), cpu.device)
	gemm("matmul", result, a, b, m, k, n, 0, 0, 0)
	return result
}

// BatchMatMul performs batched matrix multiplication.
//
//	[B, M, K] @ [B, K, N] -> [B, M, N]
//	[M, K]    @ [B, K, N] -> [B, M, N]   (left operand shared across the batch)
//
// The shared-left form is what pointwise convolutions use: one weight
// matrix applied to every item of a batch.
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(bShape) != 3 || (len(aShape) != 3 && len(aShape) != 2) {
		panic(fmt.Sprintf("batch_matmul: expected [B,M,K] or [M,K] @ [B,K,N], got %v @ %v", aShape, bShape))
	}

	batch, kAlt, n := bShape[0], bShape[1], bShape[2]
	shared := len(aShape) == 2
	var m, k int
	if shared {
		m, k = aShape[0], aShape[1]
	} else {
		if aShape[0] != batch {
			panic(fmt.Sprintf("batch_matmul: batch mismatch %d vs %d", aShape[0], batch))
		}
		m, k = aShape[1], aShape[2]
	}
	if k != kAlt {
		panic(fmt.Sprintf("batch_matmul: shape mismatch %v @ %v", aShape, bShape))
	}

	result := tensor.MustNewRaw(tensor.Shape{batch, m, n}, a.DType(), cpu.device)
	for i := 0; i < batch; i++ {
		aOff := i * m * k
		if shared {
			aOff = 0
		}
		gemm("batch_matmul", result, a, b, m, k, n, aOff, i*k*n, i*m*n)
	}
	return result
}

// gemm computes C = A @ B on row-major sub-matrices starting at the given
// element offsets.
func gemm(name string, c, a, b *tensor.RawTensor, m, k, n, aOff, bOff, cOff int) {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, a.DType(), b.DType()))
	}

	switch a.DType() {
	case tensor.Float32:
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas32.General{Rows: m, Cols: k, Stride: k, Data: a.AsFloat32()[aOff : aOff+m*k]},
			blas32.General{Rows: k, Cols: n, Stride: n, Data: b.AsFloat32()[bOff : bOff+k*n]},
			0,
			blas32.General{Rows: m, Cols: n, Stride: n, Data: c.AsFloat32()[cOff : cOff+m*n]})
	case tensor.Float64:
		blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas64.General{Rows: m, Cols: k, Stride: k, Data: a.AsFloat64()[aOff : aOff+m*k]},
			blas64.General{Rows: k, Cols: n, Stride: n, Data: b.AsFloat64()[bOff : bOff+k*n]},
			0,
			blas64.General{Rows: m, Cols: n, Stride: n, Data: c.AsFloat64()[cOff : cOff+m*n]})
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
}
