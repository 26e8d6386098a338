package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Shape mismatches are programming errors: implementations panic with a
// message prefixed by the operation name rather than returning an error.
type Backend interface {
	// Element-wise binary operations with NumPy broadcasting
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations (element-wise with scalar)
	MulScalar(x *RawTensor, scalar float64) *RawTensor
	AddScalar(x *RawTensor, scalar float64) *RawTensor

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor // (M, K) @ (K, N) -> (M, N)

	// BatchMatMul performs batched matrix multiplication.
	// [B, M, K] @ [B, K, N] -> [B, M, N]
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor
	Cat(tensors []*RawTensor, dim int) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor

	// Math and activation operations (element-wise unless noted)
	Exp(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor
	ReLU(x *RawTensor) *RawTensor
	Tanh(x *RawTensor) *RawTensor
	LogSoftmax(x *RawTensor, dim int) *RawTensor // log-softmax along dimension

	// Reduction operations
	Sum(x *RawTensor) *RawTensor                            // total sum (scalar result)
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // sum along dimension
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // mean along dimension
	MaxDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // max along dimension

	// Type conversion
	Cast(x *RawTensor, dtype DataType) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
