package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/pointseg/internal/tensor"
)

// Conv1D is a pointwise 1D convolution (kernel size 1, stride 1).
//
// Performs the transformation, for every batch item b and position l:
//
//	y[b, :, l] = W @ x[b, :, l] + bias
//
// where:
//   - x has shape [batch, in_channels, length]
//   - W has shape [out_channels, in_channels]
//   - bias has shape [out_channels]
//   - y has shape [batch, out_channels, length]
//
// Kernel-size-1 convolutions are the "shared MLP" of point networks: the
// same weights are applied independently to every point.
//
// Example:
//
//	conv := nn.NewConv1D(128, 64, backend, rng)
//	out := conv.Forward(x) // [B, 128, N] -> [B, 64, N]
type Conv1D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	weight      *Parameter[B] // [out_channels, in_channels]
	bias        *Parameter[B] // [out_channels]
}

// NewConv1D creates a pointwise convolution with PyTorch default initialisation.
func NewConv1D[B tensor.Backend](inChannels, outChannels int, backend B, rng *rand.Rand) *Conv1D[B] {
	return &Conv1D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		weight:      NewParameter("weight", KaimingUniform(inChannels, tensor.Shape{outChannels, inChannels}, backend, rng)),
		bias:        NewParameter("bias", KaimingUniform(inChannels, tensor.Shape{outChannels}, backend, rng)),
	}
}

// Forward applies the convolution.
//
// Input shape: [batch, in_channels, length]
// Output shape: [batch, out_channels, length]
func (c *Conv1D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 3 {
		panic(fmt.Sprintf("Conv1D.Forward: expected 3D input [batch, channels, length], got shape %v", shape))
	}
	if shape[1] != c.inChannels {
		panic(fmt.Sprintf("Conv1D.Forward: expected %d input channels, got %d", c.inChannels, shape[1]))
	}

	// [out, in] @ [B, in, L] -> [B, out, L]
	output := c.weight.Tensor().BatchMatMul(input)
	return output.Add(c.bias.Tensor().Reshape(1, c.outChannels, 1))
}

// Parameters returns [weight, bias].
func (c *Conv1D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{c.weight, c.bias}
}

// Weight returns the weight parameter.
func (c *Conv1D[B]) Weight() *Parameter[B] {
	return c.weight
}

// Bias returns the bias parameter.
func (c *Conv1D[B]) Bias() *Parameter[B] {
	return c.bias
}

// InChannels returns the number of input channels.
func (c *Conv1D[B]) InChannels() int {
	return c.inChannels
}

// OutChannels returns the number of output channels.
func (c *Conv1D[B]) OutChannels() int {
	return c.outChannels
}
