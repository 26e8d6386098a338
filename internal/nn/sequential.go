package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/pointseg/internal/tensor"
)

// Sequential is a container module that chains multiple modules together.
//
// Each module's output becomes the next module's input.
//
// Example:
//
//	mlp := nn.NewSequential(
//	    nn.NewConvBlock(64, 128, backend, rng),
//	    nn.NewConvBlock(128, 256, backend, rng),
//	)
//	out := mlp.Forward(x)
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a new Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{
		modules: modules,
	}
}

// Forward applies all modules in sequence.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Parameters returns all trainable parameters from all modules, prefixed
// with their module index ("0.weight", "1.bn.bias", ...).
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for i, module := range s.modules {
		params = append(params, WithPrefix(fmt.Sprint(i), module.Parameters())...)
	}
	return params
}

// SetTraining propagates the mode to every Trainable child.
func (s *Sequential[B]) SetTraining(training bool) {
	for _, module := range s.modules {
		SetTraining(training, module)
	}
}

// Add appends a module to the sequence.
func (s *Sequential[B]) Add(module Module[B]) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential[B]) Module(index int) Module[B] {
	if index < 0 || index >= len(s.modules) {
		panic("Sequential.Module: index out of bounds")
	}
	return s.modules[index]
}

// ConvBlock is Conv1D → BatchNorm1D → ReLU, the unit layer of a shared
// point-wise MLP.
type ConvBlock[B tensor.Backend] struct {
	Conv *Conv1D[B]
	BN   *BatchNorm1D[B]
}

// NewConvBlock creates a ConvBlock mapping in to out channels.
func NewConvBlock[B tensor.Backend](in, out int, backend B, rng *rand.Rand) *ConvBlock[B] {
	return &ConvBlock[B]{
		Conv: NewConv1D(in, out, backend, rng),
		BN:   NewBatchNorm1D(out, backend),
	}
}

// Forward computes relu(bn(conv(x))).
func (c *ConvBlock[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return c.BN.Forward(c.Conv.Forward(x)).ReLU()
}

// Parameters returns the convolution and normalisation parameters.
func (c *ConvBlock[B]) Parameters() []*Parameter[B] {
	return append(WithPrefix("conv", c.Conv.Parameters()), WithPrefix("bn", c.BN.Parameters())...)
}

// SetTraining forwards the mode to the batch norm.
func (c *ConvBlock[B]) SetTraining(training bool) {
	c.BN.SetTraining(training)
}

// NewMLP builds a Sequential of ConvBlocks with the given output widths,
// starting from in channels.
//
// Example:
//
//	mlp := nn.NewMLP(9, []int{32, 32, 64}, backend, rng) // 9 -> 32 -> 32 -> 64
func NewMLP[B tensor.Backend](in int, widths []int, backend B, rng *rand.Rand) *Sequential[B] {
	if len(widths) == 0 {
		panic("NewMLP: at least one layer width required")
	}
	seq := NewSequential[B]()
	last := in
	for _, w := range widths {
		seq.Add(NewConvBlock(last, w, backend, rng))
		last = w
	}
	return seq
}
