// Package nn implements the neural network modules used by the point segmentation model.
//
// This package provides building blocks for constructing networks:
//   - Module interface: Base interface for all NN components
//   - Parameter: Named trainable tensors
//   - Conv1D: Pointwise (kernel size 1) convolution over (batch, channels, length)
//   - BatchNorm1D, Dropout: Mode-dependent normalisation and regularisation
//   - ConvBlock, Sequential: Containers for stacking layers
//   - Loss functions: NLLLoss, CrossEntropyLoss
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/born-ml/pointseg/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	// Returns an empty slice for modules without trainable parameters.
	Parameters() []*Parameter[B]
}

// Trainable is implemented by modules whose behaviour differs between
// training and evaluation (batch statistics, dropout masks).
//
// Modules start in training mode, matching PyTorch.
type Trainable interface {
	SetTraining(training bool)
}

// SetTraining switches every Trainable among modules to the given mode.
func SetTraining(training bool, modules ...any) {
	for _, m := range modules {
		if t, ok := m.(Trainable); ok {
			t.SetTraining(training)
		}
	}
}

// CountParameters returns the total number of scalar weights in params.
func CountParameters[B tensor.Backend](params []*Parameter[B]) int {
	n := 0
	for _, p := range params {
		n += p.Tensor().NumElements()
	}
	return n
}
