// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the neural network building blocks used by the
// point segmentation model.
//
// Layers operate on channel-first point tensors of shape (B, C, N):
//   - Conv1D: kernel-size-1 convolution, a shared linear map per point
//   - BatchNorm1D: per-channel normalisation over batch and points
//   - Dropout, ReLU, Tanh
//   - ConvBlock and NewMLP: stacks of Conv1D, BatchNorm1D and ReLU
//
// Example:
//
//	backend := cpu.New()
//	rng := rand.New(rand.NewSource(1))
//	mlp := nn.NewMLP(6, []int{64, 128}, backend, rng)
//	out := mlp.Forward(points) // (B, 128, N)
package nn

import (
	"math/rand"

	"github.com/born-ml/pointseg/internal/nn"
	"github.com/born-ml/pointseg/tensor"
)

// Module is the interface implemented by all layers.
type Module[B tensor.Backend] = nn.Module[B]

// Trainable is implemented by layers that behave differently in training.
type Trainable = nn.Trainable

// Parameter is a named trainable tensor.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// Layers.
type (
	Conv1D[B tensor.Backend]      = nn.Conv1D[B]
	BatchNorm1D[B tensor.Backend] = nn.BatchNorm1D[B]
	Dropout[B tensor.Backend]     = nn.Dropout[B]
	ReLU[B tensor.Backend]        = nn.ReLU[B]
	Tanh[B tensor.Backend]        = nn.Tanh[B]
	Sequential[B tensor.Backend]  = nn.Sequential[B]
	ConvBlock[B tensor.Backend]   = nn.ConvBlock[B]
)

// Losses.
type (
	NLLLoss[B tensor.Backend]          = nn.NLLLoss[B]
	CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]
)

// NewConv1D creates a kernel-size-1 convolution with Kaiming-uniform weights.
func NewConv1D[B tensor.Backend](inChannels, outChannels int, backend B, rng *rand.Rand) *Conv1D[B] {
	return nn.NewConv1D(inChannels, outChannels, backend, rng)
}

// NewBatchNorm1D creates batch normalisation over the channel axis.
func NewBatchNorm1D[B tensor.Backend](features int, backend B) *BatchNorm1D[B] {
	return nn.NewBatchNorm1D(features, backend)
}

// NewDropout creates a dropout layer that zeroes inputs with probability p.
func NewDropout[B tensor.Backend](p float64, rng *rand.Rand) *Dropout[B] {
	return nn.NewDropout[B](p, rng)
}

// NewReLU creates a ReLU activation.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// NewTanh creates a Tanh activation.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return nn.NewTanh[B]()
}

// NewSequential chains modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// NewConvBlock creates Conv1D followed by BatchNorm1D and ReLU.
func NewConvBlock[B tensor.Backend](in, out int, backend B, rng *rand.Rand) *ConvBlock[B] {
	return nn.NewConvBlock(in, out, backend, rng)
}

// NewMLP creates a shared point-wise MLP of ConvBlocks.
func NewMLP[B tensor.Backend](in int, widths []int, backend B, rng *rand.Rand) *Sequential[B] {
	return nn.NewMLP(in, widths, backend, rng)
}

// NewNLLLoss creates a negative log-likelihood loss.
func NewNLLLoss[B tensor.Backend](backend B) *NLLLoss[B] {
	return nn.NewNLLLoss(backend)
}

// NewCrossEntropyLoss creates a cross-entropy loss over log-probabilities.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss(backend)
}

// SetTraining switches every Trainable among modules into training or
// evaluation mode.
func SetTraining(training bool, modules ...any) {
	nn.SetTraining(training, modules...)
}

// CountParameters returns the total number of scalar parameters.
func CountParameters[B tensor.Backend](params []*Parameter[B]) int {
	return nn.CountParameters(params)
}
