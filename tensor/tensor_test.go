// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/pointseg/backend/cpu"
	"github.com/born-ml/pointseg/tensor"
)

func TestCreation(t *testing.T) {
	backend := cpu.New()

	z := tensor.Zeros[float32](tensor.Shape{2, 3, 4}, backend)
	assert.Equal(t, tensor.Shape{2, 3, 4}, z.Shape())
	assert.Equal(t, tensor.Float32, z.DType())
	for _, v := range z.Data() {
		assert.Zero(t, v)
	}

	f := tensor.Full[float64](tensor.Shape{3}, 2.5, backend)
	assert.Equal(t, []float64{2.5, 2.5, 2.5}, f.Data())

	o := tensor.Ones[int32](tensor.Shape{2}, backend)
	assert.Equal(t, []int32{1, 1}, o.Data())
}

func TestFromSlice(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{1, 3, 2}, backend)
	require.NoError(t, err)
	assert.Equal(t, float32(4), x.At(0, 1, 1))

	y := x.Transpose(0, 2, 1)
	assert.Equal(t, tensor.Shape{1, 2, 3}, y.Shape())
	assert.Equal(t, float32(4), y.At(0, 1, 1))

	_, err = tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, backend)
	assert.Error(t, err)
}

func TestRandomSeeded(t *testing.T) {
	backend := cpu.New()
	a := tensor.Randn[float32](tensor.Shape{8}, backend, rand.New(rand.NewSource(3)))
	b := tensor.Randn[float32](tensor.Shape{8}, backend, rand.New(rand.NewSource(3)))
	assert.Equal(t, a.Data(), b.Data())

	for _, v := range tensor.Rand[float32](tensor.Shape{64}, backend, rand.New(rand.NewSource(4))).Data() {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestCat(t *testing.T) {
	backend := cpu.New()
	a := tensor.Ones[float32](tensor.Shape{1, 2, 3}, backend)
	b := tensor.Zeros[float32](tensor.Shape{1, 1, 3}, backend)

	c := tensor.Cat([]*tensor.Tensor[float32, *cpu.Backend]{a, b}, 1)
	assert.Equal(t, tensor.Shape{1, 3, 3}, c.Shape())
	assert.Equal(t, float32(1), c.At(0, 1, 2))
	assert.Equal(t, float32(0), c.At(0, 2, 2))
}

func TestDeviceString(t *testing.T) {
	assert.Equal(t, "CPU", tensor.CPU.String())
	assert.Equal(t, "WebGPU", tensor.WebGPU.String())
}
