// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the generic tensor used throughout pointseg.
//
// A Tensor[T, B] pairs typed element access with a compute backend B.
// Point clouds travel as channel-first tensors of shape
// (batch, channels, points); coordinates occupy the first three channels.
//
//	b := cpu.New()
//	cloud := tensor.Zeros[float32](tensor.Shape{2, 3, 1024}, b)
//	rows := cloud.Transpose(0, 2, 1) // (2, 1024, 3)
package tensor

import (
	"math/rand"

	"github.com/born-ml/pointseg/internal/tensor"
)

// DType constrains element types to float32, float64, int32 and int64.
type DType = tensor.DType

// DataType is the runtime tag of an element type.
type DataType = tensor.DataType

// Element type tags.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
)

// Device names where a tensor's storage lives. Only CPU has a backend.
type Device = tensor.Device

const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	WebGPU Device = tensor.WebGPU
)

// Shape lists dimension sizes, outermost first.
type Shape = tensor.Shape

// RawTensor is the untyped storage shared by tensors and backends.
type RawTensor = tensor.RawTensor

// Backend is the set of operations a compute backend provides.
type Backend = tensor.Backend

// Tensor holds elements of type T computed on backend B.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// Zeros allocates a zero-filled tensor.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T, B](shape, b)
}

// Ones allocates a tensor of ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T, B](shape, b)
}

// Full allocates a tensor with every element set to value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full[T, B](shape, value, b)
}

// Randn fills a float tensor with standard normal draws from rng.
func Randn[T DType, B Backend](shape Shape, b B, rng *rand.Rand) *Tensor[T, B] {
	return tensor.Randn[T, B](shape, b, rng)
}

// Rand fills a float tensor with uniform [0, 1) draws from rng.
func Rand[T DType, B Backend](shape Shape, b B, rng *rand.Rand) *Tensor[T, B] {
	return tensor.Rand[T, B](shape, b, rng)
}

// FromSlice copies data into a new tensor of the given shape. It fails when
// the element count does not match.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice[T, B](data, shape, b)
}

// Cat joins tensors along dim; the other dimensions must agree.
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	return tensor.Cat(tensors, dim)
}
