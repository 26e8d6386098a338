package tensor_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/pointseg/internal/backend/cpu"
	"github.com/born-ml/pointseg/internal/tensor"
)

func TestShape(t *testing.T) {
	s := tensor.Shape{2, 3, 4}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, []int{12, 4, 1}, s.ComputeStrides())
	assert.Equal(t, 2, s.NormalizeDim(-1))
	assert.Panics(t, func() { s.NormalizeDim(3) })
	assert.Error(t, tensor.Shape{2, 0}.Validate())
	assert.Equal(t, 1, tensor.Shape{}.NumElements())
}

func TestBroadcastShapes(t *testing.T) {
	out, needs, err := tensor.BroadcastShapes(tensor.Shape{2, 3, 4}, tensor.Shape{1, 3, 1})
	require.NoError(t, err)
	assert.True(t, needs)
	assert.Equal(t, tensor.Shape{2, 3, 4}, out)

	_, needs, err = tensor.BroadcastShapes(tensor.Shape{3}, tensor.Shape{3})
	require.NoError(t, err)
	assert.False(t, needs)

	_, _, err = tensor.BroadcastShapes(tensor.Shape{3, 4}, tensor.Shape{3, 5})
	assert.Error(t, err)
}

func TestFromSliceAndIndexing(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	assert.Equal(t, float32(6), x.At(1, 2))

	x.Set(42, 0, 1)
	assert.Equal(t, float32(42), x.Data()[1])
	assert.Panics(t, func() { x.At(2, 0) })

	_, err = tensor.FromSlice([]float32{1, 2}, tensor.Shape{3}, backend)
	assert.Error(t, err)
}

func TestClone_IsDeep(t *testing.T) {
	backend := cpu.New()
	x := tensor.Ones[float32](tensor.Shape{4}, backend)
	y := x.Clone()
	y.Data()[0] = 7
	assert.Equal(t, float32(1), x.Data()[0])
}

func TestL2Normalize(t *testing.T) {
	backend := cpu.New()
	// (B=1, C=2, N=2): columns (3,4) and (0,0).
	x, err := tensor.FromSlice([]float32{3, 0, 4, 0}, tensor.Shape{1, 2, 2}, backend)
	require.NoError(t, err)

	n := x.L2Normalize(1, 1e-12)
	assert.InDeltaSlice(t, []float32{0.6, 0, 0.8, 0}, n.Data(), 1e-6)
	for _, v := range n.Data() {
		assert.False(t, math.IsNaN(float64(v)))
	}
}

func TestMeanAndItem(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2, 3, 6}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, x.Mean().Item(), 1e-6)
	assert.Panics(t, func() { x.Item() })
}

func TestCat(t *testing.T) {
	backend := cpu.New()
	a := tensor.Zeros[float32](tensor.Shape{1, 2, 3}, backend)
	b := tensor.Ones[float32](tensor.Shape{1, 1, 3}, backend)
	c := tensor.Cat([]*tensor.Tensor[float32, *cpu.CPUBackend]{a, b}, 1)
	assert.Equal(t, tensor.Shape{1, 3, 3}, c.Shape())
	assert.Equal(t, float32(1), c.At(0, 2, 1))
}

func TestRandn_Reproducible(t *testing.T) {
	backend := cpu.New()
	a := tensor.Randn[float32](tensor.Shape{16}, backend, rand.New(rand.NewSource(7)))
	b := tensor.Randn[float32](tensor.Shape{16}, backend, rand.New(rand.NewSource(7)))
	assert.Equal(t, a.Data(), b.Data())
}
