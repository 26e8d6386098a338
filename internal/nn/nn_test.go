package nn_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/pointseg/internal/backend/cpu"
	"github.com/born-ml/pointseg/internal/nn"
	"github.com/born-ml/pointseg/internal/tensor"
)

type Backend = *cpu.CPUBackend

func TestParameter(t *testing.T) {
	backend := cpu.New()
	data, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	param := nn.NewParameter("test_param", data)
	assert.Equal(t, "test_param", param.Name())
	assert.Same(t, data, param.Tensor())
	assert.Equal(t, 3, nn.CountParameters([]*nn.Parameter[Backend]{param}))
}

func TestConv1D_Forward(t *testing.T) {
	backend := cpu.New()
	conv := nn.NewConv1D(2, 1, backend, rand.New(rand.NewSource(1)))

	copy(conv.Weight().Tensor().Data(), []float32{2, -1})
	copy(conv.Bias().Tensor().Data(), []float32{0.5})

	// (B=2, C=2, L=2)
	x, err := tensor.FromSlice([]float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
	}, tensor.Shape{2, 2, 2}, backend)
	require.NoError(t, err)

	out := conv.Forward(x)
	assert.Equal(t, tensor.Shape{2, 1, 2}, out.Shape())
	// 2*x0 - x1 + 0.5
	assert.Equal(t, []float32{-0.5, 0.5, 3.5, 4.5}, out.Data())

	assert.Panics(t, func() { conv.Forward(tensor.Zeros[float32](tensor.Shape{1, 3, 2}, backend)) })
}

func TestConv1D_InitBound(t *testing.T) {
	backend := cpu.New()
	conv := nn.NewConv1D(16, 8, backend, rand.New(rand.NewSource(3)))
	bound := float32(1 / math.Sqrt(16))
	for _, w := range conv.Weight().Tensor().Data() {
		assert.LessOrEqual(t, w, bound)
		assert.GreaterOrEqual(t, w, -bound)
	}
}

func TestBatchNorm1D_Training(t *testing.T) {
	backend := cpu.New()
	bn := nn.NewBatchNorm1D(2, backend)

	// (B=2, C=2, L=2); channel 0 = {1,3,5,7}, channel 1 = {2,2,2,2}
	x, err := tensor.FromSlice([]float32{
		1, 3, 2, 2,
		5, 7, 2, 2,
	}, tensor.Shape{2, 2, 2}, backend)
	require.NoError(t, err)

	out := bn.Forward(x).Data()

	// Channel 0: mean 4, biased var 5.
	s := float32(math.Sqrt(5 + 1e-5))
	assert.InDelta(t, -3/s, out[0], 1e-5)
	assert.InDelta(t, 3/s, out[5], 1e-5)
	// Constant channel normalises to zero.
	assert.InDelta(t, 0, out[2], 1e-5)

	// Running stats: 0.9*0 + 0.1*4 and 0.9*1 + 0.1*(20/3).
	assert.InDelta(t, 0.4, bn.RunningMean()[0], 1e-6)
	assert.InDelta(t, 0.9+0.1*20.0/3.0, bn.RunningVar()[0], 1e-5)
}

func TestBatchNorm1D_EvalUsesRunningStats(t *testing.T) {
	backend := cpu.New()
	bn := nn.NewBatchNorm1D(1, backend)
	bn.SetTraining(false)
	assert.False(t, bn.Training())

	x, err := tensor.FromSlice([]float32{2, 4}, tensor.Shape{1, 1, 2}, backend)
	require.NoError(t, err)

	out := bn.Forward(x).Data()
	// Running mean 0, var 1: output ≈ input.
	assert.InDeltaSlice(t, []float32{2, 4}, out, 1e-4)
}

func TestBatchNorm1D_SingleValueTrainingPanics(t *testing.T) {
	backend := cpu.New()
	bn := nn.NewBatchNorm1D(3, backend)
	assert.Panics(t, func() { bn.Forward(tensor.Ones[float32](tensor.Shape{1, 3}, backend)) })
}

func TestDropout(t *testing.T) {
	backend := cpu.New()
	d := nn.NewDropout[Backend](0.5, rand.New(rand.NewSource(5)))
	x := tensor.Ones[float32](tensor.Shape{1000}, backend)

	out := d.Forward(x).Data()
	zeros := 0
	for _, v := range out {
		if v == 0 {
			zeros++
		} else {
			assert.Equal(t, float32(2), v)
		}
	}
	assert.InDelta(t, 500, zeros, 80)

	d.SetTraining(false)
	assert.Same(t, x, d.Forward(x))

	assert.Panics(t, func() { nn.NewDropout[Backend](1, rand.New(rand.NewSource(1))) })
}

func TestMLP_ShapesAndParameters(t *testing.T) {
	backend := cpu.New()
	mlp := nn.NewMLP(6, []int{8, 4}, backend, rand.New(rand.NewSource(9)))
	assert.Equal(t, 2, mlp.Len())

	x := tensor.Randn[float32](tensor.Shape{2, 6, 5}, backend, rand.New(rand.NewSource(10)))
	out := mlp.Forward(x)
	assert.Equal(t, tensor.Shape{2, 4, 5}, out.Shape())
	for _, v := range out.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
	}

	params := mlp.Parameters()
	require.Len(t, params, 8)
	assert.Equal(t, "0.conv.weight", params[0].Name())
	assert.Equal(t, "1.bn.bias", params[7].Name())
	// (6*8 + 8) + 2*8 + (8*4 + 4) + 2*4
	assert.Equal(t, 56+16+36+8, nn.CountParameters(params))

	nn.SetTraining(false, mlp)
	assert.False(t, mlp.Module(0).(*nn.ConvBlock[Backend]).BN.Training())
}

func TestNLLAndCrossEntropy(t *testing.T) {
	backend := cpu.New()

	logits, err := tensor.FromSlice([]float32{2, 1, 1, 3}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]int32{0, 1}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	ce := nn.NewCrossEntropyLoss(backend).Forward(logits, targets).Item()
	want := (math.Log(1+math.Exp(-1)) + math.Log(1+math.Exp(-2))) / 2
	assert.InDelta(t, want, ce, 1e-5)

	// NLL on log-probabilities equals cross-entropy on the logits.
	nll := nn.NewNLLLoss(backend).Forward(logits.LogSoftmax(-1), targets).Item()
	assert.InDelta(t, ce, nll, 1e-6)

	bad, err := tensor.FromSlice([]int32{0, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	assert.Panics(t, func() { nn.NewNLLLoss(backend).Forward(logits, bad) })
}
