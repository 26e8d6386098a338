package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/pointseg/internal/tensor"
)

// BatchNorm1D normalises each channel of a [batch, channels] or
// [batch, channels, length] tensor.
//
// Formula: y = gamma * (x - mean) / sqrt(var + eps) + beta
//
// In training mode mean and var are the biased statistics of the current
// batch (over batch and length), and the running estimates are updated with
//
//	running = (1 - momentum) * running + momentum * batch_stat
//
// where the variance fed to the running estimate is unbiased. In evaluation
// mode the running estimates are used instead.
//
// Example:
//
//	bn := nn.NewBatchNorm1D(128, backend)
//	y := bn.Forward(x) // [B, 128, N] -> [B, 128, N]
type BatchNorm1D[B tensor.Backend] struct {
	Gamma    *Parameter[B] // learnable scale [channels]
	Beta     *Parameter[B] // learnable shift [channels]
	Epsilon  float32
	Momentum float32

	runningMean []float32
	runningVar  []float32
	training    bool
	features    int
}

// NewBatchNorm1D creates a BatchNorm1D with eps 1e-5 and momentum 0.1.
// Gamma starts at ones, beta at zeros, running mean at zeros, running
// variance at ones.
func NewBatchNorm1D[B tensor.Backend](features int, backend B) *BatchNorm1D[B] {
	runningVar := make([]float32, features)
	for i := range runningVar {
		runningVar[i] = 1
	}
	return &BatchNorm1D[B]{
		Gamma:       NewParameter("weight", tensor.Ones[float32](tensor.Shape{features}, backend)),
		Beta:        NewParameter("bias", tensor.Zeros[float32](tensor.Shape{features}, backend)),
		Epsilon:     1e-5,
		Momentum:    0.1,
		runningMean: make([]float32, features),
		runningVar:  runningVar,
		training:    true,
		features:    features,
	}
}

// SetTraining selects batch statistics (true) or running statistics (false).
func (bn *BatchNorm1D[B]) SetTraining(training bool) {
	bn.training = training
}

// Training reports whether the layer uses batch statistics.
func (bn *BatchNorm1D[B]) Training() bool {
	return bn.training
}

// RunningMean returns a copy of the running mean estimate.
func (bn *BatchNorm1D[B]) RunningMean() []float32 {
	return append([]float32(nil), bn.runningMean...)
}

// RunningVar returns a copy of the running variance estimate.
func (bn *BatchNorm1D[B]) RunningVar() []float32 {
	return append([]float32(nil), bn.runningVar...)
}

// Forward normalises x channel-wise.
func (bn *BatchNorm1D[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) != 2 && len(shape) != 3 {
		panic(fmt.Sprintf("BatchNorm1D.Forward: expected 2D or 3D input, got shape %v", shape))
	}
	if shape[1] != bn.features {
		panic(fmt.Sprintf("BatchNorm1D.Forward: expected %d channels, got %d", bn.features, shape[1]))
	}

	batch, channels, length := shape[0], shape[1], 1
	if len(shape) == 3 {
		length = shape[2]
	}
	count := batch * length

	in := x.Data()
	out := tensor.ZerosLike(x, shape)
	res := out.Data()
	gamma := bn.Gamma.Tensor().Data()
	beta := bn.Beta.Tensor().Data()

	for c := 0; c < channels; c++ {
		var mean, variance float64
		if bn.training {
			if count < 2 {
				panic(fmt.Sprintf("BatchNorm1D.Forward: expected more than 1 value per channel when training, got shape %v", shape))
			}
			for b := 0; b < batch; b++ {
				row := in[(b*channels+c)*length : (b*channels+c+1)*length]
				for _, v := range row {
					mean += float64(v)
				}
			}
			mean /= float64(count)
			for b := 0; b < batch; b++ {
				row := in[(b*channels+c)*length : (b*channels+c+1)*length]
				for _, v := range row {
					d := float64(v) - mean
					variance += d * d
				}
			}
			unbiased := variance / float64(count-1)
			variance /= float64(count)

			m := float64(bn.Momentum)
			bn.runningMean[c] = float32((1-m)*float64(bn.runningMean[c]) + m*mean)
			bn.runningVar[c] = float32((1-m)*float64(bn.runningVar[c]) + m*unbiased)
		} else {
			mean = float64(bn.runningMean[c])
			variance = float64(bn.runningVar[c])
		}

		scale := float64(gamma[c]) / math.Sqrt(variance+float64(bn.Epsilon))
		shift := float64(beta[c]) - mean*scale
		for b := 0; b < batch; b++ {
			off := (b*channels + c) * length
			for l := 0; l < length; l++ {
				res[off+l] = float32(float64(in[off+l])*scale + shift)
			}
		}
	}

	return out
}

// Parameters returns [gamma, beta].
func (bn *BatchNorm1D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.Gamma, bn.Beta}
}
