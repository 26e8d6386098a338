package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/pointseg/internal/tensor"
)

// Dropout zeroes each element with probability P during training and
// scales the survivors by 1/(1-P). In evaluation mode it is the identity.
type Dropout[B tensor.Backend] struct {
	P        float64
	rng      *rand.Rand
	training bool
}

// NewDropout creates a dropout layer drawing its masks from rng.
func NewDropout[B tensor.Backend](p float64, rng *rand.Rand) *Dropout[B] {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("NewDropout: probability must be in [0, 1), got %v", p))
	}
	return &Dropout[B]{P: p, rng: rng, training: true}
}

// SetTraining enables (true) or disables (false) dropout.
func (d *Dropout[B]) SetTraining(training bool) {
	d.training = training
}

// Forward applies the dropout mask.
func (d *Dropout[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.P == 0 {
		return x
	}

	out := x.Clone()
	data := out.Data()
	scale := float32(1 / (1 - d.P))
	for i := range data {
		if d.rng.Float64() < d.P {
			data[i] = 0
		} else {
			data[i] *= scale
		}
	}
	return out
}

// Parameters returns nil (dropout has no trainable parameters).
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}
