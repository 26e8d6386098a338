package nn

import (
	"fmt"

	"github.com/born-ml/pointseg/internal/tensor"
)

// NLLLoss computes the negative log-likelihood of integer targets under
// log-probabilities.
//
//	Loss = -mean_i logProbs[i, target[i]]
//
// Example:
//
//	criterion := nn.NewNLLLoss(backend)
//	loss := criterion.Forward(logProbs, targets) // [N, C], [N] -> [1]
type NLLLoss[B tensor.Backend] struct {
	backend B
}

// NewNLLLoss creates a new NLL loss.
func NewNLLLoss[B tensor.Backend](backend B) *NLLLoss[B] {
	return &NLLLoss[B]{backend: backend}
}

// Forward computes the mean NLL.
//
// Parameters:
//   - logProbs: log-probabilities with shape [N, num_classes]
//   - targets: class indices with shape [N] (values in [0, num_classes))
//
// Returns a scalar tensor with shape [1].
func (l *NLLLoss[B]) Forward(logProbs *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	shape := logProbs.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("NLLLoss: log-probabilities must be 2D [N, num_classes], got %v", shape))
	}
	n, numClasses := shape[0], shape[1]

	targetsData := targets.Data()
	if len(targetsData) != n {
		panic(fmt.Sprintf("NLLLoss: targets must have %d elements, got %d", n, len(targetsData)))
	}

	data := logProbs.Data()
	var total float64
	for i, target := range targetsData {
		if target < 0 || int(target) >= numClasses {
			panic(fmt.Sprintf("NLLLoss: target %d out of range [0, %d)", target, numClasses))
		}
		total -= float64(data[i*numClasses+int(target)])
	}

	return tensor.Scalar(float32(total/float64(n)), l.backend)
}

// Parameters returns nil (loss functions have no trainable parameters).
func (l *NLLLoss[B]) Parameters() []*Parameter[B] {
	return nil
}

// CrossEntropyLoss computes cross-entropy loss for multi-class classification
// using the LogSoftmax + NLLLoss decomposition for numerical stability.
//
// Applying it to inputs that are already log-probabilities is equivalent to
// NLLLoss, because LogSoftmax is idempotent on normalised log-probabilities.
type CrossEntropyLoss[B tensor.Backend] struct {
	nll *NLLLoss[B]
}

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{nll: NewNLLLoss(backend)}
}

// Forward computes cross-entropy between logits [N, C] and targets [N].
func (c *CrossEntropyLoss[B]) Forward(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	return c.nll.Forward(logits.LogSoftmax(-1), targets)
}

// Parameters returns nil (loss functions have no trainable parameters).
func (c *CrossEntropyLoss[B]) Parameters() []*Parameter[B] {
	return nil
}
