package pointnet

import (
	"math/rand"

	"github.com/born-ml/pointseg/internal/nn"
	"github.com/born-ml/pointseg/internal/tensor"
)

// SegmentationHead turns full-resolution features into per-point part
// log-probabilities.
//
// conv1 → bn1 → relu yields the embedding map shared with the auxiliary
// losses; dropout (training only) → conv2 → log-softmax over classes
// follows, and the result is transposed to (B, N, parts).
type SegmentationHead[B tensor.Backend] struct {
	conv1 *nn.Conv1D[B]
	bn1   *nn.BatchNorm1D[B]
	drop  *nn.Dropout[B]
	conv2 *nn.Conv1D[B]
}

// NewSegmentationHead builds a head over channels-wide features.
func NewSegmentationHead[B tensor.Backend](channels, numParts int, dropout float64, backend B, rng *rand.Rand) *SegmentationHead[B] {
	return &SegmentationHead[B]{
		conv1: nn.NewConv1D(channels, channels, backend, rng),
		bn1:   nn.NewBatchNorm1D(channels, backend),
		drop:  nn.NewDropout[B](dropout, rng),
		conv2: nn.NewConv1D(channels, numParts, backend, rng),
	}
}

// Embed returns the embedding feature map relu(bn1(conv1(x))), (B, C, N).
func (h *SegmentationHead[B]) Embed(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return h.bn1.Forward(h.conv1.Forward(x)).ReLU()
}

// Classify maps an embedding map to (B, N, parts) log-probabilities.
func (h *SegmentationHead[B]) Classify(feat *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	logits := h.conv2.Forward(h.drop.Forward(feat))
	return logits.LogSoftmax(1).Transpose(0, 2, 1)
}

// Parameters returns conv1, bn1 and conv2 weights.
func (h *SegmentationHead[B]) Parameters() []*nn.Parameter[B] {
	params := nn.WithPrefix("conv1", h.conv1.Parameters())
	params = append(params, nn.WithPrefix("bn1", h.bn1.Parameters())...)
	return append(params, nn.WithPrefix("conv2", h.conv2.Parameters())...)
}

// SetTraining switches batch norm and dropout.
func (h *SegmentationHead[B]) SetTraining(training bool) {
	nn.SetTraining(training, h.bn1, h.drop)
}
