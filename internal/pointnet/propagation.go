package pointnet

import (
	"math/rand"

	"github.com/born-ml/pointseg/internal/nn"
	"github.com/born-ml/pointseg/internal/tensor"
)

// FeaturePropagation upsamples coarse features onto a finer level.
//
// Interpolated features are concatenated after the fine level's own skip
// features and projected by a shared Conv1D+BN+ReLU stack.
type FeaturePropagation[B tensor.Backend] struct {
	mlp *nn.Sequential[B]
}

// NewFeaturePropagation builds a stage whose MLP input width is
// skipChannels+coarseChannels.
func NewFeaturePropagation[B tensor.Backend](inChannels int, widths []int, backend B, rng *rand.Rand) *FeaturePropagation[B] {
	return &FeaturePropagation[B]{mlp: nn.NewMLP(inChannels, widths, backend, rng)}
}

// Forward interpolates coarseFeatures (B,C2,S) from coarseXYZ (B,3,S)
// onto fineXYZ (B,3,N), prepends skip (B,C1,N) when non-nil and returns
// the projected (B,C',N) features.
func (fp *FeaturePropagation[B]) Forward(fineXYZ, coarseXYZ, skip, coarseFeatures *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	interpolated := Interpolate(fineXYZ, coarseXYZ, coarseFeatures)
	x := interpolated
	if skip != nil {
		x = tensor.Cat([]*tensor.Tensor[float32, B]{skip, interpolated}, 1)
	}
	return fp.mlp.Forward(x)
}

// Parameters returns the shared MLP weights.
func (fp *FeaturePropagation[B]) Parameters() []*nn.Parameter[B] {
	return fp.mlp.Parameters()
}

// SetTraining switches the batch norms.
func (fp *FeaturePropagation[B]) SetTraining(training bool) {
	fp.mlp.SetTraining(training)
}
