package pointnet

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/pointseg/internal/nn"
	"github.com/born-ml/pointseg/internal/tensor"
)

// SetAbstractionMSG samples centroids and pools neighbourhood features at
// several radii.
//
// For each scale the grouped vector [features, xyz - centroid] of every
// neighbour goes through a shared Conv1D+BN+ReLU stack and is max-pooled
// over the neighbourhood. Scale outputs are concatenated along channels.
type SetAbstractionMSG[B tensor.Backend] struct {
	stage MSGStage
	mlps  []*nn.Sequential[B]
	rng   *rand.Rand
}

// NewSetAbstractionMSG builds a stage whose input features have
// inChannels channels (0 when the level carries coordinates only).
func NewSetAbstractionMSG[B tensor.Backend](stage MSGStage, inChannels int, backend B, rng *rand.Rand) *SetAbstractionMSG[B] {
	mlps := make([]*nn.Sequential[B], len(stage.Scales))
	for i, sc := range stage.Scales {
		mlps[i] = nn.NewMLP(inChannels+3, sc.MLP, backend, rng)
	}
	return &SetAbstractionMSG[B]{stage: stage, mlps: mlps, rng: rng}
}

// OutChannels returns the width of the concatenated output features.
func (sa *SetAbstractionMSG[B]) OutChannels() int {
	return sa.stage.outChannels()
}

// Forward maps a level (xyz (B,3,N), features (B,C,N) or nil) to the next
// level (newXYZ (B,3,S), newFeatures (B,C',S)).
func (sa *SetAbstractionMSG[B]) Forward(xyz, features *tensor.Tensor[float32, B]) (newXYZ, newFeatures *tensor.Tensor[float32, B]) {
	shape := xyz.Shape()
	if features != nil && features.Shape()[2] != shape[2] {
		panic(fmt.Sprintf("set abstraction: %d coordinates but %d feature columns", shape[2], features.Shape()[2]))
	}
	batch, s := shape[0], sa.stage.NumCentroids

	newXYZ = gatherCoords(xyz, FarthestPointSample(xyz, s, sa.rng))

	pooled := make([]*tensor.Tensor[float32, B], len(sa.stage.Scales))
	for i, sc := range sa.stage.Scales {
		idx := BallQuery(sc.Radius, sc.NumSamples, xyz, newXYZ)
		grouped := groupNeighbourhoods(xyz, features, newXYZ, idx)
		h := sa.mlps[i].Forward(grouped)
		width := h.Shape()[1]
		pooled[i] = h.Reshape(batch, width, s, sc.NumSamples).MaxDim(3, false)
	}
	return newXYZ, tensor.Cat(pooled, 1)
}

// Parameters returns the shared MLP weights of every scale.
func (sa *SetAbstractionMSG[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for i, m := range sa.mlps {
		params = append(params, nn.WithPrefix(fmt.Sprintf("mlps.%d", i), m.Parameters())...)
	}
	return params
}

// SetTraining switches the batch norms of every scale.
func (sa *SetAbstractionMSG[B]) SetTraining(training bool) {
	for _, m := range sa.mlps {
		m.SetTraining(training)
	}
}

// SetAbstraction is the group-all stage: every point of a level forms one
// group and is reduced to a single global descriptor.
type SetAbstraction[B tensor.Backend] struct {
	mlp *nn.Sequential[B]
}

// NewSetAbstraction builds the group-all stage. The shared MLP sees
// [xyz, features], so its input width is inChannels+3.
func NewSetAbstraction[B tensor.Backend](inChannels int, widths []int, backend B, rng *rand.Rand) *SetAbstraction[B] {
	return &SetAbstraction[B]{mlp: nn.NewMLP(inChannels+3, widths, backend, rng)}
}

// Forward returns zero coordinates (B,3,1) and the max-pooled descriptor (B,C',1).
func (sa *SetAbstraction[B]) Forward(xyz, features *tensor.Tensor[float32, B]) (newXYZ, newFeatures *tensor.Tensor[float32, B]) {
	batch := xyz.Shape()[0]
	grouped := xyz
	if features != nil {
		grouped = tensor.Cat([]*tensor.Tensor[float32, B]{xyz, features}, 1)
	}
	newXYZ = tensor.ZerosLike(xyz, tensor.Shape{batch, 3, 1})
	return newXYZ, sa.mlp.Forward(grouped).MaxDim(2, true)
}

// Parameters returns the shared MLP weights.
func (sa *SetAbstraction[B]) Parameters() []*nn.Parameter[B] {
	return sa.mlp.Parameters()
}

// SetTraining switches the batch norms.
func (sa *SetAbstraction[B]) SetTraining(training bool) {
	sa.mlp.SetTraining(training)
}
