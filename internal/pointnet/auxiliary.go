package pointnet

import (
	"fmt"

	"github.com/born-ml/pointseg/internal/tensor"
)

// ConvexOptions carries the pass-through knobs of the convex-decomposition
// loss. The model owns beta; everything else comes from the caller.
type ConvexOptions struct {
	IfCuboid             bool    // fit cuboids instead of general convexes
	Quantile             float64 // bandwidth quantile for mean-shift clustering, in (0, 1]
	IncludePruning       bool
	IncludeIntersectLoss bool
	IncludeEntropyLoss   bool // forced off once beta reaches its floor
	Iterations           int  // mean-shift iterations, >= 1
	MaxNumClusters       int  // upper bound on parts, >= 1
	Visualize            bool
	Seed                 int64
	BatchID              int
	Epoch                int // -1 when not training
	ClassList            []int
	Alpha                float64 // weight of the chamfer sub-loss, >= 0
	Evaluation           bool
}

// DefaultConvexOptions returns the knob values used when the caller sets none.
func DefaultConvexOptions() ConvexOptions {
	return ConvexOptions{
		Quantile:       0.01,
		Iterations:     5,
		MaxNumClusters: 25,
		Epoch:          -1,
		Alpha:          1,
	}
}

// Validate checks the numeric knobs.
func (o ConvexOptions) Validate() error {
	switch {
	case o.Quantile <= 0 || o.Quantile > 1:
		return fmt.Errorf("%w: quantile must be in (0, 1], got %v", ErrInvalidConvexOptions, o.Quantile)
	case o.Iterations < 1:
		return fmt.Errorf("%w: iterations must be at least 1, got %d", ErrInvalidConvexOptions, o.Iterations)
	case o.MaxNumClusters < 1:
		return fmt.Errorf("%w: max clusters must be at least 1, got %d", ErrInvalidConvexOptions, o.MaxNumClusters)
	case o.Alpha < 0:
		return fmt.Errorf("%w: alpha must be non-negative, got %v", ErrInvalidConvexOptions, o.Alpha)
	}
	return nil
}

// ConvexRequest is everything handed to a ConvexLoss in one call.
type ConvexRequest[B tensor.Backend] struct {
	Points        *tensor.Tensor[float32, B] // model input (B, C, N)
	ChamferPoints *tensor.Tensor[float32, B] // optional reference cloud, may be nil
	Embedding     *tensor.Tensor[float32, B] // (B, E, N)
	Beta          float64
	ConvexOptions
}

// ConvexLoss is the external convex-decomposition loss.
// It returns the total loss and its chamfer sub-loss.
type ConvexLoss[B tensor.Backend] interface {
	ConvexLoss(req ConvexRequest[B]) (total, chamfer *tensor.Tensor[float32, B], err error)
}

// ConvexLossFunc adapts a function to ConvexLoss.
type ConvexLossFunc[B tensor.Backend] func(req ConvexRequest[B]) (total, chamfer *tensor.Tensor[float32, B], err error)

// ConvexLoss calls f(req).
func (f ConvexLossFunc[B]) ConvexLoss(req ConvexRequest[B]) (total, chamfer *tensor.Tensor[float32, B], err error) {
	return f(req)
}

// Generator maps global embeddings (B, C) to generated clouds (B, M, 3).
type Generator[B tensor.Backend] interface {
	Generate(z *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error)
}

// Distance compares generated (B, M, 3) and reference (B, N, 3) clouds.
type Distance[B tensor.Backend] interface {
	Distance(generated, reference *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error)
}

// Extras is the optional component slot of a Model: NoExtras or a
// *Reconstruction bundle.
type Extras interface {
	isExtras()
}

// NoExtras marks a model built without optional components.
type NoExtras struct{}

func (NoExtras) isExtras() {}

// Reconstruction bundles the generator and distance used by the
// reconstruction path.
type Reconstruction[B tensor.Backend] struct {
	Generator Generator[B]
	Distance  Distance[B]
}

func (*Reconstruction[B]) isExtras() {}

// Branch identifies which auxiliary loss ran in a forward call.
type Branch int

const (
	// BranchNone means no auxiliary loss ran; both losses are zero.
	BranchNone Branch = iota
	// BranchConvex means the convex-decomposition loss ran.
	BranchConvex
	// BranchReconstruction means the generate-and-compare loss ran.
	BranchReconstruction
)

// String implements fmt.Stringer.
func (b Branch) String() string {
	switch b {
	case BranchNone:
		return "none"
	case BranchConvex:
		return "convex"
	case BranchReconstruction:
		return "reconstruction"
	default:
		return fmt.Sprintf("Branch(%d)", int(b))
	}
}
