package pointnet

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/pointseg/internal/nn"
	"github.com/born-ml/pointseg/internal/tensor"
)

// l2NormEps is the norm clamp used when normalising the convex embedding.
const l2NormEps = 1e-12

// ForwardOptions selects the auxiliary loss of one forward call.
//
// IncludeConvexLoss takes priority over Reconstruct. With neither set both
// returned losses are zero.
type ForwardOptions[B tensor.Backend] struct {
	IncludeConvexLoss bool
	Reconstruct       bool

	// ChamferPoints is an optional reference cloud for the convex loss.
	ChamferPoints *tensor.Tensor[float32, B]

	// Convex is validated only when IncludeConvexLoss is set.
	Convex ConvexOptions
}

// DefaultForwardOptions returns options with no auxiliary loss and default
// convex knobs.
func DefaultForwardOptions[B tensor.Backend]() ForwardOptions[B] {
	return ForwardOptions[B]{Convex: DefaultConvexOptions()}
}

// Output is the result of Model.Forward.
type Output[B tensor.Backend] struct {
	// Predictions holds per-point part log-probabilities, (B, N, parts).
	Predictions *tensor.Tensor[float32, B]

	// L1, L2 are the propagated features at the 512- and 128-point levels;
	// L3 is the global descriptor (B, C, 1).
	L1, L2, L3 *tensor.Tensor[float32, B]

	// Embedding is the head's feature map before dropout, (B, E, N).
	Embedding *tensor.Tensor[float32, B]

	// TotalLoss and ChamferLoss are shape-[1] tensors on the input's backend.
	TotalLoss   *tensor.Tensor[float32, B]
	ChamferLoss *tensor.Tensor[float32, B]

	// Branch records which auxiliary loss ran.
	Branch Branch
}

// Option configures optional Model collaborators.
type Option[B tensor.Backend] func(*Model[B])

// WithConvexLoss sets the convex-decomposition loss used when a forward
// call asks for it.
func WithConvexLoss[B tensor.Backend](loss ConvexLoss[B]) Option[B] {
	return func(m *Model[B]) { m.convex = loss }
}

// WithReconstruction enables the reconstruction path.
func WithReconstruction[B tensor.Backend](gen Generator[B], dist Distance[B]) Option[B] {
	return func(m *Model[B]) {
		m.extras = &Reconstruction[B]{Generator: gen, Distance: dist}
	}
}

// WithBetaSchedule replaces the default beta schedule.
func WithBetaSchedule[B tensor.Backend](s *BetaSchedule) Option[B] {
	return func(m *Model[B]) { m.beta = s }
}

// WithRand replaces the random source seeded from Config.Seed.
func WithRand[B tensor.Backend](rng *rand.Rand) Option[B] {
	return func(m *Model[B]) { m.rng = rng }
}

// Model is the PointNet++ multi-scale-grouping part segmentation network
// with a switchable auxiliary loss.
//
// Architecture (default config):
//
//	l0 (B, 3|6, N)
//	 → SA-MSG 512 centroids → l1 (320 ch)
//	 → SA-MSG 128 centroids → l2 (512 ch)
//	 → SA group-all          → l3 (1024 ch, 1 point)
//	 → FP → l2 (256) → FP → l1 (128) → FP with [one-hot, xyz, points] → l0 (128)
//	 → head: conv-bn-relu (embedding) → dropout → conv → log-softmax
//
// The model owns a BetaSchedule that advances on every convex-path call.
// A Model is not safe for concurrent use.
type Model[B tensor.Backend] struct {
	cfg     Config
	backend B
	rng     *rand.Rand

	sa1 *SetAbstractionMSG[B]
	sa2 *SetAbstractionMSG[B]
	sa3 *SetAbstraction[B]
	fp3 *FeaturePropagation[B]
	fp2 *FeaturePropagation[B]
	fp1 *FeaturePropagation[B]

	head  *SegmentationHead[B]
	embed *nn.Conv1D[B]

	beta   *BetaSchedule
	convex ConvexLoss[B]
	extras Extras
}

// NewModel builds a model from cfg. Weights are initialised from a source
// seeded with cfg.Seed unless WithRand is given.
func NewModel[B tensor.Backend](cfg Config, backend B, opts ...Option[B]) (*Model[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Model[B]{
		cfg:     cfg,
		backend: backend,
		beta:    DefaultBetaSchedule(),
		extras:  NoExtras{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(cfg.Seed))
	}
	if r, ok := m.extras.(*Reconstruction[B]); ok && (r.Generator == nil || r.Distance == nil) {
		return nil, fmt.Errorf("%w: reconstruction needs both a generator and a distance", ErrInvalidConfig)
	}

	in := cfg.InputChannels()
	m.sa1 = NewSetAbstractionMSG(cfg.SA1, in, backend, m.rng)
	l1 := m.sa1.OutChannels()
	m.sa2 = NewSetAbstractionMSG(cfg.SA2, l1, backend, m.rng)
	l2 := m.sa2.OutChannels()
	m.sa3 = NewSetAbstraction(l2, cfg.GlobalMLP, backend, m.rng)
	l3 := last(cfg.GlobalMLP)

	m.fp3 = NewFeaturePropagation(l2+l3, cfg.FP3, backend, m.rng)
	m.fp2 = NewFeaturePropagation(l1+last(cfg.FP3), cfg.FP2, backend, m.rng)
	m.fp1 = NewFeaturePropagation(NumCategories+3+in+last(cfg.FP2), cfg.FP1, backend, m.rng)

	emb := cfg.EmbeddingChannels()
	m.head = NewSegmentationHead(emb, cfg.NumParts, cfg.Dropout, backend, m.rng)
	m.embed = nn.NewConv1D(emb, emb, backend, m.rng)
	return m, nil
}

// Forward runs the network on points (B, C, N) with category indices (B).
//
// Inconsistent options (reconstruction or convex loss requested but not
// configured, invalid convex knobs, categories outside [0, 16)) return an
// error before any computation. Malformed shapes panic.
func (m *Model[B]) Forward(points *tensor.Tensor[float32, B], categories *tensor.Tensor[int32, B], opts ForwardOptions[B]) (*Output[B], error) {
	if err := m.checkOptions(opts); err != nil {
		return nil, err
	}
	shape := points.Shape()
	if len(shape) != 3 || shape[1] != m.cfg.InputChannels() {
		panic(fmt.Sprintf("pointnet: expected points (B, %d, N), got %v", m.cfg.InputChannels(), shape))
	}
	batch, n := shape[0], shape[2]
	oneHot, err := categoryOneHot(categories, batch, n, points.Backend())
	if err != nil {
		return nil, err
	}

	l0Points := points
	l0XYZ := points
	if m.cfg.NormalChannel {
		l0XYZ = leadingChannels(points, 3)
	}

	l1XYZ, l1Points := m.sa1.Forward(l0XYZ, l0Points)
	l2XYZ, l2Points := m.sa2.Forward(l1XYZ, l1Points)
	l3XYZ, l3Points := m.sa3.Forward(l2XYZ, l2Points)

	l2Points = m.fp3.Forward(l2XYZ, l3XYZ, l2Points, l3Points)
	l1Points = m.fp2.Forward(l1XYZ, l2XYZ, l1Points, l2Points)
	skip := tensor.Cat([]*tensor.Tensor[float32, B]{oneHot, l0XYZ, l0Points}, 1)
	l0Out := m.fp1.Forward(l0XYZ, l1XYZ, skip, l1Points)

	feat := m.head.Embed(l0Out)
	out := &Output[B]{L1: l1Points, L2: l2Points, L3: l3Points, Embedding: feat}

	switch {
	case opts.IncludeConvexLoss:
		out.Branch = BranchConvex
		out.TotalLoss, out.ChamferLoss, err = m.convexLoss(points, feat, opts)
	case opts.Reconstruct:
		out.Branch = BranchReconstruction
		out.TotalLoss, err = m.reconstructionLoss(l0XYZ, feat)
		out.ChamferLoss = tensor.ZerosLike(points, tensor.Shape{1})
	default:
		out.Branch = BranchNone
		out.TotalLoss = tensor.ZerosLike(points, tensor.Shape{1})
		out.ChamferLoss = tensor.ZerosLike(points, tensor.Shape{1})
	}
	if err != nil {
		return nil, err
	}

	out.Predictions = m.head.Classify(feat)
	return out, nil
}

func (m *Model[B]) checkOptions(opts ForwardOptions[B]) error {
	if opts.Reconstruct {
		if _, ok := m.Reconstruction(); !ok {
			return ErrReconstructionUnavailable
		}
	}
	if opts.IncludeConvexLoss {
		if m.convex == nil {
			return ErrConvexLossUnavailable
		}
		if err := opts.Convex.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model[B]) convexLoss(points, feat *tensor.Tensor[float32, B], opts ForwardOptions[B]) (total, chamfer *tensor.Tensor[float32, B], err error) {
	beta, entropyAllowed := m.beta.Step()
	knobs := opts.Convex
	if !entropyAllowed {
		knobs.IncludeEntropyLoss = false
	}

	embedding := m.embed.Forward(feat)
	if m.cfg.L2Norm {
		embedding = embedding.L2Normalize(1, l2NormEps)
	}

	total, chamfer, err = m.convex.ConvexLoss(ConvexRequest[B]{
		Points:        points,
		ChamferPoints: opts.ChamferPoints,
		Embedding:     embedding,
		Beta:          beta,
		ConvexOptions: knobs,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("pointnet: convex loss: %w", err)
	}
	return total, chamfer, nil
}

func (m *Model[B]) reconstructionLoss(xyz, feat *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	r, _ := m.Reconstruction()
	z := feat.MeanDim(2, false)
	generated, err := r.Generator.Generate(z)
	if err != nil {
		return nil, fmt.Errorf("pointnet: generate: %w", err)
	}
	loss, err := r.Distance.Distance(generated, xyz.Transpose(0, 2, 1))
	if err != nil {
		return nil, fmt.Errorf("pointnet: reconstruction distance: %w", err)
	}
	return loss, nil
}

// Reconstruction returns the reconstruction bundle, or false when the
// model was built without one.
func (m *Model[B]) Reconstruction() (*Reconstruction[B], bool) {
	r, ok := m.extras.(*Reconstruction[B])
	return r, ok
}

// Extras returns the optional component slot.
func (m *Model[B]) Extras() Extras {
	return m.extras
}

// Beta returns the model's beta schedule.
func (m *Model[B]) Beta() *BetaSchedule {
	return m.beta
}

// Config returns the architecture the model was built with.
func (m *Model[B]) Config() Config {
	return m.cfg
}

// Backend returns the computation backend.
func (m *Model[B]) Backend() B {
	return m.backend
}

// SetTraining switches every batch norm and dropout, and the generator
// when it has a training mode.
func (m *Model[B]) SetTraining(training bool) {
	nn.SetTraining(training, m.sa1, m.sa2, m.sa3, m.fp3, m.fp2, m.fp1, m.head)
	if r, ok := m.Reconstruction(); ok {
		nn.SetTraining(training, r.Generator)
	}
}

// Parameters returns every trainable tensor with a dotted path name.
func (m *Model[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	add := func(prefix string, p []*nn.Parameter[B]) {
		params = append(params, nn.WithPrefix(prefix, p)...)
	}
	add("sa1", m.sa1.Parameters())
	add("sa2", m.sa2.Parameters())
	add("sa3", m.sa3.Parameters())
	add("fp3", m.fp3.Parameters())
	add("fp2", m.fp2.Parameters())
	add("fp1", m.fp1.Parameters())
	add("head", m.head.Parameters())
	add("extra_conv_emb", m.embed.Parameters())
	return params
}

// categoryOneHot validates categories (B) and expands them to a
// (B, NumCategories, n) one-hot map.
func categoryOneHot[B tensor.Backend](categories *tensor.Tensor[int32, B], batch, n int, backend B) (*tensor.Tensor[float32, B], error) {
	if s := categories.Shape(); len(s) != 1 || s[0] != batch {
		panic(fmt.Sprintf("pointnet: expected %d category indices, got shape %v", batch, s))
	}
	out := tensor.Zeros[float32](tensor.Shape{batch, NumCategories, n}, backend)
	dst := out.Data()
	for b, c := range categories.Data() {
		if c < 0 || int(c) >= NumCategories {
			return nil, fmt.Errorf("%w: batch item %d has category %d, want [0, %d)", ErrInvalidCategory, b, c, NumCategories)
		}
		row := dst[(b*NumCategories+int(c))*n : (b*NumCategories+int(c)+1)*n]
		for i := range row {
			row[i] = 1
		}
	}
	return out, nil
}

// leadingChannels copies the first k channels of x (B, C, N).
func leadingChannels[B tensor.Backend](x *tensor.Tensor[float32, B], k int) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	batch, c, n := shape[0], shape[1], shape[2]
	out := tensor.ZerosLike(x, tensor.Shape{batch, k, n})
	src, dst := x.Data(), out.Data()
	for b := range batch {
		copy(dst[b*k*n:(b+1)*k*n], src[b*c*n:b*c*n+k*n])
	}
	return out
}

func last(widths []int) int {
	return widths[len(widths)-1]
}
