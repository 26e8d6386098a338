// Package reconstruct provides the default reconstruction bundle for the
// segmentation model: an AtlasNet-style patch generator and the Chamfer
// distance used to compare its output with the input cloud.
package reconstruct

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/pointseg/internal/nn"
	"github.com/born-ml/pointseg/internal/tensor"
)

// ErrLatentShape is returned when Generate receives a latent that is not (B, LatentDim).
var ErrLatentShape = errors.New("reconstruct: latent shape mismatch")

// GeneratorConfig describes an AtlasNet generator.
type GeneratorConfig struct {
	LatentDim  int   // width of the global embedding
	Primitives int   // number of deformed unit squares
	Points     int   // total generated points, split across primitives
	Hidden     []int // hidden widths of each patch MLP
	Seed       int64
}

// DefaultGeneratorConfig returns a generator for latentDim-wide embeddings.
func DefaultGeneratorConfig(latentDim int) GeneratorConfig {
	return GeneratorConfig{
		LatentDim:  latentDim,
		Primitives: 4,
		Points:     1024,
		Hidden:     []int{128, 128},
		Seed:       1,
	}
}

// Generator deforms Primitives unit squares into a 3D surface conditioned
// on a global embedding.
//
// Each primitive owns a point-wise MLP mapping [u, v, z] to xyz with ReLU
// hidden layers and a tanh output. In training mode (u, v) are drawn
// uniformly from [0,1]² on every call; in evaluation mode they lie on a
// fixed regular grid.
type Generator[B tensor.Backend] struct {
	cfg      GeneratorConfig
	backend  B
	patches  []*patch[B]
	counts   []int
	rng      *rand.Rand
	training bool
}

type patch[B tensor.Backend] struct {
	hidden *nn.Sequential[B]
	out    *nn.Conv1D[B]
	act    *nn.Tanh[B]
}

// NewGenerator builds a generator from cfg.
func NewGenerator[B tensor.Backend](cfg GeneratorConfig, backend B) (*Generator[B], error) {
	if cfg.LatentDim < 1 || cfg.Primitives < 1 || cfg.Points < cfg.Primitives || len(cfg.Hidden) == 0 {
		return nil, fmt.Errorf("reconstruct: invalid generator config %+v", cfg)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	g := &Generator[B]{
		cfg:      cfg,
		backend:  backend,
		patches:  make([]*patch[B], cfg.Primitives),
		counts:   make([]int, cfg.Primitives),
		rng:      rng,
		training: true,
	}
	for i := range g.patches {
		g.patches[i] = &patch[B]{
			hidden: nn.NewMLP(2+cfg.LatentDim, cfg.Hidden, backend, rng),
			out:    nn.NewConv1D(cfg.Hidden[len(cfg.Hidden)-1], 3, backend, rng),
			act:    nn.NewTanh[B](),
		}
		g.counts[i] = cfg.Points / cfg.Primitives
		if i < cfg.Points%cfg.Primitives {
			g.counts[i]++
		}
	}
	return g, nil
}

// NumPoints returns the number of generated points per cloud.
func (g *Generator[B]) NumPoints() int {
	return g.cfg.Points
}

// Generate maps z (B, LatentDim) to a generated cloud (B, Points, 3).
func (g *Generator[B]) Generate(z *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	shape := z.Shape()
	if len(shape) != 2 || shape[1] != g.cfg.LatentDim {
		return nil, fmt.Errorf("%w: got %v, want (B, %d)", ErrLatentShape, shape, g.cfg.LatentDim)
	}
	batch := shape[0]
	latent := z.Reshape(batch, g.cfg.LatentDim, 1)

	outs := make([]*tensor.Tensor[float32, B], len(g.patches))
	for i, p := range g.patches {
		n := g.counts[i]
		uv := g.grid(batch, n)
		in := tensor.Cat([]*tensor.Tensor[float32, B]{uv, latent.Expand(tensor.Shape{batch, g.cfg.LatentDim, n})}, 1)
		outs[i] = p.act.Forward(p.out.Forward(p.hidden.Forward(in)))
	}
	return tensor.Cat(outs, 2).Transpose(0, 2, 1), nil
}

// grid returns (batch, 2, n) template coordinates in [0,1]².
func (g *Generator[B]) grid(batch, n int) *tensor.Tensor[float32, B] {
	if g.training {
		return tensor.Rand[float32](tensor.Shape{batch, 2, n}, g.backend, g.rng)
	}

	out := tensor.Zeros[float32](tensor.Shape{batch, 2, n}, g.backend)
	data := out.Data()
	side := int(math.Ceil(math.Sqrt(float64(n))))
	step := 0.0
	if side > 1 {
		step = 1 / float64(side-1)
	}
	for b := range batch {
		for i := range n {
			data[(b*2)*n+i] = float32(float64(i%side) * step)
			data[(b*2+1)*n+i] = float32(float64(i/side) * step)
		}
	}
	return out
}

// SetTraining switches between random and regular templates and the
// batch norms of every patch.
func (g *Generator[B]) SetTraining(training bool) {
	g.training = training
	for _, p := range g.patches {
		p.hidden.SetTraining(training)
	}
}

// Parameters returns the weights of every patch.
func (g *Generator[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for i, p := range g.patches {
		prefix := fmt.Sprintf("patches.%d", i)
		params = append(params, nn.WithPrefix(prefix+".hidden", p.hidden.Parameters())...)
		params = append(params, nn.WithPrefix(prefix+".out", p.out.Parameters())...)
	}
	return params
}
