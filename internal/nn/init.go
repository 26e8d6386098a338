package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/pointseg/internal/tensor"
)

// Uniform creates a tensor with values drawn from U(-bound, bound).
func Uniform[B tensor.Backend](shape tensor.Shape, bound float64, backend B, rng *rand.Rand) *tensor.Tensor[float32, B] {
	t := tensor.Zeros[float32](shape, backend)
	data := t.Data()
	for i := range data {
		data[i] = float32((rng.Float64()*2.0 - 1.0) * bound)
	}
	return t
}

// KaimingUniform initialises a convolution weight the way PyTorch does by
// default (kaiming_uniform with a=sqrt(5)), which reduces to
// U(-1/sqrt(fan_in), 1/sqrt(fan_in)).
func KaimingUniform[B tensor.Backend](fanIn int, shape tensor.Shape, backend B, rng *rand.Rand) *tensor.Tensor[float32, B] {
	return Uniform(shape, 1/math.Sqrt(float64(fanIn)), backend, rng)
}
