package reconstruct

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/pointseg/internal/knn"
	"github.com/born-ml/pointseg/internal/parallel"
	"github.com/born-ml/pointseg/internal/tensor"
)

// ChamferDistance is the symmetric nearest-neighbour distance between two
// batches of clouds.
//
// For clouds A (B, M, 3) and R (B, N, 3) it returns, averaged over the
// batch, mean_a min_r |a-r|² + mean_r min_a |r-a|² as a shape-[1] tensor.
type ChamferDistance[B tensor.Backend] struct{}

// NewChamferDistance creates a ChamferDistance.
func NewChamferDistance[B tensor.Backend]() *ChamferDistance[B] {
	return &ChamferDistance[B]{}
}

// Distance implements the reconstruction distance contract.
func (c *ChamferDistance[B]) Distance(generated, reference *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	gs, rs := generated.Shape(), reference.Shape()
	if len(gs) != 3 || len(rs) != 3 || gs[2] != 3 || rs[2] != 3 || gs[0] != rs[0] {
		return nil, fmt.Errorf("reconstruct: chamfer needs (B, M, 3) and (B, N, 3), got %v and %v", gs, rs)
	}
	if gs[1] == 0 || rs[1] == 0 {
		return nil, errors.New("reconstruct: chamfer of an empty cloud")
	}

	batch := gs[0]
	total := 0.0
	for b := range batch {
		a := rowsOf(generated.Data(), b, gs[1])
		r := rowsOf(reference.Data(), b, rs[1])
		total += meanNearest(a, knn.NewIndex(r)) + meanNearest(r, knn.NewIndex(a))
	}
	return tensor.Scalar(float32(total/float64(batch)), generated.Backend()), nil
}

// meanNearest averages the squared distance from every query to its
// nearest indexed point.
func meanNearest(queries [][3]float64, index *knn.Index) float64 {
	dists := make([]float64, len(queries))
	parallel.For(len(queries), func(i int) {
		dists[i] = index.NearestOne(queries[i]).Dist2
	}, parallel.DefaultConfig())
	return floats.Sum(dists) / float64(len(queries))
}

// rowsOf extracts cloud b from points-major (B, n, 3) data.
func rowsOf(data []float32, b, n int) [][3]float64 {
	base := b * n * 3
	rows := make([][3]float64, n)
	for i := range rows {
		o := base + i*3
		rows[i] = [3]float64{float64(data[o]), float64(data[o+1]), float64(data[o+2])}
	}
	return rows
}
