package pointnet

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/pointseg/internal/knn"
	"github.com/born-ml/pointseg/internal/parallel"
	"github.com/born-ml/pointseg/internal/tensor"
)

// interpolationNeighbours is the number of coarse points blended per fine point.
const interpolationNeighbours = 3

// interpolationEps keeps inverse-distance weights finite on coincident points.
const interpolationEps = 1e-8

// Interpolate lifts coarse features (B, C, S) located at coarse (B, 3, S)
// onto the fine coordinates fine (B, 3, N).
//
// Each fine point blends its three nearest coarse points with weights
// proportional to 1/(d²+1e-8), normalised to sum to one. With a single
// coarse point its feature is broadcast to every fine point.
func Interpolate[B tensor.Backend](fine, coarse, features *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	fs, cs, ft := fine.Shape(), coarse.Shape(), features.Shape()
	if len(fs) != 3 || len(cs) != 3 || len(ft) != 3 || fs[1] != 3 || cs[1] != 3 ||
		fs[0] != cs[0] || ft[0] != cs[0] || ft[2] != cs[2] {
		panic(fmt.Sprintf("interpolate: incompatible fine %v, coarse %v and features %v", fs, cs, ft))
	}
	batch, n, s, channels := fs[0], fs[2], cs[2], ft[1]

	if s == 1 {
		return features.Expand(tensor.Shape{batch, channels, n})
	}

	out := tensor.Zeros[float32](tensor.Shape{batch, channels, n}, features.Backend())
	dst := out.Data()
	fineData, coarseData, feat := fine.Data(), coarse.Data(), features.Data()

	indices := make([]*knn.Index, batch)
	fineCoords := make([][][3]float64, batch)
	for b := range batch {
		indices[b] = knn.NewIndex(coordsOf(coarseData, b, s))
		fineCoords[b] = coordsOf(fineData, b, n)
	}

	parallel.ForEach(batch, n, func(b, i int) {
		neighbours := indices[b].Nearest(fineCoords[b][i], interpolationNeighbours)
		weights := make([]float64, len(neighbours))
		for j, nb := range neighbours {
			weights[j] = 1 / (nb.Dist2 + interpolationEps)
		}
		floats.Scale(1/floats.Sum(weights), weights)

		for c := range channels {
			row := feat[(b*channels+c)*s : (b*channels+c+1)*s]
			acc := 0.0
			for j, nb := range neighbours {
				acc += float64(row[nb.Index]) * weights[j]
			}
			dst[(b*channels+c)*n+i] = float32(acc)
		}
	}, parallel.DefaultConfig())
	return out
}

// coordsOf extracts the points of batch item b from channel-first (B, 3, n) data.
func coordsOf(data []float32, b, n int) [][3]float64 {
	base := b * 3 * n
	coords := make([][3]float64, n)
	for i := range n {
		coords[i] = [3]float64{
			float64(data[base+i]),
			float64(data[base+n+i]),
			float64(data[base+2*n+i]),
		}
	}
	return coords
}
