package pointnet

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/pointseg/internal/tensor"
)

// FarthestPointSample picks npoint centroid indices per batch item from
// xyz (B, 3, N) by iterative farthest point sampling.
//
// The first centroid of each item is drawn from rng; every following
// centroid is the point with the largest squared distance to the set
// chosen so far (lowest index on ties). Returns indices of shape (B, npoint).
func FarthestPointSample[B tensor.Backend](xyz *tensor.Tensor[float32, B], npoint int, rng *rand.Rand) [][]int {
	shape := xyz.Shape()
	if len(shape) != 3 || shape[1] != 3 {
		panic(fmt.Sprintf("farthest point sample: expected (B, 3, N) coordinates, got %v", shape))
	}
	if npoint < 1 {
		panic(fmt.Sprintf("farthest point sample: npoint must be positive, got %d", npoint))
	}
	batch, n := shape[0], shape[2]
	data := xyz.Data()

	out := make([][]int, batch)
	distance := make([]float32, n)
	for b := range batch {
		base := b * 3 * n
		x, y, z := data[base:base+n], data[base+n:base+2*n], data[base+2*n:base+3*n]

		for i := range distance {
			distance[i] = 1e10
		}
		centroids := make([]int, npoint)
		farthest := rng.Intn(n)
		for i := range npoint {
			centroids[i] = farthest
			cx, cy, cz := x[farthest], y[farthest], z[farthest]
			best, bestDist := 0, float32(-1)
			for j := range n {
				dx, dy, dz := x[j]-cx, y[j]-cy, z[j]-cz
				d := dx*dx + dy*dy + dz*dz
				if d < distance[j] {
					distance[j] = d
				}
				if distance[j] > bestDist {
					best, bestDist = j, distance[j]
				}
			}
			farthest = best
		}
		out[b] = centroids
	}
	return out
}

// gatherCoords returns the coordinates at idx as a (B, 3, S) tensor.
func gatherCoords[B tensor.Backend](xyz *tensor.Tensor[float32, B], idx [][]int) *tensor.Tensor[float32, B] {
	shape := xyz.Shape()
	batch, n, s := shape[0], shape[2], len(idx[0])
	src := xyz.Data()
	out := tensor.Zeros[float32](tensor.Shape{batch, 3, s}, xyz.Backend())
	dst := out.Data()
	for b := range batch {
		for d := range 3 {
			row := src[(b*3+d)*n : (b*3+d+1)*n]
			outRow := dst[(b*3+d)*s : (b*3+d+1)*s]
			for i, j := range idx[b] {
				outRow[i] = row[j]
			}
		}
	}
	return out
}
