package pointnet

import (
	"fmt"

	"github.com/born-ml/pointseg/internal/parallel"
	"github.com/born-ml/pointseg/internal/tensor"
)

// BallQuery returns, for every centroid in newXYZ (B, 3, S), the indices
// of up to nsample points of xyz (B, 3, N) within radius.
//
// Points are taken in index order. When fewer than nsample qualify, the
// group is padded with its first member. A centroid with an empty ball
// (only possible when it is not itself a member of xyz) falls back to its
// nearest point. Returns indices of shape (B, S, nsample).
func BallQuery[B tensor.Backend](radius float64, nsample int, xyz, newXYZ *tensor.Tensor[float32, B]) [][][]int {
	shape, centroidShape := xyz.Shape(), newXYZ.Shape()
	if len(shape) != 3 || shape[1] != 3 || len(centroidShape) != 3 || centroidShape[1] != 3 || shape[0] != centroidShape[0] {
		panic(fmt.Sprintf("ball query: incompatible coordinates %v and centroids %v", shape, centroidShape))
	}
	batch, n, s := shape[0], shape[2], centroidShape[2]
	r2 := float32(radius * radius)
	src, cen := xyz.Data(), newXYZ.Data()

	out := make([][][]int, batch)
	for b := range out {
		out[b] = make([][]int, s)
	}
	parallel.ForEach(batch, s, func(b, c int) {
		x, y, z := src[b*3*n:b*3*n+n], src[b*3*n+n:b*3*n+2*n], src[b*3*n+2*n:(b+1)*3*n]
		cx, cy, cz := cen[b*3*s+c], cen[b*3*s+s+c], cen[b*3*s+2*s+c]

		group := make([]int, 0, nsample)
		nearest, nearestDist := 0, float32(-1)
		for j := 0; j < n && len(group) < nsample; j++ {
			dx, dy, dz := x[j]-cx, y[j]-cy, z[j]-cz
			d := dx*dx + dy*dy + dz*dz
			if d <= r2 {
				group = append(group, j)
			}
			if nearestDist < 0 || d < nearestDist {
				nearest, nearestDist = j, d
			}
		}
		if len(group) == 0 {
			group = append(group, nearest)
		}
		for len(group) < nsample {
			group = append(group, group[0])
		}
		out[b][c] = group
	}, parallel.DefaultConfig())
	return out
}

// groupNeighbourhoods gathers, for every centroid and neighbour, the
// vector [features, xyz - centroid] into a (B, C+3, S*K) tensor laid out
// centroid-major so that a max over the trailing K recovers one vector
// per centroid. features may be nil.
func groupNeighbourhoods[B tensor.Backend](
	xyz, features, newXYZ *tensor.Tensor[float32, B], idx [][][]int,
) *tensor.Tensor[float32, B] {
	shape := xyz.Shape()
	batch, n := shape[0], shape[2]
	s, k := len(idx[0]), len(idx[0][0])
	channels := 0
	var feat []float32
	if features != nil {
		channels = features.Shape()[1]
		feat = features.Data()
	}
	width := channels + 3
	l := s * k

	out := tensor.Zeros[float32](tensor.Shape{batch, width, l}, xyz.Backend())
	dst := out.Data()
	src, cen := xyz.Data(), newXYZ.Data()

	for b := range batch {
		for c := range channels {
			row := feat[(b*channels+c)*n : (b*channels+c+1)*n]
			outRow := dst[(b*width+c)*l : (b*width+c+1)*l]
			for ci, group := range idx[b] {
				for j, p := range group {
					outRow[ci*k+j] = row[p]
				}
			}
		}
		for d := range 3 {
			row := src[(b*3+d)*n : (b*3+d+1)*n]
			centre := cen[(b*3+d)*s : (b*3+d+1)*s]
			outRow := dst[(b*width+channels+d)*l : (b*width+channels+d+1)*l]
			for ci, group := range idx[b] {
				for j, p := range group {
					outRow[ci*k+j] = row[p] - centre[ci]
				}
			}
		}
	}
	return out
}
