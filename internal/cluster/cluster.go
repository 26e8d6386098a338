// Package cluster groups per-point embeddings into parts with k-means.
//
// It is an inspection utility for the segmentation model's embedding map:
// points whose embeddings fall in the same cluster are reported as one
// part. Cluster centres are initialised by github.com/muesli/kmeans, which
// draws from the process-wide random source, so labels are not
// reproducible across runs; only the grouping is meaningful.
package cluster

import (
	"errors"
	"fmt"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/born-ml/pointseg/internal/tensor"
)

// ErrInvalidK is returned for a cluster count below one.
var ErrInvalidK = errors.New("cluster: k must be at least 1")

// Partition clusters every batch item of embedding (B, C, N) into at most
// k groups and returns per-point labels (B, N).
//
// k is capped at N. Labels are ordered by cluster size: label 0 is the
// largest group of its batch item.
func Partition[B tensor.Backend](embedding *tensor.Tensor[float32, B], k int) ([][]int, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	shape := embedding.Shape()
	if len(shape) != 3 || shape[2] == 0 {
		return nil, fmt.Errorf("cluster: expected embedding (B, C, N), got %v", shape)
	}
	batch, channels, n := shape[0], shape[1], shape[2]
	data := embedding.Data()
	k = min(k, n)

	labels := make([][]int, batch)
	for b := range batch {
		dataset := make(clusters.Observations, n)
		for i := range n {
			coords := make(clusters.Coordinates, channels)
			for c := range channels {
				coords[c] = float64(data[(b*channels+c)*n+i])
			}
			dataset[i] = coords
		}

		cc, err := kmeans.New().Partition(dataset, k)
		if err != nil {
			return nil, fmt.Errorf("cluster: batch item %d: %w", b, err)
		}
		slices.SortStableFunc(cc, func(x, y clusters.Cluster) int {
			return len(y.Observations) - len(x.Observations)
		})

		labels[b] = make([]int, n)
		for i, obs := range dataset {
			labels[b][i] = cc.Nearest(obs)
		}
	}
	return labels, nil
}

// Histogram counts how many points carry each label. The result has
// length max(label)+1.
func Histogram(labels []int) []int {
	if len(labels) == 0 {
		return nil
	}
	counts := make([]int, slices.Max(labels)+1)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}
