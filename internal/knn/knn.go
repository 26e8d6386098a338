// Package knn answers k-nearest-neighbour queries over small 3D point sets.
//
// It wraps gonum's kd-tree with an index-carrying point type so that
// callers get back positions into their own arrays rather than copies of
// coordinates. Distances are squared Euclidean throughout.
package knn

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Point is a 3D coordinate tagged with its position in the caller's set.
type Point struct {
	Coord [3]float64
	Index int
}

// Compare returns the signed distance of p from the plane through c
// perpendicular to dimension d.
func (p Point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(Point)
	return p.Coord[d] - q.Coord[d]
}

// Dims returns 3.
func (p Point) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between p and c.
func (p Point) Distance(c kdtree.Comparable) float64 {
	q := c.(Point)
	dx := p.Coord[0] - q.Coord[0]
	dy := p.Coord[1] - q.Coord[1]
	dz := p.Coord[2] - q.Coord[2]
	return dx*dx + dy*dy + dz*dz
}

// points implements kdtree.Interface.
type points []Point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Pivot(d kdtree.Dim) int                { return plane{points: p, dim: d}.Pivot() }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts points along one dimension for median partitioning.
type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.points[i].Coord[p.dim] < p.points[j].Coord[p.dim]
}

func (p plane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

func (p plane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Neighbor is one query result.
type Neighbor struct {
	Index int     // position in the indexed set
	Dist2 float64 // squared distance to the query
}

// Index is an immutable kd-tree over a point set. Queries may run
// concurrently.
type Index struct {
	tree *kdtree.Tree
	size int
}

// NewIndex builds an index over coords. Neighbor.Index refers to
// positions in coords.
func NewIndex(coords [][3]float64) *Index {
	if len(coords) == 0 {
		return &Index{}
	}
	set := make(points, len(coords))
	for i, c := range coords {
		set[i] = Point{Coord: c, Index: i}
	}
	return &Index{
		tree: kdtree.New(set, false),
		size: len(coords),
	}
}

// Len returns the number of indexed points.
func (ix *Index) Len() int {
	return ix.size
}

// Nearest returns up to k neighbours of q ordered by increasing distance.
// Among equidistant points the lower indices win, independent of how the
// tree was built.
func (ix *Index) Nearest(q [3]float64, k int) []Neighbor {
	if k <= 0 || ix.size == 0 {
		return nil
	}
	k = min(k, ix.size)
	query := Point{Coord: q, Index: -1}

	keeper := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keeper, query)
	kth := 0.0
	for _, cd := range keeper.Heap {
		if cd.Comparable != nil {
			kth = max(kth, cd.Dist)
		}
	}

	// The keeper holds an arbitrary k of the points tied at the k-th
	// distance. Collect all of them, with slack so that boundary pruning
	// in the tree cannot drop an exact tie.
	ball := kdtree.NewDistKeeper(kth*(1+1e-9) + 1e-12)
	ix.tree.NearestSet(ball, query)

	out := make([]Neighbor, 0, len(ball.Heap))
	for _, cd := range ball.Heap {
		// Both keepers seed their heap with a nil sentinel.
		if cd.Comparable == nil {
			continue
		}
		out = append(out, Neighbor{Index: cd.Comparable.(Point).Index, Dist2: cd.Dist})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dist2 != out[j].Dist2 {
			return out[i].Dist2 < out[j].Dist2
		}
		return out[i].Index < out[j].Index
	})
	return out[:min(k, len(out))]
}

// NearestOne returns the closest indexed point to q, the lowest index on
// ties. Panics on an empty index.
func (ix *Index) NearestOne(q [3]float64) Neighbor {
	if ix.size == 0 {
		panic("knn: nearest on empty index")
	}
	return ix.Nearest(q, 1)[0]
}
