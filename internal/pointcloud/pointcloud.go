// Package pointcloud reads point clouds from text files and prepares them
// as model input.
//
// The text format has one point per line with whitespace- or
// comma-separated columns:
//
//	x y z                 coordinates only
//	x y z label           coordinates and part label
//	x y z nx ny nz        coordinates and normals
//	x y z nx ny nz label  coordinates, normals and part label
//
// Blank lines and lines starting with '#' are skipped.
package pointcloud

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/born-ml/pointseg/internal/tensor"
)

var (
	// ErrEmptyCloud is returned when a file holds no points.
	ErrEmptyCloud = errors.New("pointcloud: no points")

	// ErrNoLabels is returned by BatchLabels when a cloud carries no part labels.
	ErrNoLabels = errors.New("pointcloud: no part labels")
)

// Cloud is one point set. Normals and Labels are nil when absent.
type Cloud struct {
	Coords  [][3]float32
	Normals [][3]float32
	Labels  []int32
}

// Len returns the number of points.
func (c *Cloud) Len() int {
	return len(c.Coords)
}

// Read parses a cloud in the text format.
func Read(r io.Reader) (*Cloud, error) {
	cloud := &Cloud{}
	columns := 0
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(strings.ReplaceAll(text, ",", " "))
		if columns == 0 {
			columns = len(fields)
			if columns != 3 && columns != 4 && columns != 6 && columns != 7 {
				return nil, fmt.Errorf("pointcloud: line %d: expected 3, 4, 6 or 7 columns, got %d", line, columns)
			}
		}
		if len(fields) != columns {
			return nil, fmt.Errorf("pointcloud: line %d: expected %d columns, got %d", line, columns, len(fields))
		}

		values := make([]float32, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("pointcloud: line %d column %d: %w", line, i+1, err)
			}
			values[i] = float32(v)
		}

		cloud.Coords = append(cloud.Coords, [3]float32{values[0], values[1], values[2]})
		if columns >= 6 {
			cloud.Normals = append(cloud.Normals, [3]float32{values[3], values[4], values[5]})
		}
		if columns == 4 || columns == 7 {
			cloud.Labels = append(cloud.Labels, int32(values[columns-1]))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("pointcloud: read: %w", err)
	}
	if len(cloud.Coords) == 0 {
		return nil, ErrEmptyCloud
	}
	return cloud, nil
}

// ReadFile parses the cloud stored at path.
func ReadFile(path string) (*Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pointcloud: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Normalize centres the coordinates on their centroid and scales them into
// the unit sphere. Normals are unchanged.
func (c *Cloud) Normalize() {
	var centroid [3]float64
	for _, p := range c.Coords {
		for d := range 3 {
			centroid[d] += float64(p[d])
		}
	}
	n := float64(len(c.Coords))
	for d := range 3 {
		centroid[d] /= n
	}

	radius := 0.0
	for i, p := range c.Coords {
		r := 0.0
		for d := range 3 {
			v := float64(p[d]) - centroid[d]
			c.Coords[i][d] = float32(v)
			r += v * v
		}
		radius = max(radius, math.Sqrt(r))
	}
	if radius == 0 {
		return
	}
	for i := range c.Coords {
		for d := range 3 {
			c.Coords[i][d] = float32(float64(c.Coords[i][d]) / radius)
		}
	}
}

// Resample returns a cloud of exactly n points drawn from c with
// replacement.
func (c *Cloud) Resample(n int, rng *rand.Rand) *Cloud {
	out := &Cloud{Coords: make([][3]float32, n)}
	if c.Normals != nil {
		out.Normals = make([][3]float32, n)
	}
	if c.Labels != nil {
		out.Labels = make([]int32, n)
	}
	for i := range n {
		j := rng.Intn(len(c.Coords))
		out.Coords[i] = c.Coords[j]
		if c.Normals != nil {
			out.Normals[i] = c.Normals[j]
		}
		if c.Labels != nil {
			out.Labels[i] = c.Labels[j]
		}
	}
	return out
}

// Sphere samples n points uniformly on the unit sphere, with outward normals.
func Sphere(n int, rng *rand.Rand) *Cloud {
	c := &Cloud{Coords: make([][3]float32, n), Normals: make([][3]float32, n)}
	for i := range n {
		var v [3]float64
		norm := 0.0
		for norm < 1e-12 {
			v = [3]float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
			norm = math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		}
		for d := range 3 {
			c.Coords[i][d] = float32(v[d] / norm)
		}
		c.Normals[i] = c.Coords[i]
	}
	return c
}

// Batch stacks clouds of equal size into a channel-first (B, C, N) tensor
// with C = 6 when normals is set and 3 otherwise.
func Batch[B tensor.Backend](clouds []*Cloud, normals bool, backend B) (*tensor.Tensor[float32, B], error) {
	if len(clouds) == 0 {
		return nil, ErrEmptyCloud
	}
	n := clouds[0].Len()
	channels := 3
	if normals {
		channels = 6
	}

	out := tensor.Zeros[float32](tensor.Shape{len(clouds), channels, n}, backend)
	data := out.Data()
	for b, c := range clouds {
		if c.Len() != n {
			return nil, fmt.Errorf("pointcloud: cloud %d has %d points, want %d", b, c.Len(), n)
		}
		if normals && c.Normals == nil {
			return nil, fmt.Errorf("pointcloud: cloud %d has no normals", b)
		}
		for i := range n {
			for d := range 3 {
				data[(b*channels+d)*n+i] = c.Coords[i][d]
				if normals {
					data[(b*channels+3+d)*n+i] = c.Normals[i][d]
				}
			}
		}
	}
	return out, nil
}

// BatchLabels stacks the part labels of equally sized clouds into a (B, N)
// tensor. Every label must lie in [0, numParts).
func BatchLabels[B tensor.Backend](clouds []*Cloud, numParts int, backend B) (*tensor.Tensor[int32, B], error) {
	if len(clouds) == 0 {
		return nil, ErrEmptyCloud
	}
	n := clouds[0].Len()
	out := tensor.Zeros[int32](tensor.Shape{len(clouds), n}, backend)
	data := out.Data()
	for b, c := range clouds {
		if c.Labels == nil {
			return nil, fmt.Errorf("%w: cloud %d", ErrNoLabels, b)
		}
		if len(c.Labels) != n {
			return nil, fmt.Errorf("pointcloud: cloud %d has %d labels, want %d", b, len(c.Labels), n)
		}
		for i, l := range c.Labels {
			if l < 0 || int(l) >= numParts {
				return nil, fmt.Errorf("pointcloud: cloud %d point %d: label %d outside [0, %d)", b, i, l, numParts)
			}
			data[b*n+i] = l
		}
	}
	return out, nil
}
