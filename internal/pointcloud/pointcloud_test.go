package pointcloud_test

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/pointseg/internal/backend/cpu"
	"github.com/born-ml/pointseg/internal/pointcloud"
	"github.com/born-ml/pointseg/internal/tensor"
)

func TestRead_Formats(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantNormals bool
		wantLabels  []int32
	}{
		{"xyz", "0 0 0\n1 2 3\n", false, nil},
		{"xyz label", "0 0 0 4\n1 2 3 5\n", false, []int32{4, 5}},
		{"xyz normals", "0 0 0 0 0 1\n1 2 3 1 0 0\n", true, nil},
		{"xyz normals label", "# header\n0,0,0,0,0,1,12\n\n1,2,3,1,0,0,13\n", true, []int32{12, 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := pointcloud.Read(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, 2, c.Len())
			assert.Equal(t, [3]float32{1, 2, 3}, c.Coords[1])
			assert.Equal(t, tt.wantNormals, c.Normals != nil)
			assert.Equal(t, tt.wantLabels, c.Labels)
		})
	}
}

func TestRead_Errors(t *testing.T) {
	_, err := pointcloud.Read(strings.NewReader(""))
	assert.ErrorIs(t, err, pointcloud.ErrEmptyCloud)

	_, err = pointcloud.Read(strings.NewReader("1 2\n"))
	assert.ErrorContains(t, err, "line 1")

	_, err = pointcloud.Read(strings.NewReader("1 2 3\n1 2 3 4\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = pointcloud.Read(strings.NewReader("1 x 3\n"))
	assert.ErrorContains(t, err, "column 2")
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloud.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 1 1\n-1 -1 -1\n"), 0o600))

	c, err := pointcloud.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = pointcloud.ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	c := &pointcloud.Cloud{Coords: [][3]float32{{2, 0, 0}, {4, 0, 0}, {3, 1, 0}, {3, -1, 0}}}
	c.Normalize()

	maxRadius := 0.0
	var centroid [3]float64
	for _, p := range c.Coords {
		r := 0.0
		for d := range 3 {
			centroid[d] += float64(p[d])
			r += float64(p[d]) * float64(p[d])
		}
		maxRadius = math.Max(maxRadius, math.Sqrt(r))
	}
	assert.InDelta(t, 1.0, maxRadius, 1e-6)
	for d := range 3 {
		assert.InDelta(t, 0.0, centroid[d], 1e-6)
	}
}

func TestResampleAndBatch(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(1))
	sphere := pointcloud.Sphere(50, rng)
	for _, p := range sphere.Coords {
		assert.InDelta(t, 1.0, math.Sqrt(float64(p[0]*p[0]+p[1]*p[1]+p[2]*p[2])), 1e-5)
	}

	a := sphere.Resample(16, rng)
	b := sphere.Resample(16, rng)
	assert.Equal(t, 16, a.Len())

	x, err := pointcloud.Batch([]*pointcloud.Cloud{a, b}, true, backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 6, 16}, x.Shape())
	assert.Equal(t, b.Coords[3][1], x.At(1, 1, 3))
	assert.Equal(t, b.Normals[3][2], x.At(1, 5, 3))

	xyz, err := pointcloud.Batch([]*pointcloud.Cloud{a}, false, backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3, 16}, xyz.Shape())

	_, err = pointcloud.Batch([]*pointcloud.Cloud{a, sphere}, false, backend)
	assert.Error(t, err)
	_, err = pointcloud.Batch([]*pointcloud.Cloud{{Coords: a.Coords}}, true, backend)
	assert.Error(t, err)
}

func TestBatchLabels(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(2))
	c, err := pointcloud.Read(strings.NewReader("0 0 0 1\n1 0 0 3\n0 1 0 2\n"))
	require.NoError(t, err)
	a, b := c.Resample(8, rng), c.Resample(8, rng)

	labels, err := pointcloud.BatchLabels([]*pointcloud.Cloud{a, b}, 4, backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 8}, labels.Shape())
	assert.Equal(t, b.Labels[5], labels.At(1, 5))

	_, err = pointcloud.BatchLabels([]*pointcloud.Cloud{c}, 3, backend)
	assert.ErrorContains(t, err, "outside [0, 3)")

	_, err = pointcloud.BatchLabels([]*pointcloud.Cloud{pointcloud.Sphere(8, rng)}, 4, backend)
	assert.ErrorIs(t, err, pointcloud.ErrNoLabels)

	_, err = pointcloud.BatchLabels(nil, 4, backend)
	assert.ErrorIs(t, err, pointcloud.ErrEmptyCloud)
}
