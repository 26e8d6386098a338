package pointnet_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/pointseg/internal/backend/cpu"
	"github.com/born-ml/pointseg/internal/pointnet"
	"github.com/born-ml/pointseg/internal/tensor"
)

type Backend = *cpu.CPUBackend

// lineCloud places n points at x = 0..n-1 on the x axis, (1, 3, n).
func lineCloud(t *testing.T, backend Backend, n int) *tensor.Tensor[float32, Backend] {
	t.Helper()
	data := make([]float32, 3*n)
	for i := range n {
		data[i] = float32(i)
	}
	x, err := tensor.FromSlice(data, tensor.Shape{1, 3, n}, backend)
	require.NoError(t, err)
	return x
}

// randomCloud returns (b, c, n) coordinates uniform in [-1, 1).
func randomCloud(backend Backend, b, c, n int, seed int64) *tensor.Tensor[float32, Backend] {
	x := tensor.Rand[float32](tensor.Shape{b, c, n}, backend, rand.New(rand.NewSource(seed)))
	return x.MulScalar(2).AddScalar(-1)
}

func TestFarthestPointSample(t *testing.T) {
	backend := cpu.New()
	xyz := lineCloud(t, backend, 10)

	idx := pointnet.FarthestPointSample(xyz, 4, rand.New(rand.NewSource(1)))
	require.Len(t, idx, 1)
	require.Len(t, idx[0], 4)

	start := idx[0][0]
	// The second centroid is whichever end of the line is farther from the start.
	if start < 5 {
		assert.Equal(t, 9, idx[0][1])
	} else {
		assert.Equal(t, 0, idx[0][1])
	}

	seen := map[int]bool{}
	for _, i := range idx[0] {
		assert.False(t, seen[i], "centroid %d chosen twice", i)
		seen[i] = true
	}

	again := pointnet.FarthestPointSample(xyz, 4, rand.New(rand.NewSource(1)))
	assert.Equal(t, idx, again)
}

func TestFarthestPointSample_BadInput(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(1))
	assert.Panics(t, func() {
		pointnet.FarthestPointSample(tensor.Zeros[float32](tensor.Shape{1, 2, 4}, backend), 2, rng)
	})
	assert.Panics(t, func() {
		pointnet.FarthestPointSample(tensor.Zeros[float32](tensor.Shape{1, 3, 4}, backend), 0, rng)
	})
}

func TestBallQuery(t *testing.T) {
	backend := cpu.New()
	xyz := lineCloud(t, backend, 10)
	centroids, err := tensor.FromSlice([]float32{
		2, 9, // x
		0, 0, // y
		0, 0, // z
	}, tensor.Shape{1, 3, 2}, backend)
	require.NoError(t, err)

	idx := pointnet.BallQuery(1.5, 4, xyz, centroids)
	require.Len(t, idx[0], 2)

	// Around x=2: points 1, 2, 3 in index order, padded with the first.
	assert.Equal(t, []int{1, 2, 3, 1}, idx[0][0])
	// Around x=9: points 8, 9.
	assert.Equal(t, []int{8, 9, 8, 8}, idx[0][1])

	// Capped at nsample, lowest indices first.
	capped := pointnet.BallQuery(100, 3, xyz, centroids)
	assert.Equal(t, []int{0, 1, 2}, capped[0][1])
}

func TestBallQuery_EmptyBallFallsBackToNearest(t *testing.T) {
	backend := cpu.New()
	xyz := lineCloud(t, backend, 5)
	far, err := tensor.FromSlice([]float32{3.6, 0, 0}, tensor.Shape{1, 3, 1}, backend)
	require.NoError(t, err)

	idx := pointnet.BallQuery(0.1, 2, xyz, far)
	assert.Equal(t, []int{4, 4}, idx[0][0])
}

func TestInterpolate_SingleCoarsePointBroadcasts(t *testing.T) {
	backend := cpu.New()
	fine := randomCloud(backend, 2, 3, 7, 1)
	coarse := tensor.Zeros[float32](tensor.Shape{2, 3, 1}, backend)
	feat, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2, 1}, backend)
	require.NoError(t, err)

	out := pointnet.Interpolate(fine, coarse, feat)
	require.Equal(t, tensor.Shape{2, 2, 7}, out.Shape())
	for i := range 7 {
		assert.Equal(t, float32(1), out.At(0, 0, i))
		assert.Equal(t, float32(2), out.At(0, 1, i))
		assert.Equal(t, float32(3), out.At(1, 0, i))
		assert.Equal(t, float32(4), out.At(1, 1, i))
	}
}

func TestInterpolate_Weights(t *testing.T) {
	backend := cpu.New()
	coarse := lineCloud(t, backend, 4) // x = 0, 1, 2, 3
	feat, err := tensor.FromSlice([]float32{10, 20, 30, 40}, tensor.Shape{1, 1, 4}, backend)
	require.NoError(t, err)

	fine, err := tensor.FromSlice([]float32{
		1, 0.5, // x
		0, 0,
		0, 0,
	}, tensor.Shape{1, 3, 2}, backend)
	require.NoError(t, err)

	out := pointnet.Interpolate(fine, coarse, feat)
	require.Equal(t, tensor.Shape{1, 1, 2}, out.Shape())

	// A fine point on a coarse point takes that point's feature.
	assert.InDelta(t, 20, out.At(0, 0, 0), 1e-4)

	// x=0.5: neighbours 0 and 1 at d²=0.25, 2 at d²=2.25.
	w0, w1, w2 := 1/0.25, 1/0.25, 1/2.25
	want := (10*w0 + 20*w1 + 30*w2) / (w0 + w1 + w2)
	assert.InDelta(t, want, out.At(0, 0, 1), 1e-4)
}

func TestInterpolate_EquidistantNeighboursAreStable(t *testing.T) {
	backend := cpu.New()
	// Cube corners in index order: x varies slowest, z fastest.
	coarse, err := tensor.FromSlice([]float32{
		-1, -1, -1, -1, 1, 1, 1, 1,
		-1, -1, 1, 1, -1, -1, 1, 1,
		-1, 1, -1, 1, -1, 1, -1, 1,
	}, tensor.Shape{1, 3, 8}, backend)
	require.NoError(t, err)
	feat, err := tensor.FromSlice([]float32{0, 1, 2, 3, 4, 5, 6, 7}, tensor.Shape{1, 1, 8}, backend)
	require.NoError(t, err)
	origin := tensor.Zeros[float32](tensor.Shape{1, 3, 1}, backend)

	// Every corner is equidistant from the origin; corners 0, 1 and 2 are
	// blended with equal weights.
	for range 10 {
		out := pointnet.Interpolate(origin, coarse, feat)
		assert.InDelta(t, 1, out.At(0, 0, 0), 1e-5)
	}
}

func TestInterpolate_PreservesConstantFeatures(t *testing.T) {
	backend := cpu.New()
	fine := randomCloud(backend, 1, 3, 20, 2)
	coarse := randomCloud(backend, 1, 3, 6, 3)
	feat := tensor.Full[float32](tensor.Shape{1, 2, 6}, 5, backend)

	out := pointnet.Interpolate(fine, coarse, feat)
	for _, v := range out.Data() {
		assert.InDelta(t, 5, v, 1e-4)
	}
}

func TestSetAbstractionMSG_Shapes(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(4))
	stage := pointnet.MSGStage{
		NumCentroids: 8,
		Scales: []pointnet.Scale{
			{Radius: 0.3, NumSamples: 4, MLP: []int{8, 8}},
			{Radius: 0.6, NumSamples: 6, MLP: []int{4, 12}},
		},
	}
	sa := pointnet.NewSetAbstractionMSG(stage, 2, backend, rng)
	assert.Equal(t, 20, sa.OutChannels())

	xyz := randomCloud(backend, 2, 3, 32, 5)
	feat := randomCloud(backend, 2, 2, 32, 6)
	newXYZ, newFeat := sa.Forward(xyz, feat)
	assert.Equal(t, tensor.Shape{2, 3, 8}, newXYZ.Shape())
	assert.Equal(t, tensor.Shape{2, 20, 8}, newFeat.Shape())

	// Pooled after ReLU, so every feature is non-negative.
	for _, v := range newFeat.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
	}

	params := sa.Parameters()
	assert.Equal(t, "mlps.0.0.conv.weight", params[0].Name())
}

func TestSetAbstraction_GroupAll(t *testing.T) {
	backend := cpu.New()
	sa := pointnet.NewSetAbstraction(4, []int{8, 16}, backend, rand.New(rand.NewSource(7)))

	xyz := randomCloud(backend, 2, 3, 10, 8)
	feat := randomCloud(backend, 2, 4, 10, 9)
	newXYZ, newFeat := sa.Forward(xyz, feat)

	assert.Equal(t, tensor.Shape{2, 3, 1}, newXYZ.Shape())
	for _, v := range newXYZ.Data() {
		assert.Zero(t, v)
	}
	assert.Equal(t, tensor.Shape{2, 16, 1}, newFeat.Shape())
}

func TestFeaturePropagation_Shapes(t *testing.T) {
	backend := cpu.New()
	fp := pointnet.NewFeaturePropagation(5+7, []int{16, 8}, backend, rand.New(rand.NewSource(10)))

	fine := randomCloud(backend, 2, 3, 24, 11)
	coarse := randomCloud(backend, 2, 3, 6, 12)
	skip := randomCloud(backend, 2, 5, 24, 13)
	coarseFeat := randomCloud(backend, 2, 7, 6, 14)

	out := fp.Forward(fine, coarse, skip, coarseFeat)
	assert.Equal(t, tensor.Shape{2, 8, 24}, out.Shape())

	noSkip := pointnet.NewFeaturePropagation(7, []int{4}, backend, rand.New(rand.NewSource(10)))
	assert.Equal(t, tensor.Shape{2, 4, 24}, noSkip.Forward(fine, coarse, nil, coarseFeat).Shape())
}
