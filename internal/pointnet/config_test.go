package pointnet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/pointseg/internal/pointnet"
)

func TestDefaultConfig(t *testing.T) {
	cfg := pointnet.DefaultConfig(50, true)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 6, cfg.InputChannels())
	assert.Equal(t, 128, cfg.EmbeddingChannels())
	assert.Equal(t, 512, cfg.SA1.NumCentroids)
	assert.Equal(t, 3, pointnet.DefaultConfig(50, false).InputChannels())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*pointnet.Config)
	}{
		{"no parts", func(c *pointnet.Config) { c.NumParts = 0 }},
		{"dropout one", func(c *pointnet.Config) { c.Dropout = 1 }},
		{"no centroids", func(c *pointnet.Config) { c.SA1.NumCentroids = 0 }},
		{"no scales", func(c *pointnet.Config) { c.SA2.Scales = nil }},
		{"empty scale mlp", func(c *pointnet.Config) { c.SA1.Scales[1].MLP = nil }},
		{"zero samples", func(c *pointnet.Config) { c.SA1.Scales[0].NumSamples = 0 }},
		{"empty fp", func(c *pointnet.Config) { c.FP2 = nil }},
		{"zero width", func(c *pointnet.Config) { c.GlobalMLP = []int{256, 0} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := pointnet.DefaultConfig(50, false)
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), pointnet.ErrInvalidConfig)
		})
	}
}

func TestConvexOptions_Validate(t *testing.T) {
	assert.NoError(t, pointnet.DefaultConvexOptions().Validate())

	tests := []struct {
		name   string
		mutate func(*pointnet.ConvexOptions)
	}{
		{"zero quantile", func(o *pointnet.ConvexOptions) { o.Quantile = 0 }},
		{"quantile above one", func(o *pointnet.ConvexOptions) { o.Quantile = 1.5 }},
		{"no iterations", func(o *pointnet.ConvexOptions) { o.Iterations = 0 }},
		{"no clusters", func(o *pointnet.ConvexOptions) { o.MaxNumClusters = 0 }},
		{"negative alpha", func(o *pointnet.ConvexOptions) { o.Alpha = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := pointnet.DefaultConvexOptions()
			tt.mutate(&opts)
			assert.ErrorIs(t, opts.Validate(), pointnet.ErrInvalidConvexOptions)
		})
	}
}

func TestBranch_String(t *testing.T) {
	assert.Equal(t, "none", pointnet.BranchNone.String())
	assert.Equal(t, "convex", pointnet.BranchConvex.String())
	assert.Equal(t, "reconstruction", pointnet.BranchReconstruction.String())
}
