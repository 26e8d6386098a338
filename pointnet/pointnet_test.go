// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pointnet_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/pointseg/backend/cpu"
	"github.com/born-ml/pointseg/pointnet"
	"github.com/born-ml/pointseg/tensor"
)

type Backend = *cpu.Backend

func tinyConfig() pointnet.Config {
	cfg := pointnet.DefaultConfig(3, true)
	cfg.SA1 = pointnet.MSGStage{NumCentroids: 8, Scales: []pointnet.Scale{{Radius: 0.5, NumSamples: 4, MLP: []int{8}}}}
	cfg.SA2 = pointnet.MSGStage{NumCentroids: 4, Scales: []pointnet.Scale{{Radius: 1, NumSamples: 4, MLP: []int{8}}}}
	cfg.GlobalMLP = []int{16}
	cfg.FP3, cfg.FP2, cfg.FP1 = []int{8}, []int{8}, []int{8}
	return cfg
}

func TestPublicAPI_ConvexAndReconstruction(t *testing.T) {
	backend := cpu.New()
	cfg := tinyConfig()

	gcfg := pointnet.DefaultGeneratorConfig(cfg.EmbeddingChannels())
	gcfg.Points, gcfg.Hidden = 16, []int{8}
	gen, err := pointnet.NewGenerator(gcfg, backend)
	require.NoError(t, err)

	var betas []float64
	convex := pointnet.ConvexLossFunc[Backend](func(req pointnet.ConvexRequest[Backend]) (total, chamfer *tensor.Tensor[float32, Backend], err error) {
		betas = append(betas, req.Beta)
		return tensor.Full[float32](tensor.Shape{1}, 2, backend), tensor.Full[float32](tensor.Shape{1}, 1, backend), nil
	})

	model, err := pointnet.NewModel(cfg, backend,
		pointnet.WithConvexLoss[Backend](convex),
		pointnet.WithReconstruction[Backend](gen, pointnet.NewChamferDistance[Backend]()),
		pointnet.WithRand[Backend](rand.New(rand.NewSource(9))),
	)
	require.NoError(t, err)

	points := tensor.Rand[float32](tensor.Shape{1, 6, 24}, backend, rand.New(rand.NewSource(2)))
	cats, err := tensor.FromSlice([]int32{7}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	opts := pointnet.DefaultForwardOptions[Backend]()
	opts.Reconstruct = true
	out, err := model.Forward(points, cats, opts)
	require.NoError(t, err)
	assert.Equal(t, pointnet.BranchReconstruction, out.Branch)
	assert.Equal(t, tensor.Shape{1, 24, 3}, out.Predictions.Shape())

	opts.IncludeConvexLoss = true
	opts.Convex = pointnet.DefaultConvexOptions()
	out, err = model.Forward(points, cats, opts)
	require.NoError(t, err)
	assert.Equal(t, pointnet.BranchConvex, out.Branch)
	assert.Equal(t, float32(2), out.TotalLoss.Item())
	assert.Equal(t, []float64{0.99}, betas)
	assert.Equal(t, pointnet.BetaDecaying, model.Beta().State())
}

func TestPublicAPI_Errors(t *testing.T) {
	backend := cpu.New()
	model, err := pointnet.NewModel(tinyConfig(), backend)
	require.NoError(t, err)

	points := tensor.Zeros[float32](tensor.Shape{1, 6, 16}, backend)
	cats, err := tensor.FromSlice([]int32{pointnet.NumCategories}, tensor.Shape{1}, backend)
	require.NoError(t, err)
	_, err = model.Forward(points, cats, pointnet.DefaultForwardOptions[Backend]())
	assert.ErrorIs(t, err, pointnet.ErrInvalidCategory)

	opts := pointnet.DefaultForwardOptions[Backend]()
	opts.Reconstruct = true
	_, err = model.Forward(points, cats, opts)
	assert.ErrorIs(t, err, pointnet.ErrReconstructionUnavailable)

	bad := tinyConfig()
	bad.NumParts = 0
	_, err = pointnet.NewModel(bad, backend)
	assert.ErrorIs(t, err, pointnet.ErrInvalidConfig)
}
