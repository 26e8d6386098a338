// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pointnet provides a PointNet++ part-segmentation model with
// multi-scale grouping and two optional auxiliary objectives.
//
// The model maps a batch of point clouds (B, 3|6, N) and their object
// categories to per-point part log-probabilities (B, N, NumParts). A forward
// call may additionally run one auxiliary loss:
//   - convex decomposition of the per-point embedding, weighted by a decaying
//     beta schedule owned by the model
//   - reconstruction of the cloud from its global embedding, compared with
//     a Chamfer distance
//
// The convex path takes priority when both are requested.
//
// Example:
//
//	backend := cpu.New()
//	gen, _ := pointnet.NewGenerator(pointnet.DefaultGeneratorConfig(128), backend)
//	model, err := pointnet.NewModel(pointnet.DefaultConfig(50, false), backend,
//	    pointnet.WithReconstruction[*cpu.Backend](gen, pointnet.NewChamferDistance[*cpu.Backend]()))
//	out, err := model.Forward(points, categories, pointnet.ForwardOptions[*cpu.Backend]{Reconstruct: true})
package pointnet

import (
	"math/rand"

	"github.com/born-ml/pointseg/internal/pointnet"
	"github.com/born-ml/pointseg/internal/reconstruct"
	"github.com/born-ml/pointseg/tensor"
)

// NumCategories is the size of the object-category vocabulary.
const NumCategories = pointnet.NumCategories

// Configuration.
type (
	Config        = pointnet.Config
	MSGStage      = pointnet.MSGStage
	Scale         = pointnet.Scale
	ConvexOptions = pointnet.ConvexOptions
)

// Model and forward-call types.
type (
	Model[B tensor.Backend]          = pointnet.Model[B]
	Option[B tensor.Backend]         = pointnet.Option[B]
	ForwardOptions[B tensor.Backend] = pointnet.ForwardOptions[B]
	Output[B tensor.Backend]         = pointnet.Output[B]
	Branch                           = pointnet.Branch
)

// Branch values.
const (
	BranchNone           = pointnet.BranchNone
	BranchConvex         = pointnet.BranchConvex
	BranchReconstruction = pointnet.BranchReconstruction
)

// Auxiliary-loss contracts.
type (
	ConvexRequest[B tensor.Backend]  = pointnet.ConvexRequest[B]
	ConvexLoss[B tensor.Backend]     = pointnet.ConvexLoss[B]
	ConvexLossFunc[B tensor.Backend] = pointnet.ConvexLossFunc[B]
	Generator[B tensor.Backend]      = pointnet.Generator[B]
	Distance[B tensor.Backend]       = pointnet.Distance[B]
	Reconstruction[B tensor.Backend] = pointnet.Reconstruction[B]
	Extras                           = pointnet.Extras
	NoExtras                         = pointnet.NoExtras
)

// Beta schedule.
type (
	BetaSchedule = pointnet.BetaSchedule
	BetaState    = pointnet.BetaState
)

// Beta states and defaults.
const (
	BetaDecaying       = pointnet.BetaDecaying
	BetaFloored        = pointnet.BetaFloored
	DefaultBetaInitial = pointnet.DefaultBetaInitial
	DefaultBetaDecay   = pointnet.DefaultBetaDecay
	DefaultBetaFloor   = pointnet.DefaultBetaFloor
)

// Losses.
type (
	PartLoss[B tensor.Backend]           = pointnet.PartLoss[B]
	SelfSupervisedLoss[B tensor.Backend] = pointnet.SelfSupervisedLoss[B]
)

// DefaultMargin is the negative-pair margin of SelfSupervisedLoss.
const DefaultMargin = pointnet.DefaultMargin

// Default reconstruction bundle.
type (
	GeneratorConfig                   = reconstruct.GeneratorConfig
	AtlasGenerator[B tensor.Backend]  = reconstruct.Generator[B]
	ChamferDistance[B tensor.Backend] = reconstruct.ChamferDistance[B]
)

// Errors.
var (
	ErrReconstructionUnavailable = pointnet.ErrReconstructionUnavailable
	ErrConvexLossUnavailable     = pointnet.ErrConvexLossUnavailable
	ErrInvalidConvexOptions      = pointnet.ErrInvalidConvexOptions
	ErrInvalidCategory           = pointnet.ErrInvalidCategory
	ErrInvalidConfig             = pointnet.ErrInvalidConfig
	ErrLatentShape               = reconstruct.ErrLatentShape
)

// DefaultConfig returns the standard MSG architecture for numParts parts.
func DefaultConfig(numParts int, normalChannel bool) Config {
	return pointnet.DefaultConfig(numParts, normalChannel)
}

// DefaultConvexOptions returns the default convex-loss knobs.
func DefaultConvexOptions() ConvexOptions {
	return pointnet.DefaultConvexOptions()
}

// DefaultForwardOptions returns options that run no auxiliary loss.
func DefaultForwardOptions[B tensor.Backend]() ForwardOptions[B] {
	return pointnet.DefaultForwardOptions[B]()
}

// NewModel builds a model from cfg.
func NewModel[B tensor.Backend](cfg Config, backend B, opts ...Option[B]) (*Model[B], error) {
	return pointnet.NewModel(cfg, backend, opts...)
}

// WithConvexLoss installs the convex-decomposition loss.
func WithConvexLoss[B tensor.Backend](loss ConvexLoss[B]) Option[B] {
	return pointnet.WithConvexLoss(loss)
}

// WithReconstruction installs a reconstruction bundle.
func WithReconstruction[B tensor.Backend](gen Generator[B], dist Distance[B]) Option[B] {
	return pointnet.WithReconstruction(gen, dist)
}

// WithBetaSchedule replaces the default beta schedule.
func WithBetaSchedule[B tensor.Backend](s *BetaSchedule) Option[B] {
	return pointnet.WithBetaSchedule[B](s)
}

// WithRand sets the random source used for sampling.
func WithRand[B tensor.Backend](rng *rand.Rand) Option[B] {
	return pointnet.WithRand[B](rng)
}

// NewBetaSchedule creates a schedule; DefaultBetaSchedule uses the defaults.
func NewBetaSchedule(initial, decay, floor float64) *BetaSchedule {
	return pointnet.NewBetaSchedule(initial, decay, floor)
}

// DefaultBetaSchedule returns a schedule starting at 1 and decaying by 0.99
// down to 0.001.
func DefaultBetaSchedule() *BetaSchedule {
	return pointnet.DefaultBetaSchedule()
}

// NewPartLoss creates the part-segmentation loss.
func NewPartLoss[B tensor.Backend](backend B) *PartLoss[B] {
	return pointnet.NewPartLoss(backend)
}

// NewSelfSupervisedLoss creates the pairwise embedding loss.
func NewSelfSupervisedLoss[B tensor.Backend](rng *rand.Rand) *SelfSupervisedLoss[B] {
	return pointnet.NewSelfSupervisedLoss[B](rng)
}

// DefaultGeneratorConfig returns an AtlasNet generator config for
// latentDim-wide embeddings.
func DefaultGeneratorConfig(latentDim int) GeneratorConfig {
	return reconstruct.DefaultGeneratorConfig(latentDim)
}

// NewGenerator builds an AtlasNet generator.
func NewGenerator[B tensor.Backend](cfg GeneratorConfig, backend B) (*AtlasGenerator[B], error) {
	return reconstruct.NewGenerator(cfg, backend)
}

// NewChamferDistance creates the Chamfer reconstruction distance.
func NewChamferDistance[B tensor.Backend]() *ChamferDistance[B] {
	return reconstruct.NewChamferDistance[B]()
}
