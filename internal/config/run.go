// Package config loads the pointseg command's JSON run configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/born-ml/pointseg/internal/pointnet"
	"github.com/born-ml/pointseg/internal/reconstruct"
)

// maxFileSize bounds config files read from disk.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// RunConfig holds optional overrides for a run. Nil fields keep the
// defaults of the value they are applied to, so partial files are safe.
type RunConfig struct {
	// Model params
	NumParts      *int     `json:"num_parts,omitempty"`
	NormalChannel *bool    `json:"normal_channel,omitempty"`
	L2Norm        *bool    `json:"l2_norm,omitempty"`
	Dropout       *float64 `json:"dropout,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`

	// Convex loss params
	IfCuboid             *bool    `json:"if_cuboid,omitempty"`
	Quantile             *float64 `json:"quantile,omitempty"`
	IncludePruning       *bool    `json:"include_pruning,omitempty"`
	IncludeIntersectLoss *bool    `json:"include_intersect_loss,omitempty"`
	IncludeEntropyLoss   *bool    `json:"include_entropy_loss,omitempty"`
	Iterations           *int     `json:"msc_iterations,omitempty"`
	MaxNumClusters       *int     `json:"max_num_clusters,omitempty"`
	Alpha                *float64 `json:"alpha,omitempty"`

	// Reconstruction params
	GeneratorPoints     *int `json:"generator_points,omitempty"`
	GeneratorPrimitives *int `json:"generator_primitives,omitempty"`
}

// Load reads a RunConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *RunConfig) Validate() error {
	if c.NumParts != nil && *c.NumParts < 1 {
		return fmt.Errorf("num_parts must be positive, got %d", *c.NumParts)
	}
	if c.Dropout != nil && (*c.Dropout < 0 || *c.Dropout >= 1) {
		return fmt.Errorf("dropout must be in [0, 1), got %f", *c.Dropout)
	}
	if c.GeneratorPoints != nil && *c.GeneratorPoints < 1 {
		return fmt.Errorf("generator_points must be positive, got %d", *c.GeneratorPoints)
	}
	if c.GeneratorPrimitives != nil && *c.GeneratorPrimitives < 1 {
		return fmt.Errorf("generator_primitives must be positive, got %d", *c.GeneratorPrimitives)
	}
	opts := pointnet.DefaultConvexOptions()
	c.ApplyConvex(&opts)
	return opts.Validate()
}

// ApplyModel overwrites the model fields that are set.
func (c *RunConfig) ApplyModel(m *pointnet.Config) {
	setIfPresent(&m.NumParts, c.NumParts)
	setIfPresent(&m.NormalChannel, c.NormalChannel)
	setIfPresent(&m.L2Norm, c.L2Norm)
	setIfPresent(&m.Dropout, c.Dropout)
	setIfPresent(&m.Seed, c.Seed)
}

// ApplyConvex overwrites the convex knobs that are set.
func (c *RunConfig) ApplyConvex(o *pointnet.ConvexOptions) {
	setIfPresent(&o.IfCuboid, c.IfCuboid)
	setIfPresent(&o.Quantile, c.Quantile)
	setIfPresent(&o.IncludePruning, c.IncludePruning)
	setIfPresent(&o.IncludeIntersectLoss, c.IncludeIntersectLoss)
	setIfPresent(&o.IncludeEntropyLoss, c.IncludeEntropyLoss)
	setIfPresent(&o.Iterations, c.Iterations)
	setIfPresent(&o.MaxNumClusters, c.MaxNumClusters)
	setIfPresent(&o.Alpha, c.Alpha)
}

// ApplyGenerator overwrites the generator fields that are set.
func (c *RunConfig) ApplyGenerator(g *reconstruct.GeneratorConfig) {
	setIfPresent(&g.Points, c.GeneratorPoints)
	setIfPresent(&g.Primitives, c.GeneratorPrimitives)
}

func setIfPresent[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
