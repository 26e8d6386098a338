package pointnet

import (
	"fmt"
)

// NumCategories is the size of the object-category vocabulary.
const NumCategories = 16

// Scale is one neighbourhood of a multi-scale grouping stage.
type Scale struct {
	Radius     float64 // ball radius in input units
	NumSamples int     // neighbours gathered per centroid
	MLP        []int   // shared MLP output widths
}

// MSGStage configures one multi-scale set abstraction.
type MSGStage struct {
	NumCentroids int
	Scales       []Scale
}

// outChannels returns the concatenated width of all scales.
func (s MSGStage) outChannels() int {
	n := 0
	for _, sc := range s.Scales {
		n += sc.MLP[len(sc.MLP)-1]
	}
	return n
}

// Config describes the network architecture.
//
// Layer input widths are derived from the stage widths and the input
// channel count, so changing one stage never requires editing another.
type Config struct {
	// NumParts is the number of part classes predicted per point.
	NumParts int

	// NormalChannel selects 6 input channels (xyz + normals) instead of 3.
	NormalChannel bool

	// L2Norm normalises the convex-path embedding along channels.
	L2Norm bool

	SA1 MSGStage
	SA2 MSGStage

	// GlobalMLP is the shared MLP of the group-all stage.
	GlobalMLP []int

	FP3 []int
	FP2 []int
	FP1 []int

	// Dropout is the head dropout probability (training only).
	Dropout float64

	// Seed drives weight initialisation, point sampling and dropout masks.
	Seed int64
}

// DefaultConfig returns the PointNet++ MSG part-segmentation architecture.
func DefaultConfig(numParts int, normalChannel bool) Config {
	return Config{
		NumParts:      numParts,
		NormalChannel: normalChannel,
		L2Norm:        true,
		SA1: MSGStage{
			NumCentroids: 512,
			Scales: []Scale{
				{Radius: 0.1, NumSamples: 32, MLP: []int{32, 32, 64}},
				{Radius: 0.2, NumSamples: 64, MLP: []int{64, 64, 128}},
				{Radius: 0.4, NumSamples: 128, MLP: []int{64, 96, 128}},
			},
		},
		SA2: MSGStage{
			NumCentroids: 128,
			Scales: []Scale{
				{Radius: 0.4, NumSamples: 64, MLP: []int{128, 128, 256}},
				{Radius: 0.8, NumSamples: 128, MLP: []int{128, 196, 256}},
			},
		},
		GlobalMLP: []int{256, 512, 1024},
		FP3:       []int{256, 256},
		FP2:       []int{256, 128},
		FP1:       []int{128, 128},
		Dropout:   0.5,
		Seed:      1,
	}
}

// InputChannels returns 6 when normals are enabled, 3 otherwise.
func (c Config) InputChannels() int {
	if c.NormalChannel {
		return 6
	}
	return 3
}

// EmbeddingChannels returns the width of the embedding feature map.
func (c Config) EmbeddingChannels() int {
	return c.FP1[len(c.FP1)-1]
}

// Validate reports the first structural problem in c.
func (c Config) Validate() error {
	if c.NumParts < 1 {
		return fmt.Errorf("%w: NumParts must be positive, got %d", ErrInvalidConfig, c.NumParts)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("%w: Dropout must be in [0, 1), got %v", ErrInvalidConfig, c.Dropout)
	}
	stages := []struct {
		name  string
		stage MSGStage
	}{{"SA1", c.SA1}, {"SA2", c.SA2}}
	for _, st := range stages {
		name, stage := st.name, st.stage
		if stage.NumCentroids < 1 {
			return fmt.Errorf("%w: %s.NumCentroids must be positive", ErrInvalidConfig, name)
		}
		if len(stage.Scales) == 0 {
			return fmt.Errorf("%w: %s needs at least one scale", ErrInvalidConfig, name)
		}
		for i, sc := range stage.Scales {
			if sc.Radius <= 0 || sc.NumSamples < 1 || !validWidths(sc.MLP) {
				return fmt.Errorf("%w: %s scale %d must have positive radius, samples and widths", ErrInvalidConfig, name, i)
			}
		}
	}
	mlps := []struct {
		name   string
		widths []int
	}{{"GlobalMLP", c.GlobalMLP}, {"FP3", c.FP3}, {"FP2", c.FP2}, {"FP1", c.FP1}}
	for _, m := range mlps {
		if !validWidths(m.widths) {
			return fmt.Errorf("%w: %s needs positive widths", ErrInvalidConfig, m.name)
		}
	}
	return nil
}

func validWidths(widths []int) bool {
	if len(widths) == 0 {
		return false
	}
	for _, w := range widths {
		if w < 1 {
			return false
		}
	}
	return true
}
