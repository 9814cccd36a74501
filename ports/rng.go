package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// ReplicateStream creates a deterministic RNG stream for one bootstrap
	// replicate of a run. The same (runID, stage, replicate, baseSeed) always
	// yields an identical stream, so resamples reproduce exactly.
	ReplicateStream(ctx context.Context, runID, stage string, replicate int, baseSeed int64) (*rand.Rand, error)
}
