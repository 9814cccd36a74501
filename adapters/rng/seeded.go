package rng

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SeededAdapter derives independent deterministic rand streams from a base
// seed plus a stream name. Streams for distinct names never share state, so
// parallel bootstrap replicates stay reproducible regardless of scheduling.
type SeededAdapter struct{}

// NewSeededAdapter creates the adapter
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// SeededStream creates a deterministic RNG for a named operation
func (a *SeededAdapter) SeededStream(_ context.Context, name string, seed int64) (*rand.Rand, error) {
	if name == "" {
		return nil, fmt.Errorf("stream name cannot be empty")
	}
	return rand.New(rand.NewSource(deriveSeed(name, seed))), nil
}

// ReplicateStream creates a deterministic RNG for one bootstrap replicate
func (a *SeededAdapter) ReplicateStream(_ context.Context, runID, stage string, replicate int, baseSeed int64) (*rand.Rand, error) {
	if runID == "" || stage == "" {
		return nil, fmt.Errorf("runID and stage cannot be empty")
	}
	name := fmt.Sprintf("%s/%s/%d", runID, stage, replicate)
	return rand.New(rand.NewSource(deriveSeed(name, baseSeed))), nil
}

// deriveSeed mixes the stream name into the base seed with FNV-1a
func deriveSeed(name string, seed int64) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	fmt.Fprintf(h, "|%d", seed)
	return int64(h.Sum64())
}
