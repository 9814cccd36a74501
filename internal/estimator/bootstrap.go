package estimator

import (
	"context"
	"sort"
	"sync"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal/errors"
	"gocausal/ports"
)

// Bootstrap defaults. 1000 replicates is the documented default; there is no
// canonical count, so it is configuration, not doctrine.
const (
	DefaultReplicates  = 1000
	DefaultParallelism = 4
	DefaultMaxSkipRate = 0.10
	DefaultConfidence  = 0.95
)

// BootstrapConfig controls resampling-based uncertainty for the doubly
// robust estimator
type BootstrapConfig struct {
	Replicates  int     // resamples to draw
	Parallelism int     // concurrent replicate fits
	MaxSkipRate float64 // failed-replicate fraction that fails the whole bootstrap
	Confidence  float64 // percentile interval coverage
	BaseSeed    int64   // seed for the per-replicate RNG streams
}

// DefaultBootstrapConfig returns the documented defaults
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		Replicates:  DefaultReplicates,
		Parallelism: DefaultParallelism,
		MaxSkipRate: DefaultMaxSkipRate,
		Confidence:  DefaultConfidence,
	}
}

func (c BootstrapConfig) withDefaults() BootstrapConfig {
	if c.Replicates <= 0 {
		c.Replicates = DefaultReplicates
	}
	if c.Parallelism <= 0 {
		c.Parallelism = DefaultParallelism
	}
	if c.MaxSkipRate <= 0 || c.MaxSkipRate > 1 {
		c.MaxSkipRate = DefaultMaxSkipRate
	}
	if c.Confidence <= 0 || c.Confidence >= 1 {
		c.Confidence = DefaultConfidence
	}
	return c
}

// BootstrapResult aggregates the replicate estimate distribution. Only the
// empirical distribution matters; replicate completion order does not.
type BootstrapResult struct {
	Estimates []float64 `json:"estimates"` // sorted completed replicate estimates
	StdErr    float64   `json:"std_err"`
	Lower     float64   `json:"lower"` // percentile interval bounds
	Upper     float64   `json:"upper"`
	Requested int       `json:"requested"`
	Completed int       `json:"completed"`
	Skipped   int       `json:"skipped"`
	Cancelled bool      `json:"cancelled"` // run was aborted; stats cover the partial sample
}

// BootstrapDR estimates the sampling distribution of the doubly robust ATE by
// refitting the full pipeline (propensity fit, outcome fits, AIPW estimate)
// on with-replacement resamples.
//
// Replicates run in parallel with no shared mutable state; each draws its
// indices from an independent seeded stream, so results reproduce for a given
// (runID, base seed) regardless of scheduling. A replicate whose model fit
// fails is skipped and counted, not fatal, unless the skip rate crosses
// MaxSkipRate. Cancelling the context stops new replicates but keeps every
// already-collected estimate; the partial distribution remains usable.
func BootstrapDR(
	ctx context.Context,
	runID core.RunID,
	ds *causal.Dataset,
	propFitter ports.PropensityFitter,
	outFitter ports.OutcomeFitter,
	spec causal.CovariateSpec,
	field causal.OutcomeField,
	rng ports.RNGPort,
	cfg BootstrapConfig,
) (*BootstrapResult, error) {
	if propFitter == nil || outFitter == nil {
		return nil, errors.Bootstrap("bootstrap requires propensity and outcome fitters")
	}
	if rng == nil {
		return nil, errors.Bootstrap("bootstrap requires an RNG port")
	}
	cfg = cfg.withDefaults()

	var mu sync.Mutex
	estimates := make([]float64, 0, cfg.Replicates)
	skipped := 0

	g := new(errgroup.Group)
	g.SetLimit(cfg.Parallelism)

	for r := 0; r < cfg.Replicates; r++ {
		if ctx.Err() != nil {
			break
		}
		replicate := r
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			est, err := runReplicate(ctx, runID, replicate, ds, propFitter, outFitter, spec, field, rng, cfg.BaseSeed)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				skipped++
				return nil
			}
			estimates = append(estimates, est)
			return nil
		})
	}
	_ = g.Wait()

	sort.Float64s(estimates)
	result := &BootstrapResult{
		Estimates: estimates,
		Requested: cfg.Replicates,
		Completed: len(estimates),
		Skipped:   skipped,
		Cancelled: ctx.Err() != nil,
	}

	attempted := result.Completed + result.Skipped
	if !result.Cancelled && attempted > 0 {
		if rate := float64(result.Skipped) / float64(attempted); rate > cfg.MaxSkipRate {
			return nil, errors.Bootstrap(
				"%d of %d replicates failed to fit (%.0f%% > %.0f%% allowed)",
				result.Skipped, attempted, rate*100, cfg.MaxSkipRate*100)
		}
	}
	if result.Completed < 2 {
		if result.Cancelled {
			return result, nil
		}
		return nil, errors.Bootstrap("only %d replicates completed; cannot summarize a distribution", result.Completed)
	}

	se, err := stats.StandardDeviationSample(result.Estimates)
	if err != nil {
		return nil, errors.WithCode(errors.CodeBootstrap, err)
	}
	alpha := (1 - cfg.Confidence) / 2
	lower, err := stats.Percentile(result.Estimates, alpha*100)
	if err != nil {
		return nil, errors.WithCode(errors.CodeBootstrap, err)
	}
	upper, err := stats.Percentile(result.Estimates, (1-alpha)*100)
	if err != nil {
		return nil, errors.WithCode(errors.CodeBootstrap, err)
	}
	result.StdErr = se
	result.Lower = lower
	result.Upper = upper
	return result, nil
}

// runReplicate draws one resample and reruns the full pipeline on it
func runReplicate(
	ctx context.Context,
	runID core.RunID,
	replicate int,
	ds *causal.Dataset,
	propFitter ports.PropensityFitter,
	outFitter ports.OutcomeFitter,
	spec causal.CovariateSpec,
	field causal.OutcomeField,
	rng ports.RNGPort,
	baseSeed int64,
) (float64, error) {
	stream, err := rng.ReplicateStream(ctx, runID.String(), "bootstrap", replicate, baseSeed)
	if err != nil {
		return 0, err
	}

	n := ds.Len()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = stream.Intn(n)
	}
	resample, err := ds.Resample(indices)
	if err != nil {
		return 0, err
	}

	model, err := propFitter.Fit(resample, spec)
	if err != nil {
		return 0, err
	}
	mu0, err := outFitter.FitArm(resample, spec, false, field)
	if err != nil {
		return 0, err
	}
	mu1, err := outFitter.FitArm(resample, spec, true, field)
	if err != nil {
		return 0, err
	}

	dr := &DoublyRobust{Propensity: model, Outcome0: mu0, Outcome1: mu1}
	res, err := dr.Estimate(resample, field)
	if err != nil {
		return 0, err
	}
	return res.Estimate, nil
}
