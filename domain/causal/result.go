package causal

import (
	"fmt"

	"gocausal/domain/core"
)

// Estimand tags which population a treatment effect speaks for
type Estimand string

const (
	EstimandATE Estimand = "ATE" // full population
	EstimandATT Estimand = "ATT" // treated subpopulation
	EstimandATO Estimand = "ATO" // overlap population
)

// EstimationResult is a treatment-effect point estimate with uncertainty.
// It is a derived, read-only artifact: recomputed per run, never persisted
// as state. It carries no timestamp so identical inputs produce bit-identical
// results.
type EstimationResult struct {
	Estimate            float64  `json:"estimate"`
	StdErr              float64  `json:"std_err"`
	Estimand            Estimand `json:"estimand"`
	EffectiveSampleSize float64  `json:"effective_sample_size"`
	SampleSize          int      `json:"sample_size"`
	Method              string   `json:"method"` // e.g. "weighted_difference", "aipw"
}

// Validate checks result invariants
func (r *EstimationResult) Validate() error {
	if r.StdErr < 0 {
		return fmt.Errorf("standard error must be >= 0, got %g", r.StdErr)
	}
	if r.SampleSize <= 0 {
		return fmt.Errorf("sample size must be > 0, got %d", r.SampleSize)
	}
	if r.EffectiveSampleSize < 0 || r.EffectiveSampleSize > float64(r.SampleSize) {
		return fmt.Errorf("effective sample size %g outside [0, %d]", r.EffectiveSampleSize, r.SampleSize)
	}
	switch r.Estimand {
	case EstimandATE, EstimandATT, EstimandATO:
	default:
		return fmt.Errorf("unknown estimand %q", r.Estimand)
	}
	return nil
}

// BalanceEntry is one covariate's standardized mean difference, before and
// after weighting, against the report's threshold.
type BalanceEntry struct {
	Covariate     core.CovariateKey `json:"covariate"`
	UnweightedSMD float64           `json:"unweighted_smd"`
	WeightedSMD   float64           `json:"weighted_smd"`
	Balanced      bool              `json:"balanced"` // |weighted SMD| <= threshold
}

// BalanceReport maps every covariate to its balance diagnostics under one
// weighting scheme. Entries follow dataset covariate order.
type BalanceReport struct {
	Scheme     WeightScheme   `json:"scheme"`
	Threshold  float64        `json:"threshold"`
	Entries    []BalanceEntry `json:"entries"`
	ComputedAt core.Timestamp `json:"computed_at"`
}

// DefaultBalanceThreshold is the conventional SMD threshold
const DefaultBalanceThreshold = 0.1

// Entry looks up one covariate's balance entry
func (r *BalanceReport) Entry(name core.CovariateKey) (BalanceEntry, bool) {
	for _, e := range r.Entries {
		if e.Covariate == name {
			return e, true
		}
	}
	return BalanceEntry{}, false
}

// AllBalanced reports whether every covariate meets the threshold
func (r *BalanceReport) AllBalanced() bool {
	for _, e := range r.Entries {
		if !e.Balanced {
			return false
		}
	}
	return true
}

// Imbalanced returns the covariates that miss the threshold
func (r *BalanceReport) Imbalanced() []core.CovariateKey {
	var out []core.CovariateKey
	for _, e := range r.Entries {
		if !e.Balanced {
			out = append(out, e.Covariate)
		}
	}
	return out
}
