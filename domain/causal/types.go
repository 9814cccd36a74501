package causal

import (
	"fmt"
	"math"

	"gocausal/domain/core"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// Unit is a single observed subject: a binary treatment indicator, an ordered
// covariate vector aligned to the dataset's covariate names, a primary
// outcome, and an optional secondary outcome.
//
// INVARIANTS:
// - Covariates has the same arity as the owning dataset's covariate names
// - A Unit is never mutated after dataset construction
type Unit struct {
	Treated    bool      `json:"treated"`
	Covariates []float64 `json:"covariates"`
	Outcome    float64   `json:"outcome"`
	Outcome2   *float64  `json:"outcome2,omitempty"`
}

// TreatmentIndicator returns the unit's treatment as a 0/1 float
func (u Unit) TreatmentIndicator() float64 {
	if u.Treated {
		return 1
	}
	return 0
}

// OutcomeField selects which outcome column an estimator reads
type OutcomeField string

const (
	OutcomePrimary   OutcomeField = "primary"
	OutcomeSecondary OutcomeField = "secondary"
)

// Dataset is a fixed-order, read-only collection of units with named
// covariates. Order is part of the identity: reruns over the same dataset
// must see the same unit sequence.
type Dataset struct {
	covariateNames []core.CovariateKey
	units          []Unit
	treatedCount   int
}

// NewDataset validates and constructs a dataset. Covariate vectors are copied
// so later mutation of the caller's slices cannot reach the dataset.
func NewDataset(covariateNames []core.CovariateKey, units []Unit) (*Dataset, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("dataset requires at least one unit")
	}
	for _, name := range covariateNames {
		if name == "" {
			return nil, fmt.Errorf("covariate names must be non-empty")
		}
	}
	seen := make(map[core.CovariateKey]bool, len(covariateNames))
	for _, name := range covariateNames {
		if seen[name] {
			return nil, fmt.Errorf("duplicate covariate name %q", name)
		}
		seen[name] = true
	}

	copied := make([]Unit, len(units))
	treated := 0
	for i, u := range units {
		if len(u.Covariates) != len(covariateNames) {
			return nil, fmt.Errorf("unit %d has %d covariates, dataset declares %d",
				i, len(u.Covariates), len(covariateNames))
		}
		for j, v := range u.Covariates {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("unit %d covariate %q is not finite", i, covariateNames[j])
			}
		}
		cov := make([]float64, len(u.Covariates))
		copy(cov, u.Covariates)
		copied[i] = Unit{
			Treated:    u.Treated,
			Covariates: cov,
			Outcome:    u.Outcome,
			Outcome2:   u.Outcome2,
		}
		if u.Treated {
			treated++
		}
	}
	if treated == 0 || treated == len(units) {
		return nil, fmt.Errorf("dataset requires units in both treatment arms (treated=%d of %d)",
			treated, len(units))
	}

	names := make([]core.CovariateKey, len(covariateNames))
	copy(names, covariateNames)

	return &Dataset{
		covariateNames: names,
		units:          copied,
		treatedCount:   treated,
	}, nil
}

// MustNewDataset constructs a dataset or panics. Test and fixture use only.
func MustNewDataset(covariateNames []core.CovariateKey, units []Unit) *Dataset {
	ds, err := NewDataset(covariateNames, units)
	if err != nil {
		panic(err)
	}
	return ds
}

// Len returns the number of units
func (d *Dataset) Len() int { return len(d.units) }

// TreatedCount returns the number of treated units
func (d *Dataset) TreatedCount() int { return d.treatedCount }

// ControlCount returns the number of control units
func (d *Dataset) ControlCount() int { return len(d.units) - d.treatedCount }

// CovariateNames returns the covariate names in declaration order.
// The returned slice is a copy.
func (d *Dataset) CovariateNames() []core.CovariateKey {
	names := make([]core.CovariateKey, len(d.covariateNames))
	copy(names, d.covariateNames)
	return names
}

// CovariateIndex returns the column index of a covariate name
func (d *Dataset) CovariateIndex(name core.CovariateKey) (int, bool) {
	for i, n := range d.covariateNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Unit returns the unit at index i. Callers must treat the unit as read-only.
func (d *Dataset) Unit(i int) Unit { return d.units[i] }

// Column extracts one covariate column in dataset order
func (d *Dataset) Column(name core.CovariateKey) ([]float64, error) {
	idx, ok := d.CovariateIndex(name)
	if !ok {
		return nil, fmt.Errorf("unknown covariate %q", name)
	}
	col := make([]float64, len(d.units))
	for i, u := range d.units {
		col[i] = u.Covariates[idx]
	}
	return col, nil
}

// Outcomes extracts the selected outcome column in dataset order. Requesting
// the secondary outcome fails if any unit lacks one.
func (d *Dataset) Outcomes(field OutcomeField) ([]float64, error) {
	out := make([]float64, len(d.units))
	switch field {
	case OutcomePrimary:
		for i, u := range d.units {
			out[i] = u.Outcome
		}
	case OutcomeSecondary:
		for i, u := range d.units {
			if u.Outcome2 == nil {
				return nil, fmt.Errorf("unit %d has no secondary outcome", i)
			}
			out[i] = *u.Outcome2
		}
	default:
		return nil, fmt.Errorf("unknown outcome field %q", field)
	}
	return out, nil
}

// TreatmentIndicators returns the 0/1 treatment column in dataset order
func (d *Dataset) TreatmentIndicators() []float64 {
	t := make([]float64, len(d.units))
	for i, u := range d.units {
		t[i] = u.TreatmentIndicator()
	}
	return t
}

// Resample builds a new dataset from the given unit indices (with repeats
// allowed), preserving covariate names. The source dataset is untouched.
// Resamples that land entirely in one arm are rejected, matching dataset
// construction rules.
func (d *Dataset) Resample(indices []int) (*Dataset, error) {
	units := make([]Unit, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(d.units) {
			return nil, fmt.Errorf("resample index %d out of range [0,%d)", idx, len(d.units))
		}
		units[i] = d.units[idx]
	}
	return NewDataset(d.covariateNames, units)
}

// ============================================================================
// PROPENSITY
// ============================================================================

// DefaultEpsilon is the default clamp bound for propensity scores
const DefaultEpsilon = 1e-6

// PropensityLink selects the fitting strategy for the treatment model
type PropensityLink string

const (
	LinkLogistic PropensityLink = "logistic" // linear-in-covariates binomial link
	LinkSmooth   PropensityLink = "smooth"   // additive per-covariate smoothing terms
)

// CovariateSpec names the covariates a model fit may use, in order, and the
// clamp bound applied to predicted probabilities.
type CovariateSpec struct {
	Covariates []core.CovariateKey `json:"covariates"`
	Epsilon    float64             `json:"epsilon"`
}

// NewCovariateSpec builds a spec over the given covariates with the default clamp
func NewCovariateSpec(covariates ...core.CovariateKey) CovariateSpec {
	return CovariateSpec{Covariates: covariates, Epsilon: DefaultEpsilon}
}

// ClampBound returns the effective epsilon, falling back to the default
func (s CovariateSpec) ClampBound() float64 {
	if s.Epsilon <= 0 || s.Epsilon >= 0.5 {
		return DefaultEpsilon
	}
	return s.Epsilon
}

// ClampScore bounds a probability away from 0 and 1 so every downstream
// weight formula stays finite.
func ClampScore(p, eps float64) float64 {
	if eps <= 0 || eps >= 0.5 {
		eps = DefaultEpsilon
	}
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
