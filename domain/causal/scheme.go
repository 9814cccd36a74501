package causal

import (
	"fmt"
)

// SchemeKind enumerates the closed set of weighting families. Adding a kind
// requires extending the weight engine's dispatch, which fails loudly on
// unknown kinds rather than guessing.
type SchemeKind string

const (
	SchemeIPTW       SchemeKind = "iptw"
	SchemeStabilized SchemeKind = "stabilized_iptw"
	SchemeOverlap    SchemeKind = "overlap"
	SchemeMatching   SchemeKind = "matching"
	SchemeEntropy    SchemeKind = "entropy"
	SchemeTrimmed    SchemeKind = "trimmed"
)

// TrimPolicyKind selects how a Trimmed scheme decides which units to drop
type TrimPolicyKind string

const (
	// TrimRange drops units whose propensity falls outside a fixed [Low, High]
	TrimRange TrimPolicyKind = "range"
	// TrimQuantile drops units past arm-wise symmetric propensity quantiles
	// (Sturmer-style: lower cut from the treated arm's distribution, upper
	// cut from the control arm's)
	TrimQuantile TrimPolicyKind = "quantile"
)

// DefaultTrimQuantile is the default symmetric quantile cut
const DefaultTrimQuantile = 0.05

// TrimPolicy configures trimming for a Trimmed scheme
type TrimPolicy struct {
	Kind     TrimPolicyKind `json:"kind"`
	Low      float64        `json:"low,omitempty"`      // range: lower propensity bound
	High     float64        `json:"high,omitempty"`     // range: upper propensity bound
	Quantile float64        `json:"quantile,omitempty"` // quantile: symmetric cut in (0, 0.5)
}

// Validate checks the policy's parameters
func (p TrimPolicy) Validate() error {
	switch p.Kind {
	case TrimRange:
		if !(p.Low >= 0 && p.High <= 1 && p.Low < p.High) {
			return fmt.Errorf("range trim requires 0 <= low < high <= 1, got [%g, %g]", p.Low, p.High)
		}
	case TrimQuantile:
		if !(p.Quantile > 0 && p.Quantile < 0.5) {
			return fmt.Errorf("quantile trim requires q in (0, 0.5), got %g", p.Quantile)
		}
	default:
		return fmt.Errorf("unknown trim policy kind %q", p.Kind)
	}
	return nil
}

// WeightScheme is a tagged variant over the weighting families. Trimmed wraps
// a base scheme plus a trim policy; all other kinds stand alone.
type WeightScheme struct {
	Kind SchemeKind    `json:"kind"`
	Base *WeightScheme `json:"base,omitempty"` // set only for Trimmed
	Trim *TrimPolicy   `json:"trim,omitempty"` // set only for Trimmed
}

// Scheme constructors

func IPTW() WeightScheme           { return WeightScheme{Kind: SchemeIPTW} }
func StabilizedIPTW() WeightScheme { return WeightScheme{Kind: SchemeStabilized} }
func Overlap() WeightScheme        { return WeightScheme{Kind: SchemeOverlap} }
func Matching() WeightScheme       { return WeightScheme{Kind: SchemeMatching} }
func Entropy() WeightScheme        { return WeightScheme{Kind: SchemeEntropy} }

// Trimmed wraps a base scheme with a trim policy
func Trimmed(base WeightScheme, policy TrimPolicy) WeightScheme {
	b := base
	p := policy
	return WeightScheme{Kind: SchemeTrimmed, Base: &b, Trim: &p}
}

// TrimmedRange is shorthand for a fixed-range trim over a base scheme
func TrimmedRange(base WeightScheme, low, high float64) WeightScheme {
	return Trimmed(base, TrimPolicy{Kind: TrimRange, Low: low, High: high})
}

// TrimmedQuantile is shorthand for a symmetric quantile trim over a base scheme
func TrimmedQuantile(base WeightScheme, q float64) WeightScheme {
	return Trimmed(base, TrimPolicy{Kind: TrimQuantile, Quantile: q})
}

// Validate checks the scheme's structure
func (s WeightScheme) Validate() error {
	switch s.Kind {
	case SchemeIPTW, SchemeStabilized, SchemeOverlap, SchemeMatching, SchemeEntropy:
		if s.Base != nil || s.Trim != nil {
			return fmt.Errorf("scheme %q must not carry a base or trim policy", s.Kind)
		}
		return nil
	case SchemeTrimmed:
		if s.Base == nil || s.Trim == nil {
			return fmt.Errorf("trimmed scheme requires a base scheme and a trim policy")
		}
		if s.Base.Kind == SchemeTrimmed {
			return fmt.Errorf("trimmed schemes do not nest")
		}
		if err := s.Base.Validate(); err != nil {
			return err
		}
		return s.Trim.Validate()
	default:
		return fmt.Errorf("unknown weight scheme kind %q", s.Kind)
	}
}

// String renders the scheme for logs and error messages
func (s WeightScheme) String() string {
	if s.Kind == SchemeTrimmed && s.Base != nil && s.Trim != nil {
		switch s.Trim.Kind {
		case TrimRange:
			return fmt.Sprintf("trimmed(%s, range[%g,%g])", s.Base.Kind, s.Trim.Low, s.Trim.High)
		case TrimQuantile:
			return fmt.Sprintf("trimmed(%s, q=%g)", s.Base.Kind, s.Trim.Quantile)
		}
	}
	return string(s.Kind)
}

// NaturalEstimand maps a scheme to the population its weights target:
// IPTW and StabilizedIPTW reweight to the full population (ATE), Matching
// preserves the treated group (ATT), Overlap and Entropy target the overlap
// population (ATO). Trimmed inherits from its base.
func (s WeightScheme) NaturalEstimand() Estimand {
	switch s.Kind {
	case SchemeIPTW, SchemeStabilized:
		return EstimandATE
	case SchemeMatching:
		return EstimandATT
	case SchemeOverlap, SchemeEntropy:
		return EstimandATO
	case SchemeTrimmed:
		if s.Base != nil {
			return s.Base.NaturalEstimand()
		}
	}
	return EstimandATE
}

// WeightVector pairs a scheme with one positive finite weight per unit, in
// dataset order. A trimmed-out unit carries weight 0 and Excluded[i] = true.
//
// INVARIANTS:
// - len(Values) equals the dataset length the vector was computed from
// - every non-excluded weight is > 0 and finite
// - partial vectors never exist: a failed unit fails the whole computation
type WeightVector struct {
	Scheme   WeightScheme `json:"scheme"`
	Values   []float64    `json:"values"`
	Excluded []bool       `json:"excluded,omitempty"` // nil when nothing was trimmed
}

// Len returns the number of units the vector covers
func (w *WeightVector) Len() int { return len(w.Values) }

// ExcludedCount returns how many units trimming removed
func (w *WeightVector) ExcludedCount() int {
	n := 0
	for _, ex := range w.Excluded {
		if ex {
			n++
		}
	}
	return n
}
