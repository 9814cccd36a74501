package weights

import (
	"math"

	"github.com/montanaflynn/stats"

	"gocausal/domain/causal"
	"gocausal/internal/errors"
)

// Compute returns the weight for one unit under a scheme that needs no
// dataset-level statistics. StabilizedIPTW needs the marginal propensity
// means (see ComputeStabilized) and Trimmed needs the full score vector
// (see ComputeVector); both are rejected here.
//
// Formulas, with T=1 treated:
//
//	IPTW:     1/p            | 1/(1-p)
//	Overlap:  1-p            | p
//	Matching: min(p,1-p)/p   | min(p,1-p)/(1-p)
//	Entropy:  H(p)/p         | H(p)/(1-p),  H(p) = -p*ln(p) - (1-p)*ln(1-p)
func Compute(p float64, treated bool, scheme causal.WeightScheme) (float64, error) {
	if err := checkScore(p); err != nil {
		return 0, err
	}
	switch scheme.Kind {
	case causal.SchemeIPTW:
		if treated {
			return 1 / p, nil
		}
		return 1 / (1 - p), nil
	case causal.SchemeOverlap:
		if treated {
			return 1 - p, nil
		}
		return p, nil
	case causal.SchemeMatching:
		m := math.Min(p, 1-p)
		if treated {
			return m / p, nil
		}
		return m / (1 - p), nil
	case causal.SchemeEntropy:
		h := binaryEntropy(p)
		if treated {
			return h / p, nil
		}
		return h / (1 - p), nil
	case causal.SchemeStabilized:
		return 0, errors.WeightComputation(
			"stabilized IPTW needs marginal propensity means; use ComputeStabilized or ComputeVector")
	case causal.SchemeTrimmed:
		return 0, errors.WeightComputation(
			"trimmed schemes need the full score vector; use ComputeVector")
	default:
		return 0, errors.WeightComputation("unknown weight scheme kind %q", scheme.Kind)
	}
}

// ComputeStabilized returns the stabilized IPTW weight given the marginal
// treatment probability meanP = mean(p) and meanQ = mean(1-p) over all units.
// The stabilization rescales each arm so its weights average to one without
// changing relative weighting inside the arm.
func ComputeStabilized(p float64, treated bool, meanP, meanQ float64) (float64, error) {
	if err := checkScore(p); err != nil {
		return 0, err
	}
	if meanP <= 0 || meanP >= 1 || meanQ <= 0 || meanQ >= 1 {
		return 0, errors.WeightComputation(
			"stabilization means outside (0,1): mean(p)=%g mean(1-p)=%g", meanP, meanQ)
	}
	if treated {
		return meanP / p, nil
	}
	return meanQ / (1 - p), nil
}

// ComputeVector maps per-unit propensity scores to a complete weight vector
// under the given scheme. Weights align one-to-one with dataset order; any
// invalid unit fails the whole pass, so a partial vector never escapes.
func ComputeVector(ds *causal.Dataset, scores []float64, scheme causal.WeightScheme) (*causal.WeightVector, error) {
	if err := scheme.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeWeightComputation, err)
	}
	if len(scores) != ds.Len() {
		return nil, errors.WeightComputation(
			"score vector has %d entries for %d units", len(scores), ds.Len())
	}

	if scheme.Kind == causal.SchemeTrimmed {
		return computeTrimmed(ds, scores, scheme)
	}

	values := make([]float64, ds.Len())

	var meanP, meanQ float64
	if scheme.Kind == causal.SchemeStabilized {
		m, err := stats.Mean(scores)
		if err != nil {
			return nil, errors.WithCode(errors.CodeWeightComputation, err)
		}
		meanP, meanQ = m, 1-m
	}

	for i := 0; i < ds.Len(); i++ {
		treated := ds.Unit(i).Treated
		var w float64
		var err error
		if scheme.Kind == causal.SchemeStabilized {
			w, err = ComputeStabilized(scores[i], treated, meanP, meanQ)
		} else {
			w, err = Compute(scores[i], treated, scheme)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "weight computation failed at unit %d (scheme %s)", i, scheme)
		}
		if w <= 0 || math.IsInf(w, 0) || math.IsNaN(w) {
			return nil, errors.WeightComputation(
				"unit %d: scheme %s produced non-positive or non-finite weight %g (p=%g)",
				i, scheme, w, scores[i])
		}
		values[i] = w
	}

	return &causal.WeightVector{Scheme: scheme, Values: values}, nil
}

// checkScore rejects probabilities at or beyond the open interval (0,1).
// Upstream clamping is required; a score at the boundary means no clamp was
// configured, which is reported rather than silently corrected.
func checkScore(p float64) error {
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return errors.WeightComputation(
			"propensity score %g at or beyond (0,1); clamp scores before weighting", p)
	}
	return nil
}

// binaryEntropy is H(p) in nats, strictly positive on (0,1)
func binaryEntropy(p float64) float64 {
	return -p*math.Log(p) - (1-p)*math.Log(1-p)
}
