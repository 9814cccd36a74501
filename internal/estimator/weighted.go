package estimator

import (
	"math"

	"gocausal/domain/causal"
	"gocausal/internal/errors"
)

// Estimate computes the weighted treatment-effect point estimate: the
// difference of weighted outcome means between treated and control, with a
// weighting-aware standard error.
//
// Variance: linearization (HC-style sandwich) of each arm's weighted mean,
//
//	Var_arm = sum w_i^2 (y_i - ybar_arm)^2 / (sum_arm w_i)^2
//	SE      = sqrt(Var_treated + Var_control)
//
// Units with large weights contribute quadratically, so weight concentration
// inflates the reported uncertainty instead of being assumed away.
//
// The estimand tag is carried through for interpretation; it does not change
// the formula. Effective sample size is (sum w)^2 / (sum w^2) over all units.
// The computation is fully deterministic: identical inputs give bit-identical
// results.
func Estimate(ds *causal.Dataset, wv *causal.WeightVector, field causal.OutcomeField, estimand causal.Estimand) (*causal.EstimationResult, error) {
	if wv == nil {
		return nil, errors.InvalidInput("weighted estimation requires a weight vector")
	}
	if wv.Len() != ds.Len() {
		return nil, errors.InvalidInput("weight vector length does not match dataset")
	}
	switch estimand {
	case causal.EstimandATE, causal.EstimandATT, causal.EstimandATO:
	default:
		return nil, errors.InvalidInput("unknown estimand " + string(estimand))
	}

	outcomes, err := ds.Outcomes(field)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}

	var sumWT, sumWC, meanT, meanC float64
	for i, y := range outcomes {
		w := wv.Values[i]
		if ds.Unit(i).Treated {
			sumWT += w
			meanT += w * y
		} else {
			sumWC += w
			meanC += w * y
		}
	}
	if sumWT <= 0 {
		return nil, errors.Trimming("treated arm has zero total weight under scheme %s", wv.Scheme)
	}
	if sumWC <= 0 {
		return nil, errors.Trimming("control arm has zero total weight under scheme %s", wv.Scheme)
	}
	meanT /= sumWT
	meanC /= sumWC

	var varT, varC float64
	for i, y := range outcomes {
		w := wv.Values[i]
		if ds.Unit(i).Treated {
			d := y - meanT
			varT += w * w * d * d
		} else {
			d := y - meanC
			varC += w * w * d * d
		}
	}
	varT /= sumWT * sumWT
	varC /= sumWC * sumWC

	return &causal.EstimationResult{
		Estimate:            meanT - meanC,
		StdErr:              math.Sqrt(varT + varC),
		Estimand:            estimand,
		EffectiveSampleSize: EffectiveSampleSize(wv.Values),
		SampleSize:          ds.Len(),
		Method:              "weighted_difference",
	}, nil
}

// EffectiveSampleSize is Kish's (sum w)^2 / (sum w^2), the sample size an
// equal-weight design with the same variance would have
func EffectiveSampleSize(weights []float64) float64 {
	var sum, sumSq float64
	for _, w := range weights {
		sum += w
		sumSq += w * w
	}
	if sumSq == 0 {
		return 0
	}
	return sum * sum / sumSq
}
