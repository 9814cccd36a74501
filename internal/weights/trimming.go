package weights

import (
	"github.com/montanaflynn/stats"

	"gocausal/domain/causal"
	"gocausal/internal/errors"
)

// computeTrimmed computes the base scheme's weights, then zeroes out units
// whose propensity falls outside the policy's bounds. Excluded units stay in
// the vector with weight 0 so alignment with the dataset is preserved.
func computeTrimmed(ds *causal.Dataset, scores []float64, scheme causal.WeightScheme) (*causal.WeightVector, error) {
	base, err := ComputeVector(ds, scores, *scheme.Base)
	if err != nil {
		return nil, err
	}

	low, high, err := trimBounds(ds, scores, *scheme.Trim)
	if err != nil {
		return nil, err
	}

	values := make([]float64, ds.Len())
	excluded := make([]bool, ds.Len())
	keptTreated, keptControl := 0, 0
	for i := 0; i < ds.Len(); i++ {
		if scores[i] < low || scores[i] > high {
			excluded[i] = true
			continue
		}
		values[i] = base.Values[i]
		if ds.Unit(i).Treated {
			keptTreated++
		} else {
			keptControl++
		}
	}

	if keptTreated == 0 {
		return nil, errors.Trimming(
			"trim policy %s removed the entire treated arm (%d units)", scheme, ds.TreatedCount())
	}
	if keptControl == 0 {
		return nil, errors.Trimming(
			"trim policy %s removed the entire control arm (%d units)", scheme, ds.ControlCount())
	}

	return &causal.WeightVector{Scheme: scheme, Values: values, Excluded: excluded}, nil
}

// trimBounds resolves a policy to a concrete [low, high] propensity window.
// Range policies use their configured bounds directly. Quantile policies take
// the lower cut from the treated arm's propensity distribution and the upper
// cut from the control arm's, the asymmetry Sturmer-style trimming uses: the
// extremes that matter are treated units nobody comparable remained untreated
// for, and vice versa.
func trimBounds(ds *causal.Dataset, scores []float64, policy causal.TrimPolicy) (float64, float64, error) {
	switch policy.Kind {
	case causal.TrimRange:
		return policy.Low, policy.High, nil
	case causal.TrimQuantile:
		var treatedScores, controlScores []float64
		for i := 0; i < ds.Len(); i++ {
			if ds.Unit(i).Treated {
				treatedScores = append(treatedScores, scores[i])
			} else {
				controlScores = append(controlScores, scores[i])
			}
		}
		low, err := stats.Percentile(treatedScores, policy.Quantile*100)
		if err != nil {
			return 0, 0, errors.WithCode(errors.CodeTrimming, err)
		}
		high, err := stats.Percentile(controlScores, (1-policy.Quantile)*100)
		if err != nil {
			return 0, 0, errors.WithCode(errors.CodeTrimming, err)
		}
		if low > high {
			return 0, 0, errors.Trimming(
				"quantile trim q=%g produced empty window [%g, %g]; arms barely overlap",
				policy.Quantile, low, high)
		}
		return low, high, nil
	default:
		return 0, 0, errors.Trimming("unknown trim policy kind %q", policy.Kind)
	}
}
