package estimator

import (
	"gonum.org/v1/gonum/stat/distuv"

	"gocausal/domain/causal"
	"gocausal/internal/errors"
)

// ConfidenceInterval returns the Wald interval estimate ± z*SE at the given
// coverage level. The bootstrap's percentile interval is preferred when a
// replicate distribution exists; this is the analytic companion for the
// weighted and AIPW standard errors.
func ConfidenceInterval(res *causal.EstimationResult, level float64) (float64, float64, error) {
	if res == nil {
		return 0, 0, errors.InvalidInput("confidence interval requires an estimation result")
	}
	if level <= 0 || level >= 1 {
		return 0, 0, errors.InvalidInput("confidence level must be in (0, 1)")
	}
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(1 - (1-level)/2)
	return res.Estimate - z*res.StdErr, res.Estimate + z*res.StdErr, nil
}
