package ports

import (
	"gocausal/domain/causal"
)

// OutcomeModel predicts the outcome for a covariate vector under the fixed
// treatment arm the model was fitted on (mu0 for control, mu1 for treated).
type OutcomeModel interface {
	Predict(covariates []float64) float64
}

// OutcomeFitter fits arm-specific outcome regressions. The doubly robust
// estimator needs one model per arm, each trained only on that arm's units.
type OutcomeFitter interface {
	// FitArm fits an outcome model on the units of one treatment arm
	FitArm(ds *causal.Dataset, spec causal.CovariateSpec, treatedArm bool, field causal.OutcomeField) (OutcomeModel, error)
}
