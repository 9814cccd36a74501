package ports

import (
	"gocausal/domain/causal"
)

// PropensityModel predicts P(treated | covariates) for a single unit.
// Predict is pure: side-effect-free and insensitive to call order. Returned
// probabilities are already clamped to the fitting spec's epsilon bound.
type PropensityModel interface {
	// Predict returns the clamped treatment probability for one covariate
	// vector, ordered per the fitting spec.
	Predict(covariates []float64) float64

	// Link identifies the fitting strategy that produced the model
	Link() causal.PropensityLink
}

// PropensityFitter fits a treatment-probability model over a dataset. The two
// strategies (logistic, additive-smooth) are interchangeable implementations
// of this contract; callers pick one by configuration, never by a different
// interface.
type PropensityFitter interface {
	// Fit builds a model from the dataset's covariates named in spec.
	// Fails with a PROPENSITY_FIT error on non-convergence or a
	// rank-deficient covariate matrix.
	Fit(ds *causal.Dataset, spec causal.CovariateSpec) (PropensityModel, error)
}

// PredictAll evaluates a model over every unit of a dataset in order
func PredictAll(model PropensityModel, ds *causal.Dataset) []float64 {
	scores := make([]float64, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		scores[i] = model.Predict(ds.Unit(i).Covariates)
	}
	return scores
}
