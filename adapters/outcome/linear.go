package outcome

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal/errors"
	"gocausal/ports"
)

const rankTolFactor = 1e-10

// LinearFitter fits ordinary least squares outcome regressions, one treatment
// arm at a time, for use as the mu0/mu1 components of the doubly robust
// estimator.
type LinearFitter struct{}

// NewLinearFitter creates a linear outcome fitter
func NewLinearFitter() *LinearFitter {
	return &LinearFitter{}
}

// LinearModel is a fitted arm-specific outcome regression
type LinearModel struct {
	intercept  float64
	coeffs     []float64
	colIndices []int
}

// Predict returns the modeled outcome for one dataset-ordered covariate vector
func (m *LinearModel) Predict(covariates []float64) float64 {
	y := m.intercept
	for j, idx := range m.colIndices {
		y += m.coeffs[j] * covariates[idx]
	}
	return y
}

// Coefficients returns the fitted slope coefficients in spec order
func (m *LinearModel) Coefficients() []float64 {
	out := make([]float64, len(m.coeffs))
	copy(out, m.coeffs)
	return out
}

// Intercept returns the fitted intercept
func (m *LinearModel) Intercept() float64 { return m.intercept }

// FitArm fits the outcome regression on one arm's units only. Fails with an
// INVALID_INPUT error when the arm is too small or the design is rank
// deficient.
func (f *LinearFitter) FitArm(ds *causal.Dataset, spec causal.CovariateSpec, treatedArm bool, field causal.OutcomeField) (ports.OutcomeModel, error) {
	names, colIndices, err := resolveSpec(ds, spec)
	if err != nil {
		return nil, err
	}
	outcomes, err := ds.Outcomes(field)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}

	var rows []int
	for i := 0; i < ds.Len(); i++ {
		if ds.Unit(i).Treated == treatedArm {
			rows = append(rows, i)
		}
	}
	k := len(colIndices)
	if len(rows) <= k+1 {
		return nil, errors.InvalidInput(
			"outcome arm has too few units to fit: " + armName(treatedArm))
	}

	x := mat.NewDense(len(rows), k+1, nil)
	y := mat.NewVecDense(len(rows), nil)
	for r, i := range rows {
		u := ds.Unit(i)
		x.Set(r, 0, 1)
		for j, idx := range colIndices {
			x.Set(r, j+1, u.Covariates[idx])
		}
		y.SetVec(r, outcomes[i])
	}

	if dep, ok := firstDependentColumn(x); ok && dep > 0 {
		return nil, errors.Newf(errors.CodeInvalidInput,
			"outcome design for %s arm is rank deficient: %q is collinear with earlier columns",
			armName(treatedArm), names[dep-1])
	}

	beta := mat.NewVecDense(k+1, nil)
	if err := beta.SolveVec(x, y); err != nil {
		return nil, errors.Wrapf(err, "least squares solve failed for %s arm", armName(treatedArm))
	}

	coeffs := make([]float64, k)
	for j := 0; j < k; j++ {
		coeffs[j] = beta.AtVec(j + 1)
	}
	return &LinearModel{
		intercept:  beta.AtVec(0),
		coeffs:     coeffs,
		colIndices: colIndices,
	}, nil
}

func armName(treated bool) string {
	if treated {
		return "treated"
	}
	return "control"
}

// resolveSpec maps spec covariate names to dataset column indices. An empty
// spec selects every dataset covariate.
func resolveSpec(ds *causal.Dataset, spec causal.CovariateSpec) ([]core.CovariateKey, []int, error) {
	names := spec.Covariates
	if len(names) == 0 {
		names = ds.CovariateNames()
	}
	indices := make([]int, len(names))
	for j, name := range names {
		idx, ok := ds.CovariateIndex(name)
		if !ok {
			return nil, nil, errors.InvalidInput("covariate " + name.String() + " not present in dataset")
		}
		indices[j] = idx
	}
	return names, indices, nil
}

// firstDependentColumn reports the first design column whose unpivoted QR
// diagonal collapses
func firstDependentColumn(x *mat.Dense) (int, bool) {
	var qr mat.QR
	qr.Factorize(x)
	var r mat.Dense
	qr.RTo(&r)

	_, cols := x.Dims()
	maxDiag := 0.0
	for j := 0; j < cols; j++ {
		if d := math.Abs(r.At(j, j)); d > maxDiag {
			maxDiag = d
		}
	}
	tol := rankTolFactor * maxDiag
	for j := 0; j < cols; j++ {
		if math.Abs(r.At(j, j)) <= tol {
			return j, true
		}
	}
	return 0, false
}
