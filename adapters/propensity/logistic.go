package propensity

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal/errors"
	"gocausal/ports"
)

const (
	irlsMaxIter   = 100
	irlsTol       = 1e-10
	rankTolFactor = 1e-10
	weightFloor   = 1e-10
)

// LogisticFitter fits a linear-in-covariates binomial link by iteratively
// reweighted least squares.
type LogisticFitter struct{}

// NewLogisticFitter creates a logistic fitter
func NewLogisticFitter() *LogisticFitter {
	return &LogisticFitter{}
}

// LogisticModel is a fitted logistic treatment model
type LogisticModel struct {
	intercept  float64
	coeffs     []float64
	colIndices []int
	epsilon    float64
}

// Link identifies the fitting strategy
func (m *LogisticModel) Link() causal.PropensityLink { return causal.LinkLogistic }

// Coefficients returns the fitted slope coefficients in spec order
func (m *LogisticModel) Coefficients() []float64 {
	out := make([]float64, len(m.coeffs))
	copy(out, m.coeffs)
	return out
}

// Intercept returns the fitted intercept
func (m *LogisticModel) Intercept() float64 { return m.intercept }

// Predict returns the clamped treatment probability for one dataset-ordered
// covariate vector. Pure: no state is touched.
func (m *LogisticModel) Predict(covariates []float64) float64 {
	eta := m.intercept
	for j, idx := range m.colIndices {
		eta += m.coeffs[j] * covariates[idx]
	}
	return causal.ClampScore(sigmoid(eta), m.epsilon)
}

// Fit estimates the model by IRLS. Fails with a PROPENSITY_FIT error when the
// covariate matrix is rank deficient (naming the first dependent covariate)
// or when the iteration does not converge.
func (f *LogisticFitter) Fit(ds *causal.Dataset, spec causal.CovariateSpec) (ports.PropensityModel, error) {
	return f.fit(ds, spec)
}

func (f *LogisticFitter) fit(ds *causal.Dataset, spec causal.CovariateSpec) (*LogisticModel, error) {
	names, colIndices, err := resolveSpec(ds, spec)
	if err != nil {
		return nil, err
	}

	n := ds.Len()
	k := len(colIndices)
	x := mat.NewDense(n, k+1, nil)
	t := make([]float64, n)
	for i := 0; i < n; i++ {
		u := ds.Unit(i)
		x.Set(i, 0, 1)
		for j, idx := range colIndices {
			x.Set(i, j+1, u.Covariates[idx])
		}
		t[i] = u.TreatmentIndicator()
	}

	if dep, ok := firstDependentColumn(x); ok {
		if dep == 0 {
			return nil, errors.PropensityFit("design matrix is rank deficient at the intercept column")
		}
		return nil, errors.PropensityFit(
			"covariate matrix is rank deficient: %q is collinear with earlier columns", names[dep-1])
	}

	beta := mat.NewVecDense(k+1, nil)
	eta := mat.NewVecDense(n, nil)
	wts := make([]float64, n)
	z := make([]float64, n)

	converged := false
	for iter := 0; iter < irlsMaxIter; iter++ {
		eta.MulVec(x, beta)
		for i := 0; i < n; i++ {
			mu := sigmoid(eta.AtVec(i))
			w := mu * (1 - mu)
			if w < weightFloor {
				w = weightFloor
			}
			wts[i] = w
			z[i] = eta.AtVec(i) + (t[i]-mu)/w
		}

		next, err := solveWeightedLeastSquares(x, wts, z)
		if err != nil {
			return nil, errors.PropensityFit("IRLS step failed: %v", err)
		}

		maxDelta := 0.0
		for j := 0; j <= k; j++ {
			d := math.Abs(next.AtVec(j) - beta.AtVec(j))
			if d > maxDelta {
				maxDelta = d
			}
		}
		beta.CopyVec(next)
		if maxDelta < irlsTol {
			converged = true
			break
		}
	}
	if !converged {
		return nil, errors.PropensityFit(
			"logistic fit did not converge after %d IRLS iterations; check for separation or extreme covariates",
			irlsMaxIter)
	}

	coeffs := make([]float64, k)
	for j := 0; j < k; j++ {
		coeffs[j] = beta.AtVec(j + 1)
	}
	return &LogisticModel{
		intercept:  beta.AtVec(0),
		coeffs:     coeffs,
		colIndices: colIndices,
		epsilon:    spec.ClampBound(),
	}, nil
}

// resolveSpec maps spec covariate names to dataset column indices. An empty
// spec selects every dataset covariate in declaration order.
func resolveSpec(ds *causal.Dataset, spec causal.CovariateSpec) ([]core.CovariateKey, []int, error) {
	names := spec.Covariates
	if len(names) == 0 {
		names = ds.CovariateNames()
	}
	indices := make([]int, len(names))
	for j, name := range names {
		idx, ok := ds.CovariateIndex(name)
		if !ok {
			return nil, nil, errors.PropensityFit("covariate %q not present in dataset", name)
		}
		indices[j] = idx
	}
	return names, indices, nil
}

// firstDependentColumn runs an unpivoted QR and reports the first column
// whose R diagonal collapses, which for exact collinearity is the later of
// the dependent columns.
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

// solveWeightedLeastSquares solves (X'WX) b = X'Wz for b
func solveWeightedLeastSquares(x *mat.Dense, wts, z []float64) (*mat.VecDense, error) {
	n, p := x.Dims()
	w := mat.NewDiagDense(n, wts)

	var xtwx mat.Dense
	xtwx.Product(x.T(), w, x)

	wz := mat.NewVecDense(n, nil)
	wz.MulVec(w, mat.NewVecDense(n, z))
	xtwz := mat.NewVecDense(p, nil)
	xtwz.MulVec(x.T(), wz)

	b := mat.NewVecDense(p, nil)
	if err := b.SolveVec(&xtwx, xtwz); err != nil {
		return nil, err
	}
	return b, nil
}

func sigmoid(eta float64) float64 {
	return 1 / (1 + math.Exp(-eta))
}
