package propensity

import (
	"math"

	"github.com/montanaflynn/stats"

	"gocausal/domain/causal"
	"gocausal/internal/errors"
	"gocausal/ports"
)

const (
	scoringMaxIter  = 30
	backfitMaxIter  = 10
	scoringTol      = 1e-6
	bandwidthFactor = 1.06
)

// SmoothFitter fits an additive binomial model: the logit of treatment is a
// sum of per-covariate smooth terms, estimated by local scoring with
// backfitting over Gaussian-kernel smoothers. Use it when a covariate's
// treatment association is visibly non-linear; the logistic fitter is the
// right default otherwise.
type SmoothFitter struct{}

// NewSmoothFitter creates an additive-smooth fitter
func NewSmoothFitter() *SmoothFitter {
	return &SmoothFitter{}
}

// smoothTerm is one fitted per-covariate smooth: the training points, the
// fitted term values at those points, the final scoring weights, and the
// kernel bandwidth. Evaluation at new points kernel-interpolates f.
type smoothTerm struct {
	x         []float64
	f         []float64
	weights   []float64
	bandwidth float64
}

func (t *smoothTerm) eval(x0 float64) float64 {
	var num, den float64
	for i := range t.x {
		k := t.weights[i] * gaussKernel((x0-t.x[i])/t.bandwidth)
		num += k * t.f[i]
		den += k
	}
	if den == 0 {
		// x0 far outside the training support; fall back to the term mean,
		// which is zero by centering
		return 0
	}
	return num / den
}

// SmoothModel is a fitted additive treatment model
type SmoothModel struct {
	intercept  float64
	terms      []smoothTerm
	colIndices []int
	epsilon    float64
}

// Link identifies the fitting strategy
func (m *SmoothModel) Link() causal.PropensityLink { return causal.LinkSmooth }

// Predict returns the clamped treatment probability for one dataset-ordered
// covariate vector
func (m *SmoothModel) Predict(covariates []float64) float64 {
	eta := m.intercept
	for j, idx := range m.colIndices {
		eta += m.terms[j].eval(covariates[idx])
	}
	return causal.ClampScore(sigmoid(eta), m.epsilon)
}

// Fit estimates the additive model. Fails with a PROPENSITY_FIT error when a
// covariate has no spread to smooth over or when local scoring does not
// converge.
func (f *SmoothFitter) Fit(ds *causal.Dataset, spec causal.CovariateSpec) (ports.PropensityModel, error) {
	names, colIndices, err := resolveSpec(ds, spec)
	if err != nil {
		return nil, err
	}

	n := ds.Len()
	k := len(colIndices)
	cols := make([][]float64, k)
	bandwidths := make([]float64, k)
	for j, idx := range colIndices {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = ds.Unit(i).Covariates[idx]
		}
		bw := silvermanBandwidth(col)
		if bw <= 0 {
			return nil, errors.PropensityFit(
				"covariate %q has zero spread; nothing to smooth", names[j])
		}
		cols[j] = col
		bandwidths[j] = bw
	}

	t := ds.TreatmentIndicators()
	meanT, _ := stats.Mean(t)
	meanT = causal.ClampScore(meanT, 1e-3)
	alpha := math.Log(meanT / (1 - meanT))

	terms := make([][]float64, k)
	for j := range terms {
		terms[j] = make([]float64, n)
	}
	eta := make([]float64, n)
	wts := make([]float64, n)
	z := make([]float64, n)
	partial := make([]float64, n)

	converged := false
	for iter := 0; iter < scoringMaxIter; iter++ {
		maxShift := 0.0
		for i := 0; i < n; i++ {
			e := alpha
			for j := range terms {
				e += terms[j][i]
			}
			mu := sigmoid(e)
			w := mu * (1 - mu)
			if w < weightFloor {
				w = weightFloor
			}
			if d := math.Abs(e - eta[i]); d > maxShift {
				maxShift = d
			}
			eta[i] = e
			wts[i] = w
			z[i] = e + (t[i]-mu)/w
		}
		if iter > 0 && maxShift < scoringTol {
			converged = true
			break
		}

		for pass := 0; pass < backfitMaxIter; pass++ {
			for j := range terms {
				for i := 0; i < n; i++ {
					partial[i] = z[i] - alpha
					for l := range terms {
						if l != j {
							partial[i] -= terms[l][i]
						}
					}
				}
				kernelSmooth(cols[j], partial, wts, bandwidths[j], terms[j])
				centerWeighted(terms[j], wts)
			}
			alpha = weightedResidualMean(z, terms, wts)
		}
	}
	if !converged {
		return nil, errors.PropensityFit(
			"additive-smooth fit did not converge after %d local scoring iterations", scoringMaxIter)
	}

	fitted := make([]smoothTerm, k)
	for j := range fitted {
		fitted[j] = smoothTerm{
			x:         cols[j],
			f:         terms[j],
			weights:   wts,
			bandwidth: bandwidths[j],
		}
	}
	return &SmoothModel{
		intercept:  alpha,
		terms:      fitted,
		colIndices: colIndices,
		epsilon:    spec.ClampBound(),
	}, nil
}

// kernelSmooth writes the weighted Nadaraya-Watson fit of y on x into dst
func kernelSmooth(x, y, w []float64, bandwidth float64, dst []float64) {
	for i := range x {
		var num, den float64
		for l := range x {
			k := w[l] * gaussKernel((x[i]-x[l])/bandwidth)
			num += k * y[l]
			den += k
		}
		if den == 0 {
			dst[i] = 0
			continue
		}
		dst[i] = num / den
	}
}

// centerWeighted shifts a term to zero weighted mean so the intercept stays
// identified
func centerWeighted(f, w []float64) {
	var sum, wsum float64
	for i := range f {
		sum += w[i] * f[i]
		wsum += w[i]
	}
	if wsum == 0 {
		return
	}
	m := sum / wsum
	for i := range f {
		f[i] -= m
	}
}

func weightedResidualMean(z []float64, terms [][]float64, w []float64) float64 {
	var sum, wsum float64
	for i := range z {
		r := z[i]
		for j := range terms {
			r -= terms[j][i]
		}
		sum += w[i] * r
		wsum += w[i]
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}

// silvermanBandwidth is the rule-of-thumb kernel bandwidth
// 1.06 * min(sd, IQR/1.34) * n^(-1/5)
func silvermanBandwidth(x []float64) float64 {
	sd, err := stats.StandardDeviationSample(x)
	if err != nil {
		return 0
	}
	q75, err1 := stats.Percentile(x, 75)
	q25, err2 := stats.Percentile(x, 25)
	spread := sd
	if err1 == nil && err2 == nil {
		if iqr := (q75 - q25) / 1.34; iqr > 0 && iqr < spread {
			spread = iqr
		}
	}
	if spread <= 0 {
		return 0
	}
	return bandwidthFactor * spread * math.Pow(float64(len(x)), -0.2)
}

func gaussKernel(u float64) float64 {
	return math.Exp(-0.5 * u * u)
}
