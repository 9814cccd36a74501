package balance

import (
	"math"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal/errors"
)

// SMD computes the standardized mean difference of one covariate between the
// treated and control groups. A nil weight vector gives the unweighted SMD.
//
// The numerator is the (weighted) treated mean minus the (weighted) control
// mean. The denominator is always the pooled UNWEIGHTED standard deviation,
// sqrt((s1^2 + s0^2)/2), so SMDs stay comparable across weighting schemes.
// A zero-variance covariate yields SMD 0.
func SMD(ds *causal.Dataset, wv *causal.WeightVector, name core.CovariateKey) (float64, error) {
	col, err := ds.Column(name)
	if err != nil {
		return 0, errors.InvalidInput(err.Error())
	}
	if wv != nil && wv.Len() != ds.Len() {
		return 0, errors.InvalidInput("weight vector length does not match dataset")
	}

	var treatedMean, controlMean float64
	var treatedW, controlW float64
	for i, x := range col {
		w := 1.0
		if wv != nil {
			w = wv.Values[i]
		}
		if ds.Unit(i).Treated {
			treatedMean += w * x
			treatedW += w
		} else {
			controlMean += w * x
			controlW += w
		}
	}
	if treatedW <= 0 || controlW <= 0 {
		return 0, errors.InvalidInput("a treatment arm has zero total weight")
	}
	treatedMean /= treatedW
	controlMean /= controlW

	sd := pooledUnweightedSD(ds, col)
	if sd == 0 {
		return 0, nil
	}
	return (treatedMean - controlMean) / sd, nil
}

// Report computes balance diagnostics for every covariate under one weighting,
// flagging covariates whose absolute weighted SMD exceeds the threshold.
// A threshold <= 0 falls back to the conventional default.
func Report(ds *causal.Dataset, wv *causal.WeightVector, threshold float64) (*causal.BalanceReport, error) {
	if wv == nil {
		return nil, errors.InvalidInput("balance report requires a weight vector; use SMD for unweighted checks")
	}
	if threshold <= 0 {
		threshold = causal.DefaultBalanceThreshold
	}

	names := ds.CovariateNames()
	entries := make([]causal.BalanceEntry, 0, len(names))
	for _, name := range names {
		raw, err := SMD(ds, nil, name)
		if err != nil {
			return nil, errors.Wrapf(err, "unweighted SMD for covariate %q", name)
		}
		weighted, err := SMD(ds, wv, name)
		if err != nil {
			return nil, errors.Wrapf(err, "weighted SMD for covariate %q", name)
		}
		entries = append(entries, causal.BalanceEntry{
			Covariate:     name,
			UnweightedSMD: raw,
			WeightedSMD:   weighted,
			Balanced:      math.Abs(weighted) <= threshold,
		})
	}

	return &causal.BalanceReport{
		Scheme:     wv.Scheme,
		Threshold:  threshold,
		Entries:    entries,
		ComputedAt: core.Now(),
	}, nil
}

// pooledUnweightedSD is sqrt((s1^2 + s0^2)/2) over the two arms, with
// sample variances.
func pooledUnweightedSD(ds *causal.Dataset, col []float64) float64 {
	var sumT, sumC float64
	nT, nC := 0, 0
	for i, x := range col {
		if ds.Unit(i).Treated {
			sumT += x
			nT++
		} else {
			sumC += x
			nC++
		}
	}
	if nT < 2 || nC < 2 {
		return 0
	}
	meanT := sumT / float64(nT)
	meanC := sumC / float64(nC)

	var ssT, ssC float64
	for i, x := range col {
		if ds.Unit(i).Treated {
			d := x - meanT
			ssT += d * d
		} else {
			d := x - meanC
			ssC += d * d
		}
	}
	varT := ssT / float64(nT-1)
	varC := ssC / float64(nC-1)
	return math.Sqrt((varT + varC) / 2)
}
