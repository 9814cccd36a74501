package weights

import (
	"math"
	"testing"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal/errors"
)

func TestComputeVector_TrimmedRange(t *testing.T) {
	ds, scores := fourUnitDataset(t)
	scheme := causal.TrimmedRange(causal.IPTW(), 0.2, 0.7)

	wv, err := ComputeVector(ds, scores, scheme)
	if err != nil {
		t.Fatalf("trimmed: %v", err)
	}

	// p=0.8 and p=0.1 fall outside [0.2, 0.7]
	if !wv.Excluded[0] || !wv.Excluded[3] {
		t.Fatalf("expected units 0 and 3 excluded, got %v", wv.Excluded)
	}
	if wv.Excluded[1] || wv.Excluded[2] {
		t.Fatalf("units inside the window must be kept, got %v", wv.Excluded)
	}
	if wv.ExcludedCount() != 2 {
		t.Fatalf("excluded count %d, want 2", wv.ExcludedCount())
	}

	// excluded units carry weight 0; kept units carry the base scheme's weight
	if wv.Values[0] != 0 || wv.Values[3] != 0 {
		t.Fatalf("excluded units must have weight 0: %v", wv.Values)
	}
	if math.Abs(wv.Values[1]-1.6667) > 1e-3 || math.Abs(wv.Values[2]-1.4286) > 1e-3 {
		t.Fatalf("kept units must keep base weights: %v", wv.Values)
	}
}

func TestComputeVector_TrimmedEmptiesArm(t *testing.T) {
	ds, scores := fourUnitDataset(t)
	// both controls (0.3, 0.1) fall below the window
	scheme := causal.TrimmedRange(causal.IPTW(), 0.5, 0.9)

	_, err := ComputeVector(ds, scores, scheme)
	if err == nil {
		t.Fatalf("expected error when trimming empties the control arm")
	}
	if errors.GetCode(err) != errors.CodeTrimming {
		t.Fatalf("error code %s, want %s", errors.GetCode(err), errors.CodeTrimming)
	}
}

func TestComputeVector_TrimmedQuantile(t *testing.T) {
	// one extreme score per arm, surrounded by a comfortable cluster
	var units []causal.Unit
	var scores []float64
	add := func(treated bool, p float64) {
		units = append(units, causal.Unit{Treated: treated, Covariates: []float64{p}})
		scores = append(scores, p)
	}
	add(true, 0.02)
	for _, p := range []float64{0.42, 0.45, 0.48, 0.5, 0.52, 0.54, 0.56, 0.58, 0.6} {
		add(true, p)
	}
	add(false, 0.98)
	for _, p := range []float64{0.4, 0.43, 0.46, 0.49, 0.51, 0.53, 0.55, 0.57, 0.59} {
		add(false, p)
	}
	ds := causal.MustNewDataset([]core.CovariateKey{"x"}, units)

	scheme := causal.TrimmedQuantile(causal.Overlap(), 0.15)
	wv, err := ComputeVector(ds, scores, scheme)
	if err != nil {
		t.Fatalf("quantile trim: %v", err)
	}

	if !wv.Excluded[0] {
		t.Fatalf("extreme treated score 0.02 should be trimmed")
	}
	if !wv.Excluded[10] {
		t.Fatalf("extreme control score 0.98 should be trimmed")
	}
	// the central cluster stays
	for i, ex := range wv.Excluded {
		if i == 0 || i == 10 {
			continue
		}
		if ex && scores[i] > 0.44 && scores[i] < 0.56 {
			t.Fatalf("central unit %d (p=%g) should not be trimmed", i, scores[i])
		}
	}
}

func TestComputeVector_TrimmedBaseErrorsPropagate(t *testing.T) {
	ds, scores := fourUnitDataset(t)
	scores[1] = 1.0 // invalid for the base scheme
	scheme := causal.TrimmedRange(causal.IPTW(), 0.05, 0.95)
	if _, err := ComputeVector(ds, scores, scheme); err == nil {
		t.Fatalf("base scheme failure must fail the trimmed computation")
	}
}
