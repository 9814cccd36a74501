package testkit

import (
	"math"
	"testing"
)

func TestGenerateScenario_Deterministic(t *testing.T) {
	cfg := DefaultScenario()
	a, truthA := MustGenerateScenario(cfg)
	b, truthB := MustGenerateScenario(cfg)

	if a.Len() != b.Len() {
		t.Fatalf("lengths differ: %d vs %d", a.Len(), b.Len())
	}
	for i := 0; i < a.Len(); i++ {
		ua, ub := a.Unit(i), b.Unit(i)
		if ua.Treated != ub.Treated || ua.Outcome != ub.Outcome {
			t.Fatalf("unit %d differs across identical configs", i)
		}
		if truthA.Propensities[i] != truthB.Propensities[i] {
			t.Fatalf("true propensity %d differs", i)
		}
	}

	cfg.Seed = 43
	c, _ := MustGenerateScenario(cfg)
	diff := false
	for i := 0; i < a.Len() && !diff; i++ {
		if a.Unit(i).Outcome != c.Unit(i).Outcome {
			diff = true
		}
	}
	if !diff {
		t.Fatalf("changing the seed left the dataset untouched")
	}
}

func TestGenerateScenario_TruthConsistency(t *testing.T) {
	cfg := DefaultScenario()
	cfg.QuadraticAssign = true
	ds, truth := MustGenerateScenario(cfg)

	if truth.ATE != cfg.ATE {
		t.Fatalf("truth ATE %g, want %g", truth.ATE, cfg.ATE)
	}
	for i := 0; i < ds.Len(); i++ {
		p := TrueAssignmentProbability(cfg, ds.Unit(i).Covariates)
		if math.Abs(p-truth.Propensities[i]) > 1e-12 {
			t.Fatalf("unit %d: recorded propensity %g, recomputed %g", i, truth.Propensities[i], p)
		}
		if p <= 0 || p >= 1 {
			t.Fatalf("unit %d: propensity %g outside (0,1)", i, p)
		}
	}
}

func TestGenerateScenario_Validation(t *testing.T) {
	cfg := DefaultScenario()
	cfg.N = 2
	if _, _, err := GenerateScenario(cfg); err == nil {
		t.Fatalf("tiny scenario should be rejected")
	}

	cfg = DefaultScenario()
	cfg.AssignCoeffs = []float64{1}
	if _, _, err := GenerateScenario(cfg); err == nil {
		t.Fatalf("coefficient arity mismatch should be rejected")
	}
}

func TestGenerateScenario_SecondaryOutcome(t *testing.T) {
	cfg := DefaultScenario()
	cfg.N = 50
	cfg.SecondaryOutcome = true
	ds, _ := MustGenerateScenario(cfg)

	for i := 0; i < ds.Len(); i++ {
		u := ds.Unit(i)
		if u.Outcome2 == nil {
			t.Fatalf("unit %d missing secondary outcome", i)
		}
		if want := u.Outcome*0.5 + 1; math.Abs(*u.Outcome2-want) > 1e-12 {
			t.Fatalf("unit %d secondary outcome %g, want %g", i, *u.Outcome2, want)
		}
	}
}
