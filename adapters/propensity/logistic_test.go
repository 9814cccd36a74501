package propensity

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal/errors"
	"gocausal/internal/testkit"
)

func TestLogisticFitter_RecoversAssignmentModel(t *testing.T) {
	cfg := testkit.DefaultScenario()
	cfg.N = 4000
	cfg.Seed = 7

	ds, truth := testkit.MustGenerateScenario(cfg)

	model, err := NewLogisticFitter().Fit(ds, causal.CovariateSpec{})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	lm, ok := model.(*LogisticModel)
	if !ok {
		t.Fatalf("expected *LogisticModel, got %T", model)
	}

	if d := math.Abs(lm.Intercept() - cfg.AssignIntercept); d > 0.15 {
		t.Fatalf("intercept %.4f too far from %.4f", lm.Intercept(), cfg.AssignIntercept)
	}
	for j, c := range lm.Coefficients() {
		if d := math.Abs(c - cfg.AssignCoeffs[j]); d > 0.15 {
			t.Fatalf("coefficient %d = %.4f too far from %.4f", j, c, cfg.AssignCoeffs[j])
		}
	}

	// predictions track the generator's true probabilities
	var mae float64
	for i := 0; i < ds.Len(); i++ {
		mae += math.Abs(model.Predict(ds.Unit(i).Covariates) - truth.Propensities[i])
	}
	mae /= float64(ds.Len())
	if mae > 0.03 {
		t.Fatalf("mean absolute propensity error %.4f too large", mae)
	}

	if model.Link() != causal.LinkLogistic {
		t.Fatalf("link = %s", model.Link())
	}
}

func TestLogisticFitter_RankDeficiencyNamesCovariate(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	units := make([]causal.Unit, 60)
	for i := range units {
		x := rng.NormFloat64()
		units[i] = causal.Unit{
			Treated:    rng.Float64() < 0.5,
			Covariates: []float64{x, 2 * x}, // second column is exactly dependent
		}
	}
	units[0].Treated = true
	units[1].Treated = false
	ds := causal.MustNewDataset([]core.CovariateKey{"dose", "dose_doubled"}, units)

	_, err := NewLogisticFitter().Fit(ds, causal.CovariateSpec{})
	if err == nil {
		t.Fatalf("expected rank deficiency error")
	}
	if errors.GetCode(err) != errors.CodePropensityFit {
		t.Fatalf("error code %s, want %s", errors.GetCode(err), errors.CodePropensityFit)
	}
	if msg := err.Error(); !strings.Contains(msg, "dose_doubled") {
		t.Fatalf("error should name the dependent covariate: %q", msg)
	}
}

func TestLogisticFitter_UnknownCovariate(t *testing.T) {
	ds, _ := testkit.MustGenerateScenario(testkit.DefaultScenario())
	spec := causal.NewCovariateSpec("age_index", "shoe_size")
	_, err := NewLogisticFitter().Fit(ds, spec)
	if err == nil {
		t.Fatalf("expected error for unknown covariate")
	}
	if errors.GetCode(err) != errors.CodePropensityFit {
		t.Fatalf("error code %s", errors.GetCode(err))
	}
}

func TestLogisticModel_PredictionsAreClamped(t *testing.T) {
	cfg := testkit.DefaultScenario()
	cfg.N = 500
	ds, _ := testkit.MustGenerateScenario(cfg)

	spec := causal.NewCovariateSpec(cfg.CovariateNames...)
	spec.Epsilon = 0.4
	model, err := NewLogisticFitter().Fit(ds, spec)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	// an extreme covariate vector pushes the raw sigmoid to ~1; the clamp
	// must hold it at 1-epsilon
	extreme := []float64{50, -50, 50}
	if got := model.Predict(extreme); got != 0.6 {
		t.Fatalf("clamped prediction %g, want 0.6", got)
	}
	for i := 0; i < ds.Len(); i++ {
		p := model.Predict(ds.Unit(i).Covariates)
		if p < 0.4 || p > 0.6 {
			t.Fatalf("unit %d prediction %g escaped [0.4, 0.6]", i, p)
		}
	}
}

func TestLogisticFitter_SubsetSpecUsesNamedColumnsOnly(t *testing.T) {
	cfg := testkit.DefaultScenario()
	cfg.N = 1500
	ds, _ := testkit.MustGenerateScenario(cfg)

	model, err := NewLogisticFitter().Fit(ds, causal.NewCovariateSpec("severity_score"))
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	lm := model.(*LogisticModel)
	if len(lm.Coefficients()) != 1 {
		t.Fatalf("subset fit produced %d coefficients", len(lm.Coefficients()))
	}

	// covariates other than severity_score must not move the prediction
	a := model.Predict([]float64{0, 1, 0})
	b := model.Predict([]float64{9, 1, -9})
	if a != b {
		t.Fatalf("unselected covariates changed prediction: %g vs %g", a, b)
	}
}
