package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"gocausal/domain/causal"
	"gocausal/domain/core"
)

// ScenarioConfig describes a synthetic observational study with a known true
// effect. Treatment assignment follows a linear logit over the covariates
// unless QuadraticAssign bends it; the outcome is linear in covariates plus
// the true effect unless QuadraticOutcome bends it. The quadratic switches
// exist so tests can deliberately misspecify one model at a time.
type ScenarioConfig struct {
	N    int
	Seed int64

	CovariateNames []core.CovariateKey

	AssignIntercept float64
	AssignCoeffs    []float64 // per-covariate logit slopes
	QuadraticAssign bool      // add 0.5*x1^2 to the assignment logit

	OutcomeIntercept float64
	OutcomeCoeffs    []float64 // per-covariate outcome slopes
	QuadraticOutcome bool      // add x1^2 to the outcome surface
	NoiseSD          float64

	ATE float64 // true constant treatment effect

	SecondaryOutcome bool // also emit a secondary outcome (primary + 1 scaled)
}

// DefaultScenario is a well-behaved confounded design: three covariates that
// drive both assignment and outcome, with propensities kept comfortably
// inside (0,1).
func DefaultScenario() ScenarioConfig {
	return ScenarioConfig{
		N:    1000,
		Seed: 42,
		CovariateNames: []core.CovariateKey{
			"age_index", "severity_score", "baseline_activity",
		},
		AssignIntercept:  -0.2,
		AssignCoeffs:     []float64{0.8, -0.5, 0.3},
		OutcomeIntercept: 1.0,
		OutcomeCoeffs:    []float64{1.5, 2.0, -1.0},
		NoiseSD:          1.0,
		ATE:              2.0,
	}
}

// Truth records what the generator knows and an analysis must recover
type Truth struct {
	ATE          float64
	Propensities []float64 // true assignment probabilities, dataset order
}

// GenerateScenario draws a dataset from the scenario. The same config always
// produces the identical dataset.
func GenerateScenario(cfg ScenarioConfig) (*causal.Dataset, *Truth, error) {
	if cfg.N < 4 {
		return nil, nil, fmt.Errorf("scenario needs at least 4 units, got %d", cfg.N)
	}
	k := len(cfg.CovariateNames)
	if len(cfg.AssignCoeffs) != k || len(cfg.OutcomeCoeffs) != k {
		return nil, nil, fmt.Errorf("coefficient vectors must match %d covariates", k)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	units := make([]causal.Unit, cfg.N)
	truth := &Truth{ATE: cfg.ATE, Propensities: make([]float64, cfg.N)}

	for i := 0; i < cfg.N; i++ {
		x := make([]float64, k)
		for j := range x {
			x[j] = rng.NormFloat64()
		}

		p := TrueAssignmentProbability(cfg, x)
		truth.Propensities[i] = p
		treated := rng.Float64() < p

		y := TrueOutcomeSurface(cfg, x)
		if treated {
			y += cfg.ATE
		}
		y += rng.NormFloat64() * cfg.NoiseSD

		u := causal.Unit{Treated: treated, Covariates: x, Outcome: y}
		if cfg.SecondaryOutcome {
			y2 := y*0.5 + 1
			u.Outcome2 = &y2
		}
		units[i] = u
	}

	ds, err := causal.NewDataset(cfg.CovariateNames, units)
	if err != nil {
		return nil, nil, err
	}
	return ds, truth, nil
}

// MustGenerateScenario generates or panics. Test fixture use only.
func MustGenerateScenario(cfg ScenarioConfig) (*causal.Dataset, *Truth) {
	ds, truth, err := GenerateScenario(cfg)
	if err != nil {
		panic(err)
	}
	return ds, truth
}

// TrueAssignmentProbability evaluates the scenario's real treatment
// probability at a covariate vector
func TrueAssignmentProbability(cfg ScenarioConfig, x []float64) float64 {
	eta := cfg.AssignIntercept
	for j, c := range cfg.AssignCoeffs {
		eta += c * x[j]
	}
	if cfg.QuadraticAssign {
		eta += 0.5 * x[0] * x[0]
	}
	return 1 / (1 + math.Exp(-eta))
}

// TrueOutcomeSurface evaluates the scenario's untreated outcome surface at a
// covariate vector (no noise, no treatment effect)
func TrueOutcomeSurface(cfg ScenarioConfig, x []float64) float64 {
	y := cfg.OutcomeIntercept
	for j, c := range cfg.OutcomeCoeffs {
		y += c * x[j]
	}
	if cfg.QuadraticOutcome {
		y += x[0] * x[0]
	}
	return y
}
