package testkit

import (
	"gocausal/domain/causal"
)

// Known and deliberately wrong models backing the doubly-robust consistency
// tests: each test pairs one correct component with one misspecified one and
// checks the bias stays near zero.

// KnownPropensityModel predicts with the scenario's true assignment formula
type KnownPropensityModel struct {
	Cfg     ScenarioConfig
	Epsilon float64
}

func (m *KnownPropensityModel) Predict(covariates []float64) float64 {
	return causal.ClampScore(TrueAssignmentProbability(m.Cfg, covariates), m.Epsilon)
}

func (m *KnownPropensityModel) Link() causal.PropensityLink { return causal.LinkLogistic }

// ConstantPropensityModel ignores covariates entirely; whenever assignment
// actually depends on them, this is a misspecified propensity model
type ConstantPropensityModel struct {
	P float64
}

func (m *ConstantPropensityModel) Predict([]float64) float64 {
	return causal.ClampScore(m.P, causal.DefaultEpsilon)
}

func (m *ConstantPropensityModel) Link() causal.PropensityLink { return causal.LinkLogistic }

// KnownOutcomeModel predicts with the scenario's true outcome surface for a
// fixed arm
type KnownOutcomeModel struct {
	Cfg        ScenarioConfig
	TreatedArm bool
}

func (m *KnownOutcomeModel) Predict(covariates []float64) float64 {
	y := TrueOutcomeSurface(m.Cfg, covariates)
	if m.TreatedArm {
		y += m.Cfg.ATE
	}
	return y
}

// FlatOutcomeModel predicts a constant; a misspecified outcome model for any
// scenario whose outcome depends on covariates
type FlatOutcomeModel struct {
	Value float64
}

func (m *FlatOutcomeModel) Predict([]float64) float64 { return m.Value }
