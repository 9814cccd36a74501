package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gocausal/domain/causal"
	"gocausal/internal/errors"
)

// clearEnv blanks every recognized key so each test starts from defaults
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PROPENSITY_LINK", "CLAMP_EPSILON",
		"WEIGHT_SCHEME", "TRIM_POLICY", "TRIM_LOW", "TRIM_HIGH", "TRIM_QUANTILE",
		"BALANCE_THRESHOLD", "ESTIMAND",
		"BOOTSTRAP_REPLICATES", "BOOTSTRAP_PARALLELISM", "BOOTSTRAP_MAX_SKIP_RATE", "BASE_SEED",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, causal.LinkLogistic, cfg.Propensity.Link)
	require.Equal(t, causal.DefaultEpsilon, cfg.Propensity.Epsilon)
	require.Equal(t, causal.SchemeOverlap, cfg.Weighting.Scheme)
	require.Equal(t, causal.DefaultBalanceThreshold, cfg.Balance.Threshold)
	require.Equal(t, 1000, cfg.Bootstrap.Replicates)
	require.Equal(t, 4, cfg.Bootstrap.Parallelism)

	scheme := cfg.Scheme()
	require.Equal(t, causal.SchemeOverlap, scheme.Kind)
	require.Nil(t, scheme.Trim)
	require.Equal(t, causal.EstimandATO, cfg.Estimand(), "overlap targets ATO by default")
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROPENSITY_LINK", "smooth")
	t.Setenv("CLAMP_EPSILON", "0.01")
	t.Setenv("WEIGHT_SCHEME", "iptw")
	t.Setenv("ESTIMAND", "ATT")
	t.Setenv("BOOTSTRAP_REPLICATES", "250")
	t.Setenv("BASE_SEED", "12345")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, causal.LinkSmooth, cfg.Propensity.Link)
	require.Equal(t, 0.01, cfg.Propensity.Epsilon)
	require.Equal(t, causal.SchemeIPTW, cfg.Scheme().Kind)
	// explicit estimand wins over the scheme's natural target
	require.Equal(t, causal.EstimandATT, cfg.Estimand())
	require.Equal(t, 250, cfg.Bootstrap.Replicates)
	require.Equal(t, int64(12345), cfg.Bootstrap.BaseSeed)
}

func TestLoad_TrimPolicies(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEIGHT_SCHEME", "iptw")
	t.Setenv("TRIM_POLICY", "range")
	t.Setenv("TRIM_LOW", "0.1")
	t.Setenv("TRIM_HIGH", "0.9")

	cfg, err := Load()
	require.NoError(t, err)
	scheme := cfg.Scheme()
	require.Equal(t, causal.SchemeTrimmed, scheme.Kind)
	require.Equal(t, causal.SchemeIPTW, scheme.Base.Kind)
	require.Equal(t, 0.1, scheme.Trim.Low)
	require.Equal(t, 0.9, scheme.Trim.High)
	// trimming inherits the base scheme's estimand
	require.Equal(t, causal.EstimandATE, cfg.Estimand())

	t.Setenv("TRIM_POLICY", "quantile")
	t.Setenv("TRIM_QUANTILE", "0.02")
	cfg, err = Load()
	require.NoError(t, err)
	require.Equal(t, 0.02, cfg.Scheme().Trim.Quantile)
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{"PROPENSITY_LINK", "probit"},
		{"CLAMP_EPSILON", "0.7"},
		{"WEIGHT_SCHEME", "banana"},
		{"ESTIMAND", "ATZ"},
		{"BALANCE_THRESHOLD", "-1"},
		{"BOOTSTRAP_MAX_SKIP_RATE", "1.5"},
	}
	for _, c := range cases {
		clearEnv(t)
		t.Setenv(c.key, c.value)

		_, err := Load()
		require.Errorf(t, err, "%s=%s should fail validation", c.key, c.value)
		require.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	}
}
