package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"gocausal/domain/causal"
	"gocausal/internal/errors"
)

// Config is the recognized analysis configuration surface
type Config struct {
	Propensity PropensityConfig
	Weighting  WeightingConfig
	Balance    BalanceConfig
	Estimation EstimationConfig
	Bootstrap  BootstrapConfig
}

// PropensityConfig selects the treatment-model strategy and clamp bound
type PropensityConfig struct {
	Link    causal.PropensityLink
	Epsilon float64
}

// WeightingConfig selects the weight scheme and optional trimming policy
type WeightingConfig struct {
	Scheme       causal.SchemeKind
	TrimPolicy   causal.TrimPolicyKind // empty means no trimming
	TrimLow      float64
	TrimHigh     float64
	TrimQuantile float64
}

// BalanceConfig holds diagnostics settings
type BalanceConfig struct {
	Threshold float64
}

// EstimationConfig holds estimator settings
type EstimationConfig struct {
	Estimand causal.Estimand
}

// BootstrapConfig holds resampling settings
type BootstrapConfig struct {
	Replicates  int
	Parallelism int
	MaxSkipRate float64
	BaseSeed    int64
}

// Load reads configuration from environment variables, after loading an
// optional .env file, and validates it
func Load() (*Config, error) {
	// Missing .env is fine; explicit env always wins
	_ = godotenv.Load()

	cfg := &Config{
		Propensity: PropensityConfig{
			Link:    causal.PropensityLink(getEnvOrDefault("PROPENSITY_LINK", string(causal.LinkLogistic))),
			Epsilon: getEnvFloatOrDefault("CLAMP_EPSILON", causal.DefaultEpsilon),
		},
		Weighting: WeightingConfig{
			Scheme:       causal.SchemeKind(getEnvOrDefault("WEIGHT_SCHEME", string(causal.SchemeOverlap))),
			TrimPolicy:   causal.TrimPolicyKind(getEnvOrDefault("TRIM_POLICY", "")),
			TrimLow:      getEnvFloatOrDefault("TRIM_LOW", 0.05),
			TrimHigh:     getEnvFloatOrDefault("TRIM_HIGH", 0.95),
			TrimQuantile: getEnvFloatOrDefault("TRIM_QUANTILE", causal.DefaultTrimQuantile),
		},
		Balance: BalanceConfig{
			Threshold: getEnvFloatOrDefault("BALANCE_THRESHOLD", causal.DefaultBalanceThreshold),
		},
		Estimation: EstimationConfig{
			Estimand: causal.Estimand(getEnvOrDefault("ESTIMAND", "")),
		},
		Bootstrap: BootstrapConfig{
			Replicates:  getEnvIntOrDefault("BOOTSTRAP_REPLICATES", 1000),
			Parallelism: getEnvIntOrDefault("BOOTSTRAP_PARALLELISM", 4),
			MaxSkipRate: getEnvFloatOrDefault("BOOTSTRAP_MAX_SKIP_RATE", 0.10),
			BaseSeed:    getEnvInt64OrDefault("BASE_SEED", 1),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// Scheme resolves the configured weighting into a WeightScheme value
func (c *Config) Scheme() causal.WeightScheme {
	base := causal.WeightScheme{Kind: c.Weighting.Scheme}
	switch c.Weighting.TrimPolicy {
	case causal.TrimRange:
		return causal.TrimmedRange(base, c.Weighting.TrimLow, c.Weighting.TrimHigh)
	case causal.TrimQuantile:
		return causal.TrimmedQuantile(base, c.Weighting.TrimQuantile)
	default:
		return base
	}
}

// Estimand resolves the configured estimand, defaulting to the scheme's
// natural target population when unset
func (c *Config) Estimand() causal.Estimand {
	if c.Estimation.Estimand != "" {
		return c.Estimation.Estimand
	}
	return c.Scheme().NaturalEstimand()
}

func validate(c *Config) error {
	switch c.Propensity.Link {
	case causal.LinkLogistic, causal.LinkSmooth:
	default:
		return errors.ConfigInvalid("PROPENSITY_LINK must be \"logistic\" or \"smooth\"")
	}
	if c.Propensity.Epsilon <= 0 || c.Propensity.Epsilon >= 0.5 {
		return errors.ConfigInvalid("CLAMP_EPSILON must be in (0, 0.5)")
	}
	if err := c.Scheme().Validate(); err != nil {
		return errors.Wrap(errors.ConfigInvalid(err.Error()), "WEIGHT_SCHEME/TRIM settings invalid")
	}
	if c.Balance.Threshold <= 0 {
		return errors.ConfigInvalid("BALANCE_THRESHOLD must be > 0")
	}
	switch c.Estimation.Estimand {
	case "", causal.EstimandATE, causal.EstimandATT, causal.EstimandATO:
	default:
		return errors.ConfigInvalid("ESTIMAND must be ATE, ATT or ATO")
	}
	if c.Bootstrap.Replicates <= 0 {
		return errors.ConfigInvalid("BOOTSTRAP_REPLICATES must be > 0")
	}
	if c.Bootstrap.Parallelism <= 0 {
		return errors.ConfigInvalid("BOOTSTRAP_PARALLELISM must be > 0")
	}
	if c.Bootstrap.MaxSkipRate <= 0 || c.Bootstrap.MaxSkipRate > 1 {
		return errors.ConfigInvalid("BOOTSTRAP_MAX_SKIP_RATE must be in (0, 1]")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
