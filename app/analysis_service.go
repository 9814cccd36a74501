package app

import (
	"context"
	"time"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/internal"
	"gocausal/internal/balance"
	"gocausal/internal/errors"
	"gocausal/internal/estimator"
	"gocausal/internal/weights"
	"gocausal/ports"
)

// AnalysisOptions configures one analysis run
type AnalysisOptions struct {
	Covariates   causal.CovariateSpec
	Scheme       causal.WeightScheme
	Estimand     causal.Estimand // empty: the scheme's natural estimand
	OutcomeField causal.OutcomeField
	Threshold    float64 // balance threshold; 0 falls back to the default

	RunBootstrap bool
	Bootstrap    estimator.BootstrapConfig
}

// AnalysisRun is the complete derived artifact of one pipeline execution.
// Everything in it is recomputed per run; nothing persists across runs.
type AnalysisRun struct {
	RunID    core.RunID            `json:"run_id"`
	Link     causal.PropensityLink `json:"link"`
	Scheme   causal.WeightScheme   `json:"scheme"`
	Estimand causal.Estimand       `json:"estimand"`

	PropensityScores []float64                  `json:"propensity_scores"`
	Weights          *causal.WeightVector       `json:"weights"`
	Balance          *causal.BalanceReport      `json:"balance"`
	Weighted         *causal.EstimationResult   `json:"weighted"`
	DoublyRobust     *causal.EstimationResult   `json:"doubly_robust"`
	Bootstrap        *estimator.BootstrapResult `json:"bootstrap,omitempty"`

	StartedAt  core.Timestamp `json:"started_at"`
	FinishedAt core.Timestamp `json:"finished_at"`
	RuntimeMs  int64          `json:"runtime_ms"`
}

// AnalysisService wires the propensity fitter, outcome fitter and RNG port
// into the full estimation pipeline
type AnalysisService struct {
	propFitter ports.PropensityFitter
	outFitter  ports.OutcomeFitter
	rng        ports.RNGPort
	logger     *internal.Logger
}

// NewAnalysisService creates the service
func NewAnalysisService(propFitter ports.PropensityFitter, outFitter ports.OutcomeFitter, rng ports.RNGPort, logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AnalysisService{
		propFitter: propFitter,
		outFitter:  outFitter,
		rng:        rng,
		logger:     logger,
	}
}

// Run executes propensity fit, weighting, balance diagnostics, the weighted
// estimate and the doubly robust estimate over one dataset, optionally
// followed by a bootstrap of the doubly robust effect
func (s *AnalysisService) Run(ctx context.Context, ds *causal.Dataset, opts AnalysisOptions) (*AnalysisRun, error) {
	if ds == nil {
		return nil, errors.InvalidInput("analysis requires a dataset")
	}
	if opts.OutcomeField == "" {
		opts.OutcomeField = causal.OutcomePrimary
	}
	if err := opts.Scheme.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	estimand := opts.Estimand
	if estimand == "" {
		estimand = opts.Scheme.NaturalEstimand()
	}

	started := time.Now()
	run := &AnalysisRun{
		RunID:     core.RunID(core.NewID()),
		Scheme:    opts.Scheme,
		Estimand:  estimand,
		StartedAt: core.NewTimestamp(started),
	}
	s.logger.Info("analysis %s: %d units (%d treated), scheme %s, estimand %s",
		run.RunID, ds.Len(), ds.TreatedCount(), opts.Scheme, estimand)

	model, err := s.propFitter.Fit(ds, opts.Covariates)
	if err != nil {
		return nil, errors.Wrap(err, "propensity stage failed")
	}
	run.Link = model.Link()
	run.PropensityScores = ports.PredictAll(model, ds)

	run.Weights, err = weights.ComputeVector(ds, run.PropensityScores, opts.Scheme)
	if err != nil {
		return nil, errors.Wrap(err, "weighting stage failed")
	}
	if n := run.Weights.ExcludedCount(); n > 0 {
		s.logger.Info("analysis %s: trimming excluded %d of %d units", run.RunID, n, ds.Len())
	}

	run.Balance, err = balance.Report(ds, run.Weights, opts.Threshold)
	if err != nil {
		return nil, errors.Wrap(err, "balance stage failed")
	}
	if !run.Balance.AllBalanced() {
		s.logger.Warn("analysis %s: covariates still imbalanced after weighting: %v",
			run.RunID, run.Balance.Imbalanced())
	}

	run.Weighted, err = estimator.Estimate(ds, run.Weights, opts.OutcomeField, estimand)
	if err != nil {
		return nil, errors.Wrap(err, "weighted estimation failed")
	}

	mu0, err := s.outFitter.FitArm(ds, opts.Covariates, false, opts.OutcomeField)
	if err != nil {
		return nil, errors.Wrap(err, "control outcome model failed")
	}
	mu1, err := s.outFitter.FitArm(ds, opts.Covariates, true, opts.OutcomeField)
	if err != nil {
		return nil, errors.Wrap(err, "treated outcome model failed")
	}
	dr := &estimator.DoublyRobust{Propensity: model, Outcome0: mu0, Outcome1: mu1}
	run.DoublyRobust, err = dr.Estimate(ds, opts.OutcomeField)
	if err != nil {
		return nil, errors.Wrap(err, "doubly robust estimation failed")
	}

	if opts.RunBootstrap {
		run.Bootstrap, err = estimator.BootstrapDR(ctx, run.RunID, ds,
			s.propFitter, s.outFitter, opts.Covariates, opts.OutcomeField, s.rng, opts.Bootstrap)
		if err != nil {
			return nil, errors.Wrap(err, "bootstrap failed")
		}
		s.logger.Info("analysis %s: bootstrap completed %d/%d replicates (%d skipped)",
			run.RunID, run.Bootstrap.Completed, run.Bootstrap.Requested, run.Bootstrap.Skipped)
	}

	finished := time.Now()
	run.FinishedAt = core.NewTimestamp(finished)
	run.RuntimeMs = finished.Sub(started).Milliseconds()
	s.logger.Info("analysis %s: weighted=%.4f (se %.4f), aipw=%.4f (se %.4f), runtime %dms",
		run.RunID, run.Weighted.Estimate, run.Weighted.StdErr,
		run.DoublyRobust.Estimate, run.DoublyRobust.StdErr, run.RuntimeMs)
	return run, nil
}
