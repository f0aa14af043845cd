package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/cleaning"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/config"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/report"
)

// Analyzer loads, cleans and analyses the configured dataset.
type Analyzer struct {
	provider *dataset.Provider
	stage    *cleaning.Stage
	opt      Options
	logger   *slog.Logger
}

// NewAnalyzer wires a provider and a cleaning stage from configuration.
func NewAnalyzer(c *config.Global, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	provider := dataset.NewProvider(dataset.ProviderOptions{
		SourcePath: c.DataPath,
		CachePath:  c.CachePath,
		SheetName:  c.SheetName,
		Synthesize: c.SynthesizeMissing,
		Generate: dataset.GenerateOptions{
			Rows:          c.SampleSize,
			Seed:          c.RandomSeed,
			MinutesPerKM:  c.MinutesPerKM,
			LateThreshold: c.LateThresholdMin,
		},
	}, logger)
	stage := cleaning.NewStage(cleaning.Options{LateThreshold: c.LateThresholdMin, CachePath: c.CachePath}, logger)
	return &Analyzer{provider: provider, stage: stage, opt: OptionsFromConfig(c), logger: logger}
}

// Provider exposes the dataset provider, used for cache invalidation.
func (a *Analyzer) Provider() *dataset.Provider { return a.provider }

// Options returns the run options.
func (a *Analyzer) Options() Options { return a.opt }

// SetOptions replaces the run options.
func (a *Analyzer) SetOptions(opt Options) { a.opt = opt }

// Load resolves and cleans the dataset. A frame read from the cache is
// cleaned again without rewriting the cache.
func (a *Analyzer) Load(ctx context.Context) (*dataset.Table, dataset.Origin, cleaning.Summary, error) {
	df, origin, err := a.provider.Ensure(ctx)
	if err != nil {
		return nil, "", cleaning.Summary{}, fmt.Errorf("load dataset: %w", err)
	}
	if origin == dataset.OriginCache {
		t, sum, err := cleaning.Clean(df, a.stage.Threshold())
		if err != nil {
			return nil, "", cleaning.Summary{}, fmt.Errorf("clean cached dataset: %w", err)
		}
		return t, origin, sum, nil
	}
	t, sum, err := a.stage.Run(ctx, df)
	if err != nil {
		return nil, "", cleaning.Summary{}, err
	}
	return t, origin, sum, nil
}

// Analyze runs Load and then the full analysis.
func (a *Analyzer) Analyze(ctx context.Context) (*Result, error) {
	t, origin, sum, err := a.Load(ctx)
	if err != nil {
		return nil, err
	}
	res, err := Run(ctx, t, a.opt, a.logger)
	if err != nil {
		return nil, err
	}
	res.Origin = origin
	res.CleaningMD = report.Cleaning(sum.Filled)
	return res, nil
}
