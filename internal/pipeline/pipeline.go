// Package pipeline runs the full analysis over a cleaned table and collects
// every dashboard output in one Result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/charts"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/classifier"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/config"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/report"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/stats"
)

// SampleRows is the number of leading orders shown in the sample table.
const SampleRows = 10

// Options controls one analysis run.
type Options struct {
	Classifier classifier.Options
	// GroupTopK truncates the city table; 0 keeps every city.
	GroupTopK int
	ChartSize charts.Size
	// SkipCharts leaves every Chart empty.
	SkipCharts bool
}

// OptionsFromConfig maps the global configuration onto run options.
func OptionsFromConfig(c *config.Global) Options {
	return Options{
		Classifier: classifier.Options{
			Features: c.ClassifierFeatures,
			TestSize: c.ClassifierTestSize,
			Seed:     c.RandomSeed,
		},
		GroupTopK: c.GroupTopK,
		ChartSize: charts.Size{Width: c.ChartWidth, Height: c.ChartHeight},
	}
}

// Chart is one rendered figure. Err holds the inline message when rendering
// failed.
type Chart struct {
	Name  string
	Title string
	PNG   []byte
	Err   string
}

// Result holds every output of a run. The fields up to DistanceChart mirror
// the dashboard layout.
type Result struct {
	TitleMD       string
	Sample        report.Table
	StatsMD       string
	StatsTable    report.Table
	LateMD        string
	CityLate      report.Table
	CityLateMD    string
	CorrelationMD string
	Histogram     Chart
	CityLateChart Chart
	RatingScatter Chart
	ExtraMD       string
	PriceBox      Chart
	CuisinePie    Chart
	DistanceChart Chart

	ViolinChart  Chart
	AdvancedMD   string
	OutliersMD   string
	ClassifierMD string
	CleaningMD   string
	Profile      report.Table

	Outliers   *stats.OutlierReport
	Key        *stats.KeyFigures
	LateShare  *float64
	Summary    []stats.ColumnStats
	CityGroups []stats.GroupLate
	Model      *classifier.Result

	RunID     string
	Orders    int
	Origin    dataset.Origin
	StartedAt time.Time
	Duration  time.Duration
}

// Charts returns the figures in display order.
func (r *Result) Charts() []Chart {
	return []Chart{r.Histogram, r.CityLateChart, r.RatingScatter, r.PriceBox, r.CuisinePie, r.DistanceChart, r.ViolinChart}
}

// Chart finds a rendered figure by name.
func (r *Result) Chart(name string) (Chart, bool) {
	for _, c := range r.Charts() {
		if c.Name == name && len(c.PNG) > 0 {
			return c, true
		}
	}
	return Chart{}, false
}

// Run computes every output for t. Stage failures that leave the rest of the
// run meaningful become inline messages; only a cancelled context aborts.
func Run(ctx context.Context, t *dataset.Table, opt Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := &Result{
		RunID:     uuid.NewString(),
		Orders:    t.Len(),
		StartedAt: time.Now(),
	}
	logger = logger.With("run_id", res.RunID)
	logger.InfoContext(ctx, "analysis started", "orders", res.Orders)

	res.TitleMD = report.Title(t.Len())
	res.Sample = report.SampleTable(t, t.Head(SampleRows))
	res.StatsMD = report.StatsHeading
	res.ExtraMD = report.ExtraHeading

	if summary, err := stats.Summarize(t); err != nil {
		res.StatsMD = report.StatsHeading + "\n\n" + failure(ctx, logger, "summary", err)
	} else {
		res.Summary = summary
		res.StatsTable = report.SummaryTable(summary)
	}
	if key, err := stats.KeyStatistics(t); err == nil {
		res.Key = &key
	} else if !errors.Is(err, stats.ErrEmptyTable) {
		res.StatsMD += "\n\n" + failure(ctx, logger, "key figures", err)
	}
	if p, err := stats.LateProbability(t); err != nil {
		res.LateMD = failure(ctx, logger, "late probability", err)
	} else {
		res.LateShare = &p
		res.LateMD = report.LateProbability(p)
	}
	if groups, err := stats.LateProbabilityBy(t, dataset.ColCity, stats.GroupOptions{TopK: opt.GroupTopK}); err != nil {
		res.CityLateMD = failure(ctx, logger, "late by city", err)
	} else {
		res.CityGroups = groups
		res.CityLate = report.GroupLateTable(dataset.ColCity, groups)
	}
	if r, err := stats.Correlation(t, dataset.ColDeliveryTime, dataset.ColRating); err != nil {
		res.CorrelationMD = failure(ctx, logger, "correlation", err)
	} else {
		res.CorrelationMD = report.Correlation(r)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if adv, err := stats.Advanced(t); err != nil {
		res.AdvancedMD = failure(ctx, logger, "advanced statistics", err)
	} else {
		res.AdvancedMD = report.Advanced(adv, t.LateThreshold)
	}
	if out, err := stats.Outliers(t); err != nil {
		res.OutliersMD = failure(ctx, logger, "outliers", err)
	} else {
		res.Outliers = out
		res.OutliersMD = report.Outliers(out)
	}
	if prof, err := stats.Profile(t); err == nil {
		res.Profile = report.ProfileTable(prof)
	}
	if model, err := classifier.Train(t, opt.Classifier); err != nil {
		res.ClassifierMD = failure(ctx, logger, "classifier", err)
	} else {
		res.Model = model
		res.ClassifierMD = report.Classifier(model)
		logger.DebugContext(ctx, "classifier trained", "accuracy", model.Accuracy, "iterations", model.Iterations)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !opt.SkipCharts {
		rendered, err := renderCharts(ctx, t, opt.ChartSize, logger)
		if err != nil {
			return nil, err
		}
		res.Histogram = rendered[charts.DeliveryHistogram]
		res.CityLateChart = rendered[charts.LateByCity]
		res.RatingScatter = rendered[charts.DeliveryVsRating]
		res.PriceBox = rendered[charts.PriceByCity]
		res.CuisinePie = rendered[charts.CuisineShare]
		res.DistanceChart = rendered[charts.DistanceVsDelivery]
		res.ViolinChart = rendered[charts.DeliveryByCity]
	}

	res.Duration = time.Since(res.StartedAt)
	logger.InfoContext(ctx, "analysis finished", "duration", res.Duration)
	return res, nil
}

// renderCharts draws the catalog concurrently. A chart that fails to render
// carries an inline message; only cancellation and a broken font are
// returned as errors.
func renderCharts(ctx context.Context, t *dataset.Table, size charts.Size, logger *slog.Logger) (map[string]Chart, error) {
	if err := charts.LoadFont(); err != nil {
		return nil, fmt.Errorf("load chart font: %w", err)
	}
	out := make([]Chart, len(charts.Catalog))
	g, ctx := errgroup.WithContext(ctx)
	for i, spec := range charts.Catalog {
		i, spec := i, spec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := Chart{Name: spec.Name, Title: spec.Title}
			png, err := spec.Render(t, size)
			if err != nil {
				c.Err = failure(ctx, logger, "chart "+spec.Name, err)
			} else {
				c.PNG = png
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	rendered := make(map[string]Chart, len(out))
	for _, c := range out {
		rendered[c.Name] = c
	}
	return rendered, nil
}

func failure(ctx context.Context, logger *slog.Logger, stage string, err error) string {
	logger.WarnContext(ctx, "analysis stage skipped", "stage", stage, "error", err)
	return report.Failure(err)
}

// Document renders the run as a sectioned text report.
func (r *Result) Document() *report.Document {
	var d report.Document
	d.Add("dataset summary", fmt.Sprintf("Run: %s\nOrigin: %s\nOrders: %d", r.RunID, r.Origin, r.Orders))
	if r.CleaningMD != "" {
		d.Add("cleaning", r.CleaningMD)
	}
	d.Add("statistics", joinNonEmpty(r.StatsMD, r.StatsTable.Markdown(), r.LateMD))
	d.Add("late probability by city", joinNonEmpty(r.CityLateMD, r.CityLate.Markdown()))
	d.Add("correlation", r.CorrelationMD)
	d.Add("advanced statistics", r.AdvancedMD)
	d.Add("outlier analysis", r.OutliersMD)
	d.Add("ml model", r.ClassifierMD)
	d.AddTable("column profile", r.Profile)
	d.AddTable("sample", r.Sample)
	return &d
}

// Workbook lays the tables of the run out as spreadsheet sheets.
func (r *Result) Workbook() []report.Sheet {
	sheets := []report.Sheet{{Name: "Summary", Table: r.StatsTable}}
	if r.Key != nil {
		sheets = append(sheets, report.Sheet{Name: "Key Figures", Table: report.Table{
			Header: []string{"Metric", "Value"},
			Rows: [][]string{
				{"Mean order value", report.Float(r.Key.MeanOrderValue, 2)},
				{"Median order value", report.Float(r.Key.MedianOrderValue, 2)},
				{"Std delivery time", report.Float(r.Key.StdDeliveryTime, 2)},
				{"Late probability", report.Float(r.Key.LateProbability, 2)},
			},
		}})
	}
	sheets = append(sheets, report.Sheet{Name: "City Late", Table: r.CityLate})
	if r.Outliers != nil {
		sheets = append(sheets, report.Sheet{Name: "Outliers", Table: report.OutlierTable(r.Outliers)})
	}
	sheets = append(sheets,
		report.Sheet{Name: "Profile", Table: r.Profile},
		report.Sheet{Name: "Sample", Table: r.Sample},
	)
	return sheets
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += p
	}
	return out
}
