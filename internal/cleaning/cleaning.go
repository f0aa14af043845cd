// Package cleaning turns a raw delivery frame into the immutable table used
// by every later stage.
package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/stats"
)

// Options controls imputation and late flag derivation.
type Options struct {
	LateThreshold float64
	// CachePath receives the cleaned table; empty disables the write.
	CachePath string
}

// Summary reports what cleaning changed.
type Summary struct {
	Rows int
	// Filled counts imputed cells per column.
	Filled map[string]int
	// Medians holds the value used for each numeric column.
	Medians map[string]float64
	Late    int
}

// Clean imputes missing values and derives Is_Late. Numeric columns take the
// median of their present values (0 when none are present); categorical
// columns take dataset.MissingCategory. Any Is_Late column in the input is
// ignored.
func Clean(df dataframe.DataFrame, threshold float64) (*dataset.Table, Summary, error) {
	if err := dataset.CheckSchema(df); err != nil {
		return nil, Summary{}, err
	}
	n := df.Nrow()
	sum := Summary{Rows: n, Filled: map[string]int{}, Medians: map[string]float64{}}
	present := map[string]bool{}
	for _, name := range df.Names() {
		present[name] = true
	}
	var optional []string
	numCols := append([]string{}, dataset.NumericColumns...)
	for _, c := range dataset.OptionalNumericColumns {
		if present[c] {
			numCols = append(numCols, c)
			optional = append(optional, c)
		}
	}
	catCols := append([]string{}, dataset.CategoricalColumns...)
	for _, c := range dataset.OptionalCategoricalColumns {
		if present[c] {
			catCols = append(catCols, c)
			optional = append(optional, c)
		}
	}

	numeric := map[string][]float64{}
	for _, c := range numCols {
		vals, filled, median := imputeNumeric(parseFloats(df.Col(c).Records()))
		numeric[c] = vals
		sum.Filled[c] = filled
		sum.Medians[c] = median
	}

	categorical := map[string][]string{}
	for _, c := range catCols {
		vals, filled := imputeCategorical(df.Col(c).Records())
		categorical[c] = vals
		sum.Filled[c] = filled
	}

	orders := make([]dataset.Order, n)
	for i := 0; i < n; i++ {
		o := dataset.Order{
			City:         categorical[dataset.ColCity][i],
			Cuisine:      categorical[dataset.ColCuisine][i],
			Rating:       numeric[dataset.ColRating][i],
			PrepTime:     numeric[dataset.ColPrepTime][i],
			Distance:     numeric[dataset.ColDistance][i],
			DeliveryTime: numeric[dataset.ColDeliveryTime][i],
		}
		if vals, ok := numeric[dataset.ColPrice]; ok {
			o.Price = vals[i]
		}
		if vals, ok := numeric[dataset.ColMultipleDeliveries]; ok {
			o.MultipleDeliveries = vals[i]
		}
		if vals, ok := categorical[dataset.ColWeather]; ok {
			o.Weather = vals[i]
		}
		o.IsLate = dataset.IsLateFor(o.DeliveryTime, threshold)
		if o.IsLate {
			sum.Late++
		}
		orders[i] = o
	}
	return dataset.NewTable(orders, threshold, optional...), sum, nil
}

// Stage runs Clean and persists the result to the cache path.
type Stage struct {
	opt    Options
	logger *slog.Logger
}

// NewStage creates a cleaning stage. A nil logger falls back to slog.Default().
func NewStage(opt Options, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{opt: opt, logger: logger}
}

// Threshold is the late cutoff in minutes.
func (s *Stage) Threshold() float64 { return s.opt.LateThreshold }

// Run cleans df and overwrites the cache file with the cleaned table.
func (s *Stage) Run(ctx context.Context, df dataframe.DataFrame) (*dataset.Table, Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, Summary{}, err
	}
	t, sum, err := Clean(df, s.opt.LateThreshold)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("clean dataset: %w", err)
	}
	for _, c := range sortedKeys(sum.Filled) {
		if sum.Filled[c] > 0 {
			s.logger.InfoContext(ctx, "imputed missing values", "column", c, "count", sum.Filled[c])
		}
	}
	if s.opt.CachePath != "" {
		if err := dataset.WriteFrame(t.Frame(), s.opt.CachePath); err != nil {
			return nil, Summary{}, fmt.Errorf("write cache: %w", err)
		}
		s.logger.DebugContext(ctx, "cleaned cache written", "path", s.opt.CachePath, "rows", t.Len())
	}
	return t, sum, nil
}

func parseFloats(raw []string) []float64 {
	out := make([]float64, len(raw))
	for i, r := range raw {
		out[i] = parseNumber(r)
	}
	return out
}

// parseNumber accepts plain numbers, locale-formatted numbers such as
// "1.234,5" or "1,234.5", percentages, and values with a leading unit token
// such as "(min) 24". Anything else is NaN.
func parseNumber(s string) float64 {
	if dataset.IsMissing(s) {
		return math.NaN()
	}
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if f, ok := parseLocaleNumber(s); ok {
		return f
	}
	if fields := strings.Fields(s); len(fields) > 1 {
		if f, ok := parseLocaleNumber(fields[len(fields)-1]); ok {
			return f
		}
	}
	return math.NaN()
}

// parseLocaleNumber treats the right-most of ',' and '.' as the decimal
// separator and drops the other one along with spaces and '%'.
func parseLocaleNumber(s string) (float64, bool) {
	raw := strings.ReplaceAll(s, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	dec := '.'
	if strings.LastIndex(raw, ",") > strings.LastIndex(raw, ".") {
		dec = ','
	}
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func imputeNumeric(vals []float64) ([]float64, int, float64) {
	present := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	median := 0.0
	if len(present) > 0 {
		median = stats.Median(present)
	}
	filled := 0
	out := make([]float64, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			v = median
			filled++
		}
		out[i] = v
	}
	return out, filled, median
}

func imputeCategorical(vals []string) ([]string, int) {
	filled := 0
	out := make([]string, len(vals))
	for i, v := range vals {
		v = strings.TrimSpace(v)
		if dataset.IsMissing(v) {
			v = dataset.MissingCategory
			filled++
		}
		out[i] = v
	}
	return out, filled
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
