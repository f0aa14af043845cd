// Package stats computes the descriptive statistics of a cleaned delivery
// table. Every function is pure and returns ErrEmptyTable for a table
// without rows.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
)

var (
	// ErrEmptyTable is returned by every statistic for a table without rows.
	ErrEmptyTable = errors.New("no data available for statistics")
	// ErrUndefined marks statistics that have no value for the given data,
	// such as a correlation over a constant column.
	ErrUndefined = errors.New("statistic undefined for this data")
)

// SummaryColumns is the column subset reported by Summarize by default.
var SummaryColumns = []string{
	dataset.ColPrice,
	dataset.ColRating,
	dataset.ColDeliveryTime,
	dataset.ColDistance,
}

// ColumnStats holds mean, median and sample standard deviation of a column,
// rounded to two decimals.
type ColumnStats struct {
	Column string
	Mean   float64
	Median float64
	Std    float64
}

// Summarize computes ColumnStats for cols, or for the SummaryColumns the
// table carries when none are given.
func Summarize(t *dataset.Table, cols ...string) ([]ColumnStats, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	if len(cols) == 0 {
		for _, c := range SummaryColumns {
			if t.Has(c) {
				cols = append(cols, c)
			}
		}
	}
	out := make([]ColumnStats, 0, len(cols))
	for _, c := range cols {
		vals, err := t.Numeric(c)
		if err != nil {
			return nil, err
		}
		out = append(out, ColumnStats{
			Column: c,
			Mean:   Round2(stat.Mean(vals, nil)),
			Median: Round2(Median(vals)),
			Std:    Round2(stat.StdDev(vals, nil)),
		})
	}
	return out, nil
}

// KeyFigures are the headline numbers of a run.
type KeyFigures struct {
	MeanOrderValue   float64
	MedianOrderValue float64
	StdDeliveryTime  float64
	LateProbability  float64
}

// KeyStatistics computes the headline numbers, rounded to two decimals. The
// order value figures need the price column.
func KeyStatistics(t *dataset.Table) (KeyFigures, error) {
	if t.Len() == 0 {
		return KeyFigures{}, ErrEmptyTable
	}
	prices, err := t.Numeric(dataset.ColPrice)
	if err != nil {
		return KeyFigures{}, err
	}
	delivery, _ := t.Numeric(dataset.ColDeliveryTime)
	late, _ := LateProbability(t)
	return KeyFigures{
		MeanOrderValue:   Round2(stat.Mean(prices, nil)),
		MedianOrderValue: Round2(Median(prices)),
		StdDeliveryTime:  Round2(stat.StdDev(delivery, nil)),
		LateProbability:  Round2(late),
	}, nil
}

// LateProbability is the share of late orders.
func LateProbability(t *dataset.Table) (float64, error) {
	if t.Len() == 0 {
		return 0, ErrEmptyTable
	}
	late := 0
	for _, o := range t.Orders {
		if o.IsLate {
			late++
		}
	}
	return float64(late) / float64(t.Len()), nil
}

// GroupLate is the late share of one category value.
type GroupLate struct {
	Group       string
	Orders      int
	Late        int
	Probability float64
}

// GroupOptions controls ordering and truncation of grouped results.
type GroupOptions struct {
	// Descending sorts by probability, highest first. Otherwise groups are
	// ordered by name.
	Descending bool
	// TopK keeps the first K groups after sorting; 0 keeps all.
	TopK int
}

// LateProbabilityBy computes the late share per value of a categorical column.
func LateProbabilityBy(t *dataset.Table, col string, opt GroupOptions) ([]GroupLate, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	keys, err := t.Categories(col)
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	var out []GroupLate
	for i, k := range keys {
		j, ok := idx[k]
		if !ok {
			j = len(out)
			idx[k] = j
			out = append(out, GroupLate{Group: k})
		}
		out[j].Orders++
		if t.Orders[i].IsLate {
			out[j].Late++
		}
	}
	for i := range out {
		out[i].Probability = float64(out[i].Late) / float64(out[i].Orders)
	}
	sort.Slice(out, func(i, j int) bool {
		if opt.Descending && out[i].Probability != out[j].Probability {
			return out[i].Probability > out[j].Probability
		}
		return out[i].Group < out[j].Group
	})
	if opt.TopK > 0 && len(out) > opt.TopK {
		out = out[:opt.TopK]
	}
	return out, nil
}

// Correlation returns the Pearson correlation between two numeric columns.
func Correlation(t *dataset.Table, x, y string) (float64, error) {
	fit, err := LinearFit(t, x, y)
	if err != nil {
		return 0, err
	}
	return fit.R, nil
}

// Fit is a least-squares line y = Intercept + Slope*x with correlation R.
type Fit struct {
	Intercept float64
	Slope     float64
	R         float64
}

// LinearFit regresses column y on column x.
func LinearFit(t *dataset.Table, x, y string) (Fit, error) {
	if t.Len() == 0 {
		return Fit{}, ErrEmptyTable
	}
	xs, err := t.Numeric(x)
	if err != nil {
		return Fit{}, err
	}
	ys, err := t.Numeric(y)
	if err != nil {
		return Fit{}, err
	}
	if len(xs) < 2 {
		return Fit{}, fmt.Errorf("%w: correlation needs at least two rows", ErrUndefined)
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Fit{}, fmt.Errorf("%w: %s or %s has zero variance", ErrUndefined, x, y)
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Fit{Intercept: alpha, Slope: beta, R: r}, nil
}

// Percentiles returns linearly interpolated quantiles of a column for each
// p in [0,1].
func Percentiles(t *dataset.Table, col string, ps ...float64) ([]float64, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	vals, err := t.Numeric(col)
	if err != nil {
		return nil, err
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = Quantile(sorted, p)
	}
	return out, nil
}

// AdvancedFigures are the secondary statistics of the dashboard.
type AdvancedFigures struct {
	DistanceDeliveryCorr float64
	P90DeliveryTime      float64
	P95DeliveryTime      float64
	LateRatePct          float64
}

// Advanced computes distance/delivery correlation, upper delivery-time
// percentiles and the late rate as a percentage. A constant column leaves the
// correlation NaN rather than failing the whole block.
func Advanced(t *dataset.Table) (AdvancedFigures, error) {
	if t.Len() == 0 {
		return AdvancedFigures{}, ErrEmptyTable
	}
	corr, err := Correlation(t, dataset.ColDistance, dataset.ColDeliveryTime)
	if err != nil {
		if !errors.Is(err, ErrUndefined) {
			return AdvancedFigures{}, err
		}
		corr = math.NaN()
	}
	ps, err := Percentiles(t, dataset.ColDeliveryTime, 0.90, 0.95)
	if err != nil {
		return AdvancedFigures{}, err
	}
	late, _ := LateProbability(t)
	return AdvancedFigures{
		DistanceDeliveryCorr: corr,
		P90DeliveryTime:      ps[0],
		P95DeliveryTime:      ps[1],
		LateRatePct:          late * 100,
	}, nil
}

// Median of unsorted values; NaN for an empty slice.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	return Quantile(cp, 0.5)
}

// Quantile interpolates linearly between closest ranks of sorted values.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
