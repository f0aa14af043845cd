package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
)

// Column kinds reported by Profile.
const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
	KindBoolean     = "boolean"
)

// maxTopValues caps the category list of a column profile.
const maxTopValues = 8

// ColumnProfile describes one column of the cleaned table.
type ColumnProfile struct {
	Name  string
	Kind  string
	Count int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Categorical top values
	Unique    int
	TopValues []CategoryCount
}

// CategoryCount is a category value and its frequency.
type CategoryCount struct {
	Value string
	Count int
}

// Profile describes every column of the table in cache-file order.
func Profile(t *dataset.Table) ([]ColumnProfile, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	cols := t.Columns()
	out := make([]ColumnProfile, 0, len(cols))
	for _, c := range cols {
		p := ColumnProfile{Name: c, Count: t.Len()}
		if cats, err := t.Categories(c); err == nil {
			p.Kind = KindCategorical
			p.TopValues, p.Unique = topValues(cats)
			out = append(out, p)
			continue
		}
		vals, err := t.Numeric(c)
		if err != nil {
			return nil, err
		}
		p.Kind = KindNumeric
		if c == dataset.ColIsLate {
			p.Kind = KindBoolean
		}
		p.Min = floats.Min(vals)
		p.Max = floats.Max(vals)
		p.Mean, p.Std = stat.MeanStdDev(vals, nil)
		if len(vals) < 2 {
			p.Std = math.NaN()
		}
		out = append(out, p)
	}
	return out, nil
}

// ValueCounts counts category occurrences, most frequent first and ties by value.
func ValueCounts(t *dataset.Table, col string) ([]CategoryCount, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	cats, err := t.Categories(col)
	if err != nil {
		return nil, err
	}
	return countAll(cats), nil
}

func topValues(vals []string) ([]CategoryCount, int) {
	all := countAll(vals)
	unique := len(all)
	if len(all) > maxTopValues {
		all = all[:maxTopValues]
	}
	return all, unique
}

func countAll(vals []string) []CategoryCount {
	m := map[string]int{}
	for _, v := range vals {
		m[v]++
	}
	out := make([]CategoryCount, 0, len(m))
	for k, v := range m {
		out = append(out, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	return out
}
