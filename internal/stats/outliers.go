package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
)

// IQRFactor scales the interquartile range into the normal band.
const IQRFactor = 1.5

// OutlierReport partitions values into normal and outlier by Tukey fences.
type OutlierReport struct {
	Q1, Q3, IQR  float64
	Lower, Upper float64

	NormalCount  int
	OutlierCount int
	// NormalMean and OutlierMean are NaN when the partition is empty.
	NormalMean  float64
	OutlierMean float64

	// IsOutlier is aligned with the input values.
	IsOutlier []bool
}

// Outliers partitions the table's delivery times.
func Outliers(t *dataset.Table) (*OutlierReport, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}
	vals, err := t.Numeric(dataset.ColDeliveryTime)
	if err != nil {
		return nil, err
	}
	rep := Partition(vals)
	return &rep, nil
}

// Partition classifies every value exactly once: normal when inside
// [Q1-1.5*IQR, Q3+1.5*IQR] inclusive, outlier otherwise.
func Partition(vals []float64) OutlierReport {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	rep := OutlierReport{
		Q1:        Quantile(sorted, 0.25),
		Q3:        Quantile(sorted, 0.75),
		IsOutlier: make([]bool, len(vals)),
	}
	rep.IQR = rep.Q3 - rep.Q1
	rep.Lower = rep.Q1 - IQRFactor*rep.IQR
	rep.Upper = rep.Q3 + IQRFactor*rep.IQR

	var normal, outlier []float64
	for i, v := range vals {
		if v >= rep.Lower && v <= rep.Upper {
			normal = append(normal, v)
			continue
		}
		rep.IsOutlier[i] = true
		outlier = append(outlier, v)
	}
	rep.NormalCount = len(normal)
	rep.OutlierCount = len(outlier)
	rep.NormalMean = meanOrNaN(normal)
	rep.OutlierMean = meanOrNaN(outlier)
	return rep
}

func meanOrNaN(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return Round2(stat.Mean(vals, nil))
}
