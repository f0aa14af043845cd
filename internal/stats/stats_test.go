package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
)

func orders(delivery ...float64) []dataset.Order {
	out := make([]dataset.Order, len(delivery))
	for i, d := range delivery {
		out[i] = dataset.Order{
			City:         []string{"Bangalore", "Mumbai"}[i%2],
			Cuisine:      "Indian",
			Price:        float64(100 * (i + 1)),
			Rating:       4,
			PrepTime:     10,
			Distance:     float64(i + 1),
			DeliveryTime: d,
			IsLate:       dataset.IsLateFor(d, 45),
		}
	}
	return out
}

func table(delivery ...float64) *dataset.Table {
	return dataset.NewTable(orders(delivery...), 45, dataset.ColPrice)
}

func TestOutliersPartition(t *testing.T) {
	rep, err := Outliers(table(10, 20, 30, 40, 50, 200))
	require.NoError(t, err)

	assert.InDelta(t, 22.5, rep.Q1, 1e-9)
	assert.InDelta(t, 47.5, rep.Q3, 1e-9)
	assert.Equal(t, 5, rep.NormalCount)
	assert.Equal(t, 1, rep.OutlierCount)
	assert.Equal(t, 30.0, rep.NormalMean)
	assert.Equal(t, 200.0, rep.OutlierMean)
	assert.Equal(t, []bool{false, false, false, false, false, true}, rep.IsOutlier)
}

func TestOutliersNoneFound(t *testing.T) {
	rep := Partition([]float64{5, 5, 5, 5})
	assert.Equal(t, 4, rep.NormalCount)
	assert.Zero(t, rep.OutlierCount)
	assert.True(t, math.IsNaN(rep.OutlierMean))
}

func TestPartitionCoversEveryRow(t *testing.T) {
	df := dataset.Generate(dataset.GenerateOptions{Rows: 200, Seed: 7, MinutesPerKM: 4, LateThreshold: 45})
	vals := df.Col(dataset.ColDeliveryTime).Float()
	rep := Partition(vals)
	assert.Equal(t, len(vals), rep.NormalCount+rep.OutlierCount)
	for i, v := range vals {
		inside := v >= rep.Lower && v <= rep.Upper
		assert.Equal(t, !inside, rep.IsOutlier[i])
	}
}

func TestLateProbabilityBounds(t *testing.T) {
	p, err := LateProbability(table(10, 50, 60, 30))
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)
}

func TestGroupedRatesWeightToOverall(t *testing.T) {
	tbl := table(10, 50, 60, 30, 46, 45, 90)
	overall, err := LateProbability(tbl)
	require.NoError(t, err)

	groups, err := LateProbabilityBy(tbl, dataset.ColCity, GroupOptions{})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Bangalore", groups[0].Group)

	weighted, total := 0.0, 0
	for _, g := range groups {
		assert.GreaterOrEqual(t, g.Probability, 0.0)
		assert.LessOrEqual(t, g.Probability, 1.0)
		weighted += g.Probability * float64(g.Orders)
		total += g.Orders
	}
	assert.Equal(t, tbl.Len(), total)
	assert.InDelta(t, overall, weighted/float64(total), 1e-12)
}

func TestGroupOrderingAndTopK(t *testing.T) {
	// Bangalore: 10, 60, 46 -> 2/3; Mumbai: 50, 30 -> 1/2
	tbl := table(10, 50, 60, 30, 46)
	groups, err := LateProbabilityBy(tbl, dataset.ColCity, GroupOptions{Descending: true, TopK: 1})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Bangalore", groups[0].Group)
	assert.InDelta(t, 2.0/3.0, groups[0].Probability, 1e-12)
}

func TestSummarize(t *testing.T) {
	got, err := Summarize(table(10, 20, 30))
	require.NoError(t, err)
	require.Len(t, got, len(SummaryColumns))
	assert.Equal(t, dataset.ColPrice, got[0].Column)
	assert.Equal(t, 200.0, got[0].Mean)
	assert.Equal(t, 200.0, got[0].Median)
	assert.Equal(t, 100.0, got[0].Std)
	assert.Equal(t, 20.0, got[2].Mean)

	_, err = Summarize(table(10), "nope")
	assert.ErrorIs(t, err, dataset.ErrUnknownColumn)
}

func TestKeyStatistics(t *testing.T) {
	kf, err := KeyStatistics(table(10, 50, 60, 30))
	require.NoError(t, err)
	assert.Equal(t, 250.0, kf.MeanOrderValue)
	assert.Equal(t, 250.0, kf.MedianOrderValue)
	assert.Equal(t, 0.5, kf.LateProbability)
	assert.Equal(t, 22.17, kf.StdDeliveryTime)
}

func TestStatisticsWithoutPrice(t *testing.T) {
	tbl := dataset.NewTable(orders(10, 50, 60, 30), 45)

	got, err := Summarize(tbl)
	require.NoError(t, err)
	require.Len(t, got, len(SummaryColumns)-1)
	for _, c := range got {
		assert.NotEqual(t, dataset.ColPrice, c.Column)
	}

	_, err = KeyStatistics(tbl)
	assert.ErrorIs(t, err, dataset.ErrUnknownColumn)
	p, err := LateProbability(tbl)
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)
}

func TestLinearFitAndCorrelation(t *testing.T) {
	// Distance is i+1 and delivery grows by 4 per km.
	tbl := table(14, 18, 22, 26)
	fit, err := LinearFit(tbl, dataset.ColDistance, dataset.ColDeliveryTime)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, fit.R, 1e-9)
	assert.InDelta(t, 4.0, fit.Slope, 1e-9)
	assert.InDelta(t, 10.0, fit.Intercept, 1e-9)

	_, err = Correlation(tbl, dataset.ColRating, dataset.ColDeliveryTime)
	assert.ErrorIs(t, err, ErrUndefined)

	_, err = Correlation(table(5), dataset.ColDistance, dataset.ColDeliveryTime)
	assert.ErrorIs(t, err, ErrUndefined)
}

func TestAdvanced(t *testing.T) {
	adv, err := Advanced(table(10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, adv.P90DeliveryTime, 1e-9)
	assert.InDelta(t, 105.0, adv.P95DeliveryTime, 1e-9)
	assert.InDelta(t, 1.0, adv.DistanceDeliveryCorr, 1e-9)
	assert.InDelta(t, 700.0/11.0, adv.LateRatePct, 1e-9)
}

func TestAdvancedConstantColumnLeavesNaN(t *testing.T) {
	adv, err := Advanced(table(30, 30, 30))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(adv.DistanceDeliveryCorr))
}

func TestEmptyTable(t *testing.T) {
	empty := dataset.NewTable(nil, 45)

	_, err := Summarize(empty)
	assert.ErrorIs(t, err, ErrEmptyTable)
	_, err = KeyStatistics(empty)
	assert.ErrorIs(t, err, ErrEmptyTable)
	_, err = LateProbability(empty)
	assert.ErrorIs(t, err, ErrEmptyTable)
	_, err = LateProbabilityBy(empty, dataset.ColCity, GroupOptions{})
	assert.ErrorIs(t, err, ErrEmptyTable)
	_, err = Correlation(empty, dataset.ColDistance, dataset.ColDeliveryTime)
	assert.ErrorIs(t, err, ErrEmptyTable)
	_, err = Outliers(empty)
	assert.ErrorIs(t, err, ErrEmptyTable)
	_, err = Advanced(empty)
	assert.ErrorIs(t, err, ErrEmptyTable)
	_, err = Profile(empty)
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestProfile(t *testing.T) {
	prof, err := Profile(table(10, 50, 60))
	require.NoError(t, err)
	require.Len(t, prof, 8)

	assert.Equal(t, dataset.ColCity, prof[0].Name)
	assert.Equal(t, KindCategorical, prof[0].Kind)
	assert.Equal(t, 2, prof[0].Unique)
	assert.Equal(t, CategoryCount{Value: "Bangalore", Count: 2}, prof[0].TopValues[0])

	assert.Equal(t, KindNumeric, prof[2].Kind)
	assert.Equal(t, 100.0, prof[2].Min)
	assert.Equal(t, 300.0, prof[2].Max)
	assert.Equal(t, KindBoolean, prof[7].Kind)
}

func TestValueCounts(t *testing.T) {
	counts, err := ValueCounts(table(1, 2, 3), dataset.ColCity)
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{{"Bangalore", 2}, {"Mumbai", 1}}, counts)
}

func TestQuantile(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.0, Quantile(s, 0))
	assert.Equal(t, 4.0, Quantile(s, 1))
	assert.Equal(t, 2.5, Quantile(s, 0.5))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
}
