package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/charts"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/cleaning"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/config"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/report"
)

func testConfig(t *testing.T) *config.Global {
	t.Helper()
	dir := t.TempDir()
	c := config.Defaults()
	c.DataPath = filepath.Join(dir, "data", "swiggy.csv")
	c.CachePath = filepath.Join(dir, "data", "swiggy_cleaned.csv")
	c.ChartWidth, c.ChartHeight = 320, 200
	return c
}

func syntheticTable(t *testing.T) *dataset.Table {
	t.Helper()
	df := dataset.Generate(dataset.GenerateOptions{Rows: 200, Seed: 42, MinutesPerKM: 4, LateThreshold: 45})
	tbl, _, err := cleaning.Clean(df, 45)
	require.NoError(t, err)
	return tbl
}

func TestRunProducesEveryOutput(t *testing.T) {
	res, err := Run(context.Background(), syntheticTable(t), OptionsFromConfig(testConfig(t)), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "### 📊 Swiggy Delivery Analysis (200 Orders)", res.TitleMD)
	assert.Len(t, res.Sample.Rows, SampleRows)
	assert.Equal(t, report.StatsHeading, res.StatsMD)
	assert.Len(t, res.StatsTable.Rows, 3)
	assert.Contains(t, res.LateMD, "Late Delivery Probability")
	assert.Len(t, res.CityLate.Rows, len(dataset.Cities))
	assert.Contains(t, res.CorrelationMD, "Correlation (Delivery Time vs Rating)")
	assert.Equal(t, report.ExtraHeading, res.ExtraMD)
	assert.Contains(t, res.AdvancedMD, "Advanced Statistics")
	assert.Contains(t, res.OutliersMD, "Outliers")
	assert.Contains(t, res.ClassifierMD, "Logistic Regression")
	require.NotNil(t, res.Outliers)
	assert.Equal(t, 200, res.Outliers.NormalCount+res.Outliers.OutlierCount)

	cs := res.Charts()
	require.Len(t, cs, len(charts.Catalog))
	for i, c := range cs {
		assert.Equal(t, charts.Catalog[i].Name, c.Name)
		assert.Empty(t, c.Err, c.Name)
		assert.True(t, strings.HasPrefix(string(c.PNG), "\x89PNG"), c.Name)
	}
	_, ok := res.Chart(charts.CuisineShare)
	assert.True(t, ok)
}

func TestRunIDsAreUnique(t *testing.T) {
	opt := OptionsFromConfig(testConfig(t))
	opt.SkipCharts = true
	tbl := syntheticTable(t)
	a, err := Run(context.Background(), tbl, opt, nil)
	require.NoError(t, err)
	b, err := Run(context.Background(), tbl, opt, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.ClassifierMD, b.ClassifierMD)
}

func TestRunEmptyTableRendersMessages(t *testing.T) {
	res, err := Run(context.Background(), dataset.NewTable(nil, 45), OptionsFromConfig(testConfig(t)), nil)
	require.NoError(t, err)

	msg := "❌ " + report.EmptyTableMessage
	assert.Contains(t, res.StatsMD, msg)
	assert.Equal(t, msg, res.LateMD)
	assert.Equal(t, msg, res.CityLateMD)
	assert.Contains(t, res.Document().String(), "[LATE PROBABILITY BY CITY]\n"+msg+"\n")
	assert.Equal(t, msg, res.CorrelationMD)
	assert.Equal(t, msg, res.AdvancedMD)
	assert.Equal(t, msg, res.OutliersMD)
	assert.Contains(t, res.ClassifierMD, "Not enough data")
	for _, c := range res.Charts() {
		assert.Empty(t, c.PNG)
		assert.NotEmpty(t, c.Err)
	}
	_, ok := res.Chart(charts.DeliveryHistogram)
	assert.False(t, ok)
}

func TestRunMissingClassifierColumns(t *testing.T) {
	opt := OptionsFromConfig(testConfig(t))
	opt.SkipCharts = true
	opt.Classifier.Features = []string{dataset.ColDistance, dataset.ColMultipleDeliveries}
	res, err := Run(context.Background(), syntheticTable(t), opt, nil)
	require.NoError(t, err)
	assert.Equal(t, "❌ "+report.MissingColumnsMessage, res.ClassifierMD)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, syntheticTable(t), Options{SkipCharts: true}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzerSynthesizesThenUsesCache(t *testing.T) {
	c := testConfig(t)
	a := NewAnalyzer(c, nil)
	opt := a.Options()
	opt.SkipCharts = true
	a.SetOptions(opt)

	first, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dataset.OriginSynthetic, first.Origin)
	assert.FileExists(t, c.DataPath)
	assert.FileExists(t, c.CachePath)
	assert.Equal(t, "No missing values.", first.CleaningMD)

	second, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dataset.OriginCache, second.Origin)
	assert.Equal(t, first.LateMD, second.LateMD)
	assert.Equal(t, first.OutliersMD, second.OutliersMD)

	require.NoError(t, a.Provider().Invalidate())
	third, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dataset.OriginSource, third.Origin)
}

func TestAnalyzerReadsKaggleExport(t *testing.T) {
	c := testConfig(t)
	var b strings.Builder
	b.WriteString("City,Type_of_order,distance,pickup_time_minutes,Time_taken(min),Delivery_person_Ratings,Weather_conditions,multiple_deliveries\n")
	cities := []string{"Urban", "Metropolitian", "Semi-Urban"}
	orders := []string{"Snack", "Meal", "Drinks", "Buffet"}
	for i := 0; i < 60; i++ {
		dist := 1 + float64(i%10)
		prep := 5 + i%4*5
		fmt.Fprintf(&b, "%s,%s,%.1f,%d,%.0f,%.1f,Sunny,%d\n",
			cities[i%3], orders[i%4], dist, prep, float64(prep)+dist*4, 3+float64(i%20)/10, i%3)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(c.DataPath), 0o755))
	require.NoError(t, os.WriteFile(c.DataPath, []byte(b.String()), 0o644))

	a := NewAnalyzer(c, nil)
	res, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dataset.OriginSource, res.Origin)
	assert.Equal(t, 60, res.Orders)

	require.Len(t, res.Summary, 3)
	for _, s := range res.Summary {
		assert.NotEqual(t, dataset.ColPrice, s.Column)
	}
	assert.Nil(t, res.Key)
	assert.Contains(t, res.StatsMD, "Not available for this dataset")
	assert.Contains(t, res.LateMD, "Late Delivery Probability")
	assert.Len(t, res.CityLate.Rows, 3)
	assert.Contains(t, res.ClassifierMD, "Logistic Regression")

	assert.Empty(t, res.PriceBox.PNG)
	assert.Contains(t, res.PriceBox.Err, dataset.ColPrice)
	assert.NotEmpty(t, res.DistanceChart.PNG)
	assert.Empty(t, res.DistanceChart.Err)

	cached, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dataset.OriginCache, cached.Origin)
	assert.Equal(t, res.LateMD, cached.LateMD)
}

func TestAnalyzerZeroRowsAcrossRuns(t *testing.T) {
	c := testConfig(t)
	c.SampleSize = 0
	a := NewAnalyzer(c, nil)
	msg := "❌ " + report.EmptyTableMessage

	first, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dataset.OriginSynthetic, first.Origin)
	assert.Equal(t, 0, first.Orders)
	assert.Equal(t, msg, first.LateMD)

	second, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dataset.OriginCache, second.Origin)
	assert.Equal(t, 0, second.Orders)
	assert.Equal(t, msg, second.LateMD)
	assert.Equal(t, msg, second.CityLateMD)
}

func TestAnalyzerMissingSource(t *testing.T) {
	c := testConfig(t)
	c.SynthesizeMissing = false
	_, err := NewAnalyzer(c, nil).Analyze(context.Background())
	assert.ErrorIs(t, err, dataset.ErrSourceNotFound)
}

func TestDocumentAndWorkbook(t *testing.T) {
	c := testConfig(t)
	opt := OptionsFromConfig(c)
	opt.SkipCharts = true
	res, err := Run(context.Background(), syntheticTable(t), opt, nil)
	require.NoError(t, err)

	doc := res.Document()
	assert.Contains(t, doc.Sections(), "OUTLIER ANALYSIS")
	assert.Contains(t, doc.String(), "[STATISTICS]")

	path := filepath.Join(filepath.Dir(c.DataPath), "report.xlsx")
	require.NoError(t, report.WriteWorkbook(path, res.Workbook()))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
