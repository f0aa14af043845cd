package report

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/classifier"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/stats"
)

func TestHeadlines(t *testing.T) {
	assert.Equal(t, "### 📊 Swiggy Delivery Analysis (200 Orders)", Title(200))
	assert.Equal(t, "### ⏱️ Late Delivery Probability: **37.5%**", LateProbability(0.375))
	assert.Equal(t, "### 🔗 Correlation (Delivery Time vs Rating): **-0.12**", Correlation(-0.1234))
	assert.Contains(t, Correlation(math.NaN()), NA)
}

func TestAdvancedBlock(t *testing.T) {
	md := Advanced(stats.AdvancedFigures{DistanceDeliveryCorr: 0.91, P90DeliveryTime: 60.04, P95DeliveryTime: 65, LateRatePct: 41.5}, 45)
	assert.Contains(t, md, "`0.91`")
	assert.Contains(t, md, "`60.0 min`")
	assert.Contains(t, md, "`65.0 min`")
	assert.Contains(t, md, "(>45 min):** `41.50%`")
}

func TestOutliersRendersNA(t *testing.T) {
	rep := stats.Partition([]float64{5, 5, 5})
	md := Outliers(&rep)
	assert.Contains(t, md, "**Outlier orders:** 0, mean `n/a` min")
	assert.Contains(t, md, "**Normal orders:** 3, mean `5.00` min")
}

func TestClassifierBlock(t *testing.T) {
	md := Classifier(&classifier.Result{Accuracy: 0.92, Features: []string{"a", "b"}, TrainSize: 150, TestSize: 50})
	assert.Contains(t, md, "`92.00%`")
	assert.Contains(t, md, "150 / 50")
	assert.Contains(t, md, "Logistic Regression")
}

func TestFailureMessages(t *testing.T) {
	assert.Equal(t, "❌ No data available for statistics.", Failure(stats.ErrEmptyTable))
	assert.Equal(t, "❌ Required columns not found for ML training.",
		Failure(fmt.Errorf("%w: Weather", classifier.ErrMissingColumns)))
	assert.Equal(t, "⚠️ Not available for this dataset (unknown column: Avg_Meal_Price_INR).",
		Failure(fmt.Errorf("%w: %s", dataset.ErrUnknownColumn, dataset.ColPrice)))
	assert.Equal(t, "❌ boom", Failure(errors.New("boom")))
}

func TestCleaningSummary(t *testing.T) {
	assert.Equal(t, "No missing values.", Cleaning(map[string]int{dataset.ColPrice: 0}))
	assert.Equal(t, "- City: 2 filled\n- Avg_Meal_Price_INR: 1 filled",
		Cleaning(map[string]int{dataset.ColPrice: 1, dataset.ColCity: 2}))
}

func TestTableMarkdown(t *testing.T) {
	tbl := Table{Header: []string{"City", "Late"}, Rows: [][]string{{"A|B", "0.5"}}}
	assert.Equal(t, "| City | Late |\n| --- | --- |\n| A\\|B | 0.5 |\n", tbl.Markdown())
	assert.Empty(t, Table{}.Markdown())
}

func TestSummaryTableLayout(t *testing.T) {
	tbl := SummaryTable([]stats.ColumnStats{{Column: dataset.ColPrice, Mean: 1, Median: 2, Std: 3}})
	assert.Equal(t, []string{"", dataset.ColPrice}, tbl.Header)
	assert.Equal(t, [][]string{{"mean", "1.00"}, {"median", "2.00"}, {"std", "3.00"}}, tbl.Rows)
}

func TestDocumentSections(t *testing.T) {
	var d Document
	d.Add("statistics", "mean: 1\n")
	d.AddTable("outlier analysis", Table{Header: []string{"a"}})
	d.Add("empty", "")
	assert.Equal(t, []string{"STATISTICS", "OUTLIER ANALYSIS", "EMPTY"}, d.Sections())
	assert.Equal(t, "[STATISTICS]\nmean: 1\n\n[OUTLIER ANALYSIS]\n| a |\n| --- |\n\n[EMPTY]\n", d.String())
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	err := WriteWorkbook(path, []Sheet{
		{Name: "Summary", Table: Table{Header: []string{"", "Price"}, Rows: [][]string{{"mean", "412.50"}}}},
		{Name: "City Late", Table: Table{Header: []string{"City", "Late Probability"}, Rows: [][]string{{"Mumbai", "0.5"}}}},
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "City Late"}, f.GetSheetList())

	rows, err := f.GetRows("City Late")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"City", "Late Probability"}, {"Mumbai", "0.5"}}, rows)

	typ, err := f.GetCellType("Summary", "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
}

func TestWriteWorkbookNoSheets(t *testing.T) {
	assert.Error(t, WriteWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), nil))
}
