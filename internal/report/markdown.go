// Package report renders analysis results as markdown fragments, a sectioned
// text document and an XLSX workbook.
package report

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/classifier"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/stats"
)

// User-facing failure messages.
const (
	EmptyTableMessage     = "No data available for statistics."
	MissingColumnsMessage = "Required columns not found for ML training."
)

// Fixed dashboard headings.
const (
	DashboardTitle    = "# 🍛 Swiggy Delivery Analysis Dashboard"
	DashboardSubtitle = "Industry-grade EDA & insights on food delivery performance"
	StatsHeading      = "### 📈 Key Statistics"
	ExtraHeading      = "### 🔍 Additional Insights"
)

// NA is printed for undefined numbers.
const NA = "n/a"

// Title heads a run with its order count.
func Title(orders int) string {
	return fmt.Sprintf("### 📊 Swiggy Delivery Analysis (%d Orders)", orders)
}

// LateProbability renders the overall late share as a percentage.
func LateProbability(p float64) string {
	return fmt.Sprintf("### ⏱️ Late Delivery Probability: **%s**", Percent(p, 1))
}

// Correlation renders the delivery time and rating correlation.
func Correlation(r float64) string {
	return fmt.Sprintf("### 🔗 Correlation (Delivery Time vs Rating): **%s**", Float(r, 2))
}

// Advanced renders the secondary statistics block.
func Advanced(a stats.AdvancedFigures, threshold float64) string {
	var b strings.Builder
	b.WriteString("### 📊 Advanced Statistics\n")
	b.WriteString(fmt.Sprintf("- **Distance ↔ Time Correlation:** `%s`\n", Float(a.DistanceDeliveryCorr, 2)))
	b.WriteString(fmt.Sprintf("- **90th Percentile Delivery Time:** `%s min`\n", Float(a.P90DeliveryTime, 1)))
	b.WriteString(fmt.Sprintf("- **95th Percentile Delivery Time:** `%s min`\n", Float(a.P95DeliveryTime, 1)))
	b.WriteString(fmt.Sprintf("- **Late Delivery Rate (>%s min):** `%s%%`", trimFloat(threshold), Float(a.LateRatePct, 2)))
	return b.String()
}

// Outliers renders the IQR partition of delivery times.
func Outliers(r *stats.OutlierReport) string {
	var b strings.Builder
	b.WriteString("### 🚨 Delivery Time Outliers (IQR)\n")
	b.WriteString(fmt.Sprintf("- **Q1 / Q3:** `%s` / `%s` (IQR `%s`)\n", Float(r.Q1, 2), Float(r.Q3, 2), Float(r.IQR, 2)))
	b.WriteString(fmt.Sprintf("- **Normal range:** `%s` to `%s` min\n", Float(r.Lower, 2), Float(r.Upper, 2)))
	b.WriteString(fmt.Sprintf("- **Normal orders:** %d, mean `%s` min\n", r.NormalCount, Float(r.NormalMean, 2)))
	b.WriteString(fmt.Sprintf("- **Outlier orders:** %d, mean `%s` min", r.OutlierCount, Float(r.OutlierMean, 2)))
	return b.String()
}

// Classifier renders the held-out accuracy of the late-delivery model.
func Classifier(r *classifier.Result) string {
	var b strings.Builder
	b.WriteString("### 🤖 ML Model Result\n")
	b.WriteString(fmt.Sprintf("- **Late Delivery Prediction Accuracy:** `%s`\n", Percent(r.Accuracy, 2)))
	b.WriteString(fmt.Sprintf("- **Features:** %s\n", strings.Join(r.Features, ", ")))
	b.WriteString(fmt.Sprintf("- **Train / Test rows:** %d / %d\n", r.TrainSize, r.TestSize))
	b.WriteString("- **Model Used:** Logistic Regression")
	return b.String()
}

// Cleaning lists the imputed cell counts, skipping untouched columns.
func Cleaning(filled map[string]int) string {
	var lines []string
	for _, c := range []string{
		dataset.ColCity, dataset.ColCuisine, dataset.ColPrice, dataset.ColRating, dataset.ColPrepTime,
		dataset.ColDistance, dataset.ColDeliveryTime, dataset.ColWeather, dataset.ColMultipleDeliveries,
	} {
		if n := filled[c]; n > 0 {
			lines = append(lines, fmt.Sprintf("- %s: %d filled", c, n))
		}
	}
	if len(lines) == 0 {
		return "No missing values."
	}
	return strings.Join(lines, "\n")
}

// Failure maps a stage error to the message shown in place of its output.
func Failure(err error) string {
	switch {
	case errors.Is(err, stats.ErrEmptyTable):
		return "❌ " + EmptyTableMessage
	case errors.Is(err, classifier.ErrMissingColumns):
		return "❌ " + MissingColumnsMessage
	case errors.Is(err, classifier.ErrInsufficientData):
		return "❌ Not enough data for ML training."
	case errors.Is(err, stats.ErrUndefined):
		return "⚠️ Not enough variation in the data for this statistic."
	case errors.Is(err, dataset.ErrUnknownColumn):
		return "⚠️ Not available for this dataset (" + err.Error() + ")."
	}
	return "❌ " + err.Error()
}

// Float formats v with prec decimals, or NA when v is not finite.
func Float(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// Percent formats a [0,1] share as a percentage.
func Percent(p float64, prec int) string {
	s := Float(p*100, prec)
	if s == NA {
		return s
	}
	return s + "%"
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
