package report

import (
	"strings"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/stats"
)

// Table is a rectangular block of cells with a header row.
type Table struct {
	Header []string
	Rows   [][]string
}

// Markdown renders t as a pipe table.
func (t Table) Markdown() string {
	if len(t.Header) == 0 {
		return ""
	}
	var b strings.Builder
	writeRow(&b, t.Header)
	sep := make([]string, len(t.Header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep)
	for _, r := range t.Rows {
		writeRow(&b, r)
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(escapeCell(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// SampleTable lists orders with every column of the table.
func SampleTable(t *dataset.Table, orders []dataset.Order) Table {
	cols := t.Columns()
	out := Table{Header: cols}
	for _, o := range orders {
		out.Rows = append(out.Rows, o.Record(cols))
	}
	return out
}

// SummaryTable lays out mean, median and std as rows and columns as columns.
func SummaryTable(cs []stats.ColumnStats) Table {
	out := Table{Header: []string{""}}
	mean := []string{"mean"}
	median := []string{"median"}
	std := []string{"std"}
	for _, c := range cs {
		out.Header = append(out.Header, c.Column)
		mean = append(mean, Float(c.Mean, 2))
		median = append(median, Float(c.Median, 2))
		std = append(std, Float(c.Std, 2))
	}
	out.Rows = [][]string{mean, median, std}
	return out
}

// GroupLateTable lists late probability per group.
func GroupLateTable(key string, groups []stats.GroupLate) Table {
	out := Table{Header: []string{key, "Orders", "Late Probability"}}
	for _, g := range groups {
		out.Rows = append(out.Rows, []string{g.Group, itoa(g.Orders), Float(g.Probability, 4)})
	}
	return out
}

// OutlierTable lists delivery-time partition figures.
func OutlierTable(r *stats.OutlierReport) Table {
	return Table{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Q1", Float(r.Q1, 2)},
			{"Q3", Float(r.Q3, 2)},
			{"IQR", Float(r.IQR, 2)},
			{"Lower bound", Float(r.Lower, 2)},
			{"Upper bound", Float(r.Upper, 2)},
			{"Normal orders", itoa(r.NormalCount)},
			{"Outlier orders", itoa(r.OutlierCount)},
			{"Normal mean", Float(r.NormalMean, 2)},
			{"Outlier mean", Float(r.OutlierMean, 2)},
		},
	}
}

// ProfileTable summarises every column of the table.
func ProfileTable(ps []stats.ColumnProfile) Table {
	out := Table{Header: []string{"Column", "Kind", "Count", "Min", "Max", "Mean", "Std", "Top"}}
	for _, p := range ps {
		row := []string{p.Name, p.Kind, itoa(p.Count), "", "", "", "", ""}
		if p.Kind == stats.KindCategorical {
			var tops []string
			for _, tv := range p.TopValues {
				tops = append(tops, tv.Value+"("+itoa(tv.Count)+")")
			}
			row[7] = strings.Join(tops, ", ")
		} else {
			row[3], row[4] = Float(p.Min, 2), Float(p.Max, 2)
			row[5], row[6] = Float(p.Mean, 2), Float(p.Std, 2)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
