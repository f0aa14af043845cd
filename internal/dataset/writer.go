package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/utils"
)

// sheetName is the worksheet WriteFrame fills in new workbooks.
const sheetName = "Orders"

// Frame converts the table back into a dataframe with canonical columns.
// Is_Late is written as 0/1 like the source files.
func (t *Table) Frame() dataframe.DataFrame {
	cols := t.Columns()
	list := make([]series.Series, 0, len(cols))
	for _, c := range cols {
		switch c {
		case ColCity, ColCuisine, ColWeather:
			vals, _ := t.Categories(c)
			list = append(list, series.New(vals, series.String, c))
		case ColIsLate:
			vals := make([]int, t.Len())
			for i, o := range t.Orders {
				if o.IsLate {
					vals[i] = 1
				}
			}
			list = append(list, series.New(vals, series.Int, c))
		default:
			vals, _ := t.Numeric(c)
			list = append(list, floatSeries(vals, c))
		}
	}
	return dataframe.New(list...)
}

// floatSeries holds vals in their shortest exact decimal form. gota's Float
// series prints a fixed six decimals, which loses precision on round trips.
func floatSeries(vals []float64, name string) series.Series {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return series.New(out, series.String, name)
}

// WriteFrame persists a dataframe, replacing path atomically. The extension
// picks the format: .xlsx and .xlsm get a workbook, .tsv tab separated text,
// anything else CSV.
func WriteFrame(df dataframe.DataFrame, path string) error {
	if df.Err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), df.Err)
	}
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		if err := writeXLSX(&buf, df); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	case ".tsv":
		w := csv.NewWriter(&buf)
		w.Comma = '\t'
		if err := w.WriteAll(df.Records()); err != nil {
			return fmt.Errorf("write tsv: %w", err)
		}
	default:
		if err := df.WriteCSV(&buf); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// writeXLSX lays the frame out on one sheet. Cells that parse as numbers are
// stored as numbers so spreadsheet tools can compute on them.
func writeXLSX(buf *bytes.Buffer, df dataframe.DataFrame) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}
	for i, rec := range df.Records() {
		row := make([]interface{}, len(rec))
		for j, v := range rec {
			row[j] = v
			if i == 0 {
				continue
			}
			if n, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
				row[j] = n
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(buf)
	return err
}
