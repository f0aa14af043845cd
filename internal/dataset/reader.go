package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var nanValues = []string{"", "NA", "NaN", "nan", "null", "<nil>"}

// ReadFrame loads a CSV, TSV or XLSX file into a string-typed dataframe whose
// headers are mapped onto canonical column names. sheet selects the XLSX
// worksheet; empty means the first one.
func ReadFrame(path, sheet string) (dataframe.DataFrame, error) {
	var df dataframe.DataFrame
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err := readXLSXRecords(path, sheet)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		if len(records) == 0 {
			return dataframe.DataFrame{}, fmt.Errorf("read xlsx %s: no rows", filepath.Base(path))
		}
		df = loadRecords(records)
	default:
		raw, err := os.ReadFile(path)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("open csv: %w", err)
		}
		text, err := decodeText(raw)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
		r := csv.NewReader(bytes.NewReader(text))
		r.Comma = sniffDelimiter(text, path)
		records, err := r.ReadAll()
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		if len(records) == 0 {
			return dataframe.DataFrame{}, fmt.Errorf("parse %s: no header row", filepath.Base(path))
		}
		df = loadRecords(records)
	}
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("parse %s: %w", filepath.Base(path), df.Err)
	}
	return canonicalize(df)
}

// decodeText strips a UTF-8 byte order mark. Input that is not valid UTF-8
// is taken to be Windows-1252, the usual encoding of spreadsheet exports.
func decodeText(raw []byte) ([]byte, error) {
	dec := unicode.UTF8BOM.NewDecoder()
	if !utf8.Valid(raw) {
		dec = charmap.Windows1252.NewDecoder()
	}
	out, _, err := transform.Bytes(dec, raw)
	return out, err
}

// sniffDelimiter picks tab for .tsv files and otherwise whichever of comma,
// semicolon or tab occurs most in the header line.
func sniffDelimiter(text []byte, path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	header := string(text)
	if i := strings.IndexByte(header, '\n'); i >= 0 {
		header = header[:i]
	}
	best, bestN := ',', strings.Count(header, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(header, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// loadRecords builds a string-typed frame from a header row and data rows.
// A header without data yields a frame with those columns and zero rows,
// which gota's loader rejects as empty.
func loadRecords(records [][]string) dataframe.DataFrame {
	if len(records) > 1 {
		return dataframe.LoadRecords(records, loadOptions()...)
	}
	cols := make([]series.Series, len(records[0]))
	for i, name := range records[0] {
		cols[i] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(cols...)
}

func loadOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	}
}

// canonicalize renames aliased headers. When both an alias and its canonical
// column exist the canonical one wins and the alias is left untouched.
func canonicalize(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	present := make(map[string]bool, df.Ncol())
	for _, n := range df.Names() {
		present[n] = true
	}
	for _, n := range df.Names() {
		c := CanonicalName(n)
		if c == n || present[c] {
			continue
		}
		df = df.Rename(c, n)
		if df.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("rename column %q: %w", n, df.Err)
		}
		present[c] = true
	}
	return df, nil
}

// CheckSchema returns a *SchemaError when required columns are absent.
func CheckSchema(df dataframe.DataFrame) error {
	present := make(map[string]bool, df.Ncol())
	for _, n := range df.Names() {
		present[n] = true
	}
	var missing []string
	for _, c := range append(append([]string{}, CategoricalColumns...), NumericColumns...) {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

func readXLSXRecords(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
		}
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
			sheet, filepath.Base(path), strings.Join(f.GetSheetList(), ", "))
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	// GetRows trims trailing empty cells; pad to the header width.
	if len(rows) > 0 {
		width := len(rows[0])
		for i, r := range rows {
			if len(r) < width {
				padded := make([]string, width)
				copy(padded, r)
				rows[i] = padded
			} else if len(r) > width {
				rows[i] = r[:width]
			}
		}
	}
	return rows, nil
}
