package dataset

import (
	"fmt"
	"strconv"
)

// Table is the cleaned, read-only collection of orders produced once per run.
type Table struct {
	Orders []Order
	// LateThreshold is the cutoff IsLate was derived with.
	LateThreshold float64

	optional map[string]bool
}

// NewTable wraps cleaned orders. Optional columns are exposed only when named
// in optional, i.e. when the source carried them.
func NewTable(orders []Order, threshold float64, optional ...string) *Table {
	t := &Table{Orders: orders, LateThreshold: threshold, optional: map[string]bool{}}
	for _, c := range optional {
		if IsOptional(c) {
			t.optional[c] = true
		}
	}
	return t
}

// IsOptional reports whether col may be absent from a source table.
func IsOptional(col string) bool {
	for _, c := range OptionalNumericColumns {
		if c == col {
			return true
		}
	}
	for _, c := range OptionalCategoricalColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Len returns the number of orders.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Orders)
}

// Has reports whether a canonical column is available in this table.
func (t *Table) Has(col string) bool {
	if IsOptional(col) {
		return t.optional[col]
	}
	for _, c := range NumericColumns {
		if c == col {
			return true
		}
	}
	for _, c := range CategoricalColumns {
		if c == col {
			return true
		}
	}
	return col == ColIsLate
}

// Columns lists the table's columns in cache-file order.
func (t *Table) Columns() []string {
	cols := []string{ColCity, ColCuisine}
	if t.Has(ColPrice) {
		cols = append(cols, ColPrice)
	}
	cols = append(cols, ColRating, ColPrepTime, ColDistance, ColDeliveryTime, ColIsLate)
	for _, c := range []string{ColWeather, ColMultipleDeliveries} {
		if t.Has(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// Numeric extracts a numeric column.
func (t *Table) Numeric(col string) ([]float64, error) {
	if !t.Has(col) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
	}
	out := make([]float64, len(t.Orders))
	for i, o := range t.Orders {
		v, ok := o.Value(col)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not numeric", ErrUnknownColumn, col)
		}
		out[i] = v
	}
	return out, nil
}

// Categories extracts a categorical column.
func (t *Table) Categories(col string) ([]string, error) {
	if !t.Has(col) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
	}
	out := make([]string, len(t.Orders))
	for i, o := range t.Orders {
		v, ok := o.Category(col)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not categorical", ErrUnknownColumn, col)
		}
		out[i] = v
	}
	return out, nil
}

// Head returns at most n leading orders.
func (t *Table) Head(n int) []Order {
	if n > t.Len() {
		n = t.Len()
	}
	if n < 0 {
		n = 0
	}
	return t.Orders[:n]
}

// Record renders an order as strings in the given column order.
func (o Order) Record(cols []string) []string {
	rec := make([]string, len(cols))
	for i, c := range cols {
		if s, ok := o.Category(c); ok {
			rec[i] = s
			continue
		}
		if c == ColIsLate {
			if o.IsLate {
				rec[i] = "1"
			} else {
				rec[i] = "0"
			}
			continue
		}
		if v, ok := o.Value(c); ok {
			rec[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return rec
}
