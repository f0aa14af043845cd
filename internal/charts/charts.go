// Package charts renders the dashboard figures as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/stats"
)

// ErrNoData is returned when a chart has nothing to draw.
var ErrNoData = errors.New("no data to chart")

// Size is the pixel size of a rendered chart.
type Size struct {
	Width  int
	Height int
}

// DefaultSize matches an 8x4 inch figure at 100 dpi.
var DefaultSize = Size{Width: 800, Height: 400}

func (s Size) orDefault() Size {
	if s.Width <= 0 || s.Height <= 0 {
		return DefaultSize
	}
	return s
}

// Chart names, also used as file and URL stems.
const (
	DeliveryHistogram  = "delivery_time_distribution"
	LateByCity         = "late_probability_by_city"
	DeliveryVsRating   = "delivery_vs_rating"
	PriceByCity        = "price_by_city"
	CuisineShare       = "cuisine_popularity"
	DistanceVsDelivery = "distance_vs_delivery"
	DeliveryByCity     = "delivery_time_by_city"
)

// Spec describes one dashboard chart.
type Spec struct {
	Name   string
	Title  string
	Render func(t *dataset.Table, size Size) ([]byte, error)
}

// Catalog lists the dashboard charts in display order.
var Catalog = []Spec{
	{DeliveryHistogram, "Delivery Time Distribution", Histogram},
	{LateByCity, "Late Delivery Probability by City", CityLateBar},
	{DeliveryVsRating, "Delivery Time vs Rating", RatingScatter},
	{PriceByCity, "Meal Price Distribution by City", PriceBox},
	{CuisineShare, "Cuisine Popularity", CuisinePie},
	{DistanceVsDelivery, "Distance vs Delivery Time", DistanceScatter},
	{DeliveryByCity, "Delivery Time by City", DeliveryViolin},
}

// Lookup finds a catalog entry by name.
func Lookup(name string) (Spec, bool) {
	for _, s := range Catalog {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

var palette = []drawing.Color{
	drawing.ColorFromHex("4c72b0"),
	drawing.ColorFromHex("dd8452"),
	drawing.ColorFromHex("55a868"),
	drawing.ColorFromHex("c44e52"),
	drawing.ColorFromHex("8172b3"),
	drawing.ColorFromHex("937860"),
	drawing.ColorFromHex("da8bc3"),
	drawing.ColorFromHex("8c8c8c"),
}

func colorAt(i int) drawing.Color { return palette[i%len(palette)] }

// pointStyle renders points only, without connecting lines.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{StrokeColor: col, StrokeWidth: width}
}

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}
}

// LoadFont parses the default chart font. Call it once before rendering
// from several goroutines.
func LoadFont() error {
	_, err := chart.GetDefaultFont()
	return err
}

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func render(r renderable) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// paddedRange spans vals with a margin; a constant column gets a unit span.
func paddedRange(vals ...[]float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, vs := range vals {
		for _, v := range vs {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 0) {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	if hi == lo {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// groupBy splits a numeric column by a categorical one, keys sorted.
func groupBy(t *dataset.Table, key, col string) ([]string, map[string][]float64, error) {
	keys, err := t.Categories(key)
	if err != nil {
		return nil, nil, err
	}
	vals, err := t.Numeric(col)
	if err != nil {
		return nil, nil, err
	}
	groups := map[string][]float64{}
	for i, k := range keys {
		groups[k] = append(groups[k], vals[i])
	}
	names := make([]string, 0, len(groups))
	for k := range groups {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, groups, nil
}

func categoryTicks(names []string) []chart.Tick {
	ticks := make([]chart.Tick, 0, len(names)+2)
	ticks = append(ticks, chart.Tick{Value: -0.5, Label: ""})
	for i, n := range names {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: n})
	}
	ticks = append(ticks, chart.Tick{Value: float64(len(names)) - 0.5, Label: ""})
	return ticks
}

func requireRows(t *dataset.Table) error {
	if t.Len() == 0 {
		return fmt.Errorf("%w: %w", ErrNoData, stats.ErrEmptyTable)
	}
	return nil
}
