package charts

import (
	"fmt"
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/stats"
)

// Histogram draws delivery-time bin counts with a kernel density curve
// scaled to counts.
func Histogram(t *dataset.Table, size Size) ([]byte, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	size = size.orDefault()
	vals, _ := t.Numeric(dataset.ColDeliveryTime)
	edges, counts := histogram(vals, sturges(len(vals)))

	// Step outline filled down to the axis.
	xs := []float64{edges[0]}
	ys := []float64{0}
	for i, c := range counts {
		xs = append(xs, edges[i], edges[i+1])
		ys = append(ys, c, c)
	}
	xs = append(xs, edges[len(edges)-1])
	ys = append(ys, 0)

	binWidth := edges[1] - edges[0]
	kx, ky := kde(vals, 100)
	floats.Scale(float64(len(vals))*binWidth, ky)

	ch := chart.Chart{
		Title:      "Delivery Time Distribution",
		Width:      size.Width,
		Height:     size.Height,
		Background: background(),
		XAxis:      chart.XAxis{Name: dataset.ColDeliveryTime, Range: paddedRange(xs, kx)},
		YAxis:      chart.YAxis{Name: "Count", Range: &chart.ContinuousRange{Min: 0, Max: math.Max(floats.Max(ys), floats.Max(ky)) * 1.1}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Orders",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: colorAt(0),
					StrokeWidth: 1,
					FillColor:   colorAt(0).WithAlpha(120),
				},
			},
			chart.ContinuousSeries{Name: "KDE", XValues: kx, YValues: ky, Style: lineStyle(colorAt(0), 2)},
		},
	}
	return render(ch)
}

// CityLateBar draws the late probability of each city.
func CityLateBar(t *dataset.Table, size Size) ([]byte, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	groups, err := stats.LateProbabilityBy(t, dataset.ColCity, stats.GroupOptions{})
	if err != nil {
		return nil, err
	}
	size = size.orDefault()
	bars := make([]chart.Value, len(groups))
	for i, g := range groups {
		bars[i] = chart.Value{
			Label: g.Group,
			Value: g.Probability,
			Style: chart.Style{FillColor: colorAt(0), StrokeColor: colorAt(0)},
		}
	}
	bc := chart.BarChart{
		Title:      "Late Delivery Probability by City",
		Width:      size.Width,
		Height:     size.Height,
		Background: background(),
		BarWidth:   barWidth(size, len(bars)),
		YAxis:      chart.YAxis{Name: "Late Probability", Range: &chart.ContinuousRange{Min: 0, Max: 1}},
		Bars:       bars,
	}
	return render(bc)
}

func barWidth(size Size, n int) int {
	if n == 0 {
		return 40
	}
	w := size.Width / (n * 2)
	if w > 120 {
		w = 120
	}
	return w
}

// RatingScatter plots rating against delivery time, one colour per city.
func RatingScatter(t *dataset.Table, size Size) ([]byte, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	size = size.orDefault()
	cities, _ := t.Categories(dataset.ColCity)
	delivery, _ := t.Numeric(dataset.ColDeliveryTime)
	rating, _ := t.Numeric(dataset.ColRating)

	names := sortedUnique(cities)
	series := make([]chart.Series, 0, len(names))
	for i, name := range names {
		var xs, ys []float64
		for j, c := range cities {
			if c == name {
				xs = append(xs, delivery[j])
				ys = append(ys, rating[j])
			}
		}
		series = append(series, chart.ContinuousSeries{Name: name, XValues: xs, YValues: ys, Style: pointStyle(colorAt(i))})
	}
	ch := chart.Chart{
		Title:      "Delivery Time vs Rating",
		Width:      size.Width,
		Height:     size.Height,
		Background: background(),
		XAxis:      chart.XAxis{Name: dataset.ColDeliveryTime, Range: paddedRange(delivery)},
		YAxis:      chart.YAxis{Name: dataset.ColRating, Range: paddedRange(rating)},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return render(ch)
}

// PriceBox draws a box plot of meal price per city with 1.5 IQR whiskers.
func PriceBox(t *dataset.Table, size Size) ([]byte, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	size = size.orDefault()
	names, groups, err := groupBy(t, dataset.ColCity, dataset.ColPrice)
	if err != nil {
		return nil, err
	}
	prices, _ := t.Numeric(dataset.ColPrice)

	var series []chart.Series
	const half = 0.3
	for i, name := range names {
		vals := groups[name]
		rep := stats.Partition(vals)
		lo, hi := whiskers(vals, rep.Lower, rep.Upper)
		median := stats.Median(vals)
		x := float64(i)
		col := colorAt(i)

		series = append(series,
			chart.ContinuousSeries{
				XValues: []float64{x - half, x + half, x + half, x - half, x - half},
				YValues: []float64{rep.Q1, rep.Q1, rep.Q3, rep.Q3, rep.Q1},
				Style:   chart.Style{StrokeColor: col, StrokeWidth: 2, FillColor: col.WithAlpha(90)},
			},
			chart.ContinuousSeries{XValues: []float64{x - half, x + half}, YValues: []float64{median, median}, Style: lineStyle(drawing.ColorBlack, 2)},
			chart.ContinuousSeries{XValues: []float64{x, x}, YValues: []float64{rep.Q3, hi}, Style: lineStyle(col, 1)},
			chart.ContinuousSeries{XValues: []float64{x, x}, YValues: []float64{lo, rep.Q1}, Style: lineStyle(col, 1)},
		)
		var ox, oy []float64
		for j, v := range vals {
			if rep.IsOutlier[j] {
				ox = append(ox, x)
				oy = append(oy, v)
			}
		}
		if len(ox) > 0 {
			series = append(series, chart.ContinuousSeries{XValues: ox, YValues: oy, Style: pointStyle(col)})
		}
	}
	ch := chart.Chart{
		Title:      "Meal Price Distribution by City",
		Width:      size.Width,
		Height:     size.Height,
		Background: background(),
		XAxis: chart.XAxis{
			Name:  dataset.ColCity,
			Ticks: categoryTicks(names),
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(names)) - 0.5},
		},
		YAxis:  chart.YAxis{Name: dataset.ColPrice, Range: paddedRange(prices)},
		Series: series,
	}
	return render(ch)
}

// whiskers returns the most extreme values inside [lower, upper].
func whiskers(vals []float64, lower, upper float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if v >= lower && v <= upper {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

// CuisinePie draws the order share of each cuisine.
func CuisinePie(t *dataset.Table, size Size) ([]byte, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	size = size.orDefault()
	counts, err := stats.ValueCounts(t, dataset.ColCuisine)
	if err != nil {
		return nil, err
	}
	values := make([]chart.Value, len(counts))
	for i, c := range counts {
		values[i] = chart.Value{
			Label: fmt.Sprintf("%s (%d)", c.Value, c.Count),
			Value: float64(c.Count),
			Style: chart.Style{FillColor: colorAt(i), StrokeColor: drawing.ColorWhite},
		}
	}
	pc := chart.PieChart{
		Title:      "Cuisine Popularity",
		Width:      size.Width,
		Height:     size.Height,
		Background: background(),
		Values:     values,
	}
	return render(pc)
}

// DistanceScatter plots delivery time against distance, coloured by the
// late flag with dot size following meal price when the table has one.
func DistanceScatter(t *dataset.Table, size Size) ([]byte, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	size = size.orDefault()
	dist, _ := t.Numeric(dataset.ColDistance)
	delivery, _ := t.Numeric(dataset.ColDeliveryTime)
	prices := make([]float64, t.Len())
	if t.Has(dataset.ColPrice) {
		prices, _ = t.Numeric(dataset.ColPrice)
	}
	minP, maxP := floats.Min(prices), floats.Max(prices)

	var series []chart.Series
	for i, late := range []bool{false, true} {
		var xs, ys, ps []float64
		for j, o := range t.Orders {
			if o.IsLate == late {
				xs = append(xs, dist[j])
				ys = append(ys, delivery[j])
				ps = append(ps, prices[j])
			}
		}
		if len(xs) == 0 {
			continue
		}
		name := "On time"
		if late {
			name = "Late"
		}
		st := pointStyle(colorAt(i))
		st.DotWidthProvider = func(_, _ chart.Range, index int, _, _ float64) float64 {
			if maxP == minP {
				return 4
			}
			return 2 + 8*(ps[index]-minP)/(maxP-minP)
		}
		series = append(series, chart.ContinuousSeries{Name: name, XValues: xs, YValues: ys, Style: st})
	}
	ch := chart.Chart{
		Title:      "Distance vs Delivery Time",
		Width:      size.Width,
		Height:     size.Height,
		Background: background(),
		XAxis:      chart.XAxis{Name: dataset.ColDistance, Range: paddedRange(dist)},
		YAxis:      chart.YAxis{Name: dataset.ColDeliveryTime, Range: paddedRange(delivery)},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return render(ch)
}

// DeliveryViolin draws a mirrored density outline of delivery time per city.
func DeliveryViolin(t *dataset.Table, size Size) ([]byte, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	size = size.orDefault()
	names, groups, err := groupBy(t, dataset.ColCity, dataset.ColDeliveryTime)
	if err != nil {
		return nil, err
	}
	delivery, _ := t.Numeric(dataset.ColDeliveryTime)

	const half = 0.4
	var series []chart.Series
	for i, name := range names {
		ys, dens := kde(groups[name], 60)
		peak := floats.Max(dens)
		if peak == 0 {
			peak = 1
		}
		x := float64(i)
		outX := make([]float64, 0, 2*len(ys)+1)
		outY := make([]float64, 0, 2*len(ys)+1)
		for j := range ys {
			outX = append(outX, x+half*dens[j]/peak)
			outY = append(outY, ys[j])
		}
		for j := len(ys) - 1; j >= 0; j-- {
			outX = append(outX, x-half*dens[j]/peak)
			outY = append(outY, ys[j])
		}
		outX = append(outX, outX[0])
		outY = append(outY, outY[0])

		median := stats.Median(groups[name])
		series = append(series,
			chart.ContinuousSeries{Name: name, XValues: outX, YValues: outY, Style: lineStyle(colorAt(i), 2)},
			chart.ContinuousSeries{XValues: []float64{x - 0.1, x + 0.1}, YValues: []float64{median, median}, Style: lineStyle(drawing.ColorBlack, 2)},
		)
	}
	ch := chart.Chart{
		Title:      "Delivery Time by City",
		Width:      size.Width,
		Height:     size.Height,
		Background: background(),
		XAxis: chart.XAxis{
			Name:  dataset.ColCity,
			Ticks: categoryTicks(names),
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(names)) - 0.5},
		},
		YAxis:  chart.YAxis{Name: dataset.ColDeliveryTime, Range: paddedRange(delivery, kdeSpan(delivery))},
		Series: series,
	}
	return render(ch)
}

func sturges(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}

// histogram bins vals into k equal-width bins; the last bin is closed.
func histogram(vals []float64, k int) ([]float64, []float64) {
	lo, hi := floats.Min(vals), floats.Max(vals)
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := make([]float64, k+1)
	floats.Span(edges, lo, hi)
	counts := make([]float64, k)
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	// stat.Histogram requires the last divider to exceed every value.
	dividers := append([]float64(nil), edges...)
	dividers[k] = math.Nextafter(hi, math.Inf(1))
	stat.Histogram(counts, dividers, sorted, nil)
	return edges, counts
}

// kde evaluates a Gaussian kernel density with Scott's bandwidth on n points
// spanning the data plus three bandwidths on each side.
func kde(vals []float64, n int) ([]float64, []float64) {
	bw := bandwidth(vals)
	lo, hi := floats.Min(vals)-3*bw, floats.Max(vals)+3*bw
	xs := make([]float64, n)
	floats.Span(xs, lo, hi)
	ys := make([]float64, n)
	norm := 1 / (float64(len(vals)) * bw * math.Sqrt(2*math.Pi))
	for i, x := range xs {
		var sum float64
		for _, v := range vals {
			u := (x - v) / bw
			sum += math.Exp(-0.5 * u * u)
		}
		ys[i] = sum * norm
	}
	return xs, ys
}

func kdeSpan(vals []float64) []float64 {
	bw := bandwidth(vals)
	return []float64{floats.Min(vals) - 3*bw, floats.Max(vals) + 3*bw}
}

func bandwidth(vals []float64) float64 {
	bw := math.Pow(float64(len(vals)), -0.2)
	if len(vals) > 1 {
		if sd := stat.StdDev(vals, nil); sd > 0 {
			return bw * sd
		}
	}
	return bw
}

func sortedUnique(vals []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
