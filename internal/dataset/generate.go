package dataset

import (
	"math"
	"math/rand"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	// Cities and Cuisines drawn by the synthetic generator.
	Cities   = []string{"Hyderabad", "Bangalore", "Mumbai", "Chennai"}
	Cuisines = []string{"Indian", "Chinese", "Italian", "Fast Food"}
)

// GenerateOptions controls synthetic dataset generation.
type GenerateOptions struct {
	Rows          int
	Seed          int64
	MinutesPerKM  float64
	LateThreshold float64
}

// Generate synthesizes a delivery dataset. The same options always produce
// the same frame.
func Generate(opt GenerateOptions) dataframe.DataFrame {
	n := opt.Rows
	if n < 0 {
		n = 0
	}
	rng := rand.New(rand.NewSource(opt.Seed))

	cities := make([]string, n)
	for i := range cities {
		cities[i] = Cities[rng.Intn(len(Cities))]
	}
	cuisines := make([]string, n)
	for i := range cuisines {
		cuisines[i] = Cuisines[rng.Intn(len(Cuisines))]
	}
	prices := make([]int, n)
	for i := range prices {
		prices[i] = 150 + rng.Intn(700-150)
	}
	ratings := make([]float64, n)
	for i := range ratings {
		ratings[i] = round1(2.5 + rng.Float64()*2.5)
	}
	preps := make([]int, n)
	for i := range preps {
		preps[i] = 10 + rng.Intn(35-10)
	}
	distances := make([]float64, n)
	for i := range distances {
		distances[i] = round1(1 + rng.Float64()*9)
	}

	delivery := make([]float64, n)
	late := make([]int, n)
	for i := 0; i < n; i++ {
		delivery[i] = float64(preps[i]) + distances[i]*opt.MinutesPerKM
		if IsLateFor(delivery[i], opt.LateThreshold) {
			late[i] = 1
		}
	}

	return dataframe.New(
		series.New(cities, series.String, ColCity),
		series.New(cuisines, series.String, ColCuisine),
		series.New(prices, series.Int, ColPrice),
		floatSeries(ratings, ColRating),
		series.New(preps, series.Int, ColPrepTime),
		floatSeries(distances, ColDistance),
		floatSeries(delivery, ColDeliveryTime),
		series.New(late, series.Int, ColIsLate),
	)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
