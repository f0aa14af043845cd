package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Canonical column names of the delivery dataset.
const (
	ColCity               = "City"
	ColCuisine            = "Cuisine"
	ColPrice              = "Avg_Meal_Price_INR"
	ColRating             = "Customer_Rating"
	ColPrepTime           = "Preparation_Time_Min"
	ColDistance           = "Rider_Distance_KM"
	ColDeliveryTime       = "Total_Delivery_Time_Min"
	ColIsLate             = "Is_Late"
	ColWeather            = "Weather"
	ColMultipleDeliveries = "Multiple_Deliveries"
)

// MissingCategory replaces blank categorical values during cleaning.
const MissingCategory = "Unknown"

var (
	// NumericColumns are required and imputed by median.
	NumericColumns = []string{ColRating, ColPrepTime, ColDistance, ColDeliveryTime}
	// CategoricalColumns are required and imputed with MissingCategory.
	CategoricalColumns = []string{ColCity, ColCuisine}
	// OptionalNumericColumns are carried, and imputed by median, when the
	// source has them. The public Kaggle export has no price column.
	OptionalNumericColumns = []string{ColPrice, ColMultipleDeliveries}
	// OptionalCategoricalColumns are carried when the source has them.
	OptionalCategoricalColumns = []string{ColWeather}
)

// ErrUnknownColumn is returned for column lookups the table cannot serve.
var ErrUnknownColumn = errors.New("unknown column")

// SchemaError lists required columns absent from a source table.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// headerAliases maps lower-cased headers seen in public delivery datasets
// onto the canonical names.
var headerAliases = map[string]string{
	"city":                    ColCity,
	"cuisine":                 ColCuisine,
	"type_of_order":           ColCuisine,
	"order_type":              ColCuisine,
	"avg_meal_price_inr":      ColPrice,
	"price":                   ColPrice,
	"customer_rating":         ColRating,
	"rating":                  ColRating,
	"delivery_person_ratings": ColRating,
	"preparation_time_min":    ColPrepTime,
	"pickup_time_minutes":     ColPrepTime,
	"prep_time":               ColPrepTime,
	"rider_distance_km":       ColDistance,
	"distance":                ColDistance,
	"total_delivery_time_min": ColDeliveryTime,
	"time_taken":              ColDeliveryTime,
	"time_taken(min)":         ColDeliveryTime,
	"delivery_time":           ColDeliveryTime,
	"is_late":                 ColIsLate,
	"weather":                 ColWeather,
	"weather_conditions":      ColWeather,
	"weatherconditions":       ColWeather,
	"multiple_deliveries":     ColMultipleDeliveries,
}

// CanonicalName returns the canonical column for a source header, or the
// trimmed header itself when no alias applies.
func CanonicalName(header string) string {
	h := strings.TrimSpace(header)
	if c, ok := headerAliases[strings.ToLower(h)]; ok {
		return c
	}
	return h
}

// IsMissing reports whether a raw cell should be treated as absent.
func IsMissing(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "na", "nan", "null", "<nil>", "none":
		return true
	}
	return false
}

// Order is one delivery record after cleaning.
type Order struct {
	City               string
	Cuisine            string
	Weather            string
	Price              float64
	Rating             float64
	PrepTime           float64
	Distance           float64
	DeliveryTime       float64
	MultipleDeliveries float64
	IsLate             bool
}

// Value returns the numeric attribute stored under a canonical column name.
func (o Order) Value(col string) (float64, bool) {
	switch col {
	case ColPrice:
		return o.Price, true
	case ColRating:
		return o.Rating, true
	case ColPrepTime:
		return o.PrepTime, true
	case ColDistance:
		return o.Distance, true
	case ColDeliveryTime:
		return o.DeliveryTime, true
	case ColMultipleDeliveries:
		return o.MultipleDeliveries, true
	case ColIsLate:
		if o.IsLate {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Category returns the categorical attribute stored under a canonical column name.
func (o Order) Category(col string) (string, bool) {
	switch col {
	case ColCity:
		return o.City, true
	case ColCuisine:
		return o.Cuisine, true
	case ColWeather:
		return o.Weather, true
	}
	return "", false
}

// IsLateFor is the single definition of a late delivery.
func IsLateFor(deliveryTime, threshold float64) bool {
	return deliveryTime > threshold
}
