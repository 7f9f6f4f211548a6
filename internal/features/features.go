// Package features derives the hard metrics of an analysis from the
// discovered place sets. Everything here is pure.
package features

import (
	"math"
	"sort"

	"github.com/sells-group/viability-cli/internal/model"
)

// DefaultAvgRating is reported when no same-category place has a rating.
const DefaultAvgRating = 4.0

// Price-gap thresholds.
const (
	dominantShareMin  = 0.60
	suggestedShareMax = 0.15
)

// Price bands.
const (
	Band1    = "1"
	Band2to3 = "2-3"
	Band4    = "4"
)

const (
	minLevel = 1
	maxLevel = 4
)

// Detail strings reported with the price gap.
const (
	detailNoSignal = "Sin señal suficiente de price_level en competidores."
	detailNoGap    = "No se detecta gap claro de precio contra la oferta dominante."
	detailGap      = "La franja %s domina la zona; hay ventana para %s."
)

var foodTypes = map[string]bool{
	"restaurant":    true,
	"cafe":          true,
	"bakery":        true,
	"bar":           true,
	"meal_takeaway": true,
}

// Input is everything Build needs.
type Input struct {
	Same800      []model.PlaceRecord
	Same1500     []model.PlaceRecord
	All800       []model.PlaceRecord
	TicketBucket model.TicketBucket
	IsFood       bool
}

// Build computes the hard metrics. Same1500 is expected to be the
// post-enrichment set with permanently closed places already removed.
func Build(in Input) model.HardMetrics {
	var ratings []float64
	reviews := make([]float64, 0, len(in.Same1500))
	for _, p := range in.Same1500 {
		if p.Rating != nil {
			ratings = append(ratings, *p.Rating)
		}
		reviews = append(reviews, float64(p.UserRatingsTotal))
	}

	avg := DefaultAvgRating
	if len(ratings) > 0 {
		var sum float64
		for _, r := range ratings {
			sum += r
		}
		avg = Round2(sum / float64(len(ratings)))
	}

	totalReviews := 0
	for _, p := range in.All800 {
		totalReviews += p.UserRatingsTotal
	}

	food := 0
	if in.IsFood {
		for _, p := range in.All800 {
			if isFoodPlace(p.Types) {
				food++
			}
		}
	}

	dist := PriceDistribution(in.Same1500)
	return model.HardMetrics{
		CountSame800m:          len(in.Same800),
		CountSame1500m:         len(in.Same1500),
		DensityAll800m:         len(in.All800),
		AvgRatingSame:          avg,
		MedianReviewsSame:      Median(reviews),
		TotalReviewsAll800m:    totalReviews,
		CountFoodDrink800m:     food,
		PriceLevelDistribution: dist,
		DetectedPriceGap:       DetectPriceGap(dist, in.TicketBucket),
	}
}

func isFoodPlace(types []string) bool {
	for _, t := range types {
		if foodTypes[t] {
			return true
		}
	}
	return false
}

// PriceDistribution counts price levels, clamped into 1..4, over places
// that report one. All four keys are always present.
func PriceDistribution(places []model.PlaceRecord) map[string]int {
	dist := map[string]int{"1": 0, "2": 0, "3": 0, "4": 0}
	for _, p := range places {
		if p.PriceLevel == nil {
			continue
		}
		lvl := min(max(*p.PriceLevel, minLevel), maxLevel)
		dist[levelKey(lvl)]++
	}
	return dist
}

func levelKey(lvl int) string {
	return string(rune('0' + lvl))
}

// Median returns the median of values; 0 for an empty slice. The input is
// not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
