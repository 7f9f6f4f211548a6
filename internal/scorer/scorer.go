// Package scorer turns hard metrics into the viability score, its sub-scores
// and the verdict.
package scorer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/viability-cli/internal/features"
	"github.com/sells-group/viability-cli/internal/model"
)

// Weights holds the bounds and coefficients of the scoring model. The values
// from DefaultWeights are empirically tuned; changing any of them changes
// scoring semantics.
type Weights struct {
	// Caps on each component.
	MaxSaturation          float64
	MaxCompetitorStrength  float64
	MaxDemand              float64
	MaxDifferentiation     float64
	MaxCompetitionPressure float64

	// Saturation: SatNear*sqrt(same800) + SatFar*sqrt(same1500).
	SatNear float64
	SatFar  float64

	// Competitor strength: StrengthRating*(avgRating-RatingBaseline) +
	// StrengthReviews*log1p(medianReviews).
	RatingBaseline  float64
	StrengthRating  float64
	StrengthReviews float64

	// Demand: DemandReviews*log1p(totalReviews800) + DemandDensity*density800.
	DemandReviews float64
	DemandDensity float64

	// Differentiation.
	DiffBase           float64
	DiffGap            float64
	DiffDominantBand   float64
	DiffLowCompetition float64
	LowCompetitionMax  int
}

// DefaultWeights returns the production scoring model.
func DefaultWeights() Weights {
	return Weights{
		MaxSaturation:          55,
		MaxCompetitorStrength:  25,
		MaxDemand:              25,
		MaxDifferentiation:     10,
		MaxCompetitionPressure: 80,

		SatNear: 3.5,
		SatFar:  2.0,

		RatingBaseline:  4.0,
		StrengthRating:  10,
		StrengthReviews: 1.5,

		DemandReviews: 1.5,
		DemandDensity: 0.15,

		DiffBase:           2,
		DiffGap:            6,
		DiffDominantBand:   1,
		DiffLowCompetition: 1,
		LowCompetitionMax:  8,
	}
}

// Validate checks that every bound is positive and no coefficient is negative.
func (w Weights) Validate() error {
	var errs []string

	bounds := map[string]float64{
		"max_saturation":           w.MaxSaturation,
		"max_competitor_strength":  w.MaxCompetitorStrength,
		"max_demand":               w.MaxDemand,
		"max_differentiation":      w.MaxDifferentiation,
		"max_competition_pressure": w.MaxCompetitionPressure,
	}
	for _, name := range sortedKeys(bounds) {
		if bounds[name] <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be > 0", name))
		}
	}

	coefs := map[string]float64{
		"sat_near":             w.SatNear,
		"sat_far":              w.SatFar,
		"strength_rating":      w.StrengthRating,
		"strength_reviews":     w.StrengthReviews,
		"demand_reviews":       w.DemandReviews,
		"demand_density":       w.DemandDensity,
		"diff_base":            w.DiffBase,
		"diff_gap":             w.DiffGap,
		"diff_dominant_band":   w.DiffDominantBand,
		"diff_low_competition": w.DiffLowCompetition,
	}
	for _, name := range sortedKeys(coefs) {
		if coefs[name] < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}
	if w.LowCompetitionMax < 0 {
		errs = append(errs, "low_competition_max must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: weights validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Engine computes scores. The zero value uses DefaultWeights.
type Engine struct {
	weights Weights
	set     bool
}

// New returns an engine using w. The weights are validated.
func New(w Weights) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: w, set: true}, nil
}

// Weights returns the weights in effect.
func (e *Engine) Weights() Weights {
	if e == nil || !e.set {
		return DefaultWeights()
	}
	return e.weights
}

// Compute scores m with the default weights.
func Compute(m model.HardMetrics) model.ScoreComputation {
	var e Engine
	return e.Compute(m)
}

// Compute scores m. It is pure and total: every sub-score lands in [0, 100].
func (e *Engine) Compute(m model.HardMetrics) model.ScoreComputation {
	w := e.Weights()

	sat := features.Clamp(
		w.SatNear*math.Sqrt(float64(max(m.CountSame800m, 0)))+
			w.SatFar*math.Sqrt(float64(max(m.CountSame1500m, 0))),
		0, w.MaxSaturation)

	strength := features.Clamp(
		w.StrengthRating*(m.AvgRatingSame-w.RatingBaseline)+
			w.StrengthReviews*math.Log1p(math.Max(m.MedianReviewsSame, 0)),
		0, w.MaxCompetitorStrength)

	demand := features.Clamp(
		w.DemandReviews*math.Log1p(float64(max(m.TotalReviewsAll800m, 0)))+
			w.DemandDensity*float64(m.DensityAll800m),
		0, w.MaxDemand)

	diff := w.DiffBase
	if m.DetectedPriceGap.IsGap {
		diff += w.DiffGap
	}
	if d := m.DetectedPriceGap.Dominant; d == features.Band2to3 || d == features.Band4 {
		diff += w.DiffDominantBand
	}
	if m.CountSame800m <= w.LowCompetitionMax {
		diff += w.DiffLowCompetition
	}
	diff = features.Clamp(diff, 0, w.MaxDifferentiation)

	viability := roundScore(100 - sat - strength + demand + diff)
	pressure := features.Clamp(sat+strength, 0, w.MaxCompetitionPressure)

	return model.ScoreComputation{
		ViabilityScore: viability,
		Verdict:        PickVerdict(viability),
		Metrics: model.Metrics{
			CompetitionScore:     100 - roundScore(100*pressure/w.MaxCompetitionPressure),
			DemandScore:          roundScore(100 * demand / w.MaxDemand),
			DifferentiationScore: roundScore(100 * diff / w.MaxDifferentiation),
		},
		Internal: model.ScoreInternals{
			SaturationPenalty:         sat,
			CompetitorStrengthPenalty: strength,
			DemandBonus:               demand,
			DifferentiationBonus:      diff,
		},
	}
}

// roundScore clamps to [0, 100] and rounds half away from zero. NaN maps to 0.
func roundScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(features.Clamp(v, 0, 100)))
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
