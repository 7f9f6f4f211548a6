package model

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sells-group/viability-cli/internal/resilience"
)

// Address length bounds, in characters after trimming.
const (
	MinAddressLen = 4
	MaxAddressLen = 220
)

// DefaultCountryBias is applied when a request names no country.
const DefaultCountryBias = "AR"

// AnalyzeRequest is the caller's input to an analysis.
type AnalyzeRequest struct {
	Address          string           `json:"address"`
	BusinessCategory BusinessCategory `json:"businessCategory"`
	AvgTicket        AvgTicket        `json:"avgTicket"`
	CountryBias      string           `json:"countryBias,omitempty"`
	PlaceID          string           `json:"placeId,omitempty"`
}

// Validate checks the request against the catalog. Failures are
// InvalidInput errors.
func (r AnalyzeRequest) Validate(catalog Catalog) error {
	n := utf8.RuneCountInString(strings.TrimSpace(r.Address))
	if n < MinAddressLen || n > MaxAddressLen {
		return resilience.InvalidInput("address must be between %d and %d characters", MinAddressLen, MaxAddressLen)
	}
	if _, ok := catalog.Profile(r.BusinessCategory); !ok {
		e := resilience.InvalidInput("unsupported businessCategory %q", r.BusinessCategory)
		e.Status = "INVALID_CATEGORY"
		return e
	}
	if cb := strings.TrimSpace(r.CountryBias); cb != "" && utf8.RuneCountInString(cb) != 2 {
		return resilience.InvalidInput("countryBias must be a 2-letter country code")
	}
	if err := r.AvgTicket.Validate(); err != nil {
		return resilience.InvalidInput("%s", err.Error())
	}
	return nil
}

// NormalizedInput is the canonical form of a request used for the
// fingerprint and the pipeline.
type NormalizedInput struct {
	RawAddress        string
	NormalizedAddress string
	Category          BusinessCategory
	AvgTicket         AvgTicket
	TicketBucket      TicketBucket
	CountryBias       string
	PlaceID           string
}

// PriceGap is the price-band opportunity signal.
type PriceGap struct {
	IsGap     bool   `json:"isGap"`
	Suggested string `json:"suggested,omitempty"`
	Dominant  string `json:"dominant,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// HardMetrics are the deterministic features derived from discovery.
type HardMetrics struct {
	CountSame800m          int            `json:"count_same_800m"`
	CountSame1500m         int            `json:"count_same_1500m"`
	DensityAll800m         int            `json:"density_all_800m"`
	AvgRatingSame          float64        `json:"avg_rating_same"`
	MedianReviewsSame      float64        `json:"median_reviews_same"`
	TotalReviewsAll800m    int            `json:"total_reviews_all_800m"`
	CountFoodDrink800m     int            `json:"count_food_drink_800m"`
	PriceLevelDistribution map[string]int `json:"price_level_distribution"`
	DetectedPriceGap       PriceGap       `json:"detected_price_gap"`
}

// Metrics are the 0-100 sub-scores.
type Metrics struct {
	CompetitionScore     int `json:"competitionScore"`
	DemandScore          int `json:"demandScore"`
	DifferentiationScore int `json:"differentiationScore"`
}

// ScoreInternals are the clamped components behind a score.
type ScoreInternals struct {
	SaturationPenalty         float64 `json:"saturationPenalty"`
	CompetitorStrengthPenalty float64 `json:"competitorStrengthPenalty"`
	DemandBonus               float64 `json:"demandBonus"`
	DifferentiationBonus      float64 `json:"differentiationBonus"`
}

// Verdict is the go/no-go outcome.
type Verdict string

const (
	VerdictOpen               Verdict = "OPEN"
	VerdictOpenWithConditions Verdict = "OPEN_WITH_CONDITIONS"
	VerdictDoNotOpen          Verdict = "DO_NOT_OPEN"
)

// ScoreComputation is the full scoring result.
type ScoreComputation struct {
	ViabilityScore int
	Verdict        Verdict
	Metrics        Metrics
	Internal       ScoreInternals
}

// RecommendationAngle is the suggested positioning.
type RecommendationAngle string

const (
	AngleSpecialty     RecommendationAngle = "specialty"
	AngleTakeAway      RecommendationAngle = "take-away"
	AngleHours         RecommendationAngle = "hours"
	AnglePricing       RecommendationAngle = "pricing"
	AngleNicheAudience RecommendationAngle = "niche-audience"
)

// ParseAngle returns the angle named by s, if it is one of the five.
func ParseAngle(s string) (RecommendationAngle, bool) {
	switch a := RecommendationAngle(s); a {
	case AngleSpecialty, AngleTakeAway, AngleHours, AnglePricing, AngleNicheAudience:
		return a, true
	default:
		return "", false
	}
}

// InsightBulletCount is the number of bullets in every InsightPack.
const InsightBulletCount = 5

// InsightPack is the narrative attached to an analysis.
type InsightPack struct {
	Bullets             []string
	Summary             string
	RecommendationAngle RecommendationAngle
}

// InputEcho repeats the normalized request in the response.
type InputEcho struct {
	Address          string           `json:"address"`
	BusinessCategory BusinessCategory `json:"businessCategory"`
	AvgTicket        *AvgTicket       `json:"avgTicket,omitempty"`
	CountryBias      string           `json:"countryBias"`
}

// MapData is what a map view needs to plot the analysis.
type MapData struct {
	Center         LatLng          `json:"center"`
	CompetitorsTop []Competitor    `json:"competitorsTop"`
	GeoJSON        json.RawMessage `json:"geojson,omitempty"`
}

// ReportLinks points at the stored report.
type ReportLinks struct {
	ReportURL string  `json:"reportUrl"`
	PDFURL    *string `json:"pdfUrl"`
}

// Timings are per-phase wall-clock durations in milliseconds.
type Timings struct {
	Geocode int64 `json:"geocode"`
	Nearby  int64 `json:"nearby"`
	Details int64 `json:"details"`
	Score   int64 `json:"score"`
	LLM     int64 `json:"llm"`
	Total   int64 `json:"total"`
}

// AnalysisResponse is the complete analysis result.
type AnalysisResponse struct {
	RequestID           string              `json:"requestId"`
	Input               InputEcho           `json:"input"`
	Location            ResolvedLocation    `json:"location"`
	ViabilityScore      int                 `json:"viabilityScore"`
	Verdict             Verdict             `json:"verdict"`
	Metrics             Metrics             `json:"metrics"`
	HardMetrics         HardMetrics         `json:"hardMetrics"`
	CompetitorsTop      []Competitor        `json:"competitorsTop"`
	Insights            []string            `json:"insights"`
	Diagnosis           string              `json:"diagnosis"`
	RecommendationAngle RecommendationAngle `json:"recommendationAngle"`
	MapData             MapData             `json:"mapData"`
	Report              ReportLinks         `json:"report"`
	TimingMs            Timings             `json:"timingMs"`
	GeneratedAt         time.Time           `json:"generatedAt"`
	CacheHit            bool                `json:"cacheHit"`
}

// ReportURL returns the report path for a request id.
func ReportURL(requestID string) string {
	return "/api/report/" + requestID
}

// Clone returns a deep copy so cached values can be re-stamped safely.
func (r *AnalysisResponse) Clone() *AnalysisResponse {
	if r == nil {
		return nil
	}
	out := *r
	if r.Input.AvgTicket != nil {
		t := *r.Input.AvgTicket
		t.Amount = clonePtr(t.Amount)
		out.Input.AvgTicket = &t
	}
	if r.HardMetrics.PriceLevelDistribution != nil {
		out.HardMetrics.PriceLevelDistribution = make(map[string]int, len(r.HardMetrics.PriceLevelDistribution))
		for k, v := range r.HardMetrics.PriceLevelDistribution {
			out.HardMetrics.PriceLevelDistribution[k] = v
		}
	}
	out.CompetitorsTop = cloneCompetitors(r.CompetitorsTop)
	out.MapData.CompetitorsTop = cloneCompetitors(r.MapData.CompetitorsTop)
	if r.MapData.GeoJSON != nil {
		out.MapData.GeoJSON = append(json.RawMessage(nil), r.MapData.GeoJSON...)
	}
	if r.Insights != nil {
		out.Insights = append([]string(nil), r.Insights...)
	}
	out.Report.PDFURL = clonePtr(r.Report.PDFURL)
	return &out
}

func cloneCompetitors(in []Competitor) []Competitor {
	if in == nil {
		return nil
	}
	out := make([]Competitor, len(in))
	for i, c := range in {
		types := make([]string, len(c.Types))
		copy(types, c.Types)
		c.Types = types
		c.Rating = clonePtr(c.Rating)
		c.PriceLevel = clonePtr(c.PriceLevel)
		out[i] = c
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
