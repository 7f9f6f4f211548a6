package insights

import (
	"fmt"
	"strings"
)

// SystemPrompt constrains the model to the supplied metrics.
const SystemPrompt = "You are an analyst. Use ONLY provided metrics. Return STRICT JSON with keys: bullets, summary, recommendationAngle."

// Temperature for insight generation.
const Temperature = 0.2

// BuildPrompt renders the user message: every hard metric, the final score,
// the verdict and the task lines.
func BuildPrompt(p Params) string {
	m := p.Metrics
	lines := []string{
		"Business category: " + string(p.Category),
		"Address: " + p.FormattedAddress,
		"",
		"Metrics:",
		fmt.Sprintf("count_same_800m=%d", m.CountSame800m),
		fmt.Sprintf("count_same_1500m=%d", m.CountSame1500m),
		fmt.Sprintf("density_all_800m=%d", m.DensityAll800m),
		"avg_rating_same=" + num(m.AvgRatingSame),
		"median_reviews_same=" + num(m.MedianReviewsSame),
		fmt.Sprintf("total_reviews_all_800m=%d", m.TotalReviewsAll800m),
		fmt.Sprintf("count_food_drink_800m=%d", m.CountFoodDrink800m),
		"price_level_distribution=" + jsonString(distribution(m.PriceLevelDistribution)),
		"detected_price_gap=" + jsonString(m.DetectedPriceGap),
		fmt.Sprintf("finalScore=%d", p.FinalScore),
		"verdict=" + string(p.Verdict),
		"",
		"Task:",
		"1) Provide 5 actionable bullets grounded in metrics and include numbers.",
		"2) Provide a concise 2-3 sentence summary.",
		"3) Suggest ONE recommendationAngle among: specialty, take-away, hours, pricing, niche-audience.",
		"Return JSON only.",
	}
	return strings.Join(lines, "\n")
}
