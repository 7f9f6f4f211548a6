// Package insights produces the narrative part of an analysis: five bullets,
// a summary and a recommendation angle. A deterministic fallback pack is
// always available; a language model may refine it.
package insights

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sells-group/viability-cli/internal/model"
)

// Params is what both insight paths see.
type Params struct {
	Category         model.BusinessCategory
	FormattedAddress string
	Metrics          model.HardMetrics
	FinalScore       int
	Verdict          model.Verdict
}

const noGapBullet = "No se detecta gap de precio contundente; la propuesta debe diferenciarse por experiencia y ejecución."

// Fallback builds the deterministic insight pack. It never fails and always
// returns exactly five bullets and a non-empty summary.
func Fallback(p Params) model.InsightPack {
	m := p.Metrics
	gap := m.DetectedPriceGap

	angle := model.AngleSpecialty
	gapBullet := noGapBullet
	if gap.IsGap {
		angle = model.AnglePricing
		gapBullet = fmt.Sprintf("Hay gap de precio (%s dominante); conviene testear %s.", gap.Dominant, gap.Suggested)
	}

	return model.InsightPack{
		Bullets: []string{
			fmt.Sprintf("Competidores directos en 800m: %d; en 1500m: %d.", m.CountSame800m, m.CountSame1500m),
			fmt.Sprintf("La densidad comercial de 800m es %d lugares y acumula %d reseñas.", m.DensityAll800m, m.TotalReviewsAll800m),
			fmt.Sprintf("Calidad competitiva: rating promedio %s con mediana de %s reseñas.", num(m.AvgRatingSame), num(m.MedianReviewsSame)),
			fmt.Sprintf("Distribución de precio detectada: %s.", jsonString(distribution(m.PriceLevelDistribution))),
			gapBullet,
		},
		Summary: fmt.Sprintf(
			"Para %s en %s, el score final es %d/100 con dictamen %s. "+
				"La decisión se explica por saturación local, fuerza de competidores y demanda proxy observada en reseñas y densidad comercial.",
			p.Category, p.FormattedAddress, p.FinalScore, p.Verdict),
		RecommendationAngle: angle,
	}
}

// num prints a float the shortest way that round-trips: 4 -> "4", 4.3 -> "4.3".
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// distribution guarantees the four histogram keys even for zero-valued input.
func distribution(d map[string]int) map[string]int {
	out := map[string]int{"1": 0, "2": 0, "3": 0, "4": 0}
	for k, v := range d {
		out[k] = v
	}
	return out
}

// jsonString marshals v; map keys come out sorted.
func jsonString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
