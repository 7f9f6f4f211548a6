package insights

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/viability-cli/internal/model"
)

// Partial is a model answer as decoded, before any validation. Each field
// keeps whatever JSON type the model produced.
type Partial struct {
	Bullets             any `json:"bullets"`
	Summary             any `json:"summary"`
	RecommendationAngle any `json:"recommendationAngle"`
}

// ParsePartial extracts the outermost JSON object from text and decodes it.
func ParsePartial(text string) (Partial, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < 0 || end <= start {
		return Partial{}, eris.New("insights: no JSON object in model response")
	}

	var p Partial
	if err := json.Unmarshal([]byte(text[start:end+1]), &p); err != nil {
		return Partial{}, eris.Wrap(err, "insights: parse model JSON")
	}
	return p, nil
}

// Merge fills a complete pack from a partial model answer, field by field.
// Bullets keep string entries only, capped at five and backfilled by index
// from fallback. Summary must be a non-empty string after trimming. The angle
// must be one of the known values.
func Merge(raw Partial, fallback model.InsightPack) model.InsightPack {
	bullets := make([]string, 0, model.InsightBulletCount)
	if items, ok := raw.Bullets.([]any); ok {
		for _, item := range items {
			if s, ok := item.(string); ok {
				bullets = append(bullets, s)
			}
			if len(bullets) == model.InsightBulletCount {
				break
			}
		}
	}
	for len(bullets) < model.InsightBulletCount && len(bullets) < len(fallback.Bullets) {
		bullets = append(bullets, fallback.Bullets[len(bullets)])
	}

	summary := fallback.Summary
	if s, ok := raw.Summary.(string); ok && strings.TrimSpace(s) != "" {
		summary = strings.TrimSpace(s)
	}

	angle := fallback.RecommendationAngle
	if s, ok := raw.RecommendationAngle.(string); ok {
		if a, ok := model.ParseAngle(s); ok {
			angle = a
		}
	}

	return model.InsightPack{
		Bullets:             bullets,
		Summary:             summary,
		RecommendationAngle: angle,
	}
}
