package geo

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/viability-cli/internal/model"
)

// Feature kinds in the map layer.
const (
	KindSite       = "site"
	KindCompetitor = "competitor"
)

// MapLayer renders the analysis center and its competitors as a GeoJSON
// FeatureCollection. The site feature comes first; competitors follow in
// the order given.
func MapLayer(loc model.ResolvedLocation, competitors []model.Competitor) (json.RawMessage, error) {
	fc := geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(competitors)+1),
	}
	fc.Features = append(fc.Features, &geojson.Feature{
		ID:       "site",
		Geometry: Point(loc.Lat, loc.Lng),
		Properties: map[string]interface{}{
			"kind":    KindSite,
			"address": loc.FormattedAddress,
		},
	})
	for _, c := range competitors {
		props := map[string]interface{}{
			"kind":               KindCompetitor,
			"name":               c.Name,
			"user_ratings_total": c.UserRatingsTotal,
			"distance_m":         c.DistanceM,
		}
		if c.Rating != nil {
			props["rating"] = *c.Rating
		}
		if c.PriceLevel != nil {
			props["price_level"] = *c.PriceLevel
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         c.PlaceID,
			Geometry:   Point(c.Lat, c.Lng),
			Properties: props,
		})
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode map layer")
	}
	return data, nil
}
