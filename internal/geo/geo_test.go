package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/viability-cli/internal/model"
)

func TestDistanceM_SamePoint(t *testing.T) {
	assert.Equal(t, 0, DistanceM(-34.6037, -58.3816, -34.6037, -58.3816))
}

func TestDistanceM_KnownPairs(t *testing.T) {
	// Obelisco to Plaza de Mayo, Buenos Aires: about 1.1 km.
	d := DistanceM(-34.6037, -58.3816, -34.6083, -58.3712)
	assert.InDelta(t, 1070, d, 60)

	// One degree of latitude is ~111.2 km on a 6371 km sphere.
	assert.InDelta(t, 111195, DistanceM(0, 0, 1, 0), 1)
}

func TestDistanceM_Symmetric(t *testing.T) {
	a := DistanceM(40.7128, -74.0060, 34.0522, -118.2437)
	b := DistanceM(34.0522, -118.2437, 40.7128, -74.0060)
	assert.Equal(t, a, b)
	assert.InDelta(t, 3935746, a, 2000)
}

func TestPoint_AxisOrder(t *testing.T) {
	p := Point(-34.6, -58.4)
	assert.InDelta(t, -58.4, p.X(), 0)
	assert.InDelta(t, -34.6, p.Y(), 0)
	assert.Equal(t, 4326, p.SRID())
}

func TestMapLayer(t *testing.T) {
	rating := 4.4
	loc := model.ResolvedLocation{Lat: -34.6, Lng: -58.4, FormattedAddress: "Av. Corrientes 1234"}
	comps := []model.Competitor{
		{PlaceID: "p1", Name: "Cafe Uno", Rating: &rating, UserRatingsTotal: 300, DistanceM: 120, Lat: -34.601, Lng: -58.401},
		{PlaceID: "p2", Name: "Cafe Dos", UserRatingsTotal: 10, DistanceM: 640, Lat: -34.605, Lng: -58.398},
	}

	raw, err := MapLayer(loc, comps)
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(raw, &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, "site", fc.Features[0].ID)
	assert.Equal(t, KindSite, fc.Features[0].Properties["kind"])
	assert.Equal(t, []float64{-58.4, -34.6}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, "p1", fc.Features[1].ID)
	assert.InDelta(t, 4.4, fc.Features[1].Properties["rating"], 0)
	_, hasRating := fc.Features[2].Properties["rating"]
	assert.False(t, hasRating)
}
