package model

// BusinessStatusClosedPermanently marks places that no longer trade.
const BusinessStatusClosedPermanently = "CLOSED_PERMANENTLY"

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ResolvedLocation is the geocoded point an analysis is centered on.
type ResolvedLocation struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formattedAddress"`
	PlaceID          string  `json:"placeId,omitempty"`
}

// Center returns the location as a coordinate pair.
func (l ResolvedLocation) Center() LatLng {
	return LatLng{Lat: l.Lat, Lng: l.Lng}
}

// PlaceSummary is a provider place after defaults are applied. Rating and
// PriceLevel are nil when the provider omitted them; an empty BusinessStatus
// means unknown.
type PlaceSummary struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	PriceLevel       *int     `json:"price_level"`
	Types            []string `json:"types"`
	BusinessStatus   string   `json:"business_status,omitempty"`
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
}

// ClosedPermanently reports whether the place is permanently closed.
func (p PlaceSummary) ClosedPermanently() bool {
	return p.BusinessStatus == BusinessStatusClosedPermanently
}

// PlaceRecord is a summary annotated with its distance from the analysis
// center.
type PlaceRecord struct {
	PlaceSummary
	DistanceM int `json:"distance_m"`
}

// Competitor is the public projection of a PlaceRecord.
type Competitor struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	PriceLevel       *int     `json:"price_level"`
	Types            []string `json:"types"`
	DistanceM        int      `json:"distance_m"`
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
}

// ToCompetitor projects a record for the response.
func (r PlaceRecord) ToCompetitor() Competitor {
	types := make([]string, len(r.Types))
	copy(types, r.Types)
	return Competitor{
		PlaceID:          r.PlaceID,
		Name:             r.Name,
		Rating:           r.Rating,
		UserRatingsTotal: r.UserRatingsTotal,
		PriceLevel:       r.PriceLevel,
		Types:            types,
		DistanceM:        r.DistanceM,
		Lat:              r.Lat,
		Lng:              r.Lng,
	}
}
