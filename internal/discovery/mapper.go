package discovery

import (
	"context"
	"errors"

	"github.com/sells-group/viability-cli/internal/model"
	"github.com/sells-group/viability-cli/internal/resilience"
	"github.com/sells-group/viability-cli/pkg/google"
)

// Upstream names the provider in classified errors.
const Upstream = "GOOGLE_PLACES"

// toSummary applies the documented defaults: rating and price level stay
// nil, review count 0, types empty, coordinates from fallback.
func toSummary(p google.Place, fallback model.LatLng) model.PlaceSummary {
	s := model.PlaceSummary{
		PlaceID:        p.PlaceID,
		Name:           p.Name,
		Rating:         p.Rating,
		PriceLevel:     p.PriceLevel,
		BusinessStatus: p.BusinessStatus,
		Types:          []string{},
		Lat:            fallback.Lat,
		Lng:            fallback.Lng,
	}
	if p.UserRatingsTotal != nil {
		s.UserRatingsTotal = *p.UserRatingsTotal
	}
	if len(p.Types) > 0 {
		s.Types = append(s.Types, p.Types...)
	}
	if loc, ok := p.Location(); ok {
		s.Lat, s.Lng = loc.Lat, loc.Lng
	}
	return s
}

// classify maps Places client errors onto the failure taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := resilience.As(err); ok {
		return err
	}

	var te *google.TimeoutError
	if errors.As(err, &te) {
		return resilience.UpstreamTimeout(Upstream, te.Timeout, err)
	}

	var se *google.StatusError
	if errors.As(err, &se) {
		if se.RateLimited() {
			e := resilience.RateLimited(Upstream, se.StatusDetail())
			e.Message = "Se alcanzó el límite de Google Places."
			e.Err = err
			return e
		}
		return resilience.UpstreamError(Upstream, se.StatusDetail(), "Google Places devolvió un estado no exitoso.", err)
	}

	if errors.Is(err, google.ErrMissingAPIKey) {
		return resilience.UpstreamError(Upstream, "MISSING_API_KEY", "La API key de Google Maps no está configurada.", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return resilience.UpstreamError(Upstream, "", "No fue posible conectar con Google Places.", err)
}
