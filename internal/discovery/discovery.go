// Package discovery resolves an analysis location and gathers the
// surrounding commercial landscape from Google Places.
package discovery

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/viability-cli/internal/geo"
	"github.com/sells-group/viability-cli/internal/limiter"
	"github.com/sells-group/viability-cli/internal/model"
	"github.com/sells-group/viability-cli/internal/monitoring"
	"github.com/sells-group/viability-cli/internal/resilience"
	"github.com/sells-group/viability-cli/pkg/google"
)

// Defaults for the enrichment policy.
const (
	DefaultDetailsLimit       = 20
	DefaultDetailsConcurrency = 5
)

// NearbyQuery is a single radius search.
type NearbyQuery struct {
	Center  model.LatLng
	RadiusM int
	Type    string
	Keyword string
}

// Option configures a Service.
type Option func(*Service)

// WithDetailsLimit sets how many candidates are enriched with details.
func WithDetailsLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.detailsLimit = n
		}
	}
}

// WithDetailsConcurrency bounds in-flight detail fetches.
func WithDetailsConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.detailsConcurrency = n
		}
	}
}

// WithBreaker guards every provider call with a circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(s *Service) {
		s.breaker = cb
	}
}

// WithMetrics records provider call outcomes.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Service wraps the Places client with mapping, dedup and the enrichment
// policy. It is safe for concurrent use.
type Service struct {
	places             google.Client
	breaker            *resilience.CircuitBreaker
	metrics            *monitoring.Metrics
	detailsLimit       int
	detailsConcurrency int
}

// NewService creates a discovery Service.
func NewService(places google.Client, opts ...Option) *Service {
	s := &Service{
		places:             places,
		detailsLimit:       DefaultDetailsLimit,
		detailsConcurrency: DefaultDetailsConcurrency,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Geocode resolves an address or place id. The first result with a
// location wins; none yields AddressNotFound.
func (s *Service) Geocode(ctx context.Context, address, placeID, countryBias string) (model.ResolvedLocation, error) {
	if address == "" && placeID == "" {
		return model.ResolvedLocation{}, resilience.AddressNotFound("No se recibió address ni placeId para geocodificar.")
	}

	results, err := call(ctx, s, google.OpGeocode, func(ctx context.Context) ([]google.GeocodeResult, error) {
		return s.places.Geocode(ctx, google.GeocodeRequest{Address: address, PlaceID: placeID, CountryBias: countryBias})
	})
	if err != nil {
		return model.ResolvedLocation{}, eris.Wrap(err, "discovery: geocode")
	}

	for _, r := range results {
		if r.Geometry == nil || r.Geometry.Location == nil {
			continue
		}
		return model.ResolvedLocation{
			Lat:              r.Geometry.Location.Lat,
			Lng:              r.Geometry.Location.Lng,
			FormattedAddress: r.FormattedAddress,
			PlaceID:          r.PlaceID,
		}, nil
	}
	return model.ResolvedLocation{}, resilience.AddressNotFound("No se encontró una ubicación válida para la dirección.")
}

// NearbySearch runs one radius search. An empty result is not an error.
func (s *Service) NearbySearch(ctx context.Context, q NearbyQuery) ([]model.PlaceSummary, error) {
	places, err := call(ctx, s, google.OpNearbySearch, func(ctx context.Context) ([]google.Place, error) {
		return s.places.NearbySearch(ctx, google.NearbySearchRequest{
			Lat:     q.Center.Lat,
			Lng:     q.Center.Lng,
			RadiusM: q.RadiusM,
			Type:    q.Type,
			Keyword: q.Keyword,
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "discovery: nearby search type=%q keyword=%q radius=%d", q.Type, q.Keyword, q.RadiusM)
	}

	out := make([]model.PlaceSummary, 0, len(places))
	for _, p := range places {
		if p.PlaceID == "" {
			continue
		}
		out = append(out, toSummary(p, q.Center))
	}
	return out, nil
}

// SameCategorySearch issues one nearby search per category type plus one
// keyword search when the profile has a keyword, all concurrently. The
// union is deduplicated by place id: the last query (in type order, then
// keyword) to return an id supplies its payload, and places keep the order
// in which they were first seen. Any query failure fails the call.
func (s *Service) SameCategorySearch(ctx context.Context, center model.LatLng, profile model.CategoryProfile, radiusM int) ([]model.PlaceSummary, error) {
	queries := make([]NearbyQuery, 0, len(profile.Types)+1)
	for _, t := range profile.Types {
		queries = append(queries, NearbyQuery{Center: center, RadiusM: radiusM, Type: t})
	}
	if profile.Keyword != "" {
		queries = append(queries, NearbyQuery{Center: center, RadiusM: radiusM, Keyword: profile.Keyword})
	}

	results := make([][]model.PlaceSummary, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			places, err := s.NearbySearch(gctx, q)
			if err != nil {
				return err
			}
			results[i] = places
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return dedupe(results), nil
}

func dedupe(batches [][]model.PlaceSummary) []model.PlaceSummary {
	index := make(map[string]int)
	var out []model.PlaceSummary
	for _, batch := range batches {
		for _, p := range batch {
			if i, ok := index[p.PlaceID]; ok {
				out[i] = p
				continue
			}
			index[p.PlaceID] = len(out)
			out = append(out, p)
		}
	}
	if out == nil {
		out = []model.PlaceSummary{}
	}
	return out
}

// PlaceDetails fetches full details for one place. Nil means not found.
// Missing coordinates default to fallback.
func (s *Service) PlaceDetails(ctx context.Context, placeID string, fallback model.LatLng) (*model.PlaceSummary, error) {
	p, err := call(ctx, s, google.OpPlaceDetails, func(ctx context.Context) (*google.Place, error) {
		return s.places.PlaceDetails(ctx, placeID)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "discovery: place details %s", placeID)
	}
	if p == nil {
		return nil, nil
	}
	if p.PlaceID == "" {
		p.PlaceID = placeID
	}
	summary := toSummary(*p, fallback)
	return &summary, nil
}

// Enrich applies the enrichment policy to a same-category candidate set:
// permanently closed places are dropped, the rest are ranked by review
// count (descending, stable), and the top K are replaced by their details
// fetched under the concurrency bound. A not-found detail keeps the held
// summary. Candidates beyond K are kept unenriched after the enriched ones.
// Places whose details report them permanently closed are dropped.
func (s *Service) Enrich(ctx context.Context, candidates []model.PlaceSummary) ([]model.PlaceSummary, error) {
	ranked := make([]model.PlaceSummary, 0, len(candidates))
	for _, c := range candidates {
		if !c.ClosedPermanently() {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].UserRatingsTotal > ranked[j].UserRatingsTotal
	})

	k := min(s.detailsLimit, len(ranked))
	head, tail := ranked[:k], ranked[k:]

	enriched, err := limiter.Map(ctx, head, s.detailsConcurrency, func(ctx context.Context, held model.PlaceSummary) (model.PlaceSummary, error) {
		d, err := s.PlaceDetails(ctx, held.PlaceID, model.LatLng{Lat: held.Lat, Lng: held.Lng})
		if err != nil {
			return model.PlaceSummary{}, err
		}
		if d == nil {
			zap.L().Debug("details not found, keeping summary", zap.String("place_id", held.PlaceID))
			return held, nil
		}
		if d.Name == "" {
			d.Name = held.Name
		}
		return *d, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.PlaceSummary, 0, len(ranked))
	for _, p := range enriched {
		if !p.ClosedPermanently() {
			out = append(out, p)
		}
	}
	return append(out, tail...), nil
}

// ToRecords annotates summaries with their rounded distance from center.
func ToRecords(center model.LatLng, places []model.PlaceSummary) []model.PlaceRecord {
	out := make([]model.PlaceRecord, len(places))
	for i, p := range places {
		out[i] = model.PlaceRecord{
			PlaceSummary: p,
			DistanceM:    geo.DistanceM(center.Lat, center.Lng, p.Lat, p.Lng),
		}
	}
	return out
}

// ExcludeClosed drops permanently closed places.
func ExcludeClosed(places []model.PlaceSummary) []model.PlaceSummary {
	out := make([]model.PlaceSummary, 0, len(places))
	for _, p := range places {
		if !p.ClosedPermanently() {
			out = append(out, p)
		}
	}
	return out
}

// call runs one provider operation through the breaker, classifies its
// error and records the outcome.
func call[T any](ctx context.Context, s *Service, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := resilience.ExecuteVal(ctx, s.breaker, func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		return v, classify(err)
	})
	s.metrics.ObserveUpstream(op, err)
	return v, err
}
