// Package pipeline orchestrates a site-viability analysis: normalize,
// cache lookup, geocode, discovery, enrichment, scoring, insights and
// response assembly.
package pipeline

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/viability-cli/internal/cache"
	"github.com/sells-group/viability-cli/internal/discovery"
	"github.com/sells-group/viability-cli/internal/features"
	"github.com/sells-group/viability-cli/internal/geo"
	"github.com/sells-group/viability-cli/internal/insights"
	"github.com/sells-group/viability-cli/internal/model"
	"github.com/sells-group/viability-cli/internal/monitoring"
	"github.com/sells-group/viability-cli/internal/scorer"
	"github.com/sells-group/viability-cli/internal/store"
)

// Defaults for the search radii and the response.
const (
	DefaultNearRadiusM = 800
	DefaultFarRadiusM  = 1500
	CompetitorsTopN    = 10
)

// Phase names used in timings, logs and metrics.
const (
	PhaseGeocode = "geocode"
	PhaseNearby  = "nearby"
	PhaseDetails = "details"
	PhaseScore   = "score"
	PhaseLLM     = "llm"
	PhaseTotal   = "total"
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithInsights sets the insight service. The default only produces
// fallback packs.
func WithInsights(s *insights.Service) Option {
	return func(a *Analyzer) { a.insights = s }
}

// WithScorer sets the scoring engine.
func WithScorer(e *scorer.Engine) Option {
	return func(a *Analyzer) { a.scorer = e }
}

// WithCache sets the result cache and its TTL.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(a *Analyzer) {
		a.cache = c
		if ttl > 0 {
			a.cacheTTL = ttl
		}
	}
}

// WithReportStore sets where completed analyses are kept.
func WithReportStore(s store.ReportStore) Option {
	return func(a *Analyzer) { a.reports = s }
}

// WithCatalog overrides the built-in category catalog.
func WithCatalog(c model.Catalog) Option {
	return func(a *Analyzer) { a.catalog = c }
}

// WithRadii overrides the near and far search radii in meters.
func WithRadii(near, far int) Option {
	return func(a *Analyzer) {
		if near > 0 {
			a.nearRadius = near
		}
		if far > 0 {
			a.farRadius = far
		}
	}
}

// WithMetrics records analysis outcomes, cache results and phase timings.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// Analyzer runs analyses. It is safe for concurrent use.
type Analyzer struct {
	discovery  *discovery.Service
	insights   *insights.Service
	scorer     *scorer.Engine
	cache      cache.Cache
	cacheTTL   time.Duration
	reports    store.ReportStore
	catalog    model.Catalog
	metrics    *monitoring.Metrics
	nearRadius int
	farRadius  int

	now   func() time.Time
	newID func(time.Time) string
}

// New returns an Analyzer over a discovery service. Unset collaborators get
// in-memory defaults.
func New(disc *discovery.Service, opts ...Option) *Analyzer {
	a := &Analyzer{
		discovery:  disc,
		insights:   insights.NewService(),
		scorer:     &scorer.Engine{},
		cache:      cache.NewMemory(),
		cacheTTL:   cache.DefaultTTL,
		reports:    store.NewMemory(),
		catalog:    model.DefaultCatalog(),
		nearRadius: DefaultNearRadiusM,
		farRadius:  DefaultFarRadiusM,
		now:        time.Now,
		newID:      NewRequestID,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Catalog returns the category catalog in use.
func (a *Analyzer) Catalog() model.Catalog {
	return a.catalog
}

// Report returns a stored analysis by request id.
func (a *Analyzer) Report(ctx context.Context, requestID string) (*model.AnalysisResponse, error) {
	return a.reports.Get(ctx, requestID)
}

// Analyze runs one analysis. Discovery failures abort it; scoring and
// insights never fail.
func (a *Analyzer) Analyze(ctx context.Context, req model.AnalyzeRequest) (resp *model.AnalysisResponse, err error) {
	start := time.Now()
	defer func() { a.metrics.ObserveAnalysis(err) }()

	if err := req.Validate(a.catalog); err != nil {
		return nil, err
	}
	in := Normalize(req)
	profile, _ := a.catalog.Profile(in.Category)
	fp := Fingerprint(in)

	log := zap.L().With(
		zap.String("fingerprint", fp[:12]),
		zap.String("category", string(in.Category)),
	)

	if hit := a.lookup(ctx, fp, log); hit != nil {
		return hit, nil
	}

	var timings model.Timings

	// Geocode.
	var loc model.ResolvedLocation
	timings.Geocode, err = a.phase(log, PhaseGeocode, func() error {
		var gerr error
		loc, gerr = a.discovery.Geocode(ctx, in.NormalizedAddress, in.PlaceID, in.CountryBias)
		return gerr
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: geocode")
	}
	center := loc.Center()

	// Nearby: all places and same-category at both radii, in parallel.
	var allRaw, same800Raw, same1500Raw []model.PlaceSummary
	timings.Nearby, err = a.phase(log, PhaseNearby, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var e error
			allRaw, e = a.discovery.NearbySearch(gctx, discovery.NearbyQuery{Center: center, RadiusM: a.nearRadius})
			return e
		})
		g.Go(func() error {
			var e error
			same800Raw, e = a.discovery.SameCategorySearch(gctx, center, profile, a.nearRadius)
			return e
		})
		g.Go(func() error {
			var e error
			same1500Raw, e = a.discovery.SameCategorySearch(gctx, center, profile, a.farRadius)
			return e
		})
		return g.Wait()
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: nearby")
	}

	// Details enrichment of the far same-category set.
	var enriched []model.PlaceSummary
	timings.Details, err = a.phase(log, PhaseDetails, func() error {
		var derr error
		enriched, derr = a.discovery.Enrich(ctx, same1500Raw)
		return derr
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: details")
	}

	all800 := discovery.ToRecords(center, allRaw)
	same800 := discovery.ToRecords(center, discovery.ExcludeClosed(same800Raw))
	same1500 := discovery.ToRecords(center, enriched)

	// Features, score and verdict.
	var hard model.HardMetrics
	var sc model.ScoreComputation
	timings.Score, _ = a.phase(log, PhaseScore, func() error {
		hard = features.Build(features.Input{
			Same800:      same800,
			Same1500:     same1500,
			All800:       all800,
			TicketBucket: in.TicketBucket,
			IsFood:       profile.IsFood,
		})
		sc = a.scorer.Compute(hard)
		return nil
	})

	// Insights.
	var pack model.InsightPack
	timings.LLM, _ = a.phase(log, PhaseLLM, func() error {
		pack = a.insights.Generate(ctx, insights.Params{
			Category:         in.Category,
			FormattedAddress: loc.FormattedAddress,
			Metrics:          hard,
			FinalScore:       sc.ViabilityScore,
			Verdict:          sc.Verdict,
		})
		return nil
	})

	competitors := topCompetitors(same1500, CompetitorsTopN)
	layer, gerr := geo.MapLayer(loc, competitors)
	if gerr != nil {
		log.Warn("analysis: map layer failed", zap.Error(gerr))
	}

	now := a.now().UTC()
	requestID := a.newID(now)
	resp = &model.AnalysisResponse{
		RequestID: requestID,
		Input: model.InputEcho{
			Address:          in.NormalizedAddress,
			BusinessCategory: in.Category,
			CountryBias:      in.CountryBias,
		},
		Location:            loc,
		ViabilityScore:      sc.ViabilityScore,
		Verdict:             sc.Verdict,
		Metrics:             sc.Metrics,
		HardMetrics:         hard,
		CompetitorsTop:      competitors,
		Insights:            pack.Bullets,
		Diagnosis:           pack.Summary,
		RecommendationAngle: pack.RecommendationAngle,
		MapData: model.MapData{
			Center:         center,
			CompetitorsTop: competitors,
			GeoJSON:        layer,
		},
		Report:      model.ReportLinks{ReportURL: model.ReportURL(requestID)},
		GeneratedAt: now,
	}
	if !in.AvgTicket.IsZero() {
		t := in.AvgTicket
		resp.Input.AvgTicket = &t
	}
	timings.Total = time.Since(start).Milliseconds()
	a.metrics.ObservePhase(PhaseTotal, time.Since(start))
	resp.TimingMs = timings

	if err := a.cache.Set(ctx, fp, resp, a.cacheTTL); err != nil {
		log.Warn("analysis: cache write failed", zap.Error(err))
	}
	a.saveReport(ctx, resp, log)
	a.metrics.ObserveScore(resp.ViabilityScore)

	log.Info("analysis complete",
		zap.String("request_id", requestID),
		zap.String("verdict", string(resp.Verdict)),
		zap.Int("viability_score", resp.ViabilityScore),
		zap.Int64("geocode_ms", timings.Geocode),
		zap.Int64("nearby_ms", timings.Nearby),
		zap.Int64("details_ms", timings.Details),
		zap.Int64("score_ms", timings.Score),
		zap.Int64("llm_ms", timings.LLM),
		zap.Int64("total_ms", timings.Total),
	)
	return resp, nil
}

// lookup serves a memoized analysis under a fresh request id. Cache errors
// count as misses.
func (a *Analyzer) lookup(ctx context.Context, fp string, log *zap.Logger) *model.AnalysisResponse {
	cached, err := a.cache.Get(ctx, fp)
	switch {
	case err == nil:
		a.metrics.ObserveCache(monitoring.ResultHit)
	case errors.Is(err, cache.ErrMiss):
		a.metrics.ObserveCache(monitoring.ResultMiss)
		return nil
	default:
		a.metrics.ObserveCache(monitoring.ResultError)
		log.Warn("analysis: cache lookup failed", zap.Error(err))
		return nil
	}

	resp := cached.Clone()
	resp.RequestID = a.newID(a.now().UTC())
	resp.Report.ReportURL = model.ReportURL(resp.RequestID)
	resp.CacheHit = true
	a.saveReport(ctx, resp, log)

	log.Info("analysis served from cache",
		zap.String("request_id", resp.RequestID),
		zap.String("verdict", string(resp.Verdict)),
		zap.Int("viability_score", resp.ViabilityScore),
	)
	return resp
}

func (a *Analyzer) saveReport(ctx context.Context, resp *model.AnalysisResponse, log *zap.Logger) {
	err := a.reports.Save(ctx, resp)
	a.metrics.ObserveReportWrite(err)
	if err != nil {
		log.Warn("analysis: report save failed", zap.String("request_id", resp.RequestID), zap.Error(err))
	}
}

// phase times fn, records it and logs the outcome.
func (a *Analyzer) phase(log *zap.Logger, name string, fn func() error) (int64, error) {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	a.metrics.ObservePhase(name, d)

	if err != nil {
		log.Warn("analysis: phase failed",
			zap.String("phase", name),
			zap.Int64("duration_ms", d.Milliseconds()),
			zap.Error(err),
		)
		return d.Milliseconds(), err
	}
	log.Debug("analysis: phase complete",
		zap.String("phase", name),
		zap.Int64("duration_ms", d.Milliseconds()),
	)
	return d.Milliseconds(), nil
}

// topCompetitors returns the n records with the most reviews, ties kept in
// input order.
func topCompetitors(records []model.PlaceRecord, n int) []model.Competitor {
	ranked := make([]model.PlaceRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].UserRatingsTotal > ranked[j].UserRatingsTotal
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]model.Competitor, len(ranked))
	for i, r := range ranked {
		out[i] = r.ToCompetitor()
	}
	return out
}
