package insights

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/viability-cli/internal/model"
	"github.com/sells-group/viability-cli/internal/monitoring"
	"github.com/sells-group/viability-cli/internal/resilience"
)

// DefaultTimeout bounds a model call.
const DefaultTimeout = 10 * time.Second

// Upstream names the generation provider in logged failures.
const Upstream = "LLM"

// Option configures a Service.
type Option func(*Service)

// WithGenerator enables the model path.
func WithGenerator(g Generator) Option {
	return func(s *Service) { s.gen = g }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMetrics records the path taken for every pack.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service generates insight packs.
type Service struct {
	gen     Generator
	timeout time.Duration
	metrics *monitoring.Metrics
}

// NewService returns a Service. Without WithGenerator every pack is the
// fallback pack.
func NewService(opts ...Option) *Service {
	s := &Service{timeout: DefaultTimeout}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Enabled reports whether the model path is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.gen != nil
}

// Generate never fails. Any model failure is logged and absorbed into the
// fallback pack.
func (s *Service) Generate(ctx context.Context, p Params) model.InsightPack {
	fallback := Fallback(p)
	if !s.Enabled() {
		s.metrics.ObserveInsights(monitoring.PathFallback)
		return fallback
	}

	pack, err := s.generate(ctx, p, fallback)
	if err != nil {
		zap.L().With(zap.String("component", "insights")).Warn("InsightGenerationFailure",
			zap.String("category", string(p.Category)),
			zap.Error(err),
		)
		s.metrics.ObserveInsights(monitoring.PathFallback)
		return fallback
	}
	s.metrics.ObserveInsights(monitoring.PathModel)
	return pack
}

func (s *Service) generate(ctx context.Context, p Params, fallback model.InsightPack) (model.InsightPack, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.gen.Generate(ctx, p)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return model.InsightPack{}, resilience.UpstreamTimeout(Upstream, s.timeout, err)
		}
		return model.InsightPack{}, err
	}

	partial, err := ParsePartial(text)
	if err != nil {
		return model.InsightPack{}, err
	}
	return Merge(partial, fallback), nil
}
