package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/viability-cli/internal/cache"
	"github.com/sells-group/viability-cli/internal/config"
	"github.com/sells-group/viability-cli/internal/db"
	"github.com/sells-group/viability-cli/internal/discovery"
	"github.com/sells-group/viability-cli/internal/insights"
	"github.com/sells-group/viability-cli/internal/model"
	"github.com/sells-group/viability-cli/internal/monitoring"
	"github.com/sells-group/viability-cli/internal/pipeline"
	"github.com/sells-group/viability-cli/internal/resilience"
	"github.com/sells-group/viability-cli/internal/store"
	anthropicpkg "github.com/sells-group/viability-cli/pkg/anthropic"
	"github.com/sells-group/viability-cli/pkg/google"
)

// janitorInterval is how often the in-memory cache drops expired entries.
const janitorInterval = 10 * time.Minute

// appEnv holds the analyzer and the resources it owns, shared by the
// analyze and serve commands.
type appEnv struct {
	Analyzer *pipeline.Analyzer
	Reports  store.ReportStore
	Registry *prometheus.Registry
	Breakers *resilience.ServiceBreakers

	closers []func() error
	cancel  context.CancelFunc
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.cancel != nil {
		e.cancel()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close resource", zap.Error(err))
		}
	}
}

// initApp builds the analyzer from configuration. places overrides the
// Google client when non-nil. Callers should defer env.Close().
func initApp(ctx context.Context, c *config.Config, places google.Client) (*appEnv, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	env := &appEnv{Registry: prometheus.NewRegistry()}
	env.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.New(env.Registry)

	catalog := model.DefaultCatalog()
	if c.Analysis.CategoryFile != "" {
		loaded, err := model.LoadCatalog(c.Analysis.CategoryFile)
		if err != nil {
			return nil, err
		}
		catalog = loaded
		zap.L().Info("category catalog loaded", zap.String("path", c.Analysis.CategoryFile))
	}

	if places == nil {
		if c.Google.APIKey == "" {
			zap.L().Warn("GOOGLE_MAPS_API_KEY not set, place discovery will fail")
		}
		places = google.NewClient(c.Google.APIKey,
			google.WithBaseURL(c.Google.BaseURL),
			google.WithTimeout(c.Google.Timeout()),
			google.WithRateLimit(c.Google.RateLimit),
		)
	}

	discOpts := []discovery.Option{
		discovery.WithDetailsLimit(c.Analysis.DetailsLimit),
		discovery.WithDetailsConcurrency(c.Analysis.DetailsConcurrency),
		discovery.WithMetrics(metrics),
	}
	if c.Resilience.Enabled {
		env.Breakers = resilience.NewServiceBreakers(
			resilience.FromCircuitConfig(c.Resilience.FailureThreshold, c.Resilience.ResetTimeoutSecs),
		)
		discOpts = append(discOpts, discovery.WithBreaker(env.Breakers.Get(discovery.Upstream)))
	}

	insightOpts := []insights.Option{
		insights.WithTimeout(c.Insights.Timeout()),
		insights.WithMetrics(metrics),
	}
	if c.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(c.Anthropic.Key)
		insightOpts = append(insightOpts, insights.WithGenerator(
			insights.NewClaudeGenerator(client, c.Anthropic.Model, int64(c.Anthropic.MaxTokens)),
		))
		zap.L().Info("model insights enabled", zap.String("model", c.Anthropic.Model))
	} else {
		zap.L().Debug("ANTHROPIC_API_KEY not set, insights use the deterministic fallback")
	}

	rc, err := initCache(ctx, c.Cache, env)
	if err != nil {
		env.Close()
		return nil, err
	}

	reports, err := initStore(ctx, c.Store)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Reports = reports
	env.closers = append(env.closers, reports.Close)

	env.Analyzer = pipeline.New(
		discovery.NewService(places, discOpts...),
		pipeline.WithInsights(insights.NewService(insightOpts...)),
		pipeline.WithCache(rc, c.Analysis.CacheTTL()),
		pipeline.WithReportStore(reports),
		pipeline.WithCatalog(catalog),
		pipeline.WithRadii(c.Analysis.NearRadiusM, c.Analysis.FarRadiusM),
		pipeline.WithMetrics(metrics),
	)
	return env, nil
}

func initCache(ctx context.Context, c config.CacheConfig, env *appEnv) (cache.Cache, error) {
	switch c.Driver {
	case "redis":
		rc, err := cache.DialRedis(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			return nil, eris.Wrap(err, "init redis cache")
		}
		env.closers = append(env.closers, rc.Close)
		zap.L().Info("redis cache enabled", zap.String("addr", c.RedisAddr))
		return rc, nil
	case "memory", "":
		mc := cache.NewMemory()
		jctx, cancel := context.WithCancel(context.Background())
		env.cancel = cancel
		go mc.Run(jctx, janitorInterval)
		return mc, nil
	default:
		return nil, eris.Errorf("unsupported cache driver: %s", c.Driver)
	}
}

func initStore(ctx context.Context, c config.StoreConfig) (store.ReportStore, error) {
	switch c.Driver {
	case "sqlite":
		return store.NewSQLite(ctx, c.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, c.DatabaseURL, &db.PoolConfig{})
	case "memory", "":
		return store.NewMemory(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Driver)
	}
}
