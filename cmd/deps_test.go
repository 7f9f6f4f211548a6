package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/viability-cli/internal/config"
	"github.com/sells-group/viability-cli/internal/model"
	"github.com/sells-group/viability-cli/internal/store"
	"github.com/sells-group/viability-cli/pkg/google/mocks"
)

// testConfig returns a valid in-memory configuration.
func testConfig() *config.Config {
	return &config.Config{
		Google:     config.GoogleConfig{TimeoutMs: 1000},
		Anthropic:  config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", MaxTokens: 256},
		Insights:   config.InsightsConfig{TimeoutMs: 1000},
		Analysis:   config.AnalysisConfig{DetailsLimit: 20, DetailsConcurrency: 5, CacheTTLSeconds: 60, NearRadiusM: 800, FarRadiusM: 1500},
		Cache:      config.CacheConfig{Driver: "memory"},
		Store:      config.StoreConfig{Driver: "memory"},
		Resilience: config.ResilienceConfig{Enabled: false, FailureThreshold: 5, ResetTimeoutSecs: 30},
		Server:     config.ServerConfig{Port: 4000},
		Log:        config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestAppEnv_Close_Nil(t *testing.T) {
	// Close with all nil fields should not panic.
	env := &appEnv{}
	assert.NotPanics(t, func() {
		env.Close()
	})
}

func TestInitApp_Defaults(t *testing.T) {
	env, err := initApp(context.Background(), testConfig(), mocks.NewMockClient(t))
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Analyzer)
	assert.IsType(t, &store.Memory{}, env.Reports)
	assert.Nil(t, env.Breakers)
	assert.Equal(t, model.DefaultCatalog(), env.Analyzer.Catalog())
}

func TestInitApp_BreakersOptIn(t *testing.T) {
	c := testConfig()
	c.Resilience.Enabled = true

	env, err := initApp(context.Background(), c, mocks.NewMockClient(t))
	require.NoError(t, err)
	defer env.Close()
	require.NotNil(t, env.Breakers)
	assert.Contains(t, env.Breakers.States(), "GOOGLE_PLACES")
}

func TestInitApp_InvalidConfig(t *testing.T) {
	c := testConfig()
	c.Store.Driver = "mongo"

	env, err := initApp(context.Background(), c, mocks.NewMockClient(t))
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestInitApp_SQLiteStore(t *testing.T) {
	c := testConfig()
	c.Store = config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "reports.db")}

	env, err := initApp(context.Background(), c, mocks.NewMockClient(t))
	require.NoError(t, err)
	defer env.Close()
	assert.IsType(t, &store.SQLite{}, env.Reports)
}

func TestInitApp_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c := testConfig()
	c.Cache = config.CacheConfig{Driver: "redis", RedisAddr: mr.Addr()}

	env, err := initApp(context.Background(), c, mocks.NewMockClient(t))
	require.NoError(t, err)
	env.Close()
}

func TestInitApp_RedisUnavailable(t *testing.T) {
	c := testConfig()
	c.Cache = config.CacheConfig{Driver: "redis", RedisAddr: "127.0.0.1:1"}

	_, err := initApp(context.Background(), c, mocks.NewMockClient(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init redis cache")
}

func TestInitApp_CategoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  GYM:
    types: [gym, stadium]
`), 0o644))

	c := testConfig()
	c.Analysis.CategoryFile = path

	env, err := initApp(context.Background(), c, mocks.NewMockClient(t))
	require.NoError(t, err)
	defer env.Close()

	p, ok := env.Analyzer.Catalog().Profile(model.CategoryGym)
	require.True(t, ok)
	assert.Equal(t, []string{"gym", "stadium"}, p.Types)
}

func TestInitApp_BadCategoryFile(t *testing.T) {
	c := testConfig()
	c.Analysis.CategoryFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := initApp(context.Background(), c, mocks.NewMockClient(t))
	assert.Error(t, err)
}

func TestInitStore_UnknownDriver(t *testing.T) {
	_, err := initStore(context.Background(), config.StoreConfig{Driver: "mongo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}
