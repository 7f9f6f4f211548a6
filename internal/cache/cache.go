// Package cache memoizes complete analysis responses by request fingerprint.
package cache

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/viability-cli/internal/model"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = eris.New("cache: miss")

// Cache stores analysis responses. Implementations are safe for concurrent
// use and return copies: callers may mutate what Get returns.
type Cache interface {
	Get(ctx context.Context, key string) (*model.AnalysisResponse, error)
	Set(ctx context.Context, key string, v *model.AnalysisResponse, ttl time.Duration) error
}

// DefaultTTL is the lifetime of a cached analysis.
const DefaultTTL = 24 * time.Hour
