package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/viability-cli/internal/model"
)

type entry struct {
	value     *model.AnalysisResponse
	expiresAt time.Time
}

// Memory is an in-process TTL map. Expired entries are dropped lazily on
// read and in bulk by Purge.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

// Get returns a copy of the cached value.
func (m *Memory) Get(_ context.Context, key string) (*model.AnalysisResponse, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, ErrMiss
	}
	return e.value.Clone(), nil
}

// Set stores a copy of v. A non-positive ttl uses DefaultTTL.
func (m *Memory) Set(_ context.Context, key string, v *model.AnalysisResponse, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	m.entries[key] = entry{value: v.Clone(), expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Purge removes expired entries and returns how many were dropped.
func (m *Memory) Purge() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Run purges expired entries every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	log := zap.L().With(zap.String("component", "cache.janitor"))
	log.Info("starting cache janitor", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("cache janitor stopped")
			return
		case <-ticker.C:
			if n := m.Purge(); n > 0 {
				log.Debug("purged expired analyses", zap.Int("count", n))
			}
		}
	}
}
