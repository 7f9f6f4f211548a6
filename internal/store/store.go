// Package store keeps completed analyses addressable by request id.
package store

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/viability-cli/internal/model"
)

var (
	// ErrNotFound is returned by Get for an unknown request id.
	ErrNotFound = eris.New("store: report not found")
	// ErrExists is returned by Save when the request id is already stored.
	ErrExists = eris.New("store: report already exists")
)

// ReportStore persists analysis responses. Reports are write-once.
type ReportStore interface {
	Save(ctx context.Context, resp *model.AnalysisResponse) error
	Get(ctx context.Context, requestID string) (*model.AnalysisResponse, error)
	Close() error
}

// Memory is the default process-local store.
type Memory struct {
	mu      sync.RWMutex
	reports map[string]*model.AnalysisResponse
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{reports: make(map[string]*model.AnalysisResponse)}
}

// Save stores a copy of resp.
func (m *Memory) Save(_ context.Context, resp *model.AnalysisResponse) error {
	if resp == nil || resp.RequestID == "" {
		return eris.New("store: report without request id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[resp.RequestID]; ok {
		return ErrExists
	}
	m.reports[resp.RequestID] = resp.Clone()
	return nil
}

// Get returns a copy of the stored report.
func (m *Memory) Get(_ context.Context, requestID string) (*model.AnalysisResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
