// Package model provides a framework-agnostic UI model built on top of
// adapter interfaces so the TUI code can remain presentation-focused.
package model

import (
	"context"
	"errors"
	"sync"

	"github.com/hazukari/sc3kit/internal/tui/adapters"
)

// ErrNotFound is returned when a requested run is not in the cache.
var ErrNotFound = errors.New("not found")

// UIModel is a framework-agnostic model for the history screens.
// It depends only on the HistoryAdapter interface.
type UIModel struct {
	history adapters.HistoryAdapter

	// Refreshes run on background command goroutines, so cache
	// access is locked.
	mu       sync.Mutex
	runs     []adapters.RunSummary
	releases []adapters.ReleaseSummary
}

// New constructs a UIModel backed by the provided adapter.
func New(h adapters.HistoryAdapter) *UIModel {
	return &UIModel{history: h}
}

// RefreshRuns fetches the run list and caches it.
func (m *UIModel) RefreshRuns(ctx context.Context, limit int) error {
	runs, err := m.history.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.runs = runs
	m.mu.Unlock()
	return nil
}

// CachedRuns returns the cached run summaries, newest first.
func (m *UIModel) CachedRuns() []adapters.RunSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

// FindRun looks up a cached run by id.
func (m *UIModel) FindRun(id int64) (adapters.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return adapters.RunSummary{}, ErrNotFound
}

// Search runs a fuzzy query against the run history. Results are not
// cached; the caller decides whether they replace the main list.
func (m *UIModel) Search(ctx context.Context, query string, limit int) ([]adapters.RunSummary, error) {
	return m.history.SearchRuns(ctx, query, limit)
}

// RunDetail fetches the full record for a run, including its steps and
// their captured output. This is used by the UI to fill the detail pane
// when a run is selected.
func (m *UIModel) RunDetail(ctx context.Context, id int64) (adapters.RunSummary, []adapters.StepView, error) {
	return m.history.GetRun(ctx, id)
}

// RefreshReleases fetches the release list and caches it.
func (m *UIModel) RefreshReleases(ctx context.Context, limit int) error {
	rels, err := m.history.ListReleases(ctx, limit)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.releases = rels
	m.mu.Unlock()
	return nil
}

// CachedReleases returns the cached release summaries, newest first.
func (m *UIModel) CachedReleases() []adapters.ReleaseSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}
