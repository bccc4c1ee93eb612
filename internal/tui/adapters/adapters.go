// Package adapters provides adapter interfaces and lightweight types used by
// the TUI to decouple it from the internal domain packages.
package adapters

import (
	"context"
	"errors"
)

// ErrNotFound is used when a requested run cannot be found in the registry.
var ErrNotFound = errors.New("not found")

// RunSummary is a display-ready view of one pipeline run. Times are
// preformatted strings so the presentation layer never touches time.Time.
type RunSummary struct {
	ID       int64
	Event    string
	Ref      string
	Version  string
	Status   string
	Error    string
	Actor    string
	Commit   string
	Message  string
	Started  string
	Duration string
}

// StepView is one pipeline step of a run, ready for rendering.
type StepView struct {
	Position int
	Name     string
	Status   string
	Duration string
	Output   string
}

// ReleaseSummary is a display-ready view of a published release.
type ReleaseSummary struct {
	Tag       string
	Name      string
	Assets    []string
	Published string
}

// HistoryAdapter describes the read-only slice of the registry the TUI
// browses. Keep methods small and easy to mock for tests.
type HistoryAdapter interface {
	// ListRuns returns the newest runs, most recent first.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	// SearchRuns filters runs with the registry's fuzzy matcher.
	SearchRuns(ctx context.Context, query string, limit int) ([]RunSummary, error)
	// GetRun returns one run with its steps.
	GetRun(ctx context.Context, id int64) (RunSummary, []StepView, error)
	// ListReleases returns recorded releases, newest first.
	ListReleases(ctx context.Context, limit int) ([]ReleaseSummary, error)
}
