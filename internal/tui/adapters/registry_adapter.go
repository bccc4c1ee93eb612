package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/hazukari/sc3kit/internal/registry"
	"github.com/hazukari/sc3kit/internal/tui/sanitize"
)

// RegistryHistory adapts internal/registry.Registry to the HistoryAdapter
// interface the TUI consumes.
type RegistryHistory struct{ reg *registry.Registry }

// NewRegistryHistory returns an adapter that wraps a registry.
func NewRegistryHistory(reg *registry.Registry) *RegistryHistory {
	return &RegistryHistory{reg: reg}
}

const timeLayout = "2006-01-02 15:04:05"

func summarize(run *registry.Run) RunSummary {
	s := RunSummary{
		ID:      run.ID,
		Event:   run.Event,
		Ref:     run.Ref,
		Version: run.Version,
		Status:  string(run.Status),
		Error:   run.Error,
		Actor:   run.Actor,
		Message: firstLine(run.CommitMessage),
		Started: run.StartedAt.Local().Format(timeLayout),
	}
	if len(run.CommitSHA) >= 12 {
		s.Commit = run.CommitSHA[:12]
	} else {
		s.Commit = run.CommitSHA
	}
	if run.FinishedAt != nil {
		s.Duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
	}
	return s
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

// ListRuns returns the newest runs as display summaries.
func (h *RegistryHistory) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	runs, err := h.reg.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]RunSummary, 0, len(runs))
	for i := range runs {
		out = append(out, summarize(&runs[i]))
	}
	return out, nil
}

// SearchRuns filters runs with the registry's fuzzy matcher.
func (h *RegistryHistory) SearchRuns(ctx context.Context, query string, limit int) ([]RunSummary, error) {
	runs, err := h.reg.SearchRuns(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search runs: %w", err)
	}
	out := make([]RunSummary, 0, len(runs))
	for i := range runs {
		out = append(out, summarize(&runs[i]))
	}
	return out, nil
}

// GetRun returns one run with its steps. Step output is sanitized so
// build logs cannot disturb the terminal the TUI draws on.
func (h *RegistryHistory) GetRun(ctx context.Context, id int64) (RunSummary, []StepView, error) {
	run, err := h.reg.GetRun(ctx, id)
	if err != nil {
		return RunSummary{}, nil, fmt.Errorf("get run: %w", err)
	}
	if run == nil {
		return RunSummary{}, nil, ErrNotFound
	}
	steps := make([]StepView, 0, len(run.Steps))
	for _, st := range run.Steps {
		view := StepView{
			Position: st.Position,
			Name:     st.Name,
			Status:   string(st.Status),
			Output:   sanitize.StepOutput(st.Output),
		}
		if st.StartedAt != nil && st.FinishedAt != nil {
			view.Duration = st.FinishedAt.Sub(*st.StartedAt).Round(time.Millisecond).String()
		}
		steps = append(steps, view)
	}
	return summarize(run), steps, nil
}

// ListReleases returns recorded releases as display summaries.
func (h *RegistryHistory) ListReleases(ctx context.Context, limit int) ([]ReleaseSummary, error) {
	rels, err := h.reg.ListReleases(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	out := make([]ReleaseSummary, 0, len(rels))
	for _, rel := range rels {
		out = append(out, ReleaseSummary{
			Tag:       rel.Tag,
			Name:      rel.Name,
			Assets:    rel.Assets,
			Published: rel.PublishedAt.Local().Format(timeLayout),
		})
	}
	return out, nil
}
