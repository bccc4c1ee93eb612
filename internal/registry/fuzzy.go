package registry

import (
	"context"
	"strings"
)

// FuzzyMatch reports whether every rune of needle appears in order within
// haystack, ignoring case. An empty needle matches everything.
func FuzzyMatch(needle, haystack string) bool {
	if needle == "" {
		return true
	}
	needle = strings.ToLower(needle)
	haystack = strings.ToLower(haystack)

	pos := 0
	runes := []rune(haystack)
	for _, want := range needle {
		found := false
		for pos < len(runes) {
			if runes[pos] == want {
				found = true
				pos++
				break
			}
			pos++
		}
		if !found {
			return false
		}
	}
	return true
}

// searchWindow bounds how many recent runs a fuzzy search scans.
const searchWindow = 200

// SearchRuns returns recent runs whose fields fuzzy-match query, newest
// first, capped at limit.
func (r *Registry) SearchRuns(ctx context.Context, query string, limit int) ([]Run, error) {
	runs, err := r.ListRuns(ctx, searchWindow)
	if err != nil {
		return nil, err
	}
	if query == "" {
		if limit > 0 && len(runs) > limit {
			runs = runs[:limit]
		}
		return runs, nil
	}

	var out []Run
	for _, run := range runs {
		if runMatches(&run, query) {
			out = append(out, run)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func runMatches(run *Run, query string) bool {
	fields := []string{
		run.Ref,
		run.CommitMessage,
		run.CommitSHA,
		run.Version,
		run.Actor,
		run.Event,
		string(run.Status),
	}
	for _, f := range fields {
		if f != "" && FuzzyMatch(query, f) {
			return true
		}
	}
	return false
}
