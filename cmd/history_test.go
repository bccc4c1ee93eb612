package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestHistoryEmpty(t *testing.T) {
	setupTempHome(t)

	var out bytes.Buffer
	historyCmd.SetOut(&out)
	if err := historyCmd.RunE(historyCmd, nil); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out.String(), "no runs recorded") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestHistoryListsNewestFirst(t *testing.T) {
	setupTempHome(t)
	seedHistory(t)

	var out bytes.Buffer
	historyCmd.SetOut(&out)
	if err := historyCmd.RunE(historyCmd, nil); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 runs, got %d:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "#3\t") {
		t.Fatalf("newest run not first: %q", lines[0])
	}
	if !strings.Contains(lines[2], "v1.0.0") {
		t.Fatalf("oldest run should carry its version: %q", lines[2])
	}
}

func TestHistoryQueryFiltersRuns(t *testing.T) {
	setupTempHome(t)
	seedHistory(t)

	var out bytes.Buffer
	historyCmd.SetOut(&out)
	if err := historyCmd.RunE(historyCmd, []string{"typo"}); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out.String(), "pull_request") {
		t.Fatalf("query should match the pull_request run: %s", out.String())
	}
	if strings.Contains(out.String(), "v1.1.0") {
		t.Fatalf("query should not match push runs: %s", out.String())
	}
}

func TestHistoryByIDShowsSteps(t *testing.T) {
	setupTempHome(t)
	seedHistory(t)

	if err := historyCmd.Flags().Set("id", "2"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	t.Cleanup(func() { _ = historyCmd.Flags().Set("id", "0") })

	var out bytes.Buffer
	historyCmd.SetOut(&out)
	if err := historyCmd.RunE(historyCmd, nil); err != nil {
		t.Fatalf("history --id failed: %v", err)
	}
	if !strings.Contains(out.String(), "#2\t") {
		t.Fatalf("run line missing: %s", out.String())
	}
	if !strings.Contains(out.String(), "checkout") || !strings.Contains(out.String(), "skipped") {
		t.Fatalf("step listing missing: %s", out.String())
	}
}

func TestHistoryByIDNotFound(t *testing.T) {
	setupTempHome(t)

	if err := historyCmd.Flags().Set("id", "42"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	t.Cleanup(func() { _ = historyCmd.Flags().Set("id", "0") })

	err := historyCmd.RunE(historyCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "run not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
