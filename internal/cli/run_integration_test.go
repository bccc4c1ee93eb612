// Package cli holds end-to-end pipeline tests that cross package
// boundaries: a real git repository, the real shell executor, and the
// real SQLite registry, with only the forge kept out via dry-run.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"testing"

	"github.com/hazukari/sc3kit/internal/config"
	"github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/executor"
	"github.com/hazukari/sc3kit/internal/gitrepo"
	"github.com/hazukari/sc3kit/internal/observability"
	"github.com/hazukari/sc3kit/internal/pipeline"
	"github.com/hazukari/sc3kit/internal/registry"
	"github.com/hazukari/sc3kit/internal/workflow"
)

func skipWithoutTools(t *testing.T) {
	t.Helper()
	for _, tool := range []string{"git", "bash"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}
}

// initRepo creates a git repository with one commit carrying message.
func initRepo(t *testing.T, message string) string {
	t.Helper()
	dir := t.TempDir()
	mustGit := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	mustGit("init", ".")
	mustGit("symbolic-ref", "HEAD", "refs/heads/master")
	mustGit("config", "user.email", "dev@example.com")
	mustGit("config", "user.name", "Dev")
	mustGit("commit", "--allow-empty", "-m", message)
	return dir
}

func loadTestWorkflow(t *testing.T, branch string) *workflow.File {
	t.Helper()
	src := fmt.Sprintf(`name: integration
on:
  push:
    branches: [%s]
repo:
  owner: demo
  name: demo
build:
  script: echo integration build
`, branch)
	wf, err := workflow.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse workflow: %v", err)
	}
	return wf
}

// newLocalPipeline wires a dry-run pipeline over the working tree at dir.
func newLocalPipeline(t *testing.T, dir string) (*pipeline.Pipeline, *registry.Registry) {
	t.Helper()
	t.Setenv(config.EnvHome, t.TempDir())

	dbConn, err := db.InitDB()
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = dbConn.Close() })

	branch, err := gitrepo.CurrentBranch(context.Background(), dir)
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	reg := registry.New(dbConn)
	wf := loadTestWorkflow(t, branch)

	p := pipeline.New(wf, reg, executor.New(false), nil, observability.NewLogger("disabled", io.Discard))
	p.LocalDir = dir
	p.DryRun = true
	return p, reg
}

func pushEvent(t *testing.T, dir string) workflow.Event {
	t.Helper()
	ctx := context.Background()
	head, err := gitrepo.Head(ctx, dir)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	branch, err := gitrepo.CurrentBranch(ctx, dir)
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	return workflow.Event{
		Kind:    workflow.EventPush,
		Ref:     "refs/heads/" + branch,
		SHA:     head.SHA,
		Message: head.Message,
		Actor:   head.Author,
	}
}

func TestDryRunReleasesVersionToken(t *testing.T) {
	skipWithoutTools(t)
	ctx := context.Background()

	dir := initRepo(t, "release v9.9.9")
	p, reg := newLocalPipeline(t, dir)

	run, err := p.Execute(ctx, pushEvent(t, dir))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, err := reg.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != registry.RunSucceeded {
		t.Fatalf("status = %s (error %q)", got.Status, got.Error)
	}
	if got.Version != "v9.9.9" {
		t.Fatalf("version = %q", got.Version)
	}
	if len(got.Steps) != len(pipeline.StepNames) {
		t.Fatalf("steps = %d, want %d", len(got.Steps), len(pipeline.StepNames))
	}
	for _, st := range got.Steps {
		if st.Status != registry.StepSucceeded {
			t.Errorf("step %s = %s", st.Name, st.Status)
		}
	}
	if !strings.Contains(got.Steps[1].Output, "integration build") {
		t.Errorf("build output not captured: %q", got.Steps[1].Output)
	}
	if !strings.Contains(got.Steps[3].Output, "dry-run: would create draft release v9.9.9") {
		t.Errorf("release step output: %q", got.Steps[3].Output)
	}
	if !strings.Contains(got.Steps[4].Output, "demo-v9.9.9.zip") {
		t.Errorf("upload step output: %q", got.Steps[4].Output)
	}
}

func TestDryRunWithoutTokenSkipsReleaseSteps(t *testing.T) {
	skipWithoutTools(t)
	ctx := context.Background()

	dir := initRepo(t, "chore: tidy build scripts")
	p, reg := newLocalPipeline(t, dir)

	run, err := p.Execute(ctx, pushEvent(t, dir))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, err := reg.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != registry.RunSucceeded {
		t.Fatalf("status = %s (error %q)", got.Status, got.Error)
	}
	if got.Version != "" {
		t.Fatalf("version = %q, want none", got.Version)
	}
	for i, st := range got.Steps {
		want := registry.StepSucceeded
		if i >= 3 {
			want = registry.StepSkipped
		}
		if st.Status != want {
			t.Errorf("step %s = %s, want %s", st.Name, st.Status, want)
		}
	}

	last, err := reg.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if last == nil || last.ID != run.ID {
		t.Fatalf("LastRun = %+v", last)
	}
}

func TestUnmatchedBranchIsNotTriggered(t *testing.T) {
	skipWithoutTools(t)
	ctx := context.Background()

	dir := initRepo(t, "release v1.0.0")
	p, _ := newLocalPipeline(t, dir)

	ev := pushEvent(t, dir)
	ev.Ref = "refs/heads/feature/other"

	_, err := p.Execute(ctx, ev)
	if !errors.Is(err, pipeline.ErrNotTriggered) {
		t.Fatalf("expected not-triggered error, got %v", err)
	}
}
