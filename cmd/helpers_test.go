package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"testing"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/config"
	"github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/pipeline"
	"github.com/hazukari/sc3kit/internal/registry"
)

// setupTempHome points the data dir (database, settings, profile) at a
// fresh directory for one test.
func setupTempHome(t *testing.T) string {
	t.Helper()
	d := t.TempDir()
	t.Setenv(config.EnvHome, d)
	return d
}

// captureOutput collects what f writes to the real stdout and stderr,
// for commands that print with fmt.Printf.
func captureOutput(t *testing.T, f func()) (string, string) {
	t.Helper()
	oldOut := os.Stdout
	oldErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	outC := make(chan string)
	errC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		outC <- buf.String()
	}()
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rErr)
		errC <- buf.String()
	}()

	f()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = oldOut
	os.Stderr = oldErr

	return <-outC, <-errC
}

// seedHistory populates the registry under the current home with three
// finished runs and one published release:
//
//	#1 push succeeded, released v1.0.0
//	#2 pull_request succeeded, build-only
//	#3 push failed during build
func seedHistory(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	dbConn, err := db.InitDB()
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer func() { _ = dbConn.Close() }()
	reg := registry.New(dbConn)

	finishSteps := func(runID int64, upto int, rest registry.StepStatus) {
		t.Helper()
		for pos := 1; pos <= upto; pos++ {
			if err := reg.StartStep(ctx, runID, pos); err != nil {
				t.Fatalf("StartStep: %v", err)
			}
			if err := reg.FinishStep(ctx, runID, pos, registry.StepSucceeded, "ok"); err != nil {
				t.Fatalf("FinishStep: %v", err)
			}
		}
		if rest == registry.StepSkipped {
			if err := reg.SkipRemainingSteps(ctx, runID, upto+1); err != nil {
				t.Fatalf("SkipRemainingSteps: %v", err)
			}
		}
	}

	run1 := &registry.Run{Event: "push", Ref: "refs/heads/main", CommitSHA: "a1b2c3d4e5f60718293a4b5c6d7e8f9012345678", CommitMessage: "release v1.0.0", Actor: "dev"}
	if err := reg.CreateRun(ctx, run1, pipeline.StepNames); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := reg.StartRun(ctx, run1.ID); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := reg.SetRunVersion(ctx, run1.ID, "v1.0.0"); err != nil {
		t.Fatalf("SetRunVersion: %v", err)
	}
	finishSteps(run1.ID, len(pipeline.StepNames), registry.StepSucceeded)
	if err := reg.FinishRun(ctx, run1.ID, registry.RunSucceeded, ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	if err := reg.RecordRelease(ctx, &registry.Release{
		RunID:     &run1.ID,
		Tag:       "v1.0.0",
		Name:      "demo v1.0.0",
		TargetSHA: run1.CommitSHA,
		ForgeID:   100,
		Assets:    []string{"demo-v1.0.0.zip"},
		Checksums: "0a0b0c demo-v1.0.0.zip\n",
	}); err != nil {
		t.Fatalf("RecordRelease: %v", err)
	}

	run2 := &registry.Run{Event: "pull_request", Ref: "refs/pull/7/head", CommitSHA: "b2c3d4e5f60718293a4b5c6d7e8f9012345678a1", CommitMessage: "pr: fix typo", Actor: "contributor"}
	if err := reg.CreateRun(ctx, run2, pipeline.StepNames); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := reg.StartRun(ctx, run2.ID); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	finishSteps(run2.ID, 2, registry.StepSkipped)
	if err := reg.FinishRun(ctx, run2.ID, registry.RunSucceeded, ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run3 := &registry.Run{Event: "push", Ref: "refs/heads/main", CommitSHA: "c3d4e5f60718293a4b5c6d7e8f9012345678a1b2", CommitMessage: "release v1.1.0 broken", Actor: "dev"}
	if err := reg.CreateRun(ctx, run3, pipeline.StepNames); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := reg.StartRun(ctx, run3.ID); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	finishSteps(run3.ID, 1, "")
	if err := reg.StartStep(ctx, run3.ID, 2); err != nil {
		t.Fatalf("StartStep: %v", err)
	}
	if err := reg.FinishStep(ctx, run3.ID, 2, registry.StepFailed, "error: boom"); err != nil {
		t.Fatalf("FinishStep: %v", err)
	}
	if err := reg.SkipRemainingSteps(ctx, run3.ID, 3); err != nil {
		t.Fatalf("SkipRemainingSteps: %v", err)
	}
	if err := reg.FinishRun(ctx, run3.ID, registry.RunFailed, "step build: boom"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
}

// initFixtureRepo creates a git repository with one commit for the
// release command tests.
func initFixtureRepo(t *testing.T, message string) string {
	t.Helper()
	skipWithoutGit(t)
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
	mustGit("symbolic-ref", "HEAD", "refs/heads/main")
	mustGit("config", "user.email", "dev@example.com")
	mustGit("config", "user.name", "Dev")
	mustGit("commit", "--allow-empty", "-m", message)
	return dir
}

func skipWithoutGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// setFlag sets a flag on a package-level command and restores its
// default when the test finishes. Flag values persist between tests
// otherwise.
func setFlag(t *testing.T, cmd *cobra.Command, name, value string) {
	t.Helper()
	f := cmd.Flags().Lookup(name)
	if f == nil {
		t.Fatalf("unknown flag --%s on %s", name, cmd.Name())
	}
	def := f.DefValue
	if err := cmd.Flags().Set(name, value); err != nil {
		t.Fatalf("set --%s: %v", name, err)
	}
	t.Cleanup(func() { _ = cmd.Flags().Set(name, def) })
}
