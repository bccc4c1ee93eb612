package cmd

import (
	"bytes"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"testing"
)

func TestWorkflowInitAndCheck(t *testing.T) {
	setupTempHome(t)
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	workflowInitCmd.SetOut(&out)
	if err := workflowInitCmd.RunE(workflowInitCmd, nil); err != nil {
		t.Fatalf("workflow init failed: %v", err)
	}
	if !strings.Contains(out.String(), "wrote release.yml") {
		t.Fatalf("unexpected init output: %s", out.String())
	}
	if _, err := os.Stat("release.yml"); err != nil {
		t.Fatalf("workflow file not written: %v", err)
	}

	out.Reset()
	workflowCheckCmd.SetOut(&out)
	if err := workflowCheckCmd.RunE(workflowCheckCmd, nil); err != nil {
		t.Fatalf("workflow check failed: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"release.yml: ok",
		"workflow: release",
		"repo: your-user/your-repo (default branch main)",
		"on push: main",
		"on dispatch: enabled",
		"build: scripts/build.sh",
		"version token: v<semver> in the commit subject",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("check missing %q:\n%s", want, got)
		}
	}

	err := workflowInitCmd.RunE(workflowInitCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "use --force to overwrite") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}

	setFlag(t, workflowInitCmd, "force", "true")
	if err := workflowInitCmd.RunE(workflowInitCmd, nil); err != nil {
		t.Fatalf("workflow init --force failed: %v", err)
	}
}

func TestWorkflowEditRevalidates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a no-op $EDITOR")
	}
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	setupTempHome(t)
	t.Chdir(t.TempDir())
	t.Setenv("EDITOR", "true")

	if err := os.WriteFile("release.yml", []byte(fixtureWorkflow), 0o644); err != nil {
		t.Fatalf("write workflow: %v", err)
	}

	var out bytes.Buffer
	workflowEditCmd.SetOut(&out)
	if err := workflowEditCmd.RunE(workflowEditCmd, nil); err != nil {
		t.Fatalf("workflow edit failed: %v", err)
	}
	if !strings.Contains(out.String(), "release.yml: ok") {
		t.Fatalf("unexpected edit output: %s", out.String())
	}
}

func TestWorkflowEditMissingFile(t *testing.T) {
	setupTempHome(t)
	t.Chdir(t.TempDir())

	err := workflowEditCmd.RunE(workflowEditCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected missing-file error, got %v", err)
	}
}
