package workflow

import "testing"

func parseSample(t *testing.T) *File {
	t.Helper()
	f, err := Parse([]byte(sampleWorkflow))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return f
}

func TestEvaluatePush(t *testing.T) {
	f := parseSample(t)

	d := f.Evaluate(Event{Kind: EventPush, Ref: "refs/heads/master"})
	if !d.Matched || d.BuildOnly {
		t.Errorf("push to master should match fully: %+v", d)
	}

	d = f.Evaluate(Event{Kind: EventPush, Ref: "refs/heads/develop"})
	if d.Matched {
		t.Errorf("push to unlisted branch should not match: %+v", d)
	}
}

func TestEvaluatePullRequest(t *testing.T) {
	f := parseSample(t)

	for _, action := range []string{ActionOpened, ActionSynchronize, ActionReopened} {
		d := f.Evaluate(Event{Kind: EventPullRequest, Branch: "master", Action: action})
		if !d.Matched {
			t.Errorf("action %s should match: %+v", action, d)
		}
		if !d.BuildOnly {
			t.Errorf("pull requests must be build-only: %+v", d)
		}
	}

	d := f.Evaluate(Event{Kind: EventPullRequest, Branch: "master", Action: "closed"})
	if d.Matched {
		t.Errorf("closed action should not match: %+v", d)
	}

	d = f.Evaluate(Event{Kind: EventPullRequest, Branch: "develop", Action: ActionOpened})
	if d.Matched {
		t.Errorf("unlisted target branch should not match: %+v", d)
	}
}

func TestEvaluateDispatch(t *testing.T) {
	f := parseSample(t)

	d := f.Evaluate(Event{Kind: EventDispatch, Version: "v1.0.0"})
	if !d.Matched || d.BuildOnly {
		t.Errorf("dispatch should match fully: %+v", d)
	}
}

func TestEvaluateUnconfiguredTriggers(t *testing.T) {
	in := `
on:
  push:
    branches: [master]
repo: {owner: a, name: b}
build: {script: s}
`
	f, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if d := f.Evaluate(Event{Kind: EventPullRequest, Branch: "master", Action: ActionOpened}); d.Matched {
		t.Errorf("pull_request should not match without its trigger: %+v", d)
	}
	if d := f.Evaluate(Event{Kind: EventDispatch}); d.Matched {
		t.Errorf("dispatch should not match without its trigger: %+v", d)
	}
	if d := f.Evaluate(Event{Kind: "cron"}); d.Matched {
		t.Errorf("unknown event should not match: %+v", d)
	}
}

func TestEventBranchName(t *testing.T) {
	if got := (Event{Ref: "refs/heads/feature/x"}).BranchName(); got != "feature/x" {
		t.Errorf("BranchName = %q", got)
	}
	if got := (Event{Branch: "master", Ref: "refs/heads/other"}).BranchName(); got != "master" {
		t.Errorf("explicit branch should win: %q", got)
	}
}
