package pipeline

import (
	"fmt"
	"strings"

	"github.com/hazukari/sc3kit/internal/executor"
	"github.com/hazukari/sc3kit/internal/workflow"
)

// Plan is a dry description of the run an event would produce.
type Plan struct {
	Matched   bool
	BuildOnly bool
	Reason    string
	Version   string
	Steps     []PlannedStep
}

// PlannedStep describes one step of a plan.
type PlannedStep struct {
	Position int
	Name     string
	Detail   string
	Skipped  bool
}

// Describe previews the pipeline for an event without running anything or
// touching the registry. headMessage stands in for the commit message the
// checkout step would discover.
func (p *Pipeline) Describe(ev workflow.Event, headMessage string) Plan {
	decision := p.Workflow.Evaluate(ev)
	plan := Plan{
		Matched:   decision.Matched,
		BuildOnly: decision.BuildOnly,
		Reason:    decision.Reason,
	}
	if !decision.Matched {
		return plan
	}

	version := ""
	versionDetail := ""
	switch {
	case ev.Kind == workflow.EventDispatch:
		version = ev.Version
		versionDetail = "use dispatched version " + version
	default:
		if token, ok := p.Workflow.VersionToken(headMessage); ok {
			version = token
			versionDetail = "parse version token " + token + " from the head commit message"
		} else {
			versionDetail = "no version token in the head commit message"
		}
	}
	plan.Version = version

	checkout := "clone " + p.Workflow.Repo.URL
	if p.LocalDir != "" {
		checkout = "use local working tree " + p.LocalDir
	}

	build := "run " + p.Workflow.Build.Script
	if len(p.BuildArgs) > 0 {
		build += " " + executor.QuoteArgs(p.BuildArgs)
	}

	releaseSkipped := decision.BuildOnly || version == ""
	var release, upload, publish string
	if releaseSkipped {
		switch {
		case decision.BuildOnly:
			release = "skipped: build-only event"
		default:
			release = "skipped: no version"
		}
		upload, publish = release, release
	} else {
		tc := workflow.TemplateContext{Version: version, Tag: version, SHA: ev.SHA}
		release = fmt.Sprintf("create draft release %s (%q)", version, p.Workflow.ReleaseName(tc))
		upload = "upload " + p.Workflow.AssetPath(tc)
		publish = "publish release " + version
	}

	details := []struct {
		detail  string
		skipped bool
	}{
		{checkout, false},
		{build, false},
		{versionDetail, decision.BuildOnly},
		{release, releaseSkipped},
		{upload, releaseSkipped},
		{publish, releaseSkipped},
	}
	for i, d := range details {
		plan.Steps = append(plan.Steps, PlannedStep{
			Position: i + 1,
			Name:     StepNames[i],
			Detail:   d.detail,
			Skipped:  d.skipped,
		})
	}
	return plan
}

// String renders the plan for terminal output.
func (pl Plan) String() string {
	var b strings.Builder
	if !pl.Matched {
		fmt.Fprintf(&b, "not triggered: %s\n", pl.Reason)
		return b.String()
	}
	fmt.Fprintf(&b, "triggered: %s\n", pl.Reason)
	for _, step := range pl.Steps {
		marker := "•"
		if step.Skipped {
			marker = "-"
		}
		fmt.Fprintf(&b, "  %s %d. %-8s %s\n", marker, step.Position, step.Name, step.Detail)
	}
	return b.String()
}
