// Package pipeline executes the release workflow: checkout, build,
// version discovery, and the three release steps, in that fixed order,
// recording every step in the registry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hazukari/sc3kit/internal/artifact"
	"github.com/hazukari/sc3kit/internal/executor"
	"github.com/hazukari/sc3kit/internal/forge"
	"github.com/hazukari/sc3kit/internal/gitrepo"
	"github.com/hazukari/sc3kit/internal/nameutil"
	"github.com/hazukari/sc3kit/internal/observability"
	"github.com/hazukari/sc3kit/internal/registry"
	"github.com/hazukari/sc3kit/internal/security"
	"github.com/hazukari/sc3kit/internal/workflow"
)

// StepNames is the fixed step order of every run.
var StepNames = []string{"checkout", "build", "version", "release", "upload", "publish"}

// ErrNotTriggered marks events that no configured trigger matches.
var ErrNotTriggered = errors.New("event does not match any trigger")

// ForgeClient is the slice of the forge API the pipeline needs. Tests
// substitute fakes.
type ForgeClient interface {
	CreateDraftRelease(ctx context.Context, owner, repo string, req forge.CreateReleaseRequest) (*forge.Release, error)
	UploadAsset(ctx context.Context, owner, repo string, releaseID int64, name, path string) (*forge.Asset, error)
	PublishRelease(ctx context.Context, owner, repo string, releaseID int64) (*forge.Release, error)
	ReleaseByTag(ctx context.Context, owner, repo, tag string) (*forge.Release, error)
}

// Pipeline runs the workflow against events.
type Pipeline struct {
	Workflow *workflow.File
	Registry *registry.Registry
	Runner   executor.Runner
	Forge    ForgeClient
	Logger   zerolog.Logger

	// Metrics may be nil outside the hub.
	Metrics *observability.Metrics

	// Workspace is where remote checkouts live.
	Workspace string
	// LocalDir, when set, builds an existing working tree instead of
	// cloning into the workspace.
	LocalDir string

	// BuildArgs are appended, shell-quoted, to the build script line.
	BuildArgs []string
	// BuildTimeout bounds the build step. Zero means no limit.
	BuildTimeout time.Duration
	// Interactive routes the build through a PTY when possible.
	Interactive bool
	// DryRun previews the release steps without calling the forge.
	DryRun bool
	// Force skips the destructive-command screen on the build script.
	Force bool
}

// New wires a pipeline with its required collaborators.
func New(wf *workflow.File, reg *registry.Registry, runner executor.Runner, fc ForgeClient, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		Workflow: wf,
		Registry: reg,
		Runner:   runner,
		Forge:    fc,
		Logger:   logger,
	}
}

// state accumulates what the steps discover during one run.
type state struct {
	run      *registry.Run
	ev       workflow.Event
	decision workflow.Decision

	dir       string
	head      *gitrepo.HeadInfo
	artifacts []artifact.Info
	version   string
	tag       string
	uploaded  []string
	release   *forge.Release

	// stopAfter ends the run successfully after the step at this
	// position, skipping the rest. Zero means run everything.
	stopAfter int
}

// Execute evaluates the event and, when it matches, runs the pipeline to
// completion. The returned run is recorded even when it fails.
func (p *Pipeline) Execute(ctx context.Context, ev workflow.Event) (*registry.Run, error) {
	decision := p.Workflow.Evaluate(ev)
	if !decision.Matched {
		return nil, fmt.Errorf("%w: %s", ErrNotTriggered, decision.Reason)
	}
	if ev.Kind == workflow.EventDispatch {
		if ev.Version == "" {
			return nil, fmt.Errorf("dispatch requires an explicit version (like %s1.2.0)", p.Workflow.Release.TokenPrefix)
		}
		if !p.Workflow.ValidVersion(ev.Version) {
			return nil, fmt.Errorf("dispatch version %q does not match %s<major>.<minor>.<patch>", ev.Version, p.Workflow.Release.TokenPrefix)
		}
	}

	run := &registry.Run{
		Event:         ev.Kind,
		Ref:           ev.Ref,
		CommitSHA:     ev.SHA,
		CommitMessage: ev.Message,
		Actor:         ev.Actor,
		Version:       ev.Version,
	}
	if err := p.Registry.CreateRun(ctx, run, StepNames); err != nil {
		return nil, err
	}
	if err := p.Registry.StartRun(ctx, run.ID); err != nil {
		return run, err
	}

	p.Logger.Info().
		Int64("run", run.ID).
		Str("event", ev.Kind).
		Str("reason", decision.Reason).
		Msg("run started")

	st := &state{run: run, ev: ev, decision: decision}
	err := p.runSteps(ctx, st)
	if err != nil {
		_ = p.Registry.FinishRun(ctx, run.ID, registry.RunFailed, err.Error())
		p.countRun(ev.Kind, registry.RunFailed)
		p.Logger.Error().Int64("run", run.ID).Err(err).Msg("run failed")
		return run, err
	}

	if err := p.Registry.FinishRun(ctx, run.ID, registry.RunSucceeded, ""); err != nil {
		return run, err
	}
	p.countRun(ev.Kind, registry.RunSucceeded)
	p.Logger.Info().Int64("run", run.ID).Str("version", st.version).Msg("run succeeded")
	return run, nil
}

func (p *Pipeline) countRun(event string, status registry.RunStatus) {
	if p.Metrics != nil {
		p.Metrics.RunsTotal.WithLabelValues(event, string(status)).Inc()
	}
}

type stepFunc func(ctx context.Context, st *state) (string, error)

func (p *Pipeline) runSteps(ctx context.Context, st *state) error {
	steps := []struct {
		name string
		fn   stepFunc
	}{
		{"checkout", p.stepCheckout},
		{"build", p.stepBuild},
		{"version", p.stepVersion},
		{"release", p.stepRelease},
		{"upload", p.stepUpload},
		{"publish", p.stepPublish},
	}

	for i, step := range steps {
		pos := i + 1
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("step %s: %w", step.name, err)
		}
		if err := p.Registry.StartStep(ctx, st.run.ID, pos); err != nil {
			return err
		}
		p.Logger.Info().Int64("run", st.run.ID).Str("step", step.name).Msg("step started")

		start := time.Now()
		output, err := step.fn(ctx, st)
		p.observeStep(step.name, time.Since(start))

		if err != nil {
			msg := output
			if msg != "" {
				msg += "\n"
			}
			msg += "error: " + err.Error()
			_ = p.Registry.FinishStep(ctx, st.run.ID, pos, registry.StepFailed, msg)
			_ = p.Registry.SkipRemainingSteps(ctx, st.run.ID, pos+1)
			return fmt.Errorf("step %s: %w", step.name, err)
		}

		if err := p.Registry.FinishStep(ctx, st.run.ID, pos, registry.StepSucceeded, output); err != nil {
			return err
		}
		p.Logger.Info().
			Int64("run", st.run.ID).
			Str("step", step.name).
			Dur("duration", time.Since(start)).
			Msg("step finished")

		if st.stopAfter == pos {
			if err := p.Registry.SkipRemainingSteps(ctx, st.run.ID, pos+1); err != nil {
				return err
			}
			return nil
		}
	}
	return nil
}

func (p *Pipeline) observeStep(name string, d time.Duration) {
	if p.Metrics != nil {
		p.Metrics.StepDuration.WithLabelValues(name).Observe(d.Seconds())
	}
}

func (p *Pipeline) stepCheckout(ctx context.Context, st *state) (string, error) {
	var detail string
	if p.LocalDir != "" {
		if !gitrepo.IsRepo(p.LocalDir) {
			return "", fmt.Errorf("%s is not a git repository", p.LocalDir)
		}
		st.dir = p.LocalDir
		detail = "using local working tree " + st.dir
	} else {
		st.dir = filepath.Join(p.Workspace, p.Workflow.Repo.Name)
		if err := gitrepo.CloneOrFetch(ctx, p.Workflow.Repo.URL, st.dir); err != nil {
			return "", err
		}
		ref := st.ev.SHA
		if ref == "" {
			ref = st.ev.BranchName()
		}
		if ref == "" {
			ref = p.Workflow.Repo.DefaultBranch
		}
		if err := gitrepo.Checkout(ctx, st.dir, ref); err != nil {
			return "", err
		}
		detail = "checked out " + ref
	}

	head, err := gitrepo.Head(ctx, st.dir)
	if err != nil {
		return "", err
	}
	st.head = head

	// Events without commit metadata (manual dispatch) get it filled in
	// from what was actually checked out.
	if st.run.CommitSHA == "" {
		st.run.CommitSHA = head.SHA
		st.run.CommitMessage = head.Message
		if err := p.Registry.SetRunCommit(ctx, st.run.ID, head.SHA, head.Message); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%s at %s", detail, shortSHA(head.SHA)), nil
}

func (p *Pipeline) stepBuild(ctx context.Context, st *state) (string, error) {
	command := p.Workflow.Build.Script
	if len(p.BuildArgs) > 0 {
		command += " " + executor.QuoteArgs(p.BuildArgs)
	}
	if !p.Force {
		if err := security.CheckScript(command); err != nil {
			return "", err
		}
	}

	res, err := p.Runner.Run(ctx, executor.Request{
		Command:     command,
		Dir:         st.dir,
		Env:         p.buildEnv(st),
		Timeout:     p.BuildTimeout,
		Interactive: p.Interactive,
	})
	var output string
	if res != nil {
		output = res.Output
	}
	if err != nil {
		return output, err
	}

	if p.DryRun {
		if st.decision.BuildOnly {
			st.stopAfter = 2
		}
		return output, nil
	}

	infos, err := artifact.Collect(ctx, st.dir, p.Workflow.Build.Artifacts)
	if err != nil {
		return output, err
	}
	st.artifacts = infos
	if len(infos) > 0 {
		output = strings.TrimRight(output, "\n") + "\n\nartifacts:\n" + artifact.FormatChecksums(infos)
	}

	if st.decision.BuildOnly {
		st.stopAfter = 2
	}
	return output, nil
}

// buildEnv layers the run's own variables over the workflow's build.env,
// so build scripts can see what triggered them.
func (p *Pipeline) buildEnv(st *state) map[string]string {
	env := make(map[string]string, len(p.Workflow.Build.Env)+4)
	for k, v := range p.Workflow.Build.Env {
		env[k] = v
	}
	env["SC3KIT_EVENT"] = st.ev.Kind
	env["SC3KIT_REF"] = st.ev.BranchName()
	env["SC3KIT_COMMIT"] = st.run.CommitSHA
	if st.ev.Version != "" {
		env["SC3KIT_VERSION"] = st.ev.Version
	}
	return env
}

func (p *Pipeline) stepVersion(ctx context.Context, st *state) (string, error) {
	if st.ev.Kind == workflow.EventDispatch {
		st.version = st.ev.Version
		st.tag = st.ev.Version
		return "using dispatched version " + st.version, nil
	}

	message := st.run.CommitMessage
	if st.head != nil && st.head.Message != "" {
		message = st.head.Message
	}
	token, ok := p.Workflow.VersionToken(message)
	if !ok {
		st.stopAfter = 3
		return "no version token in the head commit message; skipping release steps", nil
	}

	st.version = token
	st.tag = token
	if err := p.Registry.SetRunVersion(ctx, st.run.ID, token); err != nil {
		return "", err
	}
	return "found version token " + token, nil
}

func (p *Pipeline) templateContext(st *state) workflow.TemplateContext {
	sha := st.run.CommitSHA
	if st.head != nil {
		sha = st.head.SHA
	}
	return workflow.TemplateContext{Version: st.version, Tag: st.tag, SHA: sha}
}

func (p *Pipeline) stepRelease(ctx context.Context, st *state) (string, error) {
	tc := p.templateContext(st)

	if p.DryRun {
		return fmt.Sprintf("dry-run: would create draft release %s at %s", st.tag, shortSHA(tc.SHA)), nil
	}

	existing, err := p.Registry.ReleaseByTag(ctx, st.tag)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", fmt.Errorf("tag %s was already released by run %v", st.tag, derefInt64(existing.RunID))
	}

	name, _ := nameutil.SanitizeTitle(p.Workflow.ReleaseName(tc))
	rel, err := p.Forge.CreateDraftRelease(ctx, p.Workflow.Repo.Owner, p.Workflow.Repo.Name, forge.CreateReleaseRequest{
		TagName:         st.tag,
		TargetCommitish: tc.SHA,
		Name:            name,
		Body:            p.Workflow.ReleaseNotes(tc),
	})
	if err != nil {
		return "", err
	}
	st.release = rel
	return fmt.Sprintf("created draft release %s (forge id %d)", st.tag, rel.ID), nil
}

// uploadNames decides the asset name for each artifact. A single artifact
// takes the configured asset name; several keep their own base names.
func (p *Pipeline) uploadNames(st *state) ([]string, error) {
	if len(st.artifacts) == 1 {
		name := filepath.Base(p.Workflow.AssetPath(p.templateContext(st)))
		return []string{name}, nil
	}
	names := make([]string, 0, len(st.artifacts))
	seen := make(map[string]string, len(st.artifacts))
	for _, info := range st.artifacts {
		if prev, ok := seen[info.Name]; ok {
			return nil, fmt.Errorf("artifacts %s and %s would upload under the same name %s", prev, info.Path, info.Name)
		}
		seen[info.Name] = info.Path
		names = append(names, info.Name)
	}
	return names, nil
}

func (p *Pipeline) stepUpload(ctx context.Context, st *state) (string, error) {
	if p.DryRun {
		name := filepath.Base(p.Workflow.AssetPath(p.templateContext(st)))
		return "dry-run: would upload " + name, nil
	}
	if len(st.artifacts) == 0 {
		return "", fmt.Errorf("no artifacts matched %v; did the build produce anything?", p.Workflow.Build.Artifacts)
	}

	names, err := p.uploadNames(st)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for i, info := range st.artifacts {
		asset, err := p.Forge.UploadAsset(ctx, p.Workflow.Repo.Owner, p.Workflow.Repo.Name, st.release.ID, names[i], info.Path)
		if err != nil {
			return out.String(), fmt.Errorf("upload %s: %w", names[i], err)
		}
		st.uploaded = append(st.uploaded, asset.Name)
		fmt.Fprintf(&out, "uploaded %s (%d bytes, sha256 %s)\n", asset.Name, info.Size, info.SHA256)
	}

	// With several artifacts a checksum manifest goes up alongside them.
	// It is written next to the first artifact, with the build output.
	if len(st.artifacts) > 1 {
		sums, err := writeChecksumFile(filepath.Dir(st.artifacts[0].Path), st.artifacts)
		if err != nil {
			return out.String(), err
		}
		asset, err := p.Forge.UploadAsset(ctx, p.Workflow.Repo.Owner, p.Workflow.Repo.Name, st.release.ID, checksumAssetName, sums)
		if err != nil {
			return out.String(), fmt.Errorf("upload %s: %w", checksumAssetName, err)
		}
		st.uploaded = append(st.uploaded, asset.Name)
		fmt.Fprintf(&out, "uploaded %s\n", asset.Name)
	}
	return strings.TrimRight(out.String(), "\n"), nil
}

const checksumAssetName = "SHA256SUMS"

func writeChecksumFile(dir string, infos []artifact.Info) (string, error) {
	path := filepath.Join(dir, checksumAssetName)
	if err := os.WriteFile(path, []byte(artifact.FormatChecksums(infos)), 0o644); err != nil {
		return "", fmt.Errorf("write checksum manifest: %w", err)
	}
	return path, nil
}

func (p *Pipeline) stepPublish(ctx context.Context, st *state) (string, error) {
	if p.DryRun {
		return "dry-run: would publish " + st.tag, nil
	}

	rel, err := p.Forge.PublishRelease(ctx, p.Workflow.Repo.Owner, p.Workflow.Repo.Name, st.release.ID)
	if err != nil {
		return "", err
	}
	st.release = rel

	record := &registry.Release{
		RunID:     &st.run.ID,
		Tag:       st.tag,
		Name:      rel.Name,
		TargetSHA: st.run.CommitSHA,
		ForgeID:   rel.ID,
		Assets:    st.uploaded,
		Checksums: artifact.FormatChecksums(st.artifacts),
	}
	if err := p.Registry.RecordRelease(ctx, record); err != nil {
		return "", err
	}

	out := "published release " + st.tag
	if rel.HTMLURL != "" {
		out += ": " + rel.HTMLURL
	}
	return out, nil
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
