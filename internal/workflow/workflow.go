// Package workflow loads and evaluates the release workflow file. The
// file declares which events trigger the pipeline, where the sources
// live, how to build them, and how the release is shaped.
package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hazukari/sc3kit/internal/nameutil"
)

// File is a parsed workflow file.
type File struct {
	Name    string   `yaml:"name"`
	On      Triggers `yaml:"on"`
	Repo    Repo     `yaml:"repo"`
	Build   Build    `yaml:"build"`
	Release Release  `yaml:"release"`

	versionRE *regexp.Regexp
}

// Triggers declares which events start the pipeline. A trigger is enabled
// when its key appears in the file, even with an empty body.
type Triggers struct {
	Push        *PushTrigger
	PullRequest *PullRequestTrigger
	Dispatch    *DispatchTrigger
}

// PushTrigger matches pushes to the listed branches.
type PushTrigger struct {
	Branches []string `yaml:"branches"`
}

// PullRequestTrigger matches pull requests targeting the listed branches.
type PullRequestTrigger struct {
	Branches []string `yaml:"branches"`
}

// DispatchTrigger allows manual runs with an explicit version.
type DispatchTrigger struct{}

// UnmarshalYAML records trigger presence by key so that an empty body
// still enables the trigger.
func (t *Triggers) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("on: expected a mapping of triggers")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		switch key {
		case "push":
			t.Push = &PushTrigger{}
			if val.Tag != "!!null" {
				if err := val.Decode(t.Push); err != nil {
					return fmt.Errorf("on.push: %w", err)
				}
			}
		case "pull_request":
			t.PullRequest = &PullRequestTrigger{}
			if val.Tag != "!!null" {
				if err := val.Decode(t.PullRequest); err != nil {
					return fmt.Errorf("on.pull_request: %w", err)
				}
			}
		case "dispatch":
			t.Dispatch = &DispatchTrigger{}
		default:
			return fmt.Errorf("on: unknown trigger %q", key)
		}
	}
	return nil
}

// Repo locates the repository the pipeline builds.
type Repo struct {
	Owner         string `yaml:"owner"`
	Name          string `yaml:"name"`
	URL           string `yaml:"url"`
	DefaultBranch string `yaml:"default_branch"`
}

// Slug returns owner/name.
func (r Repo) Slug() string { return r.Owner + "/" + r.Name }

// Build declares the build script and its products.
type Build struct {
	Script    string            `yaml:"script"`
	Artifacts []string          `yaml:"artifacts"`
	Env       map[string]string `yaml:"env"`
}

// Release shapes the published release. Asset, Name, and Notes are
// templates expanded with {version}, {tag}, {sha}, {repo}, and {owner}.
type Release struct {
	Asset       string `yaml:"asset"`
	Name        string `yaml:"name"`
	Notes       string `yaml:"notes"`
	TokenPrefix string `yaml:"token_prefix"`
}

// Load reads and parses the workflow file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes, defaults, and validates a workflow file.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("workflow file is empty")
		}
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) applyDefaults() {
	if f.Name == "" {
		f.Name = "release"
	}
	if f.Repo.DefaultBranch == "" {
		f.Repo.DefaultBranch = "main"
	}
	if f.Repo.URL == "" && f.Repo.Owner != "" && f.Repo.Name != "" {
		f.Repo.URL = fmt.Sprintf("https://github.com/%s/%s.git", f.Repo.Owner, f.Repo.Name)
	}
	if len(f.Build.Artifacts) == 0 {
		f.Build.Artifacts = []string{"dist/*"}
	}
	if f.Release.TokenPrefix == "" {
		f.Release.TokenPrefix = "v"
	}
	if f.Release.Asset == "" {
		f.Release.Asset = "dist/{repo}-{version}.zip"
	}
	if f.Release.Name == "" {
		f.Release.Name = "{repo} {version}"
	}
}

// Validate checks the file for the mistakes a workflow author is likely
// to make and compiles the version token pattern.
func (f *File) Validate() error {
	if f.On.Push == nil && f.On.PullRequest == nil && f.On.Dispatch == nil {
		return fmt.Errorf("on: at least one trigger is required")
	}
	if f.On.Push != nil && len(f.On.Push.Branches) == 0 {
		return fmt.Errorf("on.push: at least one branch is required")
	}
	if f.On.PullRequest != nil && len(f.On.PullRequest.Branches) == 0 {
		return fmt.Errorf("on.pull_request: at least one branch is required")
	}
	if f.Repo.Owner == "" {
		return fmt.Errorf("repo.owner is required")
	}
	if f.Repo.Name == "" {
		return fmt.Errorf("repo.name is required")
	}
	if f.Build.Script == "" {
		return fmt.Errorf("build.script is required")
	}
	if err := nameutil.CheckAssetPath(f.Release.Asset); err != nil {
		return fmt.Errorf("release.asset: %w", err)
	}
	// A prefix that produces refused tag names fails here, not at
	// release time.
	if err := nameutil.CheckTag(f.Release.TokenPrefix + "0.0.0"); err != nil {
		return fmt.Errorf("release.token_prefix: %w", err)
	}
	re, err := regexp.Compile(`^` + regexp.QuoteMeta(f.Release.TokenPrefix) + `\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)
	if err != nil {
		return fmt.Errorf("release.token_prefix: %w", err)
	}
	f.versionRE = re
	return nil
}

// VersionToken scans the first line of a commit message for the first
// whitespace-separated token that looks like a version.
func (f *File) VersionToken(message string) (string, bool) {
	line := message
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	for _, tok := range strings.Fields(line) {
		if f.versionRE.MatchString(tok) {
			return tok, true
		}
	}
	return "", false
}

// ValidVersion reports whether s is an acceptable version token, for
// validating explicitly supplied dispatch versions.
func (f *File) ValidVersion(s string) bool {
	return f.versionRE.MatchString(s)
}

// TemplateContext carries the values release templates expand with.
type TemplateContext struct {
	Version string
	Tag     string
	SHA     string
}

func (f *File) expand(s string, tc TemplateContext) string {
	return strings.NewReplacer(
		"{version}", tc.Version,
		"{tag}", tc.Tag,
		"{sha}", tc.SHA,
		"{repo}", f.Repo.Name,
		"{owner}", f.Repo.Owner,
	).Replace(s)
}

// AssetPath returns the expanded path of the release asset.
func (f *File) AssetPath(tc TemplateContext) string {
	return f.expand(f.Release.Asset, tc)
}

// ReleaseName returns the expanded release title.
func (f *File) ReleaseName(tc TemplateContext) string {
	return f.expand(f.Release.Name, tc)
}

// ReleaseNotes returns the expanded release body, which may be empty.
func (f *File) ReleaseNotes(tc TemplateContext) string {
	return f.expand(f.Release.Notes, tc)
}
