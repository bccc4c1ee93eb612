// Package release defines the naming contract for sc3kit's own
// distribution artifacts. scripts/release.sh produces files with exactly
// these names, and the integration tests in this package hold it to them.
package release

import (
	"fmt"
	"strings"
)

// Target is one os/arch pair a release is built for.
type Target struct {
	OS   string
	Arch string
}

func (t Target) String() string { return t.OS + "/" + t.Arch }

// DefaultTargets lists the platforms a full release covers.
func DefaultTargets() []Target {
	return []Target{
		{"linux", "amd64"},
		{"linux", "arm64"},
		{"darwin", "amd64"},
		{"darwin", "arm64"},
		{"windows", "amd64"},
	}
}

// ParseTarget parses an "os/arch" pair.
func ParseTarget(s string) (Target, error) {
	goos, goarch, ok := strings.Cut(s, "/")
	if !ok || goos == "" || goarch == "" {
		return Target{}, fmt.Errorf("target %q is not os/arch", s)
	}
	return Target{OS: goos, Arch: goarch}, nil
}

// BinaryName returns the platform binary name inside an archive.
func BinaryName(t Target) string {
	if t.OS == "windows" {
		return "sc3kit.exe"
	}
	return "sc3kit"
}

// ArchiveName returns the release archive name for a target. Windows
// ships as zip, everything else as tar.gz.
func ArchiveName(version string, t Target) string {
	base := fmt.Sprintf("sc3kit-%s-%s-%s", version, t.OS, t.Arch)
	if t.OS == "windows" {
		return base + ".zip"
	}
	return base + ".tar.gz"
}

// ChecksumsName returns the manifest name covering one version's archives.
func ChecksumsName(version string) string {
	return fmt.Sprintf("sc3kit-%s-SHA256SUMS", version)
}
