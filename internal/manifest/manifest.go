// Package manifest parses and verifies SHA256SUMS files, the checksum
// manifest the upload step publishes next to multi-artifact releases.
package manifest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazukari/sc3kit/internal/artifact"
)

// Entry is one line of a checksum manifest.
type Entry struct {
	SHA256 string
	Name   string
}

// Status classifies one verified entry.
type Status string

const (
	StatusOK       Status = "ok"
	StatusMissing  Status = "missing"
	StatusMismatch Status = "mismatch"
)

// Result pairs a manifest entry with its verification outcome.
type Result struct {
	Entry  Entry
	Status Status
	// Got holds the actual digest when it differs from the manifest.
	Got string
}

// ParseChecksums reads manifest lines in the "<sha256>  <name>" form
// sha256sum emits. Blank lines and comments are skipped; the binary
// marker ("*name") is accepted and stripped.
func ParseChecksums(r io.Reader) ([]Entry, error) {
	s := bufio.NewScanner(r)
	var entries []Entry
	line := 0
	for s.Scan() {
		line++
		text := strings.TrimSpace(s.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		sum, name, ok := strings.Cut(text, " ")
		if !ok {
			return nil, fmt.Errorf("line %d: not a checksum line", line)
		}
		if len(sum) != 64 || !isHex(sum) {
			return nil, fmt.Errorf("line %d: %q is not a sha256 digest", line, sum)
		}
		name = strings.TrimSpace(name)
		name = strings.TrimPrefix(name, "*")
		if name == "" {
			return nil, fmt.Errorf("line %d: missing file name", line)
		}
		entries = append(entries, Entry{SHA256: strings.ToLower(sum), Name: name})
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("manifest has no entries")
	}
	return entries, nil
}

// Load reads and parses the manifest at path.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return ParseChecksums(f)
}

// VerifyDir digests each named file relative to dir and compares it with
// the manifest. Missing and mismatched files become results, not errors;
// the error covers unreadable files and cancellation only.
func VerifyDir(ctx context.Context, dir string, entries []Entry) ([]Result, error) {
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := Result{Entry: e, Status: StatusOK}
		sum, _, err := artifact.Digest(filepath.Join(dir, e.Name))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			res.Status = StatusMissing
		case err != nil:
			return nil, err
		case sum != e.SHA256:
			res.Status = StatusMismatch
			res.Got = sum
		}
		results = append(results, res)
	}
	return results, nil
}

// Failed reports whether any result is not ok.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Status != StatusOK {
			return true
		}
	}
	return false
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
