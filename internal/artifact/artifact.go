// Package artifact collects and digests the files a build produces.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Info describes one build artifact.
type Info struct {
	Path   string
	Name   string
	Size   int64
	SHA256 string
}

// digestConcurrency bounds parallel hashing.
const digestConcurrency = 4

// Collect expands the glob patterns relative to dir and digests every
// matched file. Results are sorted by name; directories are ignored.
func Collect(ctx context.Context, dir string, globs []string) ([]Info, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range globs {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("bad artifact pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			info, err := os.Stat(m)
			if err != nil {
				return nil, fmt.Errorf("stat artifact: %w", err)
			}
			if info.IsDir() {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)

	infos := make([]Info, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(digestConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, size, err := digestFile(path)
			if err != nil {
				return err
			}
			infos[i] = Info{
				Path:   path,
				Name:   filepath.Base(path),
				Size:   size,
				SHA256: sum,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}

// Digest hashes a single file and reports its size.
func Digest(path string) (string, int64, error) {
	return digestFile(path)
}

func digestFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("digest %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// FormatChecksums renders infos in the familiar "<sha256>  <name>" form.
func FormatChecksums(infos []Info) string {
	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "%s  %s\n", info.SHA256, info.Name)
	}
	return b.String()
}

// Find returns the artifact with the given name, if collected.
func Find(infos []Info, name string) (Info, bool) {
	for _, info := range infos {
		if info.Name == name {
			return info, true
		}
	}
	return Info{}, false
}
