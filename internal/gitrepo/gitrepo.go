// Package gitrepo wraps the git CLI for the pipeline's checkout step:
// cloning or refreshing the workspace copy and reading head metadata.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// run executes git with the given arguments in dir and returns trimmed
// combined output. Errors carry the output so failures are diagnosable.
func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(out.String()))
	}
	return strings.TrimSpace(out.String()), nil
}

// IsRepo reports whether dir looks like a git working tree.
func IsRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}
	// Worktrees use a .git file pointing at the real directory.
	return info.IsDir() || info.Mode().IsRegular()
}

// HeadInfo is the metadata of the checked-out commit.
type HeadInfo struct {
	SHA     string
	Message string
	Author  string
}

// Head reads the current commit's SHA, full message, and author name.
func Head(ctx context.Context, dir string) (*HeadInfo, error) {
	sha, err := run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	message, err := run(ctx, dir, "log", "-1", "--format=%B")
	if err != nil {
		return nil, err
	}
	author, err := run(ctx, dir, "log", "-1", "--format=%an")
	if err != nil {
		return nil, err
	}
	return &HeadInfo{SHA: sha, Message: message, Author: author}, nil
}

// CurrentBranch returns the checked-out branch name, or "HEAD" when
// detached.
func CurrentBranch(ctx context.Context, dir string) (string, error) {
	return run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
}

// CloneOrFetch makes dir an up-to-date copy of the repository at url:
// a fresh clone when dir holds no repo, a fetch otherwise.
func CloneOrFetch(ctx context.Context, url, dir string) error {
	if IsRepo(dir) {
		_, err := run(ctx, dir, "fetch", "--all", "--tags", "--prune")
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	_, err := run(ctx, "", "clone", url, dir)
	return err
}

// Checkout moves the working tree to ref, which may be a branch, tag, or
// commit SHA. Commit SHAs leave the tree detached, which is what a
// pipeline build wants.
func Checkout(ctx context.Context, dir, ref string) error {
	_, err := run(ctx, dir, "checkout", ref)
	return err
}

// ResolveRef returns the commit SHA that ref points at.
func ResolveRef(ctx context.Context, dir, ref string) (string, error) {
	return run(ctx, dir, "rev-parse", ref+"^{commit}")
}
