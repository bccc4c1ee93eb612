// Package nameutil validates and cleans the names the workflow sends to
// the forge: asset file names, tag names, and release titles.
package nameutil

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CheckAssetPath rejects asset paths that cannot become a file on the
// forge. The path may still contain template placeholders; those expand
// to plain text and need no special casing here.
func CheckAssetPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("asset path is empty")
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("asset path is not valid UTF-8")
	}
	for _, r := range path {
		if r < 0x20 || r == 0x7F {
			return fmt.Errorf("asset path contains a control character (U+%04X)", r)
		}
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, "\\") {
		return fmt.Errorf("asset path must name a file, not a directory")
	}
	return nil
}

// CheckTag rejects tag names git itself would refuse. The check mirrors
// the parts of git-check-ref-format a version token can plausibly trip:
// whitespace, control bytes, and the refname special characters.
func CheckTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag is empty")
	}
	if strings.HasPrefix(tag, "-") || strings.HasPrefix(tag, ".") {
		return fmt.Errorf("tag %q may not start with %q", tag, tag[:1])
	}
	if strings.HasSuffix(tag, ".lock") || strings.HasSuffix(tag, ".") {
		return fmt.Errorf("tag %q has a forbidden suffix", tag)
	}
	if strings.Contains(tag, "..") || strings.Contains(tag, "@{") {
		return fmt.Errorf("tag %q contains a forbidden sequence", tag)
	}
	for _, r := range tag {
		if r <= 0x20 || r == 0x7F {
			return fmt.Errorf("tag %q contains whitespace or a control character", tag)
		}
		switch r {
		case '~', '^', ':', '?', '*', '[', '\\':
			return fmt.Errorf("tag %q contains %q", tag, r)
		}
	}
	return nil
}

// SanitizeTitle strips control and zero-width characters from a release
// title and trims surrounding whitespace. Titles are templated from
// commit messages, which arrive from webhooks with whatever bytes the
// author pasted. Returns the cleaned title and whether anything changed.
func SanitizeTitle(title string) (string, bool) {
	if title == "" {
		return title, false
	}
	out := make([]rune, 0, len(title))
	changed := false
	for _, r := range title {
		if unicode.IsControl(r) {
			changed = true
			continue
		}
		switch r {
		case '​', '‌', '‍', '﻿':
			changed = true
			continue
		}
		out = append(out, r)
	}
	res := strings.TrimSpace(string(out))
	if res != title {
		changed = true
	}
	return res, changed
}
