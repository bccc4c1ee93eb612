// Package security vets workflow script lines before the pipeline runs
// them on the host.
package security

import (
	"errors"
	"regexp"
	"strings"
)

var destructivePatterns = []*regexp.Regexp{
	// filesystem wipes
	regexp.MustCompile(`(?i)\brm\s+-rf\s+/\s*$`),
	regexp.MustCompile(`(?i)\brm\s+-rf\s+/[a-z]`),
	regexp.MustCompile(`(?i)\bmkfs\b`),
	regexp.MustCompile(`(?i)\bwipefs\b`),
	regexp.MustCompile(`(?i)\bdd\s+if=`),
	// fork bombs (e.g. :(){ :|:& };:)
	regexp.MustCompile(`:\(\)\s*\{`),
	// package managers stripping the host
	regexp.MustCompile(`(?i)\bapt(-get)?\s+(remove|purge)\s+`),
	regexp.MustCompile(`(?i)\byum\s+remove\s+`),
}

// CheckScript returns nil when a script line may run, or an error saying
// why it is blocked. The check is conservative, not exhaustive; it exists
// to stop obviously destructive lines from reaching the shell.
func CheckScript(command string) error {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return errors.New("empty script line")
	}
	for _, re := range destructivePatterns {
		if re.MatchString(cmd) {
			return errors.New("script line appears destructive and was blocked")
		}
	}
	return nil
}
