package cmd

import (
	"strings"
	"testing"
)

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _ := captureOutput(t, func() {
		versionCmd.Run(versionCmd, nil)
	})
	if !strings.HasPrefix(stdout, "sc3kit ") {
		t.Fatalf("unexpected version output: %q", stdout)
	}
}
