package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestWhoamiSetShowClear(t *testing.T) {
	setupTempHome(t)

	var out bytes.Buffer
	whoamiSetCmd.SetOut(&out)
	if err := whoamiSetCmd.RunE(whoamiSetCmd, nil); err == nil {
		t.Fatalf("expected error when missing --name")
	}
	out.Reset()

	if err := whoamiSetCmd.Flags().Set("name", "Hazuki"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := whoamiSetCmd.Flags().Set("email", "hazuki@example.com"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	t.Cleanup(func() {
		_ = whoamiSetCmd.Flags().Set("name", "")
		_ = whoamiSetCmd.Flags().Set("email", "")
	})
	whoamiSetCmd.SetOut(&out)
	if err := whoamiSetCmd.RunE(whoamiSetCmd, nil); err != nil {
		t.Fatalf("whoami set failed: %v", err)
	}
	if !strings.Contains(out.String(), "stored actor as: Hazuki <hazuki@example.com>") {
		t.Fatalf("unexpected set output: %s", out.String())
	}
	out.Reset()

	whoamiShowCmd.SetOut(&out)
	if err := whoamiShowCmd.RunE(whoamiShowCmd, nil); err != nil {
		t.Fatalf("whoami show failed: %v", err)
	}
	if !strings.Contains(out.String(), "Hazuki <hazuki@example.com>") {
		t.Fatalf("unexpected show output: %s", out.String())
	}
	out.Reset()

	whoamiClearCmd.SetOut(&out)
	if err := whoamiClearCmd.RunE(whoamiClearCmd, nil); err != nil {
		t.Fatalf("whoami clear failed: %v", err)
	}
	out.Reset()

	whoamiShowCmd.SetOut(&out)
	if err := whoamiShowCmd.RunE(whoamiShowCmd, nil); err != nil {
		t.Fatalf("whoami show after clear failed: %v", err)
	}
	if !strings.Contains(out.String(), "no stored actor identity") {
		t.Fatalf("unexpected show output after clear: %s", out.String())
	}
}
