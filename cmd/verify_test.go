package cmd

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeArtifact(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestVerifyCleanDir(t *testing.T) {
	dir := t.TempDir()
	sumA := writeArtifact(t, dir, "demo-v1.0.0.zip", []byte("archive a"))
	sumB := writeArtifact(t, dir, "demo-v1.0.0.tar.gz", []byte("archive b"))
	sums := fmt.Sprintf("%s  demo-v1.0.0.zip\n%s  demo-v1.0.0.tar.gz\n", sumA, sumB)
	if err := os.WriteFile(filepath.Join(dir, "SHA256SUMS"), []byte(sums), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	var out bytes.Buffer
	verifyCmd.SetOut(&out)
	if err := verifyCmd.RunE(verifyCmd, []string{dir}); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "ok        demo-v1.0.0.zip") {
		t.Fatalf("ok line missing:\n%s", got)
	}
	if !strings.Contains(got, "2 files verified") {
		t.Fatalf("summary missing:\n%s", got)
	}
}

func TestVerifyReportsMismatchAndMissing(t *testing.T) {
	dir := t.TempDir()
	sum := writeArtifact(t, dir, "demo-v1.0.0.zip", []byte("archive"))
	if err := os.WriteFile(filepath.Join(dir, "demo-v1.0.0.zip"), []byte("tampered"), 0o644); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	sums := fmt.Sprintf("%s  demo-v1.0.0.zip\n%s  gone.zip\n", sum, strings.Repeat("0", 64))
	if err := os.WriteFile(filepath.Join(dir, "SHA256SUMS"), []byte(sums), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	var out bytes.Buffer
	verifyCmd.SetOut(&out)
	err := verifyCmd.RunE(verifyCmd, []string{dir})
	if err == nil || !strings.Contains(err.Error(), "verification failed") {
		t.Fatalf("expected failure, got %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "mismatch  demo-v1.0.0.zip") {
		t.Fatalf("mismatch line missing:\n%s", got)
	}
	if !strings.Contains(got, "missing   gone.zip") {
		t.Fatalf("missing line missing:\n%s", got)
	}
}

func TestVerifyCustomManifestPath(t *testing.T) {
	dir := t.TempDir()
	sum := writeArtifact(t, dir, "asset.bin", []byte("payload"))
	alt := filepath.Join(t.TempDir(), "checksums.txt")
	if err := os.WriteFile(alt, []byte(sum+"  asset.bin\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	setFlag(t, verifyCmd, "manifest", alt)

	var out bytes.Buffer
	verifyCmd.SetOut(&out)
	if err := verifyCmd.RunE(verifyCmd, []string{dir}); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !strings.Contains(out.String(), "1 files verified") {
		t.Fatalf("summary missing:\n%s", out.String())
	}
}
