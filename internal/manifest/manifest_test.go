package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazukari/sc3kit/internal/artifact"
)

func TestParseChecksums(t *testing.T) {
	in := `# sums for v1.2.0

e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855  empty.txt
E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855 *binary.zip
`
	entries, err := ParseChecksums(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseChecksums: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "empty.txt" || entries[1].Name != "binary.zip" {
		t.Errorf("names = %q, %q", entries[0].Name, entries[1].Name)
	}
	if entries[1].SHA256 != entries[0].SHA256 {
		t.Errorf("digest case not normalized: %q", entries[1].SHA256)
	}
}

func TestParseChecksumsRejectsGarbage(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"comments only", "# nothing\n"},
		{"short digest", "abc123  file.zip\n"},
		{"not hex", strings.Repeat("g", 64) + "  file.zip\n"},
		{"no name", strings.Repeat("a", 64) + "  \n"},
		{"no separator", strings.Repeat("a", 64) + "\n"},
	}
	for _, tc := range cases {
		if _, err := ParseChecksums(strings.NewReader(tc.in)); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestVerifyDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("good.zip", "payload")
	write("bad.zip", "payload")

	sum, _, err := artifact.Digest(filepath.Join(dir, "good.zip"))
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	entries := []Entry{
		{SHA256: sum, Name: "good.zip"},
		{SHA256: strings.Repeat("0", 64), Name: "bad.zip"},
		{SHA256: sum, Name: "gone.zip"},
	}

	results, err := VerifyDir(context.Background(), dir, entries)
	if err != nil {
		t.Fatalf("VerifyDir: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Status != StatusOK {
		t.Errorf("good.zip = %s", results[0].Status)
	}
	if results[1].Status != StatusMismatch || results[1].Got != sum {
		t.Errorf("bad.zip = %s got=%q", results[1].Status, results[1].Got)
	}
	if results[2].Status != StatusMissing {
		t.Errorf("gone.zip = %s", results[2].Status)
	}
	if !Failed(results) {
		t.Error("Failed should report the mismatch")
	}

	ok, err := VerifyDir(context.Background(), dir, entries[:1])
	if err != nil {
		t.Fatalf("VerifyDir ok: %v", err)
	}
	if Failed(ok) {
		t.Error("clean verification reported failure")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	write := filepath.Join(dir, "SHA256SUMS")
	infos := []artifact.Info{{Name: "a.zip", SHA256: strings.Repeat("a", 64)}}
	if err := os.WriteFile(write, []byte(artifact.FormatChecksums(infos)), 0o644); err != nil {
		t.Fatalf("write sums: %v", err)
	}
	entries, err := Load(write)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "a.zip" {
		t.Fatalf("entries = %+v", entries)
	}
	if _, err := Load(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing manifest")
	}
}
