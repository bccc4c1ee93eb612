package exporter

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazukari/sc3kit/internal/config"
	"github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/registry"
)

func seedRun(t *testing.T, reg *registry.Registry, version string) *registry.Run {
	t.Helper()
	ctx := context.Background()
	run := &registry.Run{Event: "push", Ref: "refs/heads/main", Version: version}
	if err := reg.CreateRun(ctx, run, []string{"checkout", "build"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := reg.StartRun(ctx, run.ID); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := reg.FinishRun(ctx, run.ID, registry.RunSucceeded, ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	return run
}

func TestExportDatabase(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(config.EnvHome, tmp)

	conn, err := db.InitDB()
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	_ = conn.Close()

	dst := filepath.Join(tmp, "backup", "exported.db")
	if err := ExportDatabase(dst); err != nil {
		t.Fatalf("ExportDatabase: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("exported file not found: %v", err)
	}
}

func TestExportRuns(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(config.EnvHome, tmp)

	conn, err := db.InitDB()
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	reg := registry.New(conn)
	ctx := context.Background()

	first := seedRun(t, reg, "v1.0.0")
	seedRun(t, reg, "v1.1.0")
	if err := reg.RecordRelease(ctx, &registry.Release{
		RunID:       &first.ID,
		Tag:         "v1.0.0",
		Name:        "sc3kit v1.0.0",
		PublishedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("RecordRelease: %v", err)
	}

	dst := filepath.Join(tmp, "archive.db")
	runs, releases, err := ExportRuns(ctx, conn, dst, 0)
	if err != nil {
		t.Fatalf("ExportRuns: %v", err)
	}
	if runs != 2 || releases != 1 {
		t.Fatalf("exported %d runs, %d releases", runs, releases)
	}

	arch, err := sql.Open("sqlite", dst)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { arch.Close() })
	archReg := registry.New(arch)

	got, err := archReg.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("archive has %d runs", len(got))
	}
	// Newest first, so the second seeded run leads.
	if got[0].Version != "v1.1.0" || got[1].Version != "v1.0.0" {
		t.Errorf("archive order = %q, %q", got[0].Version, got[1].Version)
	}

	rel, err := archReg.ReleaseByTag(ctx, "v1.0.0")
	if err != nil || rel == nil {
		t.Fatalf("archived release: %v, %v", rel, err)
	}
	if rel.RunID == nil {
		t.Error("archived release lost its run link")
	}

	full, err := archReg.GetRun(ctx, got[1].ID)
	if err != nil || full == nil {
		t.Fatalf("GetRun: %v, %v", full, err)
	}
	if len(full.Steps) != 2 {
		t.Errorf("archived run has %d steps, want 2", len(full.Steps))
	}
}

func TestExportRunsHonorsLimit(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(config.EnvHome, tmp)

	conn, err := db.InitDB()
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	reg := registry.New(conn)

	for _, v := range []string{"v1.0.0", "v1.1.0", "v1.2.0"} {
		seedRun(t, reg, v)
	}

	dst := filepath.Join(tmp, "partial.db")
	runs, _, err := ExportRuns(context.Background(), conn, dst, 2)
	if err != nil {
		t.Fatalf("ExportRuns: %v", err)
	}
	if runs != 2 {
		t.Fatalf("exported %d runs, want 2", runs)
	}
}
