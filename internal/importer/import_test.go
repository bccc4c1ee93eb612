package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazukari/sc3kit/internal/config"
	"github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/exporter"
	"github.com/hazukari/sc3kit/internal/registry"
)

func seedRun(t *testing.T, reg *registry.Registry, version string) *registry.Run {
	t.Helper()
	ctx := context.Background()
	run := &registry.Run{Event: "push", Ref: "refs/heads/main", Version: version}
	if err := reg.CreateRun(ctx, run, []string{"checkout", "build"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := reg.FinishRun(ctx, run.ID, registry.RunSucceeded, ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	return run
}

func TestImportDatabase(t *testing.T) {
	srcHome := t.TempDir()
	t.Setenv(config.EnvHome, srcHome)

	conn, err := db.InitDB()
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	seedRun(t, registry.New(conn), "v2.0.0")
	_ = conn.Close()

	backup := filepath.Join(srcHome, "backup.db")
	if err := exporter.ExportDatabase(backup); err != nil {
		t.Fatalf("ExportDatabase: %v", err)
	}

	dstHome := t.TempDir()
	t.Setenv(config.EnvHome, dstHome)

	if err := ImportDatabase(backup, false); err != nil {
		t.Fatalf("ImportDatabase: %v", err)
	}

	conn2, err := db.InitDB()
	if err != nil {
		t.Fatalf("InitDB after import: %v", err)
	}
	t.Cleanup(func() { conn2.Close() })
	runs, err := registry.New(conn2).ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Version != "v2.0.0" {
		t.Fatalf("imported runs = %+v", runs)
	}

	// The destination now exists; plain import must refuse.
	if err := ImportDatabase(backup, false); err == nil {
		t.Fatal("expected refusal without overwrite")
	}
	if err := ImportDatabase(backup, true); err != nil {
		t.Fatalf("overwrite import: %v", err)
	}
}

func TestImportDatabaseMissingSource(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())
	if err := ImportDatabase(filepath.Join(t.TempDir(), "nope.db"), true); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := os.Stat(filepath.Join(os.Getenv(config.EnvHome), "sc3kit.db")); err == nil {
		t.Fatal("failed import should not leave a database behind")
	}
}

func TestImportRunsMergesArchive(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)

	conn, err := db.InitDB()
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	reg := registry.New(conn)
	ctx := context.Background()

	archived := seedRun(t, reg, "v1.0.0")
	if err := reg.RecordRelease(ctx, &registry.Release{
		RunID:       &archived.ID,
		Tag:         "v1.0.0",
		Name:        "sc3kit v1.0.0",
		PublishedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("RecordRelease: %v", err)
	}

	archive := filepath.Join(home, "archive.db")
	if _, _, err := exporter.ExportRuns(ctx, conn, archive, 0); err != nil {
		t.Fatalf("ExportRuns: %v", err)
	}

	// Local history moves on between export and import.
	seedRun(t, reg, "v1.1.0")

	runs, releases, err := ImportRuns(ctx, conn, archive)
	if err != nil {
		t.Fatalf("ImportRuns: %v", err)
	}
	if runs != 1 {
		t.Errorf("imported %d runs, want 1", runs)
	}
	// v1.0.0 is already recorded locally, so the release is skipped.
	if releases != 0 {
		t.Errorf("imported %d releases, want 0", releases)
	}

	all, err := reg.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("history has %d runs, want 3", len(all))
	}

	full, err := reg.GetRun(ctx, all[0].ID)
	if err != nil || full == nil {
		t.Fatalf("GetRun: %v, %v", full, err)
	}
	if len(full.Steps) != 2 {
		t.Errorf("imported run has %d steps, want 2", len(full.Steps))
	}
}
