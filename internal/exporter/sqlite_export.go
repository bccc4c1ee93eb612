// Package exporter copies run history out of the active database, either
// wholesale or as a standalone archive of selected runs.
package exporter

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// _ import for sqlite driver registration
	_ "modernc.org/sqlite"

	"github.com/hazukari/sc3kit/internal/config"
	dbpkg "github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/registry"
)

// ExportDatabase copies the active sc3kit database to dstPath.
func ExportDatabase(dstPath string) error {
	src, err := config.DBPath()
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source db: %w", err)
	}
	defer func() { _ = in.Close() }()
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("create dst dir: %w", err)
	}
	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create dst db: %w", err)
	}
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy db: %w", err)
	}
	return nil
}

// ExportRuns writes the newest limit runs (all when limit <= 0), their
// steps, and every recorded release into a standalone archive database at
// dstPath. The archive uses the normal schema, so it can be inspected
// with any sqlite client or imported elsewhere.
func ExportRuns(ctx context.Context, src *sql.DB, dstPath string, limit int) (int, int, error) {
	srcReg := registry.New(src)
	heads, err := srcReg.ListRuns(ctx, limit)
	if err != nil {
		return 0, 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return 0, 0, fmt.Errorf("create dst dir: %w", err)
	}
	dst, err := sql.Open("sqlite", dstPath)
	if err != nil {
		return 0, 0, fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = dst.Close() }()
	if err := dbpkg.ApplyMigrations(dst); err != nil {
		return 0, 0, fmt.Errorf("apply schema: %w", err)
	}
	dstReg := registry.New(dst)

	// ListRuns is newest first; insert oldest first so archive ids keep
	// the original order.
	idMap := make(map[int64]int64, len(heads))
	for i := len(heads) - 1; i >= 0; i-- {
		run, err := srcReg.GetRun(ctx, heads[i].ID)
		if err != nil {
			return 0, 0, err
		}
		if run == nil {
			continue
		}
		oldID := run.ID
		if err := dstReg.ImportRun(ctx, run); err != nil {
			return 0, 0, err
		}
		idMap[oldID] = run.ID
	}

	releases, err := srcReg.ListReleases(ctx, 0)
	if err != nil {
		return 0, 0, err
	}
	exported := 0
	for i := len(releases) - 1; i >= 0; i-- {
		rel := releases[i]
		rel.ID = 0
		if rel.RunID != nil {
			if newID, ok := idMap[*rel.RunID]; ok {
				rel.RunID = &newID
			} else {
				rel.RunID = nil
			}
		}
		if err := dstReg.RecordRelease(ctx, &rel); err != nil {
			return 0, 0, err
		}
		exported++
	}
	return len(idMap), exported, nil
}
