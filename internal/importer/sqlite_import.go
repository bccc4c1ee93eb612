// Package importer restores run history from database backups and
// archives produced by the exporter.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// _ import for sqlite driver registration
	_ "modernc.org/sqlite"

	"github.com/hazukari/sc3kit/internal/config"
	"github.com/hazukari/sc3kit/internal/registry"
)

// ImportDatabase copies srcPath into the default database location. If
// overwrite is false and the destination exists, an error is returned.
func ImportDatabase(srcPath string, overwrite bool) error {
	dst, err := config.DBPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil && !overwrite {
		return errors.New("destination database exists; use overwrite=true to replace")
	}
	in, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dst dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create dst: %w", err)
	}
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy db: %w", err)
	}
	return nil
}

// ImportRuns merges every run and release from an exported archive into
// the active database. Imported runs get fresh ids; releases whose tag is
// already recorded are skipped, since a tag can be released only once.
func ImportRuns(ctx context.Context, dst *sql.DB, srcPath string) (int, int, error) {
	src, err := sql.Open("sqlite", srcPath)
	if err != nil {
		return 0, 0, fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = src.Close() }()

	srcReg := registry.New(src)
	dstReg := registry.New(dst)

	heads, err := srcReg.ListRuns(ctx, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("read archive: %w", err)
	}

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
	imported := 0
	for i := len(releases) - 1; i >= 0; i-- {
		rel := releases[i]
		existing, err := dstReg.ReleaseByTag(ctx, rel.Tag)
		if err != nil {
			return 0, 0, err
		}
		if existing != nil {
			continue
		}
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
		imported++
	}
	return len(idMap), imported, nil
}
