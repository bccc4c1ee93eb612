package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Registry wraps the database handle with run and release bookkeeping.
type Registry struct {
	db *sql.DB
}

// New returns a Registry backed by db.
func New(db *sql.DB) *Registry {
	return &Registry{db: db}
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// CreateRun inserts a run in the queued state together with its pending
// steps and fills in run.ID and run.StartedAt.
func (r *Registry) CreateRun(ctx context.Context, run *Run, stepNames []string) error {
	if run.Status == "" {
		run.Status = RunQueued
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create run: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (event, ref, commit_sha, commit_message, actor, version, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Event, run.Ref, run.CommitSHA, run.CommitMessage, run.Actor, run.Version,
		string(run.Status), formatTime(run.StartedAt))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}
	run.ID = id

	for i, name := range stepNames {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_steps (run_id, position, name, status) VALUES (?, ?, ?, ?)`,
			id, i+1, name, string(StepPending)); err != nil {
			return fmt.Errorf("insert step %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create run: %w", err)
	}
	return nil
}

// StartRun marks a run running and resets its start time.
func (r *Registry) StartRun(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, started_at = ? WHERE id = ?`,
		string(RunRunning), formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("start run %d: %w", id, err)
	}
	return nil
}

// SetRunCommit fills in commit metadata discovered during checkout, for
// runs whose triggering event did not carry it.
func (r *Registry) SetRunCommit(ctx context.Context, id int64, sha, message string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET commit_sha = ?, commit_message = ? WHERE id = ?`, sha, message, id)
	if err != nil {
		return fmt.Errorf("set run %d commit: %w", id, err)
	}
	return nil
}

// SetRunVersion records the version discovered during a run.
func (r *Registry) SetRunVersion(ctx context.Context, id int64, version string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET version = ? WHERE id = ?`, version, id)
	if err != nil {
		return fmt.Errorf("set run %d version: %w", id, err)
	}
	return nil
}

// FinishRun records a run's terminal status. errMsg may be empty.
func (r *Registry) FinishRun(ctx context.Context, id int64, status RunStatus, errMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), errMsg, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", id, err)
	}
	return nil
}

// StartStep marks the step at position running.
func (r *Registry) StartStep(ctx context.Context, runID int64, position int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE run_steps SET status = ?, started_at = ? WHERE run_id = ? AND position = ?`,
		string(StepRunning), formatTime(time.Now().UTC()), runID, position)
	if err != nil {
		return fmt.Errorf("start step %d of run %d: %w", position, runID, err)
	}
	return nil
}

// FinishStep records a step's terminal status and captured output.
func (r *Registry) FinishStep(ctx context.Context, runID int64, position int, status StepStatus, output string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE run_steps SET status = ?, output = ?, finished_at = ? WHERE run_id = ? AND position = ?`,
		string(status), output, formatTime(time.Now().UTC()), runID, position)
	if err != nil {
		return fmt.Errorf("finish step %d of run %d: %w", position, runID, err)
	}
	return nil
}

// SkipRemainingSteps marks every still-pending step at or after position as
// skipped.
func (r *Registry) SkipRemainingSteps(ctx context.Context, runID int64, position int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE run_steps SET status = ? WHERE run_id = ? AND position >= ? AND status = ?`,
		string(StepSkipped), runID, position, string(StepPending))
	if err != nil {
		return fmt.Errorf("skip steps of run %d: %w", runID, err)
	}
	return nil
}

// ImportRun inserts a run and its steps exactly as given, preserving
// statuses and timestamps. Used when restoring archived history; the run
// gets a fresh ID.
func (r *Registry) ImportRun(ctx context.Context, run *Run) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import run: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (event, ref, commit_sha, commit_message, actor, version, status, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Event, run.Ref, run.CommitSHA, run.CommitMessage, run.Actor, run.Version,
		string(run.Status), run.Error, formatTime(run.StartedAt), formatTimePtr(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("import run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("imported run id: %w", err)
	}
	run.ID = id

	for _, step := range run.Steps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_steps (run_id, position, name, status, output, started_at, finished_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, step.Position, step.Name, string(step.Status), step.Output,
			formatTimePtr(step.StartedAt), formatTimePtr(step.FinishedAt)); err != nil {
			return fmt.Errorf("import step %d: %w", step.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import run: %w", err)
	}
	return nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

const runColumns = `id, event, ref, commit_sha, commit_message, actor, version, status, error, started_at, finished_at`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var (
		run      Run
		message  sql.NullString
		actor    sql.NullString
		version  sql.NullString
		errMsg   sql.NullString
		started  string
		finished sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Event, &run.Ref, &run.CommitSHA, &message,
		&actor, &version, (*string)(&run.Status), &errMsg, &started, &finished); err != nil {
		return nil, err
	}
	run.CommitMessage = message.String
	run.Actor = actor.String
	run.Version = version.String
	run.Error = errMsg.String

	t, err := parseTime(started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = t
	if finished.Valid && finished.String != "" {
		ft, err := parseTime(finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &ft
	}
	return &run, nil
}

// GetRun loads a run with its steps. It returns (nil, nil) when the run
// does not exist.
func (r *Registry) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, run_id, position, name, status, output, started_at, finished_at
		 FROM run_steps WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get run %d steps: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			step     RunStep
			output   sql.NullString
			started  sql.NullString
			finished sql.NullString
		)
		if err := rows.Scan(&step.ID, &step.RunID, &step.Position, &step.Name,
			(*string)(&step.Status), &output, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		step.Output = output.String
		if started.Valid && started.String != "" {
			t, err := parseTime(started.String)
			if err != nil {
				return nil, fmt.Errorf("parse step started_at: %w", err)
			}
			step.StartedAt = &t
		}
		if finished.Valid && finished.String != "" {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, fmt.Errorf("parse step finished_at: %w", err)
			}
			step.FinishedAt = &t
		}
		run.Steps = append(run.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first, without steps.
// limit <= 0 means no limit.
func (r *Registry) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// LastRun returns the most recent run, or (nil, nil) when none exist.
func (r *Registry) LastRun(ctx context.Context) (*Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT 1`)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	return run, nil
}

// RunCounts returns the number of runs per status.
func (r *Registry) RunCounts(ctx context.Context) (map[RunStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[RunStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[RunStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// RecordRelease inserts a release row and fills in rel.ID.
func (r *Registry) RecordRelease(ctx context.Context, rel *Release) error {
	if rel.PublishedAt.IsZero() {
		rel.PublishedAt = time.Now().UTC()
	}
	assets, err := json.Marshal(rel.Assets)
	if err != nil {
		return fmt.Errorf("marshal assets: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO releases (run_id, tag, name, target_sha, forge_id, assets, checksums, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rel.RunID, rel.Tag, rel.Name, rel.TargetSHA, rel.ForgeID, string(assets),
		rel.Checksums, formatTime(rel.PublishedAt))
	if err != nil {
		return fmt.Errorf("record release %s: %w", rel.Tag, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("release id: %w", err)
	}
	rel.ID = id
	return nil
}

const releaseColumns = `id, run_id, tag, name, target_sha, forge_id, assets, checksums, published_at`

func scanRelease(row interface{ Scan(...any) error }) (*Release, error) {
	var (
		rel       Release
		runID     sql.NullInt64
		forgeID   sql.NullInt64
		assets    sql.NullString
		checksums sql.NullString
		published string
	)
	if err := row.Scan(&rel.ID, &runID, &rel.Tag, &rel.Name, &rel.TargetSHA,
		&forgeID, &assets, &checksums, &published); err != nil {
		return nil, err
	}
	if runID.Valid {
		rel.RunID = &runID.Int64
	}
	rel.ForgeID = forgeID.Int64
	rel.Checksums = checksums.String
	if assets.Valid && assets.String != "" {
		if err := json.Unmarshal([]byte(assets.String), &rel.Assets); err != nil {
			return nil, fmt.Errorf("unmarshal assets: %w", err)
		}
	}
	t, err := parseTime(published)
	if err != nil {
		return nil, fmt.Errorf("parse published_at: %w", err)
	}
	rel.PublishedAt = t
	return &rel, nil
}

// ListReleases returns recorded releases, newest first. limit <= 0 means
// no limit.
func (r *Registry) ListReleases(ctx context.Context, limit int) ([]Release, error) {
	query := `SELECT ` + releaseColumns + ` FROM releases ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	defer rows.Close()

	var out []Release
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}
		out = append(out, *rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate releases: %w", err)
	}
	return out, nil
}

// ReleaseByTag returns the release with the given tag, or (nil, nil) when
// absent.
func (r *Registry) ReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+releaseColumns+` FROM releases WHERE tag = ?`, tag)
	rel, err := scanRelease(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("release by tag %s: %w", tag, err)
	}
	return rel, nil
}
