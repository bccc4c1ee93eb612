// Package registry persists pipeline runs, their steps, and published
// releases in the local SQLite database.
package registry

import "time"

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// StepStatus is the lifecycle state of a single step within a run.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// Run is one invocation of the release pipeline.
type Run struct {
	ID            int64      `json:"id"`
	Event         string     `json:"event"`
	Ref           string     `json:"ref,omitempty"`
	CommitSHA     string     `json:"commit_sha,omitempty"`
	CommitMessage string     `json:"commit_message,omitempty"`
	Actor         string     `json:"actor,omitempty"`
	Version       string     `json:"version,omitempty"`
	Status        RunStatus  `json:"status"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`

	// Steps is populated by GetRun, in position order.
	Steps []RunStep `json:"steps,omitempty"`
}

// RunStep is one step of a run.
type RunStep struct {
	ID         int64      `json:"id"`
	RunID      int64      `json:"run_id"`
	Position   int        `json:"position"`
	Name       string     `json:"name"`
	Status     StepStatus `json:"status"`
	Output     string     `json:"output,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Release is a published release recorded after a successful run.
type Release struct {
	ID        int64    `json:"id"`
	RunID     *int64   `json:"run_id,omitempty"`
	Tag       string   `json:"tag"`
	Name      string   `json:"name"`
	TargetSHA string   `json:"target_sha"`
	ForgeID   int64    `json:"forge_id"`
	Assets    []string `json:"assets,omitempty"`
	// Checksums holds the sha256sum-formatted digests of the uploaded
	// assets, one per line.
	Checksums   string    `json:"checksums,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
