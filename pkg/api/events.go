package api

import "time"

// RunLogType identifies a run execution-log record.
type RunLogType string

const (
	LogRunCreated   RunLogType = "run.created"
	LogRunRunning   RunLogType = "run.running"
	LogRunCompleted RunLogType = "run.completed"
	LogRunFailed    RunLogType = "run.failed"
	LogRunCancelled RunLogType = "run.cancelled"

	LogStepRunning   RunLogType = "step.running"
	LogStepCompleted RunLogType = "step.completed"
	LogStepFailed    RunLogType = "step.failed"
	LogStepSkipped   RunLogType = "step.skipped"
)

// RunLogEntry is a minimal append-only execution record for audit/debugging.
// It is intentionally small and stable; richer history can be layered later.
type RunLogEntry struct {
	RunID string
	At    time.Time
	Type  RunLogType

	// StepID is set for step-level records, empty for run-level ones.
	StepID string

	// Small, human-oriented details (e.g. an error string).
	// Keep this low-volume: do NOT dump large payloads here.
	Detail string
}
