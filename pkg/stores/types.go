package stores

import (
	"context"
	"time"
)

// RunStatus represents the recorded outcome of a strategy execution.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// EventLevel represents the severity level of an event.
type EventLevel string

const (
	EventLevelDebug   EventLevel = "debug"
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Run is the persisted record of one strategy execution.
type Run struct {
	ID          string     `json:"id"`
	Strategy    string     `json:"strategy"`
	Mode        string     `json:"mode"` // dry-run or apply
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	ErrorCode   *string    `json:"error_code,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// StepRecord is the persisted outcome of one step within a run.
type StepRecord struct {
	RunID       string  `json:"run_id"`
	StepIndex   int     `json:"step_index"`
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	DiskID      *string `json:"disk_id,omitempty"`
	Binding     *string `json:"binding,omitempty"`
	Offset      *uint64 `json:"offset,omitempty"`
	Size        *uint64 `json:"size,omitempty"`
	Error       *string `json:"error,omitempty"`
	DurationUS  int64   `json:"duration_us"`
}

// Event is an append-only log entry attached to a run.
type Event struct {
	ID        int64      `json:"id"`
	RunID     *string    `json:"run_id,omitempty"`
	Level     EventLevel `json:"level"`
	Message   string     `json:"message"`
	Details   *string    `json:"details,omitempty"` // JSON blob
	Timestamp time.Time  `json:"timestamp"`
}

// Store defines the interface for the report persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	FinishRun(ctx context.Context, id string, status RunStatus, errMsg, errCode *string) error
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Step operations
	SaveSteps(ctx context.Context, runID string, steps []*StepRecord) error
	ListStepsByRun(ctx context.Context, runID string) ([]*StepRecord, error)

	// Event operations
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, runID *string, level *EventLevel, limit, offset int) ([]*Event, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
