package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/aerynos/carve/pkg/sizing"
	"github.com/aerynos/carve/pkg/strategy"
)

// Operation is one resolved partitioning action: a step with its
// selection and sizing decisions already made.
type Operation struct {
	// Kind is the step variant the operation was resolved from.
	Kind strategy.StepKind `json:"kind"`

	// DiskID is the disk the operation targets.
	DiskID string `json:"disk_id"`

	// Binding is the name the operation's result is registered under,
	// when the step binds one.
	Binding string `json:"binding,omitempty"`

	// TableType is set for create-partition-table operations.
	TableType strategy.TableType `json:"table_type,omitempty"`

	// Offset and Size are the resolved placement for create-partition
	// operations. For find-disk, Size is the selected disk's capacity.
	Offset uint64 `json:"offset,omitempty"`
	Size   uint64 `json:"size,omitempty"`

	// TypeGUID and Role are the partition metadata to record.
	TypeGUID string        `json:"type_guid,omitempty"`
	Role     strategy.Role `json:"role,omitempty"`
}

// Describe renders the operation for plan output.
func (op Operation) Describe() string {
	switch op.Kind {
	case strategy.StepKindFindDisk:
		return fmt.Sprintf("use disk %s (%s) as %q", op.DiskID, sizing.FormatSize(op.Size), op.Binding)
	case strategy.StepKindCreatePartitionTable:
		return fmt.Sprintf("write %s partition table to %s", op.TableType, op.DiskID)
	case strategy.StepKindCreatePartition:
		role := ""
		if op.Role != strategy.RoleNone {
			role = string(op.Role) + " "
		}
		return fmt.Sprintf("create %spartition %q on %s at %s, %s",
			role, op.Binding, op.DiskID,
			sizing.FormatSize(op.Offset), sizing.FormatSize(op.Size))
	case strategy.StepKindFindPartition:
		return fmt.Sprintf("use existing partition on %s as %q", op.DiskID, op.Binding)
	default:
		return string(op.Kind)
	}
}

// Plan is the dry-run output: the ordered list of operations a strategy
// would perform, with resolved disks and sizes, for preview or approval.
type Plan struct {
	// ID uniquely identifies the plan.
	ID string `json:"id"`

	// Strategy is the name of the strategy the plan was resolved from.
	Strategy string `json:"strategy"`

	// CreatedAt is when the plan was computed.
	CreatedAt time.Time `json:"created_at"`

	// Operations are the intended actions in execution order.
	Operations []Operation `json:"operations"`
}

// Describe renders a human-readable multi-line summary of the plan.
func (p *Plan) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "strategy %s: %d operations\n", p.Strategy, len(p.Operations))
	for i, op := range p.Operations {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, op.Describe())
	}
	return sb.String()
}

// StepStatus is the per-step outcome recorded in a report.
type StepStatus string

const (
	// StepStatusPlanned marks a step resolved during a dry-run.
	StepStatusPlanned StepStatus = "planned"

	// StepStatusApplied marks a step whose backend mutation committed.
	StepStatusApplied StepStatus = "applied"

	// StepStatusFailed marks the first failing step.
	StepStatusFailed StepStatus = "failed"

	// StepStatusSkipped marks steps after the first failure. They were
	// never attempted; there is no rollback of committed steps.
	StepStatusSkipped StepStatus = "skipped"
)

// StepResult records the outcome of one composed step.
type StepResult struct {
	// Index is the position in the composed step sequence.
	Index int `json:"index"`

	// Kind and Description identify the step.
	Kind        strategy.StepKind `json:"kind"`
	Description string            `json:"description"`

	// Status is the outcome.
	Status StepStatus `json:"status"`

	// Operation is the resolved action, when the step got that far.
	Operation *Operation `json:"operation,omitempty"`

	// Error is the failure message for a failed step.
	Error string `json:"error,omitempty"`

	// Duration is how long the step took.
	Duration time.Duration `json:"duration"`
}

// Report is the execution output: per-step outcomes plus the final
// binding table, consumed by the CLI and persisted by the report store.
type Report struct {
	// ID uniquely identifies the execution.
	ID string `json:"id"`

	// Strategy is the executed strategy name.
	Strategy string `json:"strategy"`

	// DryRun is true when no backend mutation was issued.
	DryRun bool `json:"dry_run"`

	// StartedAt and CompletedAt delimit the execution.
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// Results holds one entry per composed step, in order.
	Results []StepResult `json:"results"`

	// Bindings is the binding table as it stood when execution finished
	// or aborted, for diagnostic reporting.
	Bindings map[string]ResolvedHandle `json:"bindings,omitempty"`

	// Error is the first failure, nil on success.
	Error *EngineError `json:"error,omitempty"`
}

// Succeeded reports whether every step completed.
func (r *Report) Succeeded() bool {
	return r.Error == nil
}

// Plan extracts the dry-run view: the ordered resolved operations.
func (r *Report) Plan() *Plan {
	plan := &Plan{
		ID:        r.ID,
		Strategy:  r.Strategy,
		CreatedAt: r.StartedAt,
	}
	for _, res := range r.Results {
		if res.Operation != nil {
			plan.Operations = append(plan.Operations, *res.Operation)
		}
	}
	return plan
}

// Describe renders a human-readable multi-line summary of the report.
func (r *Report) Describe() string {
	var sb strings.Builder
	mode := "apply"
	if r.DryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(&sb, "strategy %s (%s): %d steps\n", r.Strategy, mode, len(r.Results))
	for _, res := range r.Results {
		fmt.Fprintf(&sb, "  %d. [%s] %s", res.Index+1, res.Status, res.Description)
		if res.Error != "" {
			fmt.Fprintf(&sb, ": %s", res.Error)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
