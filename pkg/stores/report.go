package stores

import (
	"context"
	"time"

	"github.com/aerynos/carve/pkg/engine"
)

// RecordReport persists an execution report as a run with its step
// records. Dry-runs are recorded like applies, distinguished by mode.
func RecordReport(ctx context.Context, store Store, report *engine.Report) error {
	mode := "apply"
	if report.DryRun {
		mode = "dry-run"
	}

	status := RunStatusCompleted
	var errMsg, errCode *string
	if report.Error != nil {
		status = RunStatusFailed
		msg := report.Error.Error()
		errMsg = &msg
		errCode = &report.Error.Code
	}

	completed := report.CompletedAt
	run := &Run{
		ID:          report.ID,
		Strategy:    report.Strategy,
		Mode:        mode,
		Status:      status,
		StartedAt:   report.StartedAt,
		CompletedAt: &completed,
		Error:       errMsg,
		ErrorCode:   errCode,
		CreatedAt:   time.Now(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		return err
	}

	steps := make([]*StepRecord, 0, len(report.Results))
	for _, res := range report.Results {
		record := &StepRecord{
			RunID:       report.ID,
			StepIndex:   res.Index,
			Kind:        string(res.Kind),
			Description: res.Description,
			Status:      string(res.Status),
			DurationUS:  res.Duration.Microseconds(),
		}
		if res.Error != "" {
			msg := res.Error
			record.Error = &msg
		}
		if op := res.Operation; op != nil {
			record.DiskID = &op.DiskID
			if op.Binding != "" {
				record.Binding = &op.Binding
			}
			offset, size := op.Offset, op.Size
			record.Offset = &offset
			record.Size = &size
		}
		steps = append(steps, record)
	}

	return store.SaveSteps(ctx, report.ID, steps)
}
