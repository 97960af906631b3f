package stores

import (
	"context"
	"testing"
	"time"

	"github.com/aerynos/carve/pkg/engine"
	"github.com/aerynos/carve/pkg/strategy"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestStoreMissingPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("empty path should be rejected")
	}
}

func TestRunRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	run := &Run{
		ID:        "run-1",
		Strategy:  "whole_disk",
		Mode:      "apply",
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun returned error: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun returned error: %v", err)
	}
	if got.Strategy != "whole_disk" || got.Mode != "apply" || got.Status != RunStatusRunning {
		t.Errorf("GetRun = %+v", got)
	}

	errMsg := "boom"
	code := "INSUFFICIENT_SPACE"
	if err := store.FinishRun(ctx, "run-1", RunStatusFailed, &errMsg, &code); err != nil {
		t.Fatalf("FinishRun returned error: %v", err)
	}

	got, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun returned error: %v", err)
	}
	if got.Status != RunStatusFailed || got.Error == nil || *got.Error != "boom" {
		t.Errorf("finished run = %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("FinishRun should set completed_at")
	}

	if _, err := store.GetRun(ctx, "missing"); err == nil {
		t.Error("GetRun for unknown id should fail")
	}
	if err := store.FinishRun(ctx, "missing", RunStatusCompleted, nil, nil); err == nil {
		t.Error("FinishRun for unknown id should fail")
	}
}

func TestListRunsOrdering(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"old", "mid", "new"} {
		run := &Run{
			ID:        id,
			Strategy:  "s",
			Mode:      "dry-run",
			Status:    RunStatusCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			CreatedAt: base,
		}
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun(%s) returned error: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if runs[0].ID != "new" || runs[2].ID != "old" {
		t.Errorf("runs not ordered newest first: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	limited, err := store.ListRuns(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: got %d runs", len(limited))
	}
}

func TestStepsRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	run := &Run{
		ID: "run-1", Strategy: "s", Mode: "apply",
		Status: RunStatusCompleted, StartedAt: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun returned error: %v", err)
	}

	disk := "/dev/sda"
	offset := uint64(1 << 20)
	size := uint64(1 << 30)
	steps := []*StepRecord{
		{RunID: "run-1", StepIndex: 0, Kind: "find-disk", Description: "find disk", Status: "applied", DiskID: &disk},
		{RunID: "run-1", StepIndex: 1, Kind: "create-partition", Description: "create", Status: "applied", DiskID: &disk, Offset: &offset, Size: &size},
	}
	if err := store.SaveSteps(ctx, "run-1", steps); err != nil {
		t.Fatalf("SaveSteps returned error: %v", err)
	}

	got, err := store.ListStepsByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListStepsByRun returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d steps, want 2", len(got))
	}
	if got[1].Offset == nil || *got[1].Offset != offset {
		t.Errorf("step offset = %v", got[1].Offset)
	}
	if got[1].Size == nil || *got[1].Size != size {
		t.Errorf("step size = %v", got[1].Size)
	}
}

func TestDeleteRunCascades(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	run := &Run{
		ID: "run-1", Strategy: "s", Mode: "apply",
		Status: RunStatusCompleted, StartedAt: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun returned error: %v", err)
	}
	if err := store.SaveSteps(ctx, "run-1", []*StepRecord{
		{RunID: "run-1", StepIndex: 0, Kind: "find-disk", Description: "d", Status: "applied"},
	}); err != nil {
		t.Fatalf("SaveSteps returned error: %v", err)
	}

	if err := store.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteRun returned error: %v", err)
	}

	steps, err := store.ListStepsByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListStepsByRun returned error: %v", err)
	}
	if len(steps) != 0 {
		t.Errorf("steps survived run deletion: %d", len(steps))
	}
}

func TestEvents(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	runID := "run-1"
	run := &Run{
		ID: runID, Strategy: "s", Mode: "apply",
		Status: RunStatusCompleted, StartedAt: time.Now().UTC(), CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun returned error: %v", err)
	}

	event := &Event{
		RunID:     &runID,
		Level:     EventLevelInfo,
		Message:   "strategy applied",
		Timestamp: time.Now().UTC(),
	}
	if err := store.AppendEvent(ctx, event); err != nil {
		t.Fatalf("AppendEvent returned error: %v", err)
	}
	if event.ID == 0 {
		t.Error("AppendEvent should populate the event ID")
	}

	events, err := store.GetEvents(ctx, &runID, nil, 10, 0)
	if err != nil {
		t.Fatalf("GetEvents returned error: %v", err)
	}
	if len(events) != 1 || events[0].Message != "strategy applied" {
		t.Errorf("GetEvents = %+v", events)
	}

	errLevel := EventLevelError
	none, err := store.GetEvents(ctx, &runID, &errLevel, 10, 0)
	if err != nil {
		t.Fatalf("GetEvents returned error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("level filter ignored: %d events", len(none))
	}
}

func TestRecordReport(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	op := &engine.Operation{
		Kind:    strategy.StepKindCreatePartition,
		DiskID:  "/dev/sda",
		Binding: "esp",
		Offset:  1 << 20,
		Size:    1 << 30,
	}
	report := &engine.Report{
		ID:          "report-1",
		Strategy:    "whole_disk",
		DryRun:      true,
		StartedAt:   time.Now().UTC(),
		CompletedAt: time.Now().UTC(),
		Results: []engine.StepResult{
			{Index: 0, Kind: strategy.StepKindCreatePartition, Description: "create esp", Status: engine.StepStatusPlanned, Operation: op},
		},
	}

	if err := RecordReport(ctx, store, report); err != nil {
		t.Fatalf("RecordReport returned error: %v", err)
	}

	run, err := store.GetRun(ctx, "report-1")
	if err != nil {
		t.Fatalf("GetRun returned error: %v", err)
	}
	if run.Mode != "dry-run" || run.Status != RunStatusCompleted {
		t.Errorf("recorded run = %+v", run)
	}

	steps, err := store.ListStepsByRun(ctx, "report-1")
	if err != nil {
		t.Fatalf("ListStepsByRun returned error: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("got %d steps, want 1", len(steps))
	}
	if steps[0].Binding == nil || *steps[0].Binding != "esp" {
		t.Errorf("step binding = %v", steps[0].Binding)
	}
}
