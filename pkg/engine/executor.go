package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aerynos/carve/pkg/sizing"
	"github.com/aerynos/carve/pkg/storage"
	"github.com/aerynos/carve/pkg/strategy"
	"github.com/aerynos/carve/pkg/telemetry"
)

// ExecutorOptions tunes executor behavior.
type ExecutorOptions struct {
	// StrictBindings makes rebinding an already-bound name a definition
	// error. By default a derived strategy may rebind names bound by
	// inherited steps.
	StrictBindings bool

	// Force allows create-partition-table to overwrite a disk that already
	// carries a table or partitions.
	Force bool

	// Logger receives per-step progress. Nil disables logging.
	Logger *telemetry.Logger

	// Metrics receives run and step outcomes. Nil disables metrics.
	Metrics *telemetry.Metrics
}

// Executor interprets composed step sequences against a storage backend.
// A single executor may run many strategies, but a given disk must only be
// claimed by one execution at a time.
type Executor struct {
	registry *Registry
	backend  storage.Backend
	opts     ExecutorOptions
}

// NewExecutor creates an executor over the given registry and backend.
func NewExecutor(registry *Registry, backend storage.Backend, opts ExecutorOptions) *Executor {
	return &Executor{
		registry: registry,
		backend:  backend,
		opts:     opts,
	}
}

// Plan resolves the named strategy and computes the operations it would
// perform, without issuing any backend mutation. The free-space
// bookkeeping is identical to Apply, so a successful plan predicts a
// successful apply against an unchanged backend.
func (e *Executor) Plan(ctx context.Context, name string) (*Plan, error) {
	report, err := e.run(ctx, name, true)
	if err != nil {
		return nil, err
	}
	return report.Plan(), nil
}

// DryRun resolves the named strategy and returns the full dry-run report,
// including per-step outcomes and the binding table.
func (e *Executor) DryRun(ctx context.Context, name string) (*Report, error) {
	return e.run(ctx, name, true)
}

// Apply resolves the named strategy and executes it against the backend.
// On failure the returned report still describes every step: the failing
// one, the steps already committed, and the steps skipped after the
// failure. Committed steps are not rolled back.
func (e *Executor) Apply(ctx context.Context, name string) (*Report, error) {
	return e.run(ctx, name, false)
}

// diskState is the executor's local model of one claimed disk. All sizing
// decisions read this model; in apply mode the backend is the source of
// truth and the model is synced from its responses.
type diskState struct {
	descriptor storage.DiskDescriptor
	nextOffset uint64
	hasTable   bool
}

func newDiskState(d storage.DiskDescriptor) *diskState {
	return &diskState{
		descriptor: d,
		nextOffset: d.NextFreeOffset(),
		hasTable:   d.TableType != "",
	}
}

// freeSpace returns the bytes still available on the modeled disk.
func (s *diskState) freeSpace() uint64 {
	end := s.descriptor.UsableEnd()
	if s.nextOffset >= end {
		return 0
	}
	return end - s.nextOffset
}

// execution carries the mutable state of one run.
type execution struct {
	strategy string
	steps    []strategy.Step
	bindings *Bindings
	disks    map[string]*diskState
	claimed  map[string]bool
	dryRun   bool
	logger   *telemetry.Logger
}

// run executes the named strategy, in dry-run or apply mode.
func (e *Executor) run(ctx context.Context, name string, dryRun bool) (*Report, error) {
	steps, err := e.registry.Resolve(name)
	if err != nil {
		return nil, err
	}

	mode := "apply"
	if dryRun {
		mode = "dry-run"
	}

	logger := e.opts.Logger
	if logger == nil {
		logger = telemetry.FromContext(ctx)
	}

	report := &Report{
		ID:        uuid.New().String(),
		Strategy:  name,
		DryRun:    dryRun,
		StartedAt: time.Now(),
	}
	logger = logger.WithStrategy(name).WithReportID(report.ID)
	logger.Debugf("executing %d steps (%s)", len(steps), mode)
	e.opts.Metrics.RecordRunStarted(name, mode)

	exec := &execution{
		strategy: name,
		steps:    steps,
		bindings: NewBindings(e.opts.StrictBindings),
		disks:    make(map[string]*diskState),
		claimed:  make(map[string]bool),
		dryRun:   dryRun,
		logger:   logger,
	}

	var failure *EngineError
	for i, step := range steps {
		if failure != nil {
			report.Results = append(report.Results, StepResult{
				Index:       i,
				Kind:        step.Kind(),
				Description: step.Describe(),
				Status:      StepStatusSkipped,
			})
			e.opts.Metrics.RecordStepExecuted(string(step.Kind()), string(StepStatusSkipped), 0)
			continue
		}

		if err := ctx.Err(); err != nil {
			failure = NewExecutionError(ErrCodeBackend, "execution cancelled", err).
				WithStrategy(name).WithStep(i)
			report.Results = append(report.Results, StepResult{
				Index:       i,
				Kind:        step.Kind(),
				Description: step.Describe(),
				Status:      StepStatusFailed,
				Error:       failure.Error(),
			})
			continue
		}

		start := time.Now()
		op, stepErr := e.executeStep(ctx, exec, i, step)
		elapsed := time.Since(start)

		result := StepResult{
			Index:       i,
			Kind:        step.Kind(),
			Description: step.Describe(),
			Operation:   op,
			Duration:    elapsed,
		}
		if stepErr != nil {
			failure = stepErr.WithStrategy(name).WithStep(i)
			result.Status = StepStatusFailed
			result.Error = failure.Error()
			logger.WithStep(i, string(step.Kind())).WithError(failure).Error("step failed")
			e.opts.Metrics.RecordError(string(failure.Class), failure.Code)
		} else {
			if dryRun {
				result.Status = StepStatusPlanned
			} else {
				result.Status = StepStatusApplied
			}
			logger.WithStep(i, string(step.Kind())).Debug(op.Describe())
		}
		e.opts.Metrics.RecordStepExecuted(string(step.Kind()), string(result.Status), elapsed)
		report.Results = append(report.Results, result)
	}

	report.CompletedAt = time.Now()
	report.Bindings = exec.bindings.Snapshot()
	report.Error = failure

	status := "success"
	if failure != nil {
		status = "failure"
	}
	e.opts.Metrics.RecordRunCompleted(name, status, report.CompletedAt.Sub(report.StartedAt))

	if failure != nil {
		return report, failure
	}
	logger.Infof("completed %d steps (%s)", len(steps), mode)
	return report, nil
}

// executeStep dispatches one step and returns the resolved operation.
func (e *Executor) executeStep(ctx context.Context, exec *execution, index int, step strategy.Step) (*Operation, *EngineError) {
	switch st := step.(type) {
	case strategy.FindDisk:
		return e.findDisk(ctx, exec, st)
	case strategy.CreatePartitionTable:
		return e.createPartitionTable(ctx, exec, st)
	case strategy.CreatePartition:
		return e.createPartition(ctx, exec, index, st)
	case strategy.FindPartition:
		return e.findPartition(exec, st)
	default:
		return nil, NewExecutionError(ErrCodeDefinition,
			fmt.Sprintf("unknown step kind %q", step.Kind()), nil)
	}
}

// findDisk enumerates the backend's disks and selects the smallest one
// satisfying the constraint, so large disks stay available for strategies
// that need them. Ties break on disk ID; enumeration order is stable, so
// selection is deterministic. Disks already claimed by this execution are
// not considered.
func (e *Executor) findDisk(ctx context.Context, exec *execution, st strategy.FindDisk) (*Operation, *EngineError) {
	disks, err := e.backend.EnumerateDisks(ctx)
	if err != nil {
		return nil, NewExecutionError(ErrCodeBackend, "disk enumeration failed", err)
	}

	var selected *storage.DiskDescriptor
	for i := range disks {
		d := disks[i]
		if exec.claimed[d.ID] {
			continue
		}
		if !st.Constraints.Satisfies(d.Size) {
			continue
		}
		if selected == nil || d.Size < selected.Size ||
			(d.Size == selected.Size && d.ID < selected.ID) {
			selected = &disks[i]
		}
	}
	if selected == nil {
		return nil, NewExecutionError(ErrCodeNoMatchingDisk,
			fmt.Sprintf("no disk sized %s among %d candidate(s)", st.Constraints, len(disks)), nil)
	}

	if err := exec.bindings.BindDisk(st.Name, *selected); err != nil {
		return nil, asEngineError(err)
	}
	exec.claimed[selected.ID] = true
	exec.disks[selected.ID] = newDiskState(*selected)

	return &Operation{
		Kind:    strategy.StepKindFindDisk,
		DiskID:  selected.ID,
		Binding: st.Name,
		Size:    selected.Size,
	}, nil
}

// createPartitionTable initializes a table on a bound disk.
func (e *Executor) createPartitionTable(ctx context.Context, exec *execution, st strategy.CreatePartitionTable) (*Operation, *EngineError) {
	disk, err := exec.bindings.Disk(st.Disk)
	if err != nil {
		return nil, asEngineError(err)
	}
	state := exec.disks[disk.ID]

	if _, terr := strategy.ParseTableType(string(st.Type)); terr != nil {
		return nil, NewExecutionError(ErrCodeUnsupportedTableType, terr.Error(), nil)
	}

	if (state.hasTable || len(state.descriptor.Partitions) > 0) && !e.opts.Force {
		return nil, NewExecutionError(ErrCodeDiskNotEmpty,
			fmt.Sprintf("disk %s already carries a %s table; use force to overwrite",
				disk.ID, state.descriptor.TableType), nil)
	}

	if !exec.dryRun {
		if err := e.backendCreateTable(ctx, disk.ID, string(st.Type)); err != nil {
			return nil, mapBackendError(err)
		}
	}

	state.hasTable = true
	state.descriptor.TableType = string(st.Type)
	state.descriptor.Partitions = nil
	state.nextOffset = state.descriptor.UsableStart()

	return &Operation{
		Kind:      strategy.StepKindCreatePartitionTable,
		DiskID:    disk.ID,
		TableType: st.Type,
	}, nil
}

// createPartition sizes and allocates a new partition on a bound disk.
//
// The chosen size is the largest value within the step's constraint that
// fits the free space remaining after reserving the minimum sizes of all
// later create-partition steps targeting the same binding. Without the
// reservation, an unbounded or wide-ranged partition would swallow the
// disk and starve the steps after it.
func (e *Executor) createPartition(ctx context.Context, exec *execution, index int, st strategy.CreatePartition) (*Operation, *EngineError) {
	disk, err := exec.bindings.Disk(st.Disk)
	if err != nil {
		return nil, asEngineError(err)
	}
	state := exec.disks[disk.ID]

	if !state.hasTable {
		return nil, NewExecutionError(ErrCodeBackend,
			fmt.Sprintf("disk %s has no partition table", disk.ID), nil)
	}

	free := state.freeSpace()
	reserved := exec.reservedAfter(index, st.Disk)
	available := free
	if reserved >= available {
		available = 0
	} else {
		available -= reserved
	}
	available = sizing.AlignDown(available, sizing.Alignment)

	size, ok := st.Constraints.Clamp(available)
	if ok {
		size = sizing.AlignDown(size, sizing.Alignment)
		ok = st.Constraints.Satisfies(size)
	}
	if !ok {
		return nil, NewExecutionError(ErrCodeInsufficientSpace,
			fmt.Sprintf("partition %q needs %s but only %s is available on %s (%s free, %s reserved for later steps)",
				st.ID, st.Constraints, sizing.FormatSize(available), disk.ID,
				sizing.FormatSize(free), sizing.FormatSize(reserved)), nil)
	}

	offset := state.nextOffset
	part := storage.PartitionDescriptor{
		ID:       uuid.New().String(),
		Number:   uint32(len(state.descriptor.Partitions) + 1),
		Start:    offset,
		Size:     size,
		TypeGUID: st.TypeGUID,
		Role:     string(st.Role),
		Label:    st.ID,
	}

	if !exec.dryRun {
		created, err := e.backendCreatePartition(ctx, disk.ID, storage.PartitionRequest{
			Size:     size,
			TypeGUID: st.TypeGUID,
			Role:     string(st.Role),
			Label:    st.ID,
			UUID:     part.ID,
		})
		if err != nil {
			return nil, mapBackendError(err)
		}
		part = created
		e.opts.Metrics.RecordBytesAllocated(string(st.Role), created.Size)
	}

	state.descriptor.Partitions = append(state.descriptor.Partitions, part)
	state.nextOffset = sizing.AlignUp(part.Start+part.Size, sizing.Alignment)

	if err := exec.bindings.BindPartition(st.ID, disk.ID, part); err != nil {
		return nil, asEngineError(err)
	}

	return &Operation{
		Kind:     strategy.StepKindCreatePartition,
		DiskID:   disk.ID,
		Binding:  st.ID,
		Offset:   part.Start,
		Size:     part.Size,
		TypeGUID: st.TypeGUID,
		Role:     st.Role,
	}, nil
}

// reservedAfter sums the minimum sizes of the create-partition steps after
// index in the composed sequence that target the same disk binding.
func (exec *execution) reservedAfter(index int, diskBinding string) uint64 {
	var total uint64
	for _, step := range exec.steps[index+1:] {
		later, ok := step.(strategy.CreatePartition)
		if !ok || later.Disk != diskBinding {
			continue
		}
		total += sizing.AlignUp(uint64(later.Constraints.Min), sizing.Alignment)
	}
	return total
}

// findPartition locates an existing partition on a bound disk by role
// and/or type GUID. It searches the execution's local disk model, so
// partitions created by earlier steps of the same run are found in both
// dry-run and apply mode.
func (e *Executor) findPartition(exec *execution, st strategy.FindPartition) (*Operation, *EngineError) {
	disk, err := exec.bindings.Disk(st.Disk)
	if err != nil {
		return nil, asEngineError(err)
	}
	state := exec.disks[disk.ID]

	filter := storage.PartitionFilter{
		TypeGUID: st.TypeGUID,
		Role:     string(st.Role),
	}
	for _, p := range state.descriptor.Partitions {
		if filter.Matches(p) {
			if err := exec.bindings.BindPartition(st.ID, disk.ID, p); err != nil {
				return nil, asEngineError(err)
			}
			return &Operation{
				Kind:     strategy.StepKindFindPartition,
				DiskID:   disk.ID,
				Binding:  st.ID,
				Offset:   p.Start,
				Size:     p.Size,
				TypeGUID: p.TypeGUID,
				Role:     strategy.Role(p.Role),
			}, nil
		}
	}

	return nil, NewExecutionError(ErrCodePartitionNotFound,
		fmt.Sprintf("no partition on %s matches role=%q type=%q", disk.ID, st.Role, st.TypeGUID), nil)
}

// backendCreateTable issues the table mutation with call metrics.
func (e *Executor) backendCreateTable(ctx context.Context, diskID, tableType string) error {
	timer := telemetry.NewTimer()
	err := e.backend.CreatePartitionTable(ctx, diskID, tableType, e.opts.Force)
	e.opts.Metrics.RecordBackendCall("create_partition_table", callStatus(err), timer.Duration())
	return err
}

// backendCreatePartition issues the partition mutation with call metrics.
func (e *Executor) backendCreatePartition(ctx context.Context, diskID string, req storage.PartitionRequest) (storage.PartitionDescriptor, error) {
	timer := telemetry.NewTimer()
	part, err := e.backend.CreatePartition(ctx, diskID, req)
	e.opts.Metrics.RecordBackendCall("create_partition", callStatus(err), timer.Duration())
	return part, err
}

func callStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// mapBackendError translates storage sentinel errors into classified
// engine errors.
func mapBackendError(err error) *EngineError {
	switch {
	case errors.Is(err, storage.ErrDiskNotEmpty):
		return NewExecutionError(ErrCodeDiskNotEmpty, "disk is not empty", err)
	case errors.Is(err, storage.ErrUnsupportedTableType):
		return NewExecutionError(ErrCodeUnsupportedTableType, "unsupported partition table type", err)
	case errors.Is(err, storage.ErrInsufficientSpace):
		return NewExecutionError(ErrCodeInsufficientSpace, "insufficient free space", err)
	case errors.Is(err, storage.ErrDiskNotFound):
		return NewExecutionError(ErrCodeNoMatchingDisk, "disk disappeared during execution", err)
	default:
		return NewExecutionError(ErrCodeBackend, "storage backend call failed", err)
	}
}

// asEngineError coerces an error produced inside the engine to its
// concrete type.
func asEngineError(err error) *EngineError {
	var e *EngineError
	if errors.As(err, &e) {
		return e
	}
	return NewExecutionError(ErrCodeBackend, err.Error(), err)
}
