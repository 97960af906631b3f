package engine

import (
	"fmt"

	"github.com/aerynos/carve/pkg/storage"
)

// HandleKind distinguishes the two resource kinds a binding can resolve to.
type HandleKind string

const (
	HandleKindDisk      HandleKind = "disk"
	HandleKindPartition HandleKind = "partition"
)

// ResolvedHandle is a typed reference to a resource found or created by an
// earlier step. The engine holds no ownership of the underlying resource;
// descriptors are snapshots taken at bind time.
type ResolvedHandle struct {
	Kind HandleKind `json:"kind"`

	// Disk is set when Kind is HandleKindDisk.
	Disk *storage.DiskDescriptor `json:"disk,omitempty"`

	// Partition is set when Kind is HandleKindPartition. DiskID names the
	// disk the partition lives on.
	Partition *storage.PartitionDescriptor `json:"partition,omitempty"`
	DiskID    string                       `json:"disk_id,omitempty"`
}

// Bindings maps symbolic names to resolved resource handles. A table is
// scoped to one strategy execution; it is created at execution start and
// either discarded or persisted as part of the report.
//
// By default a later step may rebind a name bound by an inherited step
// (a derived strategy augments, not replaces, inherited behavior). With
// strict mode enabled, rebinding is a definition error instead.
type Bindings struct {
	entries map[string]ResolvedHandle
	order   []string
	strict  bool
}

// NewBindings creates an empty binding table. When strict is true,
// rebinding an already-bound name fails instead of overwriting.
func NewBindings(strict bool) *Bindings {
	return &Bindings{
		entries: make(map[string]ResolvedHandle),
		strict:  strict,
	}
}

// BindDisk records a disk under the given name.
func (b *Bindings) BindDisk(name string, disk storage.DiskDescriptor) error {
	return b.bind(name, ResolvedHandle{Kind: HandleKindDisk, Disk: &disk})
}

// BindPartition records a partition, and the disk it lives on, under the
// given name.
func (b *Bindings) BindPartition(name, diskID string, part storage.PartitionDescriptor) error {
	return b.bind(name, ResolvedHandle{Kind: HandleKindPartition, Partition: &part, DiskID: diskID})
}

func (b *Bindings) bind(name string, handle ResolvedHandle) error {
	if name == "" {
		return NewDefinitionError(ErrCodeDefinition, "binding name is empty", nil)
	}
	if _, exists := b.entries[name]; exists {
		if b.strict {
			return NewDefinitionError(ErrCodeDefinition,
				fmt.Sprintf("binding %q is already in use (ambiguous reference)", name), nil)
		}
	} else {
		b.order = append(b.order, name)
	}
	b.entries[name] = handle
	return nil
}

// Disk resolves a name to a disk handle. It fails with UNBOUND_REFERENCE
// when the name is unknown or bound to a partition.
func (b *Bindings) Disk(name string) (storage.DiskDescriptor, error) {
	handle, ok := b.entries[name]
	if !ok {
		return storage.DiskDescriptor{}, NewExecutionError(ErrCodeUnboundReference,
			fmt.Sprintf("no binding named %q", name), nil)
	}
	if handle.Kind != HandleKindDisk {
		return storage.DiskDescriptor{}, NewExecutionError(ErrCodeUnboundReference,
			fmt.Sprintf("binding %q is a %s, not a disk", name, handle.Kind), nil)
	}
	return *handle.Disk, nil
}

// Partition resolves a name to a partition handle. It fails with
// UNBOUND_REFERENCE when the name is unknown or bound to a disk.
func (b *Bindings) Partition(name string) (storage.PartitionDescriptor, string, error) {
	handle, ok := b.entries[name]
	if !ok {
		return storage.PartitionDescriptor{}, "", NewExecutionError(ErrCodeUnboundReference,
			fmt.Sprintf("no binding named %q", name), nil)
	}
	if handle.Kind != HandleKindPartition {
		return storage.PartitionDescriptor{}, "", NewExecutionError(ErrCodeUnboundReference,
			fmt.Sprintf("binding %q is a %s, not a partition", name, handle.Kind), nil)
	}
	return *handle.Partition, handle.DiskID, nil
}

// Lookup returns the raw handle bound to name.
func (b *Bindings) Lookup(name string) (ResolvedHandle, bool) {
	handle, ok := b.entries[name]
	return handle, ok
}

// Names returns the bound names in first-bind order.
func (b *Bindings) Names() []string {
	return append([]string(nil), b.order...)
}

// Snapshot copies the table for diagnostic reporting.
func (b *Bindings) Snapshot() map[string]ResolvedHandle {
	out := make(map[string]ResolvedHandle, len(b.entries))
	for name, handle := range b.entries {
		out[name] = handle
	}
	return out
}
