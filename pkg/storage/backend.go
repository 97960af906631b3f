// Package storage defines the backend capability the partitioning engine
// consumes: disk enumeration, partition table creation and partition
// allocation. The engine never manipulates block devices directly; real
// GPT writing lives behind this interface, and the in-memory backend in
// this package serves tests, dry-runs and rehearsal provisioning.
package storage

import (
	"context"
	"errors"

	"github.com/aerynos/carve/pkg/sizing"
)

// Sentinel errors reported by backends. The engine maps them onto its own
// classified error codes.
var (
	ErrDiskNotFound         = errors.New("disk not found")
	ErrDiskNotEmpty         = errors.New("disk is not empty")
	ErrUnsupportedTableType = errors.New("unsupported partition table type")
	ErrNoPartitionTable     = errors.New("disk has no partition table")
	ErrInsufficientSpace    = errors.New("insufficient free space")
)

// DiskDescriptor describes one block device known to the backend.
type DiskDescriptor struct {
	// ID uniquely identifies the disk, typically the device path.
	ID string `json:"id"`

	// Name is the short device name, e.g. "sda".
	Name string `json:"name"`

	// Model and Vendor are hardware identification strings, when known.
	Model  string `json:"model,omitempty"`
	Vendor string `json:"vendor,omitempty"`

	// Size is the total capacity in bytes.
	Size uint64 `json:"size"`

	// TableType is the partition table currently on the disk, empty when
	// the disk carries none.
	TableType string `json:"table_type,omitempty"`

	// Partitions are the existing partitions in on-disk order.
	Partitions []PartitionDescriptor `json:"partitions,omitempty"`
}

// UsableStart returns the first byte offset available for partitions. The
// first alignment boundary is reserved for partition table structures.
func (d DiskDescriptor) UsableStart() uint64 {
	return sizing.Alignment
}

// UsableEnd returns the first byte offset past the usable region. The
// trailing alignment boundary is reserved for the GPT backup header.
func (d DiskDescriptor) UsableEnd() uint64 {
	if d.Size < 2*sizing.Alignment {
		return sizing.Alignment
	}
	return sizing.AlignDown(d.Size-sizing.Alignment, sizing.Alignment)
}

// FreeSpace returns the bytes still available for new partitions,
// assuming sequential allocation after the last existing partition.
func (d DiskDescriptor) FreeSpace() uint64 {
	next := d.NextFreeOffset()
	end := d.UsableEnd()
	if next >= end {
		return 0
	}
	return end - next
}

// NextFreeOffset returns the aligned offset at which the next partition
// would start.
func (d DiskDescriptor) NextFreeOffset() uint64 {
	offset := d.UsableStart()
	for _, p := range d.Partitions {
		if end := sizing.AlignUp(p.Start+p.Size, sizing.Alignment); end > offset {
			offset = end
		}
	}
	return offset
}

// PartitionDescriptor describes one partition on a disk.
type PartitionDescriptor struct {
	// ID uniquely identifies the partition, typically its GPT unique GUID.
	ID string `json:"id"`

	// Number is the 1-based partition index within the table.
	Number uint32 `json:"number"`

	// Start is the byte offset of the partition on the disk.
	Start uint64 `json:"start"`

	// Size is the partition length in bytes.
	Size uint64 `json:"size"`

	// TypeGUID is the partition type identifier in the table entry.
	TypeGUID string `json:"type_guid,omitempty"`

	// Role is the semantic tag recorded for the partition, if any.
	Role string `json:"role,omitempty"`

	// Label is the human-readable partition name.
	Label string `json:"label,omitempty"`
}

// PartitionRequest carries the resolved parameters for a new partition.
// Sizing decisions belong to the engine; the backend only allocates.
type PartitionRequest struct {
	// Size is the exact partition size in bytes, already aligned.
	Size uint64 `json:"size"`

	// TypeGUID is the partition type to record in the table entry.
	TypeGUID string `json:"type_guid,omitempty"`

	// Role is the semantic tag to record, if any.
	Role string `json:"role,omitempty"`

	// Label is the partition name to record, if any.
	Label string `json:"label,omitempty"`

	// UUID is the unique partition GUID to assign. The backend generates
	// one when empty.
	UUID string `json:"uuid,omitempty"`
}

// PartitionFilter is a predicate for locating an existing partition. Empty
// fields match anything; set fields must all match.
type PartitionFilter struct {
	TypeGUID string `json:"type_guid,omitempty"`
	Role     string `json:"role,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Matches reports whether the filter accepts the partition.
func (f PartitionFilter) Matches(p PartitionDescriptor) bool {
	if f.TypeGUID != "" && f.TypeGUID != p.TypeGUID {
		return false
	}
	if f.Role != "" && f.Role != p.Role {
		return false
	}
	if f.Label != "" && f.Label != p.Label {
		return false
	}
	return true
}

// Backend is the storage capability consumed by the engine. A given disk
// must be exclusively claimed by one executing strategy at a time; the
// backend is not required to synchronize concurrent mutation of the same
// disk.
type Backend interface {
	// EnumerateDisks returns descriptors for all disks the backend knows,
	// in a stable order.
	EnumerateDisks(ctx context.Context) ([]DiskDescriptor, error)

	// GetDisk returns the current descriptor for one disk.
	GetDisk(ctx context.Context, diskID string) (DiskDescriptor, error)

	// CreatePartitionTable initializes a partition table on the disk.
	// Reports ErrDiskNotEmpty when the disk already carries a table or
	// partitions and force is false.
	CreatePartitionTable(ctx context.Context, diskID, tableType string, force bool) error

	// CreatePartition allocates a partition in the disk's free space and
	// returns its descriptor.
	CreatePartition(ctx context.Context, diskID string, req PartitionRequest) (PartitionDescriptor, error)

	// FindPartition returns the first existing partition matching the
	// filter, or nil when none match.
	FindPartition(ctx context.Context, diskID string, filter PartitionFilter) (*PartitionDescriptor, error)
}
