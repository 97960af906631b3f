package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend is an in-memory Backend implementation. It models disks
// the way a block layer reports them, without touching hardware, and is
// used for tests, dry-run previews and rehearsal provisioning.
type MemoryBackend struct {
	mu    sync.Mutex
	disks map[string]*memDisk
}

type memDisk struct {
	descriptor DiskDescriptor
	nextNumber uint32
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		disks: make(map[string]*memDisk),
	}
}

// AddDisk registers a new empty disk and returns its descriptor. The disk
// ID is derived from the device name.
func (b *MemoryBackend) AddDisk(name string, size uint64) DiskDescriptor {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := &memDisk{
		descriptor: DiskDescriptor{
			ID:     "/dev/" + name,
			Name:   name,
			Model:  "Memory Device",
			Vendor: "carve",
			Size:   size,
		},
		nextNumber: 1,
	}
	b.disks[d.descriptor.ID] = d
	return d.descriptor
}

// SeedPartition places an existing partition on a disk for test setups
// that exercise find-partition against pre-populated devices. The disk is
// given a GPT table if it has none.
func (b *MemoryBackend) SeedPartition(diskID string, size uint64, typeGUID, role, label string) (PartitionDescriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.disks[diskID]
	if !ok {
		return PartitionDescriptor{}, fmt.Errorf("%w: %s", ErrDiskNotFound, diskID)
	}
	if d.descriptor.TableType == "" {
		d.descriptor.TableType = "gpt"
	}
	return d.allocate(PartitionRequest{
		Size:     size,
		TypeGUID: typeGUID,
		Role:     role,
		Label:    label,
	})
}

// EnumerateDisks implements Backend. Disks are returned sorted by ID so
// selection is deterministic across runs.
func (b *MemoryBackend) EnumerateDisks(ctx context.Context) ([]DiskDescriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]DiskDescriptor, 0, len(b.disks))
	for _, d := range b.disks {
		out = append(out, cloneDescriptor(d.descriptor))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetDisk implements Backend.
func (b *MemoryBackend) GetDisk(ctx context.Context, diskID string) (DiskDescriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.disks[diskID]
	if !ok {
		return DiskDescriptor{}, fmt.Errorf("%w: %s", ErrDiskNotFound, diskID)
	}
	return cloneDescriptor(d.descriptor), nil
}

// CreatePartitionTable implements Backend.
func (b *MemoryBackend) CreatePartitionTable(ctx context.Context, diskID, tableType string, force bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.disks[diskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDiskNotFound, diskID)
	}

	switch tableType {
	case "gpt", "mbr":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedTableType, tableType)
	}

	if (d.descriptor.TableType != "" || len(d.descriptor.Partitions) > 0) && !force {
		return fmt.Errorf("%w: %s", ErrDiskNotEmpty, diskID)
	}

	d.descriptor.TableType = tableType
	d.descriptor.Partitions = nil
	d.nextNumber = 1
	return nil
}

// CreatePartition implements Backend.
func (b *MemoryBackend) CreatePartition(ctx context.Context, diskID string, req PartitionRequest) (PartitionDescriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.disks[diskID]
	if !ok {
		return PartitionDescriptor{}, fmt.Errorf("%w: %s", ErrDiskNotFound, diskID)
	}
	if d.descriptor.TableType == "" {
		return PartitionDescriptor{}, fmt.Errorf("%w: %s", ErrNoPartitionTable, diskID)
	}
	return d.allocate(req)
}

// FindPartition implements Backend.
func (b *MemoryBackend) FindPartition(ctx context.Context, diskID string, filter PartitionFilter) (*PartitionDescriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.disks[diskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDiskNotFound, diskID)
	}
	for _, p := range d.descriptor.Partitions {
		if filter.Matches(p) {
			match := p
			return &match, nil
		}
	}
	return nil, nil
}

// allocate appends a partition after the last existing one. Callers hold
// the backend lock.
func (d *memDisk) allocate(req PartitionRequest) (PartitionDescriptor, error) {
	if req.Size == 0 {
		return PartitionDescriptor{}, fmt.Errorf("partition size must be positive")
	}

	start := d.descriptor.NextFreeOffset()
	if req.Size > d.descriptor.FreeSpace() {
		return PartitionDescriptor{}, fmt.Errorf("%w: need %d bytes, %d free",
			ErrInsufficientSpace, req.Size, d.descriptor.FreeSpace())
	}

	id := req.UUID
	if id == "" {
		id = uuid.New().String()
	}

	p := PartitionDescriptor{
		ID:       id,
		Number:   d.nextNumber,
		Start:    start,
		Size:     req.Size,
		TypeGUID: req.TypeGUID,
		Role:     req.Role,
		Label:    req.Label,
	}
	d.nextNumber++
	d.descriptor.Partitions = append(d.descriptor.Partitions, p)
	return p, nil
}

func cloneDescriptor(d DiskDescriptor) DiskDescriptor {
	out := d
	out.Partitions = append([]PartitionDescriptor(nil), d.Partitions...)
	return out
}
