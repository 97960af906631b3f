package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aerynos/carve/pkg/sizing"
)

func TestMemoryBackendEnumerateOrder(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	backend.AddDisk("sdb", 100*sizing.GB)
	backend.AddDisk("sda", 50*sizing.GB)

	disks, err := backend.EnumerateDisks(ctx)
	if err != nil {
		t.Fatalf("EnumerateDisks returned error: %v", err)
	}
	if len(disks) != 2 {
		t.Fatalf("got %d disks, want 2", len(disks))
	}
	if disks[0].ID != "/dev/sda" || disks[1].ID != "/dev/sdb" {
		t.Errorf("disks not sorted by ID: %s, %s", disks[0].ID, disks[1].ID)
	}
}

func TestMemoryBackendCreatePartitionTable(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	disk := backend.AddDisk("sda", 100*sizing.GB)

	if err := backend.CreatePartitionTable(ctx, disk.ID, "gpt", false); err != nil {
		t.Fatalf("CreatePartitionTable returned error: %v", err)
	}

	// Second write without force fails.
	err := backend.CreatePartitionTable(ctx, disk.ID, "gpt", false)
	if !errors.Is(err, ErrDiskNotEmpty) {
		t.Errorf("overwrite without force = %v, want ErrDiskNotEmpty", err)
	}

	// Force resets the disk.
	if err := backend.CreatePartitionTable(ctx, disk.ID, "mbr", true); err != nil {
		t.Errorf("forced overwrite returned error: %v", err)
	}
	got, err := backend.GetDisk(ctx, disk.ID)
	if err != nil {
		t.Fatalf("GetDisk returned error: %v", err)
	}
	if got.TableType != "mbr" {
		t.Errorf("table type = %q, want mbr", got.TableType)
	}

	if err := backend.CreatePartitionTable(ctx, disk.ID, "apm", true); !errors.Is(err, ErrUnsupportedTableType) {
		t.Errorf("unknown table type = %v, want ErrUnsupportedTableType", err)
	}

	if err := backend.CreatePartitionTable(ctx, "/dev/missing", "gpt", false); !errors.Is(err, ErrDiskNotFound) {
		t.Errorf("missing disk = %v, want ErrDiskNotFound", err)
	}
}

func TestMemoryBackendCreatePartition(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	disk := backend.AddDisk("sda", 10*sizing.GiB)

	// No table yet.
	_, err := backend.CreatePartition(ctx, disk.ID, PartitionRequest{Size: sizing.GiB})
	if !errors.Is(err, ErrNoPartitionTable) {
		t.Fatalf("partition without table = %v, want ErrNoPartitionTable", err)
	}

	if err := backend.CreatePartitionTable(ctx, disk.ID, "gpt", false); err != nil {
		t.Fatalf("CreatePartitionTable returned error: %v", err)
	}

	first, err := backend.CreatePartition(ctx, disk.ID, PartitionRequest{Size: sizing.GiB, Label: "esp"})
	if err != nil {
		t.Fatalf("CreatePartition returned error: %v", err)
	}
	if first.Number != 1 {
		t.Errorf("first partition number = %d, want 1", first.Number)
	}
	if first.Start != sizing.Alignment {
		t.Errorf("first partition start = %d, want %d", first.Start, sizing.Alignment)
	}
	if first.ID == "" {
		t.Error("backend should generate a partition UUID")
	}

	second, err := backend.CreatePartition(ctx, disk.ID, PartitionRequest{Size: 2 * sizing.GiB})
	if err != nil {
		t.Fatalf("CreatePartition returned error: %v", err)
	}
	if second.Start != first.Start+first.Size {
		t.Errorf("second partition start = %d, want %d", second.Start, first.Start+first.Size)
	}

	// Asking for more than remains fails.
	_, err = backend.CreatePartition(ctx, disk.ID, PartitionRequest{Size: 100 * sizing.GiB})
	if !errors.Is(err, ErrInsufficientSpace) {
		t.Errorf("oversized partition = %v, want ErrInsufficientSpace", err)
	}
}

func TestMemoryBackendFindPartition(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	disk := backend.AddDisk("sda", 10*sizing.GiB)

	seeded, err := backend.SeedPartition(disk.ID, sizing.GiB, "C12A7328-F81F-11D2-BA4B-00A0C93EC93B", "boot", "esp")
	if err != nil {
		t.Fatalf("SeedPartition returned error: %v", err)
	}

	found, err := backend.FindPartition(ctx, disk.ID, PartitionFilter{Role: "boot"})
	if err != nil {
		t.Fatalf("FindPartition returned error: %v", err)
	}
	if found == nil || found.ID != seeded.ID {
		t.Errorf("FindPartition by role = %+v, want seeded partition", found)
	}

	none, err := backend.FindPartition(ctx, disk.ID, PartitionFilter{Role: "swap"})
	if err != nil {
		t.Fatalf("FindPartition returned error: %v", err)
	}
	if none != nil {
		t.Errorf("FindPartition with no match = %+v, want nil", none)
	}
}

func TestDiskDescriptorFreeSpace(t *testing.T) {
	d := DiskDescriptor{Size: 10 * sizing.GiB}

	if d.UsableStart() != sizing.Alignment {
		t.Errorf("UsableStart = %d", d.UsableStart())
	}
	wantEnd := 10*sizing.GiB - sizing.Alignment
	if d.UsableEnd() != wantEnd {
		t.Errorf("UsableEnd = %d, want %d", d.UsableEnd(), wantEnd)
	}
	if d.FreeSpace() != wantEnd-sizing.Alignment {
		t.Errorf("FreeSpace = %d, want %d", d.FreeSpace(), wantEnd-sizing.Alignment)
	}

	d.Partitions = []PartitionDescriptor{{Start: sizing.Alignment, Size: sizing.GiB}}
	if d.NextFreeOffset() != sizing.Alignment+sizing.GiB {
		t.Errorf("NextFreeOffset = %d", d.NextFreeOffset())
	}

	tiny := DiskDescriptor{Size: sizing.MiB}
	if tiny.FreeSpace() != 0 {
		t.Errorf("tiny disk free space = %d, want 0", tiny.FreeSpace())
	}
}
