// Package strategy defines the intermediate representation for declarative
// partitioning strategies: named, inheritable, ordered sequences of
// partitioning steps. Values are immutable once parsed; the engine package
// composes and executes them.
package strategy

import (
	"fmt"
	"strings"

	"github.com/aerynos/carve/pkg/sizing"
)

// StepKind identifies the variant of a partitioning step.
type StepKind string

const (
	StepKindFindDisk             StepKind = "find-disk"
	StepKindCreatePartitionTable StepKind = "create-partition-table"
	StepKindCreatePartition      StepKind = "create-partition"
	StepKindFindPartition        StepKind = "find-partition"
)

// Role is the semantic tag of a partition. An empty role means a plain
// data partition.
type Role string

const (
	RoleNone         Role = ""
	RoleBoot         Role = "boot"
	RoleExtendedBoot Role = "extended-boot"
	RoleSwap         Role = "swap"
)

// ParseRole parses a role name from a strategy document.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleNone, RoleBoot, RoleExtendedBoot, RoleSwap:
		return Role(value), nil
	default:
		return RoleNone, fmt.Errorf("unknown partition role %q", value)
	}
}

// TableType is the kind of partition table a create-partition-table step
// initializes.
type TableType string

const (
	TableTypeGPT TableType = "gpt"
	TableTypeMBR TableType = "mbr"
)

// ParseTableType parses a partition table type name.
func ParseTableType(value string) (TableType, error) {
	switch TableType(strings.ToLower(value)) {
	case TableTypeGPT:
		return TableTypeGPT, nil
	case TableTypeMBR:
		return TableTypeMBR, nil
	default:
		return "", fmt.Errorf("unknown partition table type %q", value)
	}
}

// Canonical GPT partition type GUIDs, as published by the discoverable
// partitions specification.
const (
	GUIDEfiSystemPartition = "C12A7328-F81F-11D2-BA4B-00A0C93EC93B"
	GUIDExtendedBootLoader = "BC13C2FF-59E6-4262-A352-B275FD6F7172"
	GUIDLinuxSwap          = "0657FD6D-A4AB-43C4-84E5-0933C84B4F4F"
	GUIDLinuxFilesystem    = "0FC63DAF-8483-4772-8E79-3D69D8477DE4"
)

// partitionTypeNames maps the symbolic partition type names accepted in
// strategy documents to their GPT type GUIDs.
var partitionTypeNames = map[string]string{
	"efi-system-partition": GUIDEfiSystemPartition,
	"linux-extended-boot":  GUIDExtendedBootLoader,
	"linux-swap":           GUIDLinuxSwap,
	"linux-fs":             GUIDLinuxFilesystem,
}

// ParsePartitionTypeGUID resolves a symbolic partition type name or a raw
// GUID into the canonical uppercase GUID string.
func ParsePartitionTypeGUID(value string) (string, error) {
	if guid, ok := partitionTypeNames[strings.ToLower(value)]; ok {
		return guid, nil
	}
	candidate := strings.ToUpper(value)
	if guidPattern(candidate) {
		return candidate, nil
	}
	return "", fmt.Errorf("unknown partition type %q (supported: efi-system-partition, linux-extended-boot, linux-swap, linux-fs, or a raw GUID)", value)
}

// guidPattern reports whether s looks like an 8-4-4-4-12 GUID.
func guidPattern(s string) bool {
	groups := strings.Split(s, "-")
	if len(groups) != 5 {
		return false
	}
	lengths := [5]int{8, 4, 4, 4, 12}
	for i, g := range groups {
		if len(g) != lengths[i] {
			return false
		}
		for _, c := range g {
			if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
				return false
			}
		}
	}
	return true
}

// Step is one declarative partitioning action. The concrete types are
// FindDisk, CreatePartitionTable, CreatePartition and FindPartition.
type Step interface {
	Kind() StepKind

	// Describe renders the step for plan output and logs.
	Describe() string
}

// FindDisk selects a disk whose size satisfies the constraint and binds it
// under Name for later steps.
type FindDisk struct {
	Name        string           `json:"name" validate:"required"`
	Constraints sizing.Constraint `json:"constraints"`
}

func (s FindDisk) Kind() StepKind { return StepKindFindDisk }

func (s FindDisk) Describe() string {
	return fmt.Sprintf("find disk %q sized %s", s.Name, s.Constraints)
}

// CreatePartitionTable initializes a partition table on a previously bound
// disk.
type CreatePartitionTable struct {
	Disk string    `json:"disk" validate:"required"`
	Type TableType `json:"type" validate:"required"`
}

func (s CreatePartitionTable) Kind() StepKind { return StepKindCreatePartitionTable }

func (s CreatePartitionTable) Describe() string {
	return fmt.Sprintf("create %s partition table on disk %q", s.Type, s.Disk)
}

// CreatePartition carves a new partition out of the free space on a bound
// disk and binds it under ID.
type CreatePartition struct {
	Disk        string           `json:"disk" validate:"required"`
	ID          string           `json:"id" validate:"required"`
	Role        Role             `json:"role,omitempty"`
	TypeGUID    string           `json:"type_guid,omitempty"`
	Constraints sizing.Constraint `json:"constraints"`
}

func (s CreatePartition) Kind() StepKind { return StepKindCreatePartition }

func (s CreatePartition) Describe() string {
	if s.Role != RoleNone {
		return fmt.Sprintf("create %s partition %q on disk %q, %s", s.Role, s.ID, s.Disk, s.Constraints)
	}
	return fmt.Sprintf("create partition %q on disk %q, %s", s.ID, s.Disk, s.Constraints)
}

// FindPartition looks up an existing partition on a bound disk by role or
// type GUID and binds it under ID.
type FindPartition struct {
	Disk     string `json:"disk" validate:"required"`
	ID       string `json:"id" validate:"required"`
	Role     Role   `json:"role,omitempty"`
	TypeGUID string `json:"type_guid,omitempty"`
}

func (s FindPartition) Kind() StepKind { return StepKindFindPartition }

func (s FindPartition) Describe() string {
	return fmt.Sprintf("find partition %q on disk %q", s.ID, s.Disk)
}

// Strategy is a named, inheritable, ordered sequence of partitioning
// steps. A strategy names at most one parent; its effective step sequence
// is the parent's effective steps followed by its own.
type Strategy struct {
	// Name uniquely identifies the strategy within a registry.
	Name string `json:"name" validate:"required"`

	// Parent is the name of the inherited strategy, if any.
	Parent string `json:"parent,omitempty"`

	// Description is free-form text shown when listing strategies.
	Description string `json:"description,omitempty"`

	// Steps are the strategy's own declared steps, in declaration order.
	Steps []Step `json:"steps"`
}

// Describe renders a one-line summary of the strategy.
func (s *Strategy) Describe() string {
	if s.Parent != "" {
		return fmt.Sprintf("%s (inherits %s, %d steps)", s.Name, s.Parent, len(s.Steps))
	}
	return fmt.Sprintf("%s (%d steps)", s.Name, len(s.Steps))
}
