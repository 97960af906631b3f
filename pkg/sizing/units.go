// Package sizing provides exact byte-quantity arithmetic for disk and
// partition sizing. All conversions use integer math so that identical
// inputs always produce identical partition layouts.
package sizing

import (
	"fmt"
	"strconv"
	"strings"
)

// Byte multipliers for the supported units. Decimal units follow SI,
// binary units follow IEC.
const (
	B   uint64 = 1
	KB  uint64 = 1000
	MB  uint64 = 1000 * KB
	GB  uint64 = 1000 * MB
	TB  uint64 = 1000 * GB
	KiB uint64 = 1024
	MiB uint64 = 1024 * KiB
	GiB uint64 = 1024 * MiB
	TiB uint64 = 1024 * GiB
)

// unitSuffixes maps unit suffixes to their byte multipliers. Longer
// suffixes must be matched before shorter ones.
var unitSuffixes = []struct {
	suffix     string
	multiplier uint64
}{
	{"KiB", KiB},
	{"MiB", MiB},
	{"GiB", GiB},
	{"TiB", TiB},
	{"KB", KB},
	{"MB", MB},
	{"GB", GB},
	{"TB", TB},
	{"K", KiB},
	{"M", MiB},
	{"G", GiB},
	{"T", TiB},
	{"B", B},
}

// Quantity is a byte count parsed from a unit-suffixed size expression.
type Quantity uint64

// ParseQuantity parses a size expression such as "30GB", "2GiB" or "512MiB"
// into a byte quantity. The numeric part must be a non-negative integer;
// fractional sizes are rejected because they cannot be represented exactly
// in every unit.
func ParseQuantity(s string) (Quantity, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty size expression")
	}

	number := trimmed
	multiplier := B
	for _, u := range unitSuffixes {
		if strings.HasSuffix(trimmed, u.suffix) {
			number = strings.TrimSpace(strings.TrimSuffix(trimmed, u.suffix))
			multiplier = u.multiplier
			break
		}
	}

	if strings.Contains(number, ".") {
		return 0, fmt.Errorf("fractional size %q not supported, use a smaller unit", s)
	}

	value, err := strconv.ParseUint(number, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size expression %q: %w", s, err)
	}

	if multiplier != 0 && value > ^uint64(0)/multiplier {
		return 0, fmt.Errorf("size expression %q overflows", s)
	}

	return Quantity(value * multiplier), nil
}

// Bytes returns the quantity as a raw byte count.
func (q Quantity) Bytes() uint64 {
	return uint64(q)
}

// String formats the quantity in human-readable binary units.
func (q Quantity) String() string {
	return FormatSize(uint64(q))
}

// FormatSize formats a byte count into a human-readable string using
// binary units with one decimal place.
func FormatSize(size uint64) string {
	switch {
	case size >= TiB:
		return fmt.Sprintf("%.1fTiB", float64(size)/float64(TiB))
	case size >= GiB:
		return fmt.Sprintf("%.1fGiB", float64(size)/float64(GiB))
	case size >= MiB:
		return fmt.Sprintf("%.1fMiB", float64(size)/float64(MiB))
	case size >= KiB:
		return fmt.Sprintf("%.1fKiB", float64(size)/float64(KiB))
	default:
		return fmt.Sprintf("%dB", size)
	}
}

// FormatPosition formats a disk offset as a percentage of the total size
// plus the absolute offset, for plan output.
func FormatPosition(pos, total uint64) string {
	if total == 0 {
		return FormatSize(pos)
	}
	return fmt.Sprintf("%d%% (%s)", pos*100/total, FormatSize(pos))
}
