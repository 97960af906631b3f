package sizing

// Alignment is the default partition alignment boundary. Modern disks and
// partitioning tools align partition starts and sizes to 1MiB.
const Alignment = MiB

// IsAligned reports whether value is a multiple of the alignment boundary.
func IsAligned(value, alignment uint64) bool {
	return alignment != 0 && value%alignment == 0
}

// AlignUp rounds value up to the next multiple of alignment, unless it is
// already aligned.
func AlignUp(value, alignment uint64) uint64 {
	if alignment == 0 {
		return value
	}
	remainder := value % alignment
	if remainder == 0 {
		return value
	}
	return value + (alignment - remainder)
}

// AlignDown rounds value down to the previous multiple of alignment.
func AlignDown(value, alignment uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return value - value%alignment
}
