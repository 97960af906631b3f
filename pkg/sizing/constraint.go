package sizing

import "fmt"

// Constraint is an inclusive size range gating disk selection and
// partition allocation. Max == 0 means the range is unbounded above.
type Constraint struct {
	Min Quantity `json:"min"`
	Max Quantity `json:"max,omitempty"`
}

// NewConstraint builds a constraint, rejecting ranges that can never be
// satisfied. A zero max leaves the range unbounded above.
func NewConstraint(min, max Quantity) (Constraint, error) {
	c := Constraint{Min: min, Max: max}
	if err := c.Validate(); err != nil {
		return Constraint{}, err
	}
	return c, nil
}

// Validate checks the range invariants: the minimum is positive and does
// not exceed the maximum when one is set.
func (c Constraint) Validate() error {
	if c.Min == 0 {
		return fmt.Errorf("constraint minimum must be positive")
	}
	if c.Max != 0 && c.Min > c.Max {
		return fmt.Errorf("constraint minimum %s exceeds maximum %s", c.Min, c.Max)
	}
	return nil
}

// Bounded reports whether the constraint has an upper bound.
func (c Constraint) Bounded() bool {
	return c.Max != 0
}

// Satisfies reports whether a candidate byte size falls within the range.
func (c Constraint) Satisfies(size uint64) bool {
	if size < uint64(c.Min) {
		return false
	}
	if c.Max != 0 && size > uint64(c.Max) {
		return false
	}
	return true
}

// Clamp returns the largest byte size within the range that does not
// exceed the available space. The second return value is false when even
// the minimum does not fit.
func (c Constraint) Clamp(available uint64) (uint64, bool) {
	if available < uint64(c.Min) {
		return 0, false
	}
	if c.Max != 0 && available > uint64(c.Max) {
		return uint64(c.Max), true
	}
	return available, true
}

// String renders the range in human-readable form.
func (c Constraint) String() string {
	if c.Max == 0 {
		return fmt.Sprintf("at least %s", c.Min)
	}
	if c.Min == c.Max {
		return fmt.Sprintf("exactly %s", c.Min)
	}
	return fmt.Sprintf("between %s and %s", c.Min, c.Max)
}
