package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/aerynos/carve/pkg/strategy"
)

// Registry holds parsed strategy definitions keyed by name and composes
// inheritance chains into ordered step sequences. Registered strategies
// are immutable; resolved sequences are memoized and may be shared
// read-only across concurrently running executors.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]*strategy.Strategy
	resolved   map[string][]strategy.Step
	validate   *validator.Validate
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]*strategy.Strategy),
		resolved:   make(map[string][]strategy.Step),
		validate:   validator.New(),
	}
}

// Register adds a single strategy definition. It fails when the name is
// already taken, when the parent is not registered, or when a step is
// structurally invalid. Registering a strategy whose parent chain loops
// back on itself fails with CYCLIC_INHERITANCE.
func (r *Registry) Register(s *strategy.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(s)
}

// RegisterAll adds a batch of strategy definitions that may reference each
// other as parents regardless of slice order. The batch is applied
// atomically: on any definition error the registry is left unchanged.
func (r *Registry) RegisterAll(defs []*strategy.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make(map[string]*strategy.Strategy, len(defs))
	for _, s := range defs {
		if err := r.validateDefinition(s); err != nil {
			return err
		}
		if _, exists := r.strategies[s.Name]; exists {
			return NewDefinitionError(ErrCodeDefinition,
				fmt.Sprintf("strategy %q is already registered", s.Name), nil).WithStrategy(s.Name)
		}
		if _, dup := staged[s.Name]; dup {
			return NewDefinitionError(ErrCodeDefinition,
				fmt.Sprintf("strategy %q is defined twice", s.Name), nil).WithStrategy(s.Name)
		}
		staged[s.Name] = s
	}

	lookup := func(name string) *strategy.Strategy {
		if s, ok := staged[name]; ok {
			return s
		}
		return r.strategies[name]
	}
	for _, s := range defs {
		if s.Parent != "" && lookup(s.Parent) == nil {
			return NewDefinitionError(ErrCodeDefinition,
				fmt.Sprintf("strategy %q inherits undefined strategy %q", s.Name, s.Parent), nil).
				WithStrategy(s.Name)
		}
		if err := checkInheritanceChain(s.Name, lookup); err != nil {
			return err
		}
	}

	for name, s := range staged {
		r.strategies[name] = s
	}
	return nil
}

// register adds one definition. Callers hold the write lock.
func (r *Registry) register(s *strategy.Strategy) error {
	if err := r.validateDefinition(s); err != nil {
		return err
	}

	if _, exists := r.strategies[s.Name]; exists {
		return NewDefinitionError(ErrCodeDefinition,
			fmt.Sprintf("strategy %q is already registered", s.Name), nil).WithStrategy(s.Name)
	}

	if s.Parent != "" && s.Parent != s.Name {
		if _, ok := r.strategies[s.Parent]; !ok {
			return NewDefinitionError(ErrCodeDefinition,
				fmt.Sprintf("strategy %q inherits undefined strategy %q", s.Name, s.Parent), nil).
				WithStrategy(s.Name)
		}
	}

	lookup := func(name string) *strategy.Strategy {
		if name == s.Name {
			return s
		}
		return r.strategies[name]
	}
	if err := checkInheritanceChain(s.Name, lookup); err != nil {
		return err
	}

	r.strategies[s.Name] = s
	return nil
}

// checkInheritanceChain walks the parent chain from name with a visited
// set; revisiting a name signals cyclic inheritance.
func checkInheritanceChain(name string, lookup func(string) *strategy.Strategy) error {
	visited := make(map[string]bool)
	chain := []string{}
	current := name
	for current != "" {
		if visited[current] {
			return NewDefinitionError(ErrCodeCyclicInheritance,
				fmt.Sprintf("cyclic inheritance: %s", strings.Join(append(chain, current), " -> ")), nil).
				WithStrategy(name)
		}
		visited[current] = true
		chain = append(chain, current)

		s := lookup(current)
		if s == nil {
			// Undefined parents are reported by the caller.
			return nil
		}
		current = s.Parent
	}
	return nil
}

// validateDefinition checks the structural invariants of a definition and
// each of its steps before any disk is touched.
func (r *Registry) validateDefinition(s *strategy.Strategy) error {
	if s == nil || s.Name == "" {
		return NewDefinitionError(ErrCodeDefinition, "strategy has no name", nil)
	}

	for i, step := range s.Steps {
		if err := r.validateStep(step); err != nil {
			return NewDefinitionError(ErrCodeDefinition,
				fmt.Sprintf("step %d (%s) is invalid", i, step.Kind()), err).WithStrategy(s.Name)
		}
	}
	return nil
}

// validateStep checks one step payload.
func (r *Registry) validateStep(step strategy.Step) error {
	if err := r.validate.Struct(step); err != nil {
		return err
	}

	switch st := step.(type) {
	case strategy.FindDisk:
		return st.Constraints.Validate()
	case strategy.CreatePartition:
		return st.Constraints.Validate()
	case strategy.FindPartition:
		if st.Role == strategy.RoleNone && st.TypeGUID == "" {
			return fmt.Errorf("find-partition needs a role or a type GUID to match on")
		}
	}
	return nil
}

// Resolve returns the fully composed step sequence for a strategy: its
// parent's effective steps, recursively resolved, followed by its own.
// Results are memoized; callers must treat the returned slice as
// read-only.
func (r *Registry) Resolve(name string) ([]strategy.Step, error) {
	r.mu.RLock()
	if steps, ok := r.resolved[name]; ok {
		r.mu.RUnlock()
		return steps, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(name, make(map[string]bool))
}

// resolve composes the effective sequence for name. Callers hold the
// write lock.
func (r *Registry) resolve(name string, visiting map[string]bool) ([]strategy.Step, error) {
	if steps, ok := r.resolved[name]; ok {
		return steps, nil
	}
	if visiting[name] {
		return nil, NewDefinitionError(ErrCodeCyclicInheritance,
			fmt.Sprintf("cyclic inheritance involving strategy %q", name), nil).WithStrategy(name)
	}

	s, ok := r.strategies[name]
	if !ok {
		return nil, NewDefinitionError(ErrCodeDefinition,
			fmt.Sprintf("strategy %q is not registered", name), nil).WithStrategy(name)
	}

	visiting[name] = true
	defer delete(visiting, name)

	var composed []strategy.Step
	if s.Parent != "" {
		parentSteps, err := r.resolve(s.Parent, visiting)
		if err != nil {
			return nil, err
		}
		composed = append(composed, parentSteps...)
	}
	composed = append(composed, s.Steps...)

	r.resolved[name] = composed
	return composed, nil
}

// Get returns a registered strategy definition by name.
func (r *Registry) Get(name string) (*strategy.Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// List returns all registered strategies sorted by name.
func (r *Registry) List() []*strategy.Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*strategy.Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
